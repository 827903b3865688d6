package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embiggen/planetmap/internal/config"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/labels/get-labels/"):
			_, _ = io.WriteString(w, `{"labels":[]}`)
		case r.URL.Path == "/labels/add-labels":
			_, _ = io.WriteString(w, `{"label":{"id":101,"title":"Olympus Mons"}}`)
		case r.URL.Path == "/forum/create-post":
			_, _ = io.WriteString(w, `{"post":{"id":12}}`)
		case r.URL.Path == "/get-forum-thread":
			_, _ = io.WriteString(w, `{"post":{"id":12,"content":"What is this?","coordinates":[0.5,0.5]},
				"comments":[{"id":1,"post_id":12,"user_id":4,"content":"a dune field"}]}`)
		case r.URL.Path == "/api/ai/analyze-tile":
			_, _ = io.WriteString(w, `{"analysis":"**Dunes** visible"}`)
		case strings.HasPrefix(r.URL.Path, "/api/tiles/"):
			_, _ = w.Write([]byte("jpeg"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func writeConfig(t *testing.T, serverURL string) string {
	t.Helper()
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	cfg := fmt.Sprintf(`{
		"logsDir": %q,
		"api": {"serverUrl": %q, "analysisInterval": "1ms"},
		"navigation": {"flightDuration": "1ms"},
		"storage": {"type": "memory"}
	}`, filepath.Join(dir, "logs"), serverURL)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0o644))
	return dir
}

func runCLI(t *testing.T, in string, args ...string) (int, string) {
	t.Helper()
	var out bytes.Buffer
	args = append([]string{"-user", ""}, args...)
	code := run(context.Background(), args, strings.NewReader(in), &out)
	return code, out.String()
}

func TestRun_Search(t *testing.T) {
	dir := writeConfig(t, newBackend(t).URL)

	code, out := runCLI(t, "", "-config", dir, "search", "-14.5,", "175.4")

	assert.Equal(t, 0, code, out)
	assert.Contains(t, out, "[info] Navigating to coordinates...")
	assert.Contains(t, out, "prefetched 9 tiles, 0 failed")
	assert.Contains(t, out, "[info] Arrived!")
}

func TestRun_InvalidSearch(t *testing.T) {
	dir := writeConfig(t, newBackend(t).URL)

	code, out := runCLI(t, "", "-config", dir, "search", "abc")

	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Invalid coordinates")
}

func TestRun_UnknownBody(t *testing.T) {
	dir := writeConfig(t, newBackend(t).URL)

	code, out := runCLI(t, "", "-config", dir, "-body", "pluto", "panel")

	assert.Equal(t, 1, code)
	assert.Contains(t, out, "unknown celestial body")
}

func TestRun_UnknownCommand(t *testing.T) {
	dir := writeConfig(t, newBackend(t).URL)

	code, out := runCLI(t, "", "-config", dir, "teleport")

	assert.Equal(t, 1, code)
	assert.Contains(t, out, `unknown command "teleport"`)
}

func TestRun_Session(t *testing.T) {
	dir := writeConfig(t, newBackend(t).URL)
	script := strings.Join([]string{
		`measure 0,0 0,1`,
		`label-add -title "Olympus Mons" -color #4ecdc4 18.65,-133.8 18.65,-132.8 17.65,-132.8 17.65,-133.8`,
		`question -text "What is this?" 0,0 0,1 1,1`,
		`login 3`,
		`question -text "What is this?" 0,0 0,1 1,1`,
		`thread 12`,
		`analyze What is here?`,
		`tile 0,0 2`,
		`toggle-qa`,
		`panel`,
		`quit`,
		`panel`,
	}, "\n")

	code, out := runCLI(t, script, "-config", dir)

	assert.Equal(t, 0, code, out)
	assert.Contains(t, out, "59.16 km")
	assert.Contains(t, out, "label 101 added")
	assert.Contains(t, out, "please sign in first")
	assert.Contains(t, out, "question 12 posted")
	assert.Contains(t, out, "- [4] a dune field")
	assert.Contains(t, out, "Dunes visible")
	assert.Contains(t, out, "2/4/2\t")
	assert.Contains(t, out, "[info] Q&A hidden")
	assert.Contains(t, out, "labels:    1")
	assert.Contains(t, out, "questions: 1")
	assert.Equal(t, 1, strings.Count(out, "body:      Mars"), "commands after quit are not run")
}

func TestRun_Help(t *testing.T) {
	code, out := runCLI(t, "", "-h")

	assert.Equal(t, 0, code)
	assert.Contains(t, out, "label-add")
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{`search -14.5, 175.4`, []string{"search", "-14.5,", "175.4"}},
		{`label-add -title "Olympus Mons" 1,1`, []string{"label-add", "-title", "Olympus Mons", "1,1"}},
		{`  `, nil},
		{`comment 12 ""`, []string{"comment", "12", ""}},
	}
	for _, tt := range tests {
		got, err := splitArgs(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}

	_, err := splitArgs(`question -text "open`)
	assert.Error(t, err)
}

func TestParseTile(t *testing.T) {
	idx, err := parseTile("7/252/74")
	require.NoError(t, err)
	assert.Equal(t, 252, idx.X)

	for _, bad := range []string{"7/252", "a/b/c", ""} {
		_, err := parseTile(bad)
		assert.Error(t, err, bad)
	}
}
