package analysis

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embiggen/planetmap/internal/api"
	"github.com/embiggen/planetmap/internal/errors"
	"github.com/embiggen/planetmap/internal/geo"
	"github.com/embiggen/planetmap/internal/tile"
)

type fixedView tile.Index

func (v fixedView) CenterTile(*tile.Engine) tile.Index { return tile.Index(v) }

func TestAnalyzeVisible(t *testing.T) {
	var got api.AnalyzeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"analysis":"**Dunes** visible\nwind from the north"}`)
	}))
	defer server.Close()

	engine := tile.NewEngine(geo.Equirectangular{}, 1, 7)
	a := New(api.New(server.URL), fixedView{Z: 7, X: 252, Y: 74}, engine, "global", nil)

	res, err := a.AnalyzeVisible(context.Background(), " What is here? ")

	require.NoError(t, err)
	assert.Equal(t, api.AnalyzeRequest{Dataset: "global", Z: 7, X: 252, Y: 74, Question: "What is here?"}, got)
	assert.Equal(t, "<strong>Dunes</strong> visible<br>wind from the north", res.Document.HTML())
	assert.Equal(t, "Dunes visible\nwind from the north", res.Document.PlainText())
}

func TestAnalyze_Validation(t *testing.T) {
	engine := tile.NewEngine(geo.Equirectangular{}, 1, 7)
	a := New(api.New("http://127.0.0.1:1"), fixedView{Z: 7, X: 252, Y: 74}, engine, "global", nil)

	_, err := a.AnalyzeVisible(context.Background(), "  ")
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = a.AnalyzeTile(context.Background(), tile.Index{Z: 2, X: 99, Y: 0}, "q")
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Line
	}{
		{"plain", "rock", []Line{{{Text: "rock"}}}},
		{"bold", "a **b** c", []Line{{{Text: "a "}, {Text: "b", Bold: true}, {Text: " c"}}}},
		{"unmatched", "a **b", []Line{{{Text: "a **b"}}}},
		{"lines", "x\r\n**y**", []Line{{{Text: "x"}}, {{Text: "y", Bold: true}}}},
		{"empty line", "x\n\ny", []Line{{{Text: "x"}}, nil, {{Text: "y"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in).Lines)
		})
	}
}

func TestHTML_Escapes(t *testing.T) {
	assert.Equal(t, "<strong>&lt;b&gt;</strong> &amp;", Parse("**<b>** &").HTML())
}
