package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/embiggen/planetmap/internal/app"
	"github.com/embiggen/planetmap/internal/canvas"
	"github.com/embiggen/planetmap/internal/drawing"
	"github.com/embiggen/planetmap/internal/geo"
	"github.com/embiggen/planetmap/internal/session"
	"github.com/embiggen/planetmap/internal/tile"
)

var errQuit = errors.New("quit")

const usage = `commands:
  search <lat,lon>                       fly to a coordinate
  clear                                  remove search markers
  measure <lat,lon> <lat,lon>...         great-circle distance
  labels                                 reload and list labels
  label-add -title T [-desc D] [-color C] <lat,lon> x3+
  question -text T [-color C] <lat,lon> x3+
  thread <postId>                        show a question and its comments
  comment <postId> <text>                reply to a question
  analyze [-tile z/x/y] <question>       ask the AI about the centre tile
  tile <lat,lon> [zoom]                  tile index and URL of a point
  toggle-qa                              show or hide questions
  login <userId> | logout                set the session user
  panel                                  side-panel readout
  quit`

// shell runs commands against one mounted body on a headless canvas.
type shell struct {
	explorer *app.Explorer
	canvas   *canvas.Headless
	sessions *session.MemoryStore
	out      io.Writer
}

// repl reads one command per line until EOF or quit.
func (s *shell) repl(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(s.out, "> ")
	for scanner.Scan() {
		args, err := splitArgs(scanner.Text())
		if err != nil {
			fmt.Fprintln(s.out, "error:", err)
		} else if len(args) > 0 {
			err = s.run(ctx, args)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintln(s.out, "error:", err)
			}
		}
		fmt.Fprint(s.out, "> ")
	}
	return scanner.Err()
}

func (s *shell) run(ctx context.Context, args []string) error {
	cmd, rest := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "search":
		return s.search(ctx, rest)
	case "clear":
		s.explorer.Navigator().ClearSearch()
		return nil
	case "measure":
		return s.measure(rest)
	case "labels":
		return s.labels(ctx)
	case "label-add":
		return s.addLabel(ctx, rest)
	case "question":
		return s.addQuestion(ctx, rest)
	case "thread":
		return s.thread(rest)
	case "comment":
		return s.comment(ctx, rest)
	case "analyze":
		return s.analyze(ctx, rest)
	case "tile":
		return s.tile(ctx, rest)
	case "toggle-qa":
		s.explorer.ToggleQuestions()
		return nil
	case "login":
		if len(rest) != 1 {
			return fmt.Errorf("usage: login <userId>")
		}
		s.sessions.Set(session.UserIDKey, rest[0])
		return nil
	case "logout":
		s.sessions.Delete(session.UserIDKey)
		return nil
	case "panel":
		s.panel()
		return nil
	case "help":
		fmt.Fprintln(s.out, usage)
		return nil
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

func (s *shell) search(ctx context.Context, args []string) error {
	arrival, err := s.explorer.Navigator().Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "arrived at %s zoom %d (prefetched %d tiles, %d failed)\n",
		arrival.Target, arrival.Zoom, arrival.Prefetch.Attempted, arrival.Prefetch.Failed)
	return nil
}

func (s *shell) measure(args []string) error {
	points, err := parsePoints(args)
	if err != nil {
		return err
	}
	if len(points) < 2 {
		return fmt.Errorf("measurement needs at least 2 points")
	}
	d := s.explorer.Drawing()
	d.StartMeasure()
	if _, err := s.canvas.Complete(points); err != nil {
		d.Cancel()
		return err
	}
	km, _ := d.LastDistance()
	fmt.Fprintf(s.out, "%.2f km\n", km)
	return nil
}

func (s *shell) labels(ctx context.Context) error {
	labels, err := s.explorer.Store().LoadLabels(ctx, s.explorer.Body().DisplayName)
	for _, l := range labels {
		fmt.Fprintf(s.out, "%s\t%s\t%d vertices\t%s\n", l.ID, l.Title, len(l.Polygon), l.Color)
	}
	return err
}

func (s *shell) addLabel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("label-add", flag.ContinueOnError)
	fs.SetOutput(s.out)
	title := fs.String("title", "", "label title")
	desc := fs.String("desc", "", "label description")
	color := fs.String("color", "", "hex colour")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := s.draw(ctx, drawing.ModeDrawingLabel, *color, fs.Args(), drawing.Metadata{Title: *title, Description: *desc})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "label %s added\n", res.Label.ID)
	return nil
}

func (s *shell) addQuestion(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("question", flag.ContinueOnError)
	fs.SetOutput(s.out)
	text := fs.String("text", "", "question text")
	color := fs.String("color", "", "hex colour")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := s.draw(ctx, drawing.ModeDrawingQuestion, *color, fs.Args(), drawing.Metadata{Question: *text})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "question %s posted at %s\n", res.Question.ID, res.Question.Coordinate)
	return nil
}

// draw runs one drawing session from start to confirm. A failed confirm
// cancels the session so the next command starts clean.
func (s *shell) draw(ctx context.Context, mode drawing.Mode, color string, raw []string, md drawing.Metadata) (drawing.Result, error) {
	points, err := parsePoints(raw)
	if err != nil {
		return drawing.Result{}, err
	}
	d := s.explorer.Drawing()
	if color != "" {
		if err := d.SetColor(color); err != nil {
			return drawing.Result{}, err
		}
	}
	if mode == drawing.ModeDrawingLabel {
		d.StartLabel()
	} else {
		d.StartQuestion()
	}
	if _, err := s.canvas.Complete(points); err != nil {
		d.Cancel()
		return drawing.Result{}, err
	}
	res, err := d.Confirm(ctx, md)
	if err != nil {
		d.Cancel()
		return drawing.Result{}, err
	}
	return res, nil
}

func (s *shell) thread(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: thread <postId>")
	}
	t, err := s.explorer.Expand(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s\n  at %s\n", t.Post.Content, t.Post.Coordinate)
	for _, c := range t.Comments {
		fmt.Fprintf(s.out, "  - [%d] %s\n", c.OwnerUserID, c.Content)
	}
	return nil
}

func (s *shell) comment(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: comment <postId> <text>")
	}
	c, err := s.explorer.Store().AddComment(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "comment %s added\n", c.ID)
	return nil
}

func (s *shell) analyze(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(s.out)
	at := fs.String("tile", "", "tile as z/x/y, defaults to the centre tile")
	if err := fs.Parse(args); err != nil {
		return err
	}
	question := strings.Join(fs.Args(), " ")

	a := s.explorer.Analyzer()
	var err error
	var text string
	if *at != "" {
		idx, perr := parseTile(*at)
		if perr != nil {
			return perr
		}
		res, aerr := a.AnalyzeTile(ctx, idx, question)
		text, err = res.Document.PlainText(), aerr
	} else {
		res, aerr := a.AnalyzeVisible(ctx, question)
		text, err = res.Document.PlainText(), aerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, text)
	return nil
}

func (s *shell) tile(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return fmt.Errorf("usage: tile <lat,lon> [zoom]")
	}
	p, err := geo.ParseLatLon(args[0])
	if err != nil {
		return err
	}
	zoom := s.explorer.Viewport().TileZoom()
	if len(args) == 2 {
		if zoom, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("invalid zoom %q", args[1])
		}
	}
	idx := s.explorer.Engine().ToTileIndex(p.Lat, p.Lon, zoom)
	src := s.explorer.Tiles()
	data := src.Load(ctx, idx)
	fmt.Fprintf(s.out, "%s\t%s\t%d bytes\n", idx, src.URL(idx), len(data))
	return nil
}

func (s *shell) panel() {
	p := s.explorer.Panel()
	fmt.Fprintf(s.out, "body:      %s\n", p.Body)
	fmt.Fprintf(s.out, "zoom:      %.0f\n", p.Zoom)
	fmt.Fprintf(s.out, "centre:    %s\n", p.Center)
	fmt.Fprintf(s.out, "pointer:   %s\n", p.Pointer)
	fmt.Fprintf(s.out, "tile:      %s\n", p.Tile)
	fmt.Fprintf(s.out, "labels:    %d\n", p.Labels)
	fmt.Fprintf(s.out, "questions: %d\n", p.Questions)
	fmt.Fprintf(s.out, "mode:      %s\n", p.Mode)
	if p.Status != "" {
		fmt.Fprintf(s.out, "status:    %s\n", p.Status)
	}
}

func parsePoints(args []string) ([]geo.LatLon, error) {
	points := make([]geo.LatLon, 0, len(args))
	for _, a := range args {
		p, err := geo.ParseLatLon(a)
		if err != nil {
			return nil, fmt.Errorf("invalid point %q: %w", a, err)
		}
		points = append(points, p)
	}
	return points, nil
}

func parseTile(s string) (tile.Index, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return tile.Index{}, fmt.Errorf("invalid tile %q, want z/x/y", s)
	}
	var n [3]int
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return tile.Index{}, fmt.Errorf("invalid tile %q, want z/x/y", s)
		}
		n[i] = v
	}
	return tile.Index{Z: n[0], X: n[1], Y: n[2]}, nil
}

// splitArgs splits a command line on spaces, keeping double-quoted runs
// together.
func splitArgs(line string) ([]string, error) {
	var args []string
	var cur strings.Builder
	inQuote, started := false, false
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case unicode.IsSpace(r) && !inQuote:
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote")
	}
	if started {
		args = append(args, cur.String())
	}
	return args, nil
}
