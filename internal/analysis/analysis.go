// Package analysis asks the backend's AI to describe the tile at the
// centre of the view.
package analysis

import (
	"context"
	"log/slog"
	"strings"

	"github.com/embiggen/planetmap/internal/api"
	"github.com/embiggen/planetmap/internal/errors"
	"github.com/embiggen/planetmap/internal/tile"
)

// Remote runs the analysis.
type Remote interface {
	AnalyzeTile(ctx context.Context, req api.AnalyzeRequest) (string, error)
}

// View locates the tile under the centre of the view.
type View interface {
	CenterTile(engine *tile.Engine) tile.Index
}

// Result is one analysis.
type Result struct {
	Tile     tile.Index
	Question string
	Raw      string
	Document Document
}

// Analyzer runs analyses for one dataset.
type Analyzer struct {
	remote  Remote
	view    View
	engine  *tile.Engine
	dataset string
	logger  *slog.Logger
}

// New creates an Analyzer.
func New(remote Remote, view View, engine *tile.Engine, dataset string, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{remote: remote, view: view, engine: engine, dataset: dataset, logger: logger}
}

// AnalyzeVisible asks question about the tile at the centre of the view.
func (a *Analyzer) AnalyzeVisible(ctx context.Context, question string) (Result, error) {
	return a.AnalyzeTile(ctx, a.view.CenterTile(a.engine), question)
}

// AnalyzeTile asks question about idx.
func (a *Analyzer) AnalyzeTile(ctx context.Context, idx tile.Index, question string) (Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Result{}, errors.Validation("Question required")
	}
	if !a.engine.Contains(idx) {
		return Result{}, errors.Validationf("tile %s is outside the grid", idx)
	}

	raw, err := a.remote.AnalyzeTile(ctx, api.AnalyzeRequest{
		Dataset:  a.dataset,
		Z:        idx.Z,
		X:        idx.X,
		Y:        idx.Y,
		Question: question,
	})
	if err != nil {
		return Result{}, err
	}
	a.logger.Debug("tile analyzed", "tile", idx.String(), "chars", len(raw))
	return Result{Tile: idx, Question: question, Raw: raw, Document: Parse(raw)}, nil
}
