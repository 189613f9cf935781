package boardimage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/park285/hotseat-chess/internal/msgcat"
	"github.com/park285/hotseat-chess/internal/obslog"
	"github.com/park285/hotseat-chess/internal/rules"
	"github.com/park285/hotseat-chess/internal/session"
)

// Exporter writes board snapshots as board-<game id>-<ply>.png under dir.
type Exporter struct {
	dir      string
	renderer *Renderer
	catalog  *msgcat.Catalog
}

func NewExporter(dir string, renderer *Renderer, cat *msgcat.Catalog) (*Exporter, error) {
	if dir == "" {
		return nil, errors.New("snapshot dir is empty")
	}
	if renderer == nil {
		renderer = NewRenderer(DefaultSquareSize)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Exporter{dir: dir, renderer: renderer, catalog: cat}, nil
}

func (e *Exporter) Export(ctx context.Context, snap session.Snapshot) (string, error) {
	if snap.Position == nil {
		return "", errors.New("snapshot has no position")
	}
	opts := Options{
		Selected: snap.Selected,
		LastMove: snap.LastMove,
		Header:   e.catalog.RenderOr("ui.title", nil, "Chess"),
		Footer:   e.footer(snap),
	}
	data, err := e.renderer.RenderPNG(ctx, snap.Position.Board(), opts)
	if err != nil {
		return "", err
	}
	name := "board-" + snap.GameID + "-" + strconv.Itoa(snap.Ply) + ".png"
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	obslog.L().Info("board_snapshot_saved", zap.String("game_id", snap.GameID), zap.Int("ply", snap.Ply), zap.String("path", path))
	return path, nil
}

func (e *Exporter) footer(snap session.Snapshot) string {
	if snap.GameOver {
		return e.catalog.RenderOr("ui.game_over", map[string]any{"Result": snap.Result}, "Game over: "+snap.Result)
	}
	key := "side.white"
	if snap.SideToMove == rules.Black {
		key = "side.black"
	}
	side := e.catalog.RenderOr(key, nil, snap.SideToMove.String())
	return e.catalog.RenderOr("ui.turn", map[string]any{"Side": side}, "Turn: "+side)
}
