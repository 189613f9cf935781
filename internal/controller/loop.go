package controller

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/hotseat-chess/internal/msgcat"
	"github.com/park285/hotseat-chess/internal/obslog"
	"github.com/park285/hotseat-chess/internal/session"
)

const (
	DefaultTickRate = 30
	DefaultRecent   = 5
)

type Controller struct {
	sess      Session
	presenter Presenter
	recent    RecentSource
	exporter  Exporter
	catalog   *msgcat.Catalog
	logger    *zap.Logger

	tickRate    int
	recentCount int

	records       []string
	seenCompleted int
	status        string
}

type Option func(*Controller)

func WithTickRate(hz int) Option {
	return func(c *Controller) {
		if hz > 0 {
			c.tickRate = hz
		}
	}
}

func WithRecentCount(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.recentCount = n
		}
	}
}

func WithExporter(e Exporter) Option        { return func(c *Controller) { c.exporter = e } }
func WithCatalog(cat *msgcat.Catalog) Option { return func(c *Controller) { c.catalog = cat } }
func WithLogger(l *zap.Logger) Option        { return func(c *Controller) { c.logger = l } }

// New wires a loop. recent may be nil, in which case the scoreboard stays empty.
func New(sess Session, presenter Presenter, recent RecentSource, opts ...Option) *Controller {
	c := &Controller{
		sess:          sess,
		presenter:     presenter,
		recent:        recent,
		tickRate:      DefaultTickRate,
		recentCount:   DefaultRecent,
		seenCompleted: -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = obslog.L()
	}
	return c
}

// Run renders and drains input at the tick rate until a quit event arrives or
// ctx is done. Both are a normal exit.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(c.tickRate))
	defer ticker.Stop()

	c.logger.Info("controller_start", zap.Int("tick_rate", c.tickRate))
	for {
		if ctx.Err() != nil {
			c.logger.Info("controller_stop", zap.String("reason", "context"))
			return nil
		}
		quit, err := c.Tick(ctx)
		if err != nil {
			return err
		}
		if quit {
			c.logger.Info("controller_stop", zap.String("reason", "quit"))
			return nil
		}
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}

// Tick renders one frame, then handles every pending event. It reports
// whether a quit was requested.
func (c *Controller) Tick(ctx context.Context) (bool, error) {
	snap := c.sess.Snapshot()
	c.refreshRecent(snap.Completed)
	if err := c.presenter.Render(View{Session: snap, Recent: c.records, Status: c.statusLine(snap)}); err != nil {
		return false, fmt.Errorf("render: %w", err)
	}

	for _, ev := range c.presenter.PollEvents() {
		switch ev.Kind {
		case EventQuit:
			return true, nil
		case EventReset:
			c.status = ""
			c.sess.Reset()
		case EventPick:
			sq, ok := c.presenter.Geometry().SquareAt(ev.X, ev.Y)
			if !ok {
				continue
			}
			out := c.sess.Select(sq)
			c.logger.Debug("controller_pick", zap.String("square", sq.String()), zap.String("outcome", out.String()))
		case EventExport:
			c.export(ctx)
		}
	}
	return false, nil
}

func (c *Controller) refreshRecent(completed int) {
	if completed == c.seenCompleted {
		return
	}
	c.seenCompleted = completed
	if c.recent == nil {
		return
	}
	recs, err := c.recent.ReadRecent(c.recentCount)
	if err != nil {
		c.logger.Warn("controller_recent_error", zap.Error(err))
		c.records = nil
		return
	}
	c.records = recs
}

func (c *Controller) export(ctx context.Context) {
	if c.exporter == nil {
		c.status = c.catalog.RenderOr("ui.export_disabled", nil, "image export is not configured")
		return
	}
	path, err := c.exporter.Export(ctx, c.sess.Snapshot())
	if err != nil {
		c.logger.Warn("controller_export_error", zap.Error(err))
		c.status = c.catalog.RenderOr("ui.export_error", map[string]any{"Error": err.Error()}, "image not saved: "+err.Error())
		return
	}
	c.logger.Info("controller_export", zap.String("path", path))
	c.status = c.catalog.RenderOr("ui.export_saved", map[string]any{"Path": path}, "saved "+path)
}

func (c *Controller) statusLine(snap session.Snapshot) string {
	if snap.PersistErr != nil {
		msg := snap.PersistErr.Error()
		return c.catalog.RenderOr("ui.persist_error", map[string]any{"Error": msg}, "result not saved: "+msg)
	}
	return c.status
}
