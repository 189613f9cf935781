package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/hotseat-chess/internal/adapter/boardimage"
	"github.com/park285/hotseat-chess/internal/adapter/termui"
	"github.com/park285/hotseat-chess/internal/announce"
	appcfg "github.com/park285/hotseat-chess/internal/config"
	"github.com/park285/hotseat-chess/internal/controller"
	"github.com/park285/hotseat-chess/internal/msgcat"
	"github.com/park285/hotseat-chess/internal/obslog"
	"github.com/park285/hotseat-chess/internal/resultlog"
	"github.com/park285/hotseat-chess/internal/rules"
	"github.com/park285/hotseat-chess/internal/session"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("hotseat: %v", err)
	}
}

func run() error {
	cfg, err := appcfg.Load()
	if err != nil {
		return err
	}

	closeLog, err := obslog.Init(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := obslog.L()

	cat, err := msgcat.New(cfg.Locale, cfg.MessagesDir)
	if err != nil {
		return err
	}
	theme, err := termui.LookupTheme(cfg.Theme)
	if err != nil {
		return err
	}
	results, err := resultlog.Open(cfg.ResultsPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []session.Option{
		session.WithCatalog(cat),
		session.WithStrictInvariants(cfg.StrictInvariants),
	}
	if cfg.RedisURL != "" {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pub, err := announce.NewPublisher(pctx, cfg.RedisURL, cfg.RedisChannel)
		cancel()
		if err != nil {
			// announcing is optional; play goes on without it
			logger.Warn("announcer_disabled", zap.Error(err))
		} else {
			defer pub.Close()
			opts = append(opts, session.WithAnnouncer(pub))
		}
	}
	machine := session.New(rules.NewChessEngine(), results, opts...)

	ctlOpts := []controller.Option{
		controller.WithTickRate(cfg.TickRate),
		controller.WithRecentCount(cfg.RecentResults),
		controller.WithCatalog(cat),
	}
	if cfg.SnapshotDir != "" {
		exp, err := boardimage.NewExporter(cfg.SnapshotDir, boardimage.NewRenderer(boardimage.DefaultSquareSize), cat)
		if err != nil {
			return err
		}
		ctlOpts = append(ctlOpts, controller.WithExporter(exp))
	}

	ui, err := termui.Open(theme, cat)
	if err != nil {
		return err
	}
	defer ui.Close()

	logger.Info("hotseat_start",
		zap.String("results_path", results.Path()),
		zap.String("locale", cat.Locale()),
		zap.Int("tick_rate", cfg.TickRate),
	)
	return controller.New(machine, ui, results, ctlOpts...).Run(ctx)
}
