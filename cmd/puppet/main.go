// Package main is the entry point for the puppet avatar runtime.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/puppet/internal/app"
	"github.com/Faultbox/puppet/internal/assets"
	"github.com/Faultbox/puppet/internal/avatar"
	"github.com/Faultbox/puppet/internal/command"
	"github.com/Faultbox/puppet/internal/config"
	"github.com/Faultbox/puppet/internal/engine/capture"
	"github.com/Faultbox/puppet/internal/engine/cubism"
	"github.com/Faultbox/puppet/internal/engine/cubism/preview"
	"github.com/Faultbox/puppet/internal/engine/renderer"
	"github.com/Faultbox/puppet/internal/engine/window"
	"github.com/Faultbox/puppet/internal/logger"
	"github.com/Faultbox/puppet/internal/server"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}

	logger.Info("=== puppet ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("puppet failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("puppet closed normally")
	logger.Sync()
}

// surface joins the window and the renderer into what the loop draws on.
type surface struct {
	win  *window.Window
	rend *renderer.Renderer
}

func (s surface) Size() (int, int)         { return s.win.Size() }
func (s surface) Resize(width, height int) { s.rend.Resize(width, height) }
func (s surface) Begin()                   { s.rend.Begin() }
func (s surface) Present()                 { s.win.SwapBuffers() }

// screenshots reads the back buffer into a capture writer.
type screenshots struct {
	rend *renderer.Renderer
	out  *capture.Writer
}

func (s screenshots) Screenshot() (string, error) {
	return s.out.FromPixels(s.rend.ReadPixels())
}

// run owns every native resource. The main goroutine is locked to the OS
// thread by the window package, so the loop runs here and only the control
// server gets its own goroutine. Deferred teardown runs session, then
// framework, then graphics.
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Window and GL context first; everything below draws into them
	win, err := window.New(window.Config{
		Title:      cfg.Window.Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
	}, logger.Named("window"))
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer win.Close()

	width, height := win.Size()
	rend, err := renderer.New(renderer.Config{Width: width, Height: height}, logger.Named("renderer"))
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	defer rend.Close()

	quad, err := renderer.NewQuad()
	if err != nil {
		return fmt.Errorf("create quad: %w", err)
	}
	defer quad.Close()

	// Start the engine
	engine := preview.New(quad)
	fw := cubism.NewFramework(engine)
	sink := logger.EngineSink(logger.Named("engine"), cfg.Engine.Suppress)
	if err := fw.StartUp(sink, cubism.ParseLogLevel(cfg.Engine.LogLevel)); err != nil {
		return err
	}
	if err := fw.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := fw.Dispose(); err != nil {
			logger.Warn("engine dispose failed", zap.Error(err))
		}
	}()

	// Asset roots, searched last to first
	var cache *assets.Cache
	if cfg.Model.Cache {
		cache = assets.NewCache()
	}
	store := assets.NewManager(cache)
	for _, root := range cfg.Model.AssetRoots {
		if err := store.AddDir(root); err != nil {
			logger.Warn("skipping asset root", zap.String("root", root), zap.Error(err))
		}
	}

	ctl, err := avatar.New(avatar.Options{
		Framework: fw,
		Engine:    engine,
		Textures:  renderer.Textures{},
		Assets:    store,
		Logger:    logger.Named("avatar"),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := ctl.Close(); err != nil {
			logger.Warn("session teardown failed", zap.Error(err))
		}
	}()

	// Frame loop consumes the queue that HTTP and input feed
	queue := command.NewQueue(cfg.Queue.MaxPending)
	loop, err := app.New(app.Options{
		Queue:      queue,
		Controller: ctl,
		Framework:  fw,
		Surface:    surface{win: win, rend: rend},
		Events:     win,
		Step:       cfg.Loop.Step,
		Pace:       !cfg.Window.VSync,
		Screenshot: screenshots{rend: rend, out: capture.New(cfg.Window.ScreenshotDir, "puppet")},
		Logger:     logger.Named("loop"),
	})
	if err != nil {
		return err
	}

	// The default model loads on the first frame
	if cfg.Model.Default != "" {
		if err := queue.Enqueue(command.LoadModel{Name: cfg.Model.Default}); err != nil {
			return fmt.Errorf("queue default model: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	// Control server
	if cfg.Server.Enabled {
		srv, err := server.New(server.Config{
			Addr:              cfg.Server.Listen,
			RateLimit:         cfg.Server.RateLimit,
			Burst:             cfg.Server.Burst,
			ShutdownTimeout:   cfg.Server.ShutdownTimeout,
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		}, queue, loop, logger.Named("server"))
		if err != nil {
			return err
		}
		g.Go(func() error { return srv.ListenAndServe(gctx) })
	}

	// Run the frame loop on this thread until quit or signal
	runErr := loop.Run(gctx)
	cancel()
	if err := g.Wait(); err != nil {
		return fmt.Errorf("control server: %w", err)
	}
	if cache != nil {
		hits, misses := cache.Stats()
		logger.Debug("asset cache", zap.Int("hits", hits), zap.Int("misses", misses))
	}
	return runErr
}
