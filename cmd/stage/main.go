// Command stage runs a guest module against a window.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/wasm-stage/config"
	"github.com/wippyai/wasm-stage/host"
	"github.com/wippyai/wasm-stage/script"
	"github.com/wippyai/wasm-stage/window"
	"github.com/wippyai/wasm-stage/window/headless"
	"github.com/wippyai/wasm-stage/window/termwin"
)

// Native window systems want their calls on the process's first thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	var (
		configFile  = flag.String("config", "", "Path to HCL config file")
		wasmFile    = flag.String("wasm", "", "Path to guest wasm file (overrides script.path)")
		backend     = flag.String("backend", "", "Window backend: terminal or headless (overrides window.backend)")
		interactive = flag.Bool("i", false, "Interactive inspector")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile, *wasmFile, *backend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Script.Path == "" && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: stage -wasm <guest.wasm> [-config stage.hcl] [-backend terminal|headless]")
		fmt.Fprintln(os.Stderr, "       stage -i [-wasm <guest.wasm>]  (interactive inspector)")
		os.Exit(1)
	}

	if err := run(cfg, *interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path, wasm, backend string) (*config.File, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if wasm != "" {
		cfg.Script.Path = wasm
	}
	if backend != "" {
		cfg.Window.Backend = backend
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func run(cfg *config.File, interactive bool) (err error) {
	logger := zap.NewNop()
	if !interactive {
		if logger, err = cfg.Log.Logger(); err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
	}

	// The inspector owns the terminal, so the window goes headless.
	if interactive {
		cfg.Window.Backend = config.BackendHeadless
	}
	win := window.New(newBackend(cfg, logger),
		window.WithLogger(logger.Named("window")),
		window.WithMode(cfg.Window.Mode()),
		window.WithIconSize(cfg.Window.IconSize),
		window.WithEventBuffer(cfg.Queue.EventBuffer),
	)
	if cfg.Window.Title != "" {
		if err := win.SetTitle(cfg.Window.Title); err != nil {
			return err
		}
	}

	ctx := context.Background()
	if cfg.Window.Backend == config.BackendHeadless {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Script.Path != "" {
		g.Go(func() error {
			return runScript(gctx, cfg.Script, win, logger)
		})
	}
	if interactive {
		g.Go(func() error {
			return runInspector(gctx, win, cfg.Script.Path)
		})
	}

	logger.Info("window starting", zap.String("backend", cfg.Window.Backend), zap.Any("mode", cfg.Window.Mode()))
	runErr := win.Run(gctx)
	cancel()
	return multierr.Combine(runErr, g.Wait())
}

func newBackend(cfg *config.File, logger *zap.Logger) window.Backend {
	if cfg.Window.Backend == config.BackendHeadless {
		return headless.New(headless.WithBudget(cfg.Window.Budget()))
	}
	b := termwin.New(
		termwin.WithBudget(cfg.Window.Budget()),
		termwin.WithPollInterval(cfg.Queue.Interval()),
	)
	if !b.IsTerminal() {
		logger.Warn("stdout is not a terminal, size changes will not be observed")
	}
	return b
}

// runScript owns the VM for its whole life: it loads the guest and then
// delivers window events to it until the window stops.
func runScript(ctx context.Context, cfg *config.Script, win *window.Window, logger *zap.Logger) (err error) {
	wasm, err := os.ReadFile(cfg.Path)
	if err != nil {
		return fmt.Errorf("read guest: %w", err)
	}

	vm, err := script.New(ctx, &script.Config{
		Name:             cfg.Name,
		MemoryLimitPages: uint32(cfg.MemoryPages),
		WASI:             cfg.WASI,
	}, script.WithLogger(logger.Named("script")))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, vm.Close(context.Background())) }()

	h := host.New(win, vm, host.WithLogger(logger.Named("host")))
	defer func() { err = multierr.Append(err, h.Close()) }()

	if err := h.Instantiate(ctx); err != nil {
		return err
	}
	if err := vm.Load(ctx, wasm); err != nil {
		return err
	}
	logger.Info("guest loaded", zap.String("path", cfg.Path), zap.Stringer("vm", vm.ID()))

	if err := h.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
