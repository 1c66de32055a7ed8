package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/undefdev/spotblock/internal/config"
	"github.com/undefdev/spotblock/internal/domain"
	"github.com/undefdev/spotblock/internal/fetcher"
	"github.com/undefdev/spotblock/internal/format"
	"github.com/undefdev/spotblock/internal/input"
	"github.com/undefdev/spotblock/internal/loop"
	"github.com/undefdev/spotblock/internal/session"
	"github.com/undefdev/spotblock/internal/view"
)

// AppOptions is the full production dependency graph, split out so tests can
// validate it without starting the app.
var AppOptions = fx.Options(
	// Logger configuration
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log}
	}),

	// Provide dependencies
	fx.Provide(
		newLogger,
		newConfig,
		newFormatter,
		newGate,
		newFetcher,
		newViewSink,
		newLoop,
	),

	// Lifecycle hooks
	fx.Invoke(registerHooks),
)

func main() {
	app := fx.New(AppOptions)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "spotblock:", err)
		os.Exit(1)
	}

	// Wait for an interrupt or for the loop to finish on its own
	exitCode := 0
	select {
	case <-ctx.Done():
	case sig := <-app.Wait():
		exitCode = sig.ExitCode
	}

	if err := app.Stop(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "spotblock:", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

// newLogger creates the zap logger. Production config writes to stderr,
// which matters here: stdout is the status line channel.
func newLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}

func newConfig(logger *zap.Logger) (*config.Config, error) {
	return config.Load(os.Args[1:], logger)
}

// newFormatter compiles the template; a bad template or filter reference
// fails app startup here.
func newFormatter(cfg *config.Config) (*format.Formatter, error) {
	return format.New(cfg.Format, cfg.StatusIcons, cfg.MarkupEscape)
}

func newGate(cfg *config.Config) *format.Gate {
	return format.NewGate(cfg.Dedupe)
}

func newFetcher(logger *zap.Logger) domain.Fetcher {
	return fetcher.NewHTTPFetcher(logger)
}

func newViewSink(logger *zap.Logger, f domain.Fetcher) domain.ViewSink {
	return view.NewManager(logger, f)
}

func newLoop(
	logger *zap.Logger,
	cfg *config.Config,
	formatter *format.Formatter,
	gate *format.Gate,
	sink domain.ViewSink,
) *loop.Loop {
	dial := func() (loop.Conn, error) {
		s, err := session.Dial(logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return loop.New(logger, cfg, formatter, gate, dial, os.Stdout, sink)
}

// registerHooks starts the status loop and the stdin watcher.
func registerHooks(
	lc fx.Lifecycle,
	sd fx.Shutdowner,
	logger *zap.Logger,
	cfg *config.Config,
	l *loop.Loop,
) {
	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			// The watcher is daemonic: it dies with the process when
			// stdin never closes, and exits silently when it does.
			go input.Watch(os.Stdin, cfg.MouseButtons, l.ViewRequests(), logger)
			go func() {
				err := l.Run(runCtx)
				if err != nil {
					logger.Error("status loop ended", zap.Error(err))
				}
				var opts []fx.ShutdownOption
				if err != nil {
					opts = append(opts, fx.ExitCode(1))
				}
				if serr := sd.Shutdown(opts...); serr != nil {
					logger.Warn("shutdown request failed", zap.Error(serr))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
