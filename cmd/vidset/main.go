package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vidset/config"
	"vidset/internal/service"
	"vidset/internal/storage"
	"vidset/log"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newApp(os.Stdout).Run(ctx, os.Args)
	log.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "vidset",
		Usage:   "Build and analyse video classification datasets",
		Version: version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to config.toml (defaults to the resolved config directory)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debug output to the console",
			},
		},
		Before:         setup,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Commands: []*cli.Command{
			organizeCommand(),
			addCommand(),
			extractFramesCommand(),
			processCommand(),
			infoCommand(),
			keyframesCommand(),
			fingerprintCommand(),
			duplicatesCommand(),
			qualityCommand(),
			balanceCommand(),
			splitCommand(),
			thumbnailCommand(),
			summaryCommand(),
			montageCommand(),
			metadataCommand(),
			statsCommand(),
			labelsCommand(),
			manifestCommand(),
			reportCommand(),
			enqueueCommand(),
			workerCommand(),
			diagnoseCommand(),
		},
	}
}

// setup initialises logging and loads the configuration before any command runs.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	level := zapcore.WarnLevel
	if cmd.Bool("verbose") {
		level = zapcore.DebugLevel
	}
	if err := log.InitLogger(log.Options{ConsoleLevel: level}); err != nil {
		return ctx, cli.Exit(err.Error(), 2)
	}

	if path := cmd.String("config"); path != "" {
		if err := config.LoadConfigFile(path); err != nil {
			return ctx, cli.Exit(err.Error(), 2)
		}
	} else if _, err := config.LoadOrCreateConfig(); err != nil {
		return ctx, cli.Exit(err.Error(), 2)
	}
	if err := config.CheckConfig(); err != nil {
		return ctx, cli.Exit(err.Error(), 2)
	}
	return ctx, nil
}

// openService builds the service on the loaded config. The sqlite cache is optional:
// without it fingerprints and quality reports are simply recomputed.
func openService() (*service.Service, func(), error) {
	store, err := storage.InitDB()
	if err != nil {
		log.GetLogger().Warn("缓存数据库不可用 cache database unavailable, continuing without it", zap.Error(err))
		store = nil
	}
	svc, err := service.NewService(config.Conf, store)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, nil, err
	}
	return svc, func() {
		if store != nil {
			_ = store.Close()
		}
	}, nil
}

// withService runs fn with a service opened for the duration of one command.
func withService(fn func(ctx context.Context, cmd *cli.Command, svc *service.Service) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		svc, closeFn, err := openService()
		if err != nil {
			return err
		}
		defer closeFn()
		return fn(ctx, cmd, svc)
	}
}
