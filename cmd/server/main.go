package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vidset/config"
	"vidset/internal/deps"
	"vidset/internal/handler"
	"vidset/internal/queue"
	"vidset/internal/server"
	"vidset/internal/service"
	"vidset/internal/storage"
	"vidset/internal/taskrunner"
	"vidset/log"
)

func main() {
	useQueue := flag.Bool("queue", false, "submit jobs to asynq workers instead of the in-process runner")
	flag.Parse()

	if err := log.InitLogger(log.Options{ConsoleLevel: zapcore.InfoLevel}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if _, err := config.LoadOrCreateConfig(); err != nil {
		log.GetLogger().Error("加载配置失败 failed to load config", zap.Error(err))
		os.Exit(1)
	}
	if err := config.CheckConfig(); err != nil {
		log.GetLogger().Error("加载配置失败 invalid config", zap.Error(err))
		os.Exit(1)
	}

	store, err := storage.InitDB()
	if err != nil {
		log.GetLogger().Error("数据库初始化失败 failed to open database", zap.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	// Jobs left running by a previous process can never finish.
	if count, err := store.MarkStaleJobs(context.Background()); err != nil {
		log.GetLogger().Warn("Failed to mark stale jobs", zap.Error(err))
	} else if count > 0 {
		log.GetLogger().Info("Marked stale jobs as failed", zap.Int64("count", count))
	}

	results := deps.Diagnose(context.Background(), config.Conf)
	log.GetLogger().Info(deps.FormatReport(results))
	for _, missing := range deps.Missing(results, deps.TierMust) {
		log.GetLogger().Warn("缺少必需依赖 required dependency unavailable", zap.String("id", missing.ID), zap.String("error", missing.Error))
	}

	svc, err := service.NewService(config.Conf, store)
	if err != nil {
		log.GetLogger().Error("服务初始化失败 failed to build service", zap.Error(err))
		os.Exit(1)
	}

	var jobs handler.JobQueue
	if *useQueue {
		q := queue.NewQueue(queue.ConfigFrom(config.Conf.Queue))
		defer q.Close()
		jobs = server.QueueJobs{Service: svc, Queue: q}
	} else {
		runner := taskrunner.New(svc, taskrunner.Config{Concurrency: config.Conf.Queue.Concurrency})
		defer runner.Close()
		jobs = server.RunnerJobs{Runner: runner}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err = server.StartBackend(ctx, config.Conf.Server, handler.NewHandler(svc, jobs)); err != nil {
		log.GetLogger().Error("后端服务启动失败 server failed", zap.Error(err))
		os.Exit(1)
	}
}
