package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"vidset/config"
	"vidset/internal/appcore"
	"vidset/internal/queue"
	"vidset/internal/service"
	"vidset/log"
)

// parseJobArgs turns repeated key=value flags into job args. Numbers and booleans keep
// their JSON types so the executor reads them like API submitted args.
func parseJobArgs(pairs []string) (map[string]any, error) {
	args := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --arg %q, want key=value", pair)
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			args[key] = f
		} else if b, err := strconv.ParseBool(value); err == nil {
			args[key] = b
		} else {
			args[key] = value
		}
	}
	return args, nil
}

func enqueueCommand() *cli.Command {
	jobTypes := lo.Map(appcore.JobTypes(), func(t appcore.JobType, _ int) string { return string(t) })
	return &cli.Command{
		Name:  "enqueue",
		Usage: "Queue a job for the asynq workers",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: strings.Join(jobTypes, ", ")},
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Video file or dataset directory"},
			&cli.StringSliceFlag{Name: "arg", Usage: "Job argument key=value (repeatable)"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			input := cmd.String("input")
			if err := requirePath("input", input); err != nil {
				return err
			}
			jobType, err := appcore.ParseJobType(cmd.String("type"))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			args, err := parseJobArgs(cmd.StringSlice("arg"))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			req, err := svc.PrepareJob(ctx, appcore.JobRequest{Type: jobType, InputPath: input, Args: args})
			if err != nil {
				return err
			}
			q := queue.NewQueue(queue.ConfigFrom(config.Conf.Queue))
			defer q.Close()
			if err = q.EnqueueJob(ctx, req); err != nil {
				svc.MarkCanceled(req.ID)
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "job_id: %s\noutput_dir: %s\n", req.ID, req.OutputDir)
			return nil
		}),
	}
}

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Run an asynq worker that executes queued jobs",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "concurrency", Usage: "Concurrent jobs (defaults to queue.concurrency)"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			qcfg := queue.ConfigFrom(config.Conf.Queue)
			if n := int(cmd.Int("concurrency")); n > 0 {
				qcfg.Concurrency = n
			}
			q := queue.NewQueue(qcfg)
			defer q.Close()

			log.GetLogger().Info("worker starting", zap.String("redis_addr", qcfg.RedisAddr))
			return queue.StartWorker(q, svc)
		}),
	}
}
