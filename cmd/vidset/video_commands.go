package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"vidset/internal/analysis"
	"vidset/internal/batch"
	"vidset/internal/extract"
	"vidset/internal/service"
)

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Print fps, size, frame count and duration of a video",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Video file"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			input := cmd.String("input")
			if err := requirePath("input", input); err != nil {
				return err
			}
			info, err := svc.VideoInfo(ctx, input)
			if err != nil {
				return err
			}
			return printJSON(cmd, info)
		}),
	}
}

func extractFramesCommand() *cli.Command {
	return &cli.Command{
		Name:  "extract-frames",
		Usage: "Write frames at a target rate for a video or every video under a directory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Video file or dataset directory"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Frame output directory"},
			&cli.Float64Flag{Name: "fps", Usage: "Frames per second to keep (defaults to frame_extraction.fps)"},
			&cli.StringFlag{Name: "format", Usage: "jpg or png (defaults to frame_extraction.format)"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			input, output := cmd.String("input"), cmd.String("output")
			if err := requirePath("input", input); err != nil {
				return err
			}
			if output == "" {
				return cli.Exit("--output is required", 1)
			}
			progress, finish := newProgress("Extracting")
			written, err := svc.ExtractFrames(ctx, input, output, cmd.Float64("fps"), cmd.String("format"), progress)
			finish()
			fmt.Fprintf(cmd.Root().Writer, "frames written: %d\n", written)
			return err
		}),
	}
}

func processCommand() *cli.Command {
	return &cli.Command{
		Name:  "process",
		Usage: "Validate and resize, convert or copy videos",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Video file or directory"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file or directory"},
			&cli.StringFlag{Name: "mode", Value: "resize", Usage: "resize, convert or copy"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			input, output := cmd.String("input"), cmd.String("output")
			if err := requirePath("input", input); err != nil {
				return err
			}
			if output == "" {
				return cli.Exit("--output is required", 1)
			}
			progress, finish := newProgress("Processing")
			summary, err := svc.Process(ctx, input, output, cmd.String("mode"), progress)
			finish()
			fmt.Fprintf(cmd.Root().Writer, "processed: %d failed: %d\n", summary.Processed, summary.Failed)
			return err
		}),
	}
}

func keyframesCommand() *cli.Command {
	return &cli.Command{
		Name:  "keyframes",
		Usage: "Select key frames with a strategy and optionally save them as images",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Video file"},
			&cli.StringFlag{Name: "strategy", Value: "uniform", Usage: "uniform, random, scene_change or best_sharpness"},
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 5, Usage: "Number of key frames"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Directory for the frame images"},
			&cli.StringFlag{Name: "format", Usage: "jpg or png"},
			&cli.StringFlag{Name: "augment", Usage: "flip, rotate, brightness, contrast or all"},
			&cli.Float64SliceFlag{Name: "at", Usage: "Save the frames at these timestamps in seconds instead of selecting (repeatable, needs --output)"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			input := cmd.String("input")
			if err := requirePath("input", input); err != nil {
				return err
			}
			if at := cmd.Float64Slice("at"); len(at) > 0 {
				files, err := svc.FramesAt(ctx, input, at, cmd.String("output"), cmd.String("format"))
				if err != nil {
					return err
				}
				return printJSON(cmd, files)
			}
			files, err := svc.KeyFrames(ctx, service.KeyFramesRequest{
				Path:     input,
				Strategy: cmd.String("strategy"),
				Count:    int(cmd.Int("count")),
				OutDir:   cmd.String("output"),
				Format:   cmd.String("format"),
				Augment:  cmd.String("augment"),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, files)
		}),
	}
}

func fingerprintCommand() *cli.Command {
	return &cli.Command{
		Name:  "fingerprint",
		Usage: "Print the perceptual fingerprint of a video",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Video file"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			input := cmd.String("input")
			if err := requirePath("input", input); err != nil {
				return err
			}
			fp, err := svc.Fingerprint(ctx, input)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, fp)
			return nil
		}),
	}
}

func duplicatesCommand() *cli.Command {
	return &cli.Command{
		Name:  "duplicates",
		Usage: "Find near-duplicate videos",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "input", Aliases: []string{"i"}, Usage: "Video files or directories (repeatable)"},
			&cli.Float64Flag{Name: "threshold", Usage: "Similarity threshold (defaults to analysis.duplicate_threshold)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the report to this JSON file"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			inputs := cmd.StringSlice("input")
			if err := requirePaths("input", inputs); err != nil {
				return err
			}
			progress, finish := newProgress("Fingerprinting")
			report, err := svc.Duplicates(ctx, inputs, cmd.Float64("threshold"), progress)
			finish()
			if err != nil {
				return err
			}
			return emit(cmd, cmd.String("output"), report)
		}),
	}
}

type qualityOutput struct {
	Reports []analysis.QualityReport `json:"reports"`
	Failed  map[string]string        `json:"failed,omitempty"`
}

func qualityCommand() *cli.Command {
	return &cli.Command{
		Name:  "quality",
		Usage: "Score sharpness and brightness of videos",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "input", Aliases: []string{"i"}, Usage: "Video files or directories (repeatable)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the reports to this JSON file"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			inputs := cmd.StringSlice("input")
			if err := requirePaths("input", inputs); err != nil {
				return err
			}
			progress, finish := newProgress("Analysing")
			outcomes, batchErr := svc.QualityReports(ctx, inputs, progress)
			finish()
			if len(outcomes) == 0 {
				return batchErr
			}

			out := qualityOutput{Reports: []analysis.QualityReport{}, Failed: map[string]string{}}
			for _, o := range outcomes {
				if o.OK() {
					out.Reports = append(out.Reports, o.Value)
				}
			}
			for _, o := range batch.Failed(outcomes) {
				out.Failed[o.Item] = o.Err.Error()
			}
			if err := emit(cmd, cmd.String("output"), out); err != nil {
				return err
			}
			return batchErr
		}),
	}
}

func splitCommand() *cli.Command {
	return &cli.Command{
		Name:  "split",
		Usage: "Cut a video into fixed-length, optionally overlapping segments",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Video file"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Segment output directory"},
			&cli.Float64Flag{Name: "segment-duration", Aliases: []string{"d"}, Usage: "Segment length in seconds"},
			&cli.Float64Flag{Name: "overlap", Usage: "Overlap between segments in seconds"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			input, output := cmd.String("input"), cmd.String("output")
			if err := requirePath("input", input); err != nil {
				return err
			}
			if output == "" {
				return cli.Exit("--output is required", 1)
			}
			files, err := svc.Segment(ctx, input, output, cmd.Float64("segment-duration"), cmd.Float64("overlap"))
			if err != nil {
				return err
			}
			return printJSON(cmd, files)
		}),
	}
}

func thumbnailCommand() *cli.Command {
	return &cli.Command{
		Name:  "thumbnail",
		Usage: "Save a representative frame of a video",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Video file"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Image path (.jpg or .png)"},
			&cli.StringFlag{Name: "method", Value: "middle", Usage: "middle, first or best"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			input, output := cmd.String("input"), cmd.String("output")
			if err := requirePath("input", input); err != nil {
				return err
			}
			if output == "" {
				return cli.Exit("--output is required", 1)
			}
			if err := svc.Thumbnail(ctx, input, output, cmd.String("method")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "written: %s\n", output)
			return nil
		}),
	}
}

func summaryCommand() *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Encode a short video of uniformly sampled key frames",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Video file"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Summary video path"},
			&cli.IntFlag{Name: "frames", Value: extract.DefaultSummaryFrames, Usage: "Number of key frames"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			input, output := cmd.String("input"), cmd.String("output")
			if err := requirePath("input", input); err != nil {
				return err
			}
			if output == "" {
				return cli.Exit("--output is required", 1)
			}
			if err := svc.Summary(ctx, input, output, int(cmd.Int("frames"))); err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "written: %s\n", output)
			return nil
		}),
	}
}

func montageCommand() *cli.Command {
	return &cli.Command{
		Name:  "montage",
		Usage: "Tile several videos into one grid video",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "input", Aliases: []string{"i"}, Usage: "Video files or directories (repeatable)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Montage video path"},
			&cli.IntFlag{Name: "rows", Value: 2},
			&cli.IntFlag{Name: "cols", Value: 2},
			&cli.Float64Flag{Name: "frame-duration", Value: 1, Usage: "Montage length factor: fps*frame-duration*10 frames"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			inputs, output := cmd.StringSlice("input"), cmd.String("output")
			if err := requirePaths("input", inputs); err != nil {
				return err
			}
			if output == "" {
				return cli.Exit("--output is required", 1)
			}
			err := svc.Montage(ctx, inputs, output, extract.MontageOptions{
				Rows:          int(cmd.Int("rows")),
				Cols:          int(cmd.Int("cols")),
				FrameDuration: cmd.Float64("frame-duration"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "written: %s\n", output)
			return nil
		}),
	}
}
