package main

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/samber/lo"
	cli "github.com/urfave/cli/v3"

	"vidset/internal/appdirs"
	"vidset/internal/dataset"
	"vidset/internal/service"
)

const defaultDatasetDir = "data"

func datasetDirFlag() cli.Flag {
	return &cli.StringFlag{Name: "dataset-dir", Aliases: []string{"d"}, Value: defaultDatasetDir, Usage: "Dataset directory"}
}

// ratioOverride returns nil when the flag was not given so the configured ratio applies.
func ratioOverride(cmd *cli.Command, name string) *float64 {
	if !cmd.IsSet(name) {
		return nil
	}
	return lo.ToPtr(cmd.Float64(name))
}

func organizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "organize",
		Usage: "Split category directories into train/test/validation and copy the videos",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Directory of category subdirectories"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: defaultDatasetDir, Usage: "Dataset directory to create"},
			&cli.Float64Flag{Name: "train-ratio"},
			&cli.Float64Flag{Name: "test-ratio"},
			&cli.Float64Flag{Name: "validation-ratio"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			input := cmd.String("input")
			if err := requirePath("input", input); err != nil {
				return err
			}
			ratios := svc.Ratios(ratioOverride(cmd, "train-ratio"), ratioOverride(cmd, "test-ratio"), ratioOverride(cmd, "validation-ratio"))
			result, err := svc.Organize(ctx, input, cmd.String("output"), ratios)
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			for _, name := range dataset.SplitNames {
				fmt.Fprintf(w, "%s: %d videos\n", name, result.Counts[name])
			}
			fmt.Fprintf(w, "copied: %d skipped: %d failed: %d\n", result.Copy.Copied, result.Copy.Skipped, result.Copy.Failed)
			return nil
		}),
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Copy new videos into one category of a split",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Directory with the new videos"},
			&cli.StringFlag{Name: "target", Aliases: []string{"t"}, Usage: "Split directory, e.g. data/train"},
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Category name"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			source, target, category := cmd.String("source"), cmd.String("target"), cmd.String("category")
			if err := requirePath("source", source); err != nil {
				return err
			}
			if target == "" || category == "" {
				return cli.Exit("--target and --category are required", 1)
			}
			stats, err := svc.AddVideos(ctx, source, target, category)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "copied: %d skipped: %d failed: %d\n", stats.Copied, stats.Skipped, stats.Failed)
			return nil
		}),
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "balance",
		Usage: "Report how evenly videos are spread over categories",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Split directory of category subdirectories"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			input := cmd.String("input")
			if err := requirePath("input", input); err != nil {
				return err
			}
			report, err := svc.Balance(input)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		}),
	}
}

func metadataCommand() *cli.Command {
	return &cli.Command{
		Name:  "metadata",
		Usage: "Write the per-category file listing of a dataset directory",
		Flags: []cli.Flag{
			datasetDirFlag(),
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "metadata.json"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			root := cmd.String("dataset-dir")
			if err := requirePath("dataset-dir", root); err != nil {
				return err
			}
			md, err := svc.WriteMetadata(root, cmd.String("output"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "categories: %d written: %s\n", len(md.Categories), cmd.String("output"))
			return nil
		}),
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print category and video counts of a dataset directory",
		Flags: []cli.Flag{datasetDirFlag()},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			root := cmd.String("dataset-dir")
			if err := requirePath("dataset-dir", root); err != nil {
				return err
			}
			stats, err := svc.Stats(root)
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			fmt.Fprintf(w, "categories: %d\nvideos: %d\n", stats.TotalCategories, stats.TotalVideos)
			names := lo.Keys(stats.Categories)
			slices.Sort(names)
			for _, name := range names {
				fmt.Fprintf(w, "  %s: %d\n", name, stats.Categories[name].Count)
			}
			return nil
		}),
	}
}

func labelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "labels",
		Usage: "Print the category to class id mapping",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dataset-dir", Aliases: []string{"d"}, Usage: "Dataset directory, used when no categories are configured"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the mapping to this JSON file"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			labels, err := svc.Labels(cmd.String("dataset-dir"))
			if err != nil {
				return err
			}
			return emit(cmd, cmd.String("output"), labels)
		}),
	}
}

func manifestCommand() *cli.Command {
	return &cli.Command{
		Name:  "manifest",
		Usage: "Write a video_path,category,label CSV for one split",
		Flags: []cli.Flag{
			datasetDirFlag(),
			&cli.StringFlag{Name: "split", Value: "train", Usage: "train, test or validation"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "CSV path"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			root, output := cmd.String("dataset-dir"), cmd.String("output")
			if err := requirePath("dataset-dir", root); err != nil {
				return err
			}
			if output == "" {
				return cli.Exit("--output is required", 1)
			}
			rows, err := svc.Manifest(root, cmd.String("split"), output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "rows: %d written: %s\n", len(rows), output)
			return nil
		}),
	}
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Write the dataset report and, optionally, the probed analysis report",
		Flags: []cli.Flag{
			datasetDirFlag(),
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Report directory (defaults to the reports directory)"},
			&cli.BoolFlag{Name: "analysis", Value: true, Usage: "Also probe sample videos of every category"},
		},
		Action: withService(func(ctx context.Context, cmd *cli.Command, svc *service.Service) error {
			root := cmd.String("dataset-dir")
			if err := requirePath("dataset-dir", root); err != nil {
				return err
			}
			outDir := cmd.String("output")
			if outDir == "" {
				var err error
				if outDir, err = appdirs.ResolveReportRoot(); err != nil {
					return err
				}
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			files, err := svc.WriteReports(ctx, root, outDir, cmd.Bool("analysis"))
			if err != nil {
				return err
			}
			return printJSON(cmd, files)
		}),
	}
}
