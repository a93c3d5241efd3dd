package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	cli "github.com/urfave/cli/v3"

	"vidset/internal/service"
	"vidset/pkg/util"
)

// requirePath fails with exit code 1 when a user supplied path does not exist.
func requirePath(flag, path string) error {
	if path == "" {
		return cli.Exit(fmt.Sprintf("--%s is required", flag), 1)
	}
	if _, err := os.Stat(path); err != nil {
		return cli.Exit(fmt.Sprintf("路径不存在 --%s path does not exist: %s", flag, path), 1)
	}
	return nil
}

func requirePaths(flag string, paths []string) error {
	if len(paths) == 0 {
		return cli.Exit(fmt.Sprintf("--%s is required", flag), 1)
	}
	for _, p := range paths {
		if err := requirePath(flag, p); err != nil {
			return err
		}
	}
	return nil
}

func printJSON(cmd *cli.Command, v any) error {
	enc := json.NewEncoder(cmd.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// emit writes v to outPath when set, otherwise prints it.
func emit(cmd *cli.Command, outPath string, v any) error {
	if outPath == "" {
		return printJSON(cmd, v)
	}
	if err := util.WriteJSONFile(outPath, v); err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "written: %s\n", outPath)
	return nil
}

// newProgress renders batch progress on stderr. The bar is sized on the first update;
// updates may arrive from several workers.
func newProgress(description string) (service.Progress, func()) {
	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)
	progress := func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription(description),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "█",
					SaucerHead:    "█",
					SaucerPadding: "░",
					BarStart:      "▐",
					BarEnd:        "▌",
				}),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetRenderBlankState(true),
			)
		}
		if done > int(bar.State().CurrentNum) {
			_ = bar.Set(done)
		}
	}
	finish := func() {
		mu.Lock()
		defer mu.Unlock()
		if bar != nil {
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
		}
	}
	return progress, finish
}
