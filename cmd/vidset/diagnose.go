package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	cli "github.com/urfave/cli/v3"

	"vidset/config"
	"vidset/internal/appdirs"
	"vidset/internal/deps"
	"vidset/log"
)

func diagnoseCommand() *cli.Command {
	return &cli.Command{
		Name:  "diagnose",
		Usage: "Print runtime paths and external dependency status",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w := cmd.Root().Writer
			printVersion(w)
			fmt.Fprintln(w)
			printDiagnose(ctx, w, config.Conf)
			return nil
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "version: %s\ncommit: %s\ndate: %s\n", version, commit, date)
}

func printDiagnose(ctx context.Context, w io.Writer, cfg config.Config) {
	fmt.Fprintf(w, "runtime: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	if wd, err := os.Getwd(); err == nil {
		fmt.Fprintf(w, "working_dir: %s\n", wd)
	} else {
		fmt.Fprintf(w, "working_dir: <error: %v>\n", err)
	}

	if exePath, err := os.Executable(); err == nil {
		fmt.Fprintf(w, "executable: %s\n", exePath)
	} else {
		fmt.Fprintf(w, "executable: <error: %v>\n", err)
	}

	if dirs, err := appdirs.Resolve(); err == nil {
		fmt.Fprintf(w, "portable: %t\n", dirs.Portable)
		printPath(w, "config", dirs.ConfigFile)
		printPath(w, "log", dirs.LogDir)
		printPath(w, "output", dirs.OutputDir)
		printPath(w, "cache", dirs.CacheDir)
		printPath(w, "database", dirs.DBPath())
	} else {
		fmt.Fprintf(w, "paths: <error: %v>\n", err)
	}
	if logFile, err := log.ResolveLogFilePath(); err == nil {
		printPath(w, "log_file", logFile)
	}
	if configFile, err := config.ResolveConfigPath(); err == nil {
		printPath(w, "effective_config", configFile)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, deps.FormatReport(deps.Diagnose(ctx, cfg)))
}

func printPath(w io.Writer, name, value string) {
	absPath, err := filepath.Abs(value)
	if err != nil {
		fmt.Fprintf(w, "path.%s: %s (abs_error=%v)\n", name, value, err)
		return
	}

	if _, err = os.Stat(absPath); err == nil {
		fmt.Fprintf(w, "path.%s: %s (exists)\n", name, absPath)
		return
	}
	if os.IsNotExist(err) {
		fmt.Fprintf(w, "path.%s: %s (missing)\n", name, absPath)
		return
	}

	fmt.Fprintf(w, "path.%s: %s (error=%v)\n", name, absPath, err)
}
