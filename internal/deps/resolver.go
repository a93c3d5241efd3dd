package deps

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"vidset/config"
)

const probeTimeout = 3 * time.Second

// Checker resolves requirements. Every lookup is a field so tests can replace it.
type Checker struct {
	LookPath func(file string) (string, error)
	AbsPath  func(path string) (string, error)
	Stat     func(name string) (os.FileInfo, error)
	// Version returns the first line of `<path> -version`.
	Version func(ctx context.Context, path string) (string, error)
	// Ping reports whether the Redis server at addr answers.
	Ping func(ctx context.Context, addr string) error
}

// NewChecker uses the real filesystem, PATH and network. queue supplies the Redis
// credentials for Ping.
func NewChecker(queue config.Queue) Checker {
	return Checker{
		LookPath: exec.LookPath,
		AbsPath:  filepath.Abs,
		Stat:     os.Stat,
		Version:  binaryVersion,
		Ping: func(ctx context.Context, addr string) error {
			return pingRedis(ctx, asynq.RedisClientOpt{Addr: addr, Password: queue.RedisPassword, DB: queue.RedisDB})
		},
	}
}

func (c Checker) Check(ctx context.Context, req Requirement) Result {
	if req.Kind == KindService {
		return c.checkService(ctx, req)
	}
	return c.checkBinary(ctx, req)
}

func (c Checker) CheckAll(ctx context.Context, reqs []Requirement) []Result {
	results := make([]Result, 0, len(reqs))
	for _, req := range reqs {
		results = append(results, c.Check(ctx, req))
	}
	return results
}

// Diagnose checks everything cfg needs against the real environment.
func Diagnose(ctx context.Context, cfg config.Config) []Result {
	return NewChecker(cfg.Queue).CheckAll(ctx, Inventory(cfg.App, cfg.Queue))
}

func (c Checker) checkBinary(ctx context.Context, req Requirement) Result {
	res := Result{Requirement: req, Source: SourceLookPath}
	var (
		path string
		err  error
	)
	if configured := strings.TrimSpace(req.ConfiguredPath); configured != "" {
		res.Source = SourceConfig
		path, err = c.resolveConfigured(configured)
		if err != nil {
			res.ResolvedPath = configured
			if abs, absErr := c.AbsPath(configured); absErr == nil {
				res.ResolvedPath = abs
			}
		}
	} else {
		path, err = c.LookPath(req.Command)
	}
	if err != nil {
		res.Status = StatusError
		if isMissingPathError(err) {
			res.Status = StatusMissing
		}
		res.Error = err.Error()
		return res
	}

	res.ResolvedPath = path
	res.Status = StatusOK
	if c.Version != nil {
		vctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		if version, verr := c.Version(vctx, path); verr == nil {
			res.Version = version
		} else {
			res.Status = StatusError
			res.Error = "binary found but `-version` failed: " + verr.Error()
		}
	}
	return res
}

func (c Checker) resolveConfigured(configured string) (string, error) {
	if path, err := c.LookPath(configured); err == nil {
		return path, nil
	}
	abs, err := c.AbsPath(configured)
	if err != nil {
		return "", err
	}
	if _, err = c.Stat(abs); err != nil {
		return "", err
	}
	return abs, nil
}

func (c Checker) checkService(ctx context.Context, req Requirement) Result {
	res := Result{Requirement: req, Source: SourceNetwork}
	if req.Addr == "" {
		res.Status = StatusMissing
		res.Error = "no address configured"
		return res
	}
	if c.Ping == nil {
		res.Status = StatusError
		res.Error = "no probe available"
		return res
	}
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := c.Ping(pctx, req.Addr); err != nil {
		res.Status = StatusUnreachable
		res.Error = err.Error()
		return res
	}
	res.Status = StatusOK
	return res
}

func binaryVersion(ctx context.Context, path string) (string, error) {
	out, err := exec.CommandContext(ctx, path, "-hide_banner", "-version").Output()
	if err != nil {
		return "", err
	}
	return parseVersion(out), nil
}

// parseVersion takes "ffmpeg version 6.1.1-3ubuntu5 Copyright ..." to "6.1.1-3ubuntu5".
func parseVersion(out []byte) string {
	line, _, _ := bytes.Cut(out, []byte("\n"))
	fields := strings.Fields(string(line))
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return strings.TrimSpace(string(line))
}

// pingRedis lists queues through an asynq inspector, which fails when Redis is down.
func pingRedis(ctx context.Context, opt asynq.RedisClientOpt) error {
	inspector := asynq.NewInspector(opt)
	done := make(chan error, 1)
	go func() {
		_, err := inspector.Queues()
		done <- err
	}()
	select {
	case err := <-done:
		_ = inspector.Close()
		return err
	case <-ctx.Done():
		go func() {
			<-done
			_ = inspector.Close()
		}()
		return ctx.Err()
	}
}

func isMissingPathError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, exec.ErrNotFound) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "not found") || strings.Contains(message, "cannot find")
}

