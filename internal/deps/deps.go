// Package deps reports on the external programs and services vidset relies on:
// the ffmpeg and ffprobe binaries and, for queued jobs, a Redis server.
package deps

import (
	"fmt"
	"strings"

	"vidset/config"
)

type Tier string

const (
	TierMust     Tier = "must"
	TierShould   Tier = "should"
	TierOptional Tier = "optional"
)

type Status string

const (
	StatusOK          Status = "ok"
	StatusMissing     Status = "missing"
	StatusError       Status = "error"
	StatusUnreachable Status = "unreachable"
)

type Source string

const (
	SourceConfig   Source = "config"
	SourceLookPath Source = "lookpath"
	SourceNetwork  Source = "network"
)

type Kind uint8

const (
	KindBinary Kind = iota + 1
	KindService
)

// Requirement is one thing vidset needs from its environment.
type Requirement struct {
	ID   string
	Kind Kind
	Tier Tier
	// Command and ConfiguredPath apply to binaries, Addr to services.
	Command        string
	ConfiguredPath string
	Addr           string
	Hint           string
}

type Result struct {
	Requirement
	Status       Status
	Source       Source
	ResolvedPath string
	Version      string
	Error        string
}

func (r Result) OK() bool { return r.Status == StatusOK }

// Inventory lists what the given configuration needs. A configured binary path equal to
// the bare command name is looked up through PATH.
func Inventory(app config.App, queue config.Queue) []Requirement {
	redisTier, redisHint := TierOptional, "Only needed for `vidset enqueue`, `vidset worker` and `server -queue`."
	if isLocalAddr(queue.RedisAddr) {
		redisTier = TierShould
		redisHint = "Queue points at a local Redis (" + queue.RedisAddr + "); start redis-server before `vidset worker`."
	}

	return []Requirement{
		{
			ID:             "ffmpeg",
			Kind:           KindBinary,
			Tier:           TierMust,
			Command:        "ffmpeg",
			ConfiguredPath: configuredOverride(app.FfmpegPath, "ffmpeg"),
			Hint:           "Required for frame decoding, segment encoding and video conversion.",
		},
		{
			ID:             "ffprobe",
			Kind:           KindBinary,
			Tier:           TierMust,
			Command:        "ffprobe",
			ConfiguredPath: configuredOverride(app.FfprobePath, "ffprobe"),
			Hint:           "Required for fps, resolution and frame count detection.",
		},
		{
			ID:   "redis",
			Kind: KindService,
			Tier: redisTier,
			Addr: strings.TrimSpace(queue.RedisAddr),
			Hint: redisHint,
		},
	}
}

// Missing returns the failed results of the given tier.
func Missing(results []Result, tier Tier) []Result {
	var out []Result
	for _, r := range results {
		if r.Tier == tier && !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

func FormatReport(results []Result) string {
	if len(results) == 0 {
		return "No dependencies to diagnose."
	}

	var b strings.Builder
	b.WriteString("依赖检查 Dependency status")
	for _, r := range results {
		where := r.ResolvedPath
		if r.Kind == KindService {
			where = r.Addr
		}
		fmt.Fprintf(&b, "\n- %s [%s]: %s | at=%s | source=%s",
			r.ID, strings.ToUpper(string(r.Tier)), r.Status, orNA(where), orNA(string(r.Source)))
		if r.Version != "" {
			fmt.Fprintf(&b, " | version=%s", r.Version)
		}
		if r.Error != "" {
			b.WriteString("\n  error: " + r.Error)
		}
		if r.Hint != "" && !r.OK() {
			b.WriteString("\n  hint: " + r.Hint)
		}
	}
	return b.String()
}

func orNA(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "n/a"
	}
	return s
}

func configuredOverride(path, command string) string {
	path = strings.TrimSpace(path)
	if path == command {
		return ""
	}
	return path
}

func isLocalAddr(addr string) bool {
	host := strings.TrimSpace(addr)
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	switch host {
	case "127.0.0.1", "localhost", "::1", "[::1]":
		return true
	}
	return false
}
