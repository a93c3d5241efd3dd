package keyframe

import (
	"strings"

	apperrors "vidset/pkg/errors"
)

// Strategy is the closed set of key-frame sampling methods.
type Strategy int

const (
	Uniform Strategy = iota
	Random
	SceneChange
	BestSharpness
)

var strategyNames = map[Strategy]string{
	Uniform:       "uniform",
	Random:        "random",
	SceneChange:   "scene_change",
	BestSharpness: "best",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "unknown"
}

// Strategies lists every strategy in declaration order.
func Strategies() []Strategy {
	return []Strategy{Uniform, Random, SceneChange, BestSharpness}
}

func ParseStrategy(name string) (Strategy, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for _, s := range Strategies() {
		if strategyNames[s] == normalized {
			return s, nil
		}
	}
	return 0, apperrors.Newf(apperrors.CodeUnknownStrategy, "未知的关键帧策略 unknown key-frame strategy %q", name)
}
