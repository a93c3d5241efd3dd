package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	apperrors "vidset/pkg/errors"
)

type Ratios struct {
	Train      float64 `json:"train_ratio"`
	Test       float64 `json:"test_ratio"`
	Validation float64 `json:"validation_ratio"`
}

func (r Ratios) Validate() error {
	if r.Train < 0 || r.Test < 0 || r.Validation < 0 {
		return apperrors.Newf(apperrors.CodeInvalidSplitRatios, "划分比例不能为负 ratios must not be negative (%g/%g/%g)", r.Train, r.Test, r.Validation)
	}
	if math.Abs(r.Train+r.Test+r.Validation-1) > 1e-6 {
		return apperrors.Newf(apperrors.CodeInvalidSplitRatios, "划分比例之和必须为1 ratios must sum to 1 (%g/%g/%g)", r.Train, r.Test, r.Validation)
	}
	return nil
}

// Split holds the videos of every category for each split.
type Split struct {
	Train      map[string][]string `json:"train"`
	Test       map[string][]string `json:"test"`
	Validation map[string][]string `json:"validation"`
}

// ByName returns the split for one of SplitNames.
func (s Split) ByName(name string) map[string][]string {
	switch name {
	case "train":
		return s.Train
	case "test":
		return s.Test
	case "validation":
		return s.Validation
	}
	return nil
}

func (s Split) Counts() map[string]int {
	counts := make(map[string]int, len(SplitNames))
	for _, name := range SplitNames {
		for _, files := range s.ByName(name) {
			counts[name] += len(files)
		}
	}
	return counts
}

// SplitByCategory shuffles each category with rng and cuts it into
// int(n*train) training, int(n*test) test and the remaining validation videos.
// Categories are visited in name order, so a given seed always yields the same split.
// The input lists are not modified.
func SplitByCategory(videos map[string][]string, ratios Ratios, rng *rand.Rand) (Split, error) {
	if err := ratios.Validate(); err != nil {
		return Split{}, err
	}
	if rng == nil {
		return Split{}, apperrors.New(apperrors.CodeInvalidParams, "缺少随机数生成器 split needs a generator")
	}

	split := Split{
		Train:      make(map[string][]string, len(videos)),
		Test:       make(map[string][]string, len(videos)),
		Validation: make(map[string][]string, len(videos)),
	}
	for _, category := range sortedKeys(videos) {
		shuffled := slices.Clone(videos[category])
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		total := len(shuffled)
		trainSize := int(float64(total) * ratios.Train)
		testSize := min(int(float64(total)*ratios.Test), total-trainSize)

		split.Train[category] = shuffled[:trainSize:trainSize]
		split.Test[category] = shuffled[trainSize : trainSize+testSize : trainSize+testSize]
		split.Validation[category] = shuffled[trainSize+testSize:]
	}
	return split, nil
}

// NewRand returns the generator used for reproducible splits and sampling.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

func (r Ratios) String() string {
	return fmt.Sprintf("%.2f/%.2f/%.2f", r.Train, r.Test, r.Validation)
}
