package analysis

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

const (
	BalancedRatio = 0.5
	WellBalanced  = "Dataset is well balanced!"
	NoVideos      = "No videos found"
)

type BalanceReport struct {
	TotalVideos        int            `json:"total_videos"`
	TotalCategories    int            `json:"total_categories"`
	CategoryCounts     map[string]int `json:"category_counts"`
	AveragePerCategory float64        `json:"average_per_category"`
	MaxCount           int            `json:"max_count"`
	MinCount           int            `json:"min_count"`
	ImbalanceRatio     float64        `json:"imbalance_ratio"`
	Balanced           bool           `json:"balanced"`
	Recommendations    []string       `json:"recommendations"`
	Message            string         `json:"message,omitempty"`
}

// AnalyzeDatasetBalance measures how evenly videos are spread over categories.
// imbalance_ratio = (max-min)/average and the dataset counts as balanced below 0.5.
// A category below half the average gets an "add more" hint, one above twice the
// average a "reduce" hint.
func AnalyzeDatasetBalance(counts map[string]int) BalanceReport {
	names := lo.Keys(counts)
	slices.Sort(names)

	report := BalanceReport{
		TotalCategories: len(names),
		CategoryCounts:  make(map[string]int, len(names)),
		Recommendations: []string{},
	}
	for _, name := range names {
		report.CategoryCounts[name] = counts[name]
		report.TotalVideos += counts[name]
	}
	if report.TotalVideos == 0 {
		report.Message = NoVideos
		return report
	}

	values := lo.Values(report.CategoryCounts)
	report.AveragePerCategory = float64(report.TotalVideos) / float64(len(names))
	report.MaxCount = lo.Max(values)
	report.MinCount = lo.Min(values)
	if report.AveragePerCategory > 0 {
		report.ImbalanceRatio = float64(report.MaxCount-report.MinCount) / report.AveragePerCategory
	}
	report.Balanced = report.ImbalanceRatio < BalancedRatio
	report.Recommendations = recommendations(names, counts, report.AveragePerCategory)
	return report
}

func recommendations(names []string, counts map[string]int, avg float64) []string {
	var out []string
	for _, name := range names {
		count := float64(counts[name])
		switch {
		case count < avg*0.5:
			out = append(out, fmt.Sprintf("Add more videos to '%s' category (currently %d, recommended %d)", name, counts[name], int(avg)))
		case count > avg*2:
			out = append(out, fmt.Sprintf("Consider reducing videos in '%s' category (currently %d, average %d)", name, counts[name], int(avg)))
		}
	}
	if len(out) == 0 {
		out = append(out, WellBalanced)
	}
	return out
}
