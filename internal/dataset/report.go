package dataset

import (
	"context"
	"path/filepath"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"vidset/internal/media"
	"vidset/log"
	"vidset/pkg/util"
)

const reportSampleSize = 5

type DatasetInfo struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	Description  string `json:"description"`
	Author       string `json:"author"`
	Designer     string `json:"designer"`
	Website      string `json:"website"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`
}

type SplitSummary struct {
	TotalCategories int                      `json:"total_categories"`
	TotalVideos     int                      `json:"total_videos"`
	Categories      map[string]CategoryFiles `json:"categories"`
}

// Report is the persisted dataset description: info, declared categories and per-split contents.
type Report struct {
	DatasetInfo DatasetInfo             `json:"dataset_info"`
	Categories  []string                `json:"categories"`
	Splits      map[string]SplitSummary `json:"splits"`
}

// BuildReport summarises every existing split directory under root. File lists hold base names.
func BuildReport(root string, formats []string, info DatasetInfo, categories []string) (Report, error) {
	report := Report{
		DatasetInfo: info,
		Categories:  lo.Ternary(categories == nil, []string{}, categories),
		Splits:      map[string]SplitSummary{},
	}
	for _, split := range SplitNames {
		splitDir := filepath.Join(root, split)
		if !util.DirExists(splitDir) {
			continue
		}
		byCategory, err := VideosByCategory(splitDir, formats)
		if err != nil {
			return Report{}, err
		}
		stats := statsOf(byCategory)
		report.Splits[split] = SplitSummary{
			TotalCategories: stats.TotalCategories,
			TotalVideos:     stats.TotalVideos,
			Categories: lo.MapValues(byCategory, func(files []string, _ string) CategoryFiles {
				return CategoryFiles{Count: len(files), Files: lo.Map(files, func(p string, _ int) string { return filepath.Base(p) })}
			}),
		}
	}
	return report, nil
}

// InfoProber reads stream properties of one video; *media.Accessor satisfies it.
type InfoProber interface {
	Info(ctx context.Context, path string) (media.VideoInfo, error)
}

type SampleAnalysis struct {
	Video      string  `json:"video"`
	Duration   float64 `json:"duration"`
	Resolution string  `json:"resolution"`
	FPS        float64 `json:"fps"`
}

type CategoryAnalysis struct {
	VideoCount     int              `json:"video_count"`
	SampleAnalysis []SampleAnalysis `json:"sample_analysis"`
}

type SplitAnalysis struct {
	TotalVideos     int                         `json:"total_videos"`
	TotalCategories int                         `json:"total_categories"`
	Categories      map[string]CategoryAnalysis `json:"categories"`
}

type AnalysisReport struct {
	GeneratedAt      time.Time                `json:"generated_at"`
	DatasetDirectory string                   `json:"dataset_directory"`
	Splits           map[string]SplitAnalysis `json:"splits"`
}

// BuildAnalysisReport probes the first few videos of every non-empty category in each split.
// Videos that cannot be probed are left out of the samples.
func BuildAnalysisReport(ctx context.Context, root string, formats []string, prober InfoProber) (AnalysisReport, error) {
	report := AnalysisReport{
		GeneratedAt:      time.Now(),
		DatasetDirectory: root,
		Splits:           map[string]SplitAnalysis{},
	}
	for _, split := range SplitNames {
		splitDir := filepath.Join(root, split)
		if !util.DirExists(splitDir) {
			continue
		}
		byCategory, err := VideosByCategory(splitDir, formats)
		if err != nil {
			return AnalysisReport{}, err
		}
		stats := statsOf(byCategory)
		summary := SplitAnalysis{
			TotalVideos:     stats.TotalVideos,
			TotalCategories: stats.TotalCategories,
			Categories:      map[string]CategoryAnalysis{},
		}
		for _, category := range sortedKeys(byCategory) {
			videos := byCategory[category]
			if len(videos) == 0 {
				continue
			}
			ca := CategoryAnalysis{VideoCount: len(videos), SampleAnalysis: []SampleAnalysis{}}
			for _, path := range videos[:min(reportSampleSize, len(videos))] {
				if err = ctx.Err(); err != nil {
					return AnalysisReport{}, err
				}
				info, err := prober.Info(ctx, path)
				if err != nil {
					log.GetLogger().Warn("跳过无法读取的视频 skip unreadable video", zap.String("path", path), zap.Error(err))
					continue
				}
				ca.SampleAnalysis = append(ca.SampleAnalysis, SampleAnalysis{
					Video:      filepath.Base(path),
					Duration:   info.Duration,
					Resolution: info.Resolution(),
					FPS:        info.FPS,
				})
			}
			summary.Categories[category] = ca
		}
		report.Splits[split] = summary
	}
	return report, nil
}
