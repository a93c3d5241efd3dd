package dataset

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"vidset/log"
	apperrors "vidset/pkg/errors"
	"vidset/pkg/util"
)

type CopyStats struct {
	Copied  int `json:"copied"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func (s *CopyStats) add(o CopyStats) {
	s.Copied += o.Copied
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

type OrganizeResult struct {
	Split  Split          `json:"split"`
	Counts map[string]int `json:"counts"`
	Copy   CopyStats      `json:"copy"`
}

// Organize splits the category directories under inputDir and copies every video to
// outputDir/<split>/<category>/<basename>. Categories without videos are left out.
func Organize(ctx context.Context, inputDir, outputDir string, formats []string, ratios Ratios, rng *rand.Rand) (OrganizeResult, error) {
	if err := ratios.Validate(); err != nil {
		return OrganizeResult{}, err
	}
	byCategory, err := VideosByCategory(inputDir, formats)
	if err != nil {
		return OrganizeResult{}, err
	}
	for category, videos := range byCategory {
		if len(videos) == 0 {
			delete(byCategory, category)
		}
	}
	if len(byCategory) == 0 {
		return OrganizeResult{}, apperrors.WrapWithDetail(apperrors.CodeNoVideos, "未找到视频 No videos found", inputDir, nil)
	}

	split, err := SplitByCategory(byCategory, ratios, rng)
	if err != nil {
		return OrganizeResult{}, err
	}
	logger := log.GetLogger()
	for _, category := range sortedKeys(byCategory) {
		logger.Info("category split", zap.String("category", category),
			zap.Int("train", len(split.Train[category])),
			zap.Int("test", len(split.Test[category])),
			zap.Int("validation", len(split.Validation[category])))
	}

	result := OrganizeResult{Split: split, Counts: split.Counts()}
	for _, name := range SplitNames {
		stats, err := CopyFiles(ctx, split.ByName(name), filepath.Join(outputDir, name))
		result.Copy.add(stats)
		if err != nil {
			return result, err
		}
	}
	logger.Info("数据集整理完成 dataset organized", zap.String("output", outputDir),
		zap.Int("train", result.Counts["train"]), zap.Int("test", result.Counts["test"]),
		zap.Int("validation", result.Counts["validation"]))
	return result, nil
}

// CopyFiles copies each category's files into outputDir/<category>/. Missing sources and
// failed copies are logged and counted, never fatal; only cancellation stops the copy.
func CopyFiles(ctx context.Context, files map[string][]string, outputDir string) (CopyStats, error) {
	var stats CopyStats
	logger := log.GetLogger()
	for _, category := range sortedKeys(files) {
		categoryDir := filepath.Join(outputDir, category)
		if err := os.MkdirAll(categoryDir, 0o755); err != nil {
			return stats, apperrors.WrapWithDetail(apperrors.CodeFileWriteError, "创建目录失败 create directory", categoryDir, err)
		}
		for _, src := range files[category] {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if !util.FileExists(src) {
				logger.Warn("源文件不存在 source file not found", zap.String("path", src))
				stats.Skipped++
				continue
			}
			dst := filepath.Join(categoryDir, filepath.Base(src))
			if err := util.CopyFile(src, dst); err != nil {
				logger.Error("复制失败 copy failed", zap.String("src", src), zap.String("dst", dst), zap.Error(err))
				stats.Failed++
				continue
			}
			stats.Copied++
		}
	}
	return stats, nil
}

type AddOptions struct {
	Source   string
	SplitDir string
	Category string
	Formats  []string
	// Known restricts Category when non-empty.
	Known []string
}

// AddVideos copies the videos found under Source into SplitDir/<Category>/, leaving
// files that already exist at the destination untouched.
func AddVideos(ctx context.Context, opts AddOptions) (CopyStats, error) {
	if opts.Category == "" || opts.SplitDir == "" {
		return CopyStats{}, apperrors.New(apperrors.CodeInvalidParams, "参数错误 source, target and category are required")
	}
	if len(opts.Known) > 0 && !slices.Contains(opts.Known, opts.Category) {
		return CopyStats{}, apperrors.WrapWithDetail(apperrors.CodeUnknownCategory, "未知类别 Unknown category",
			opts.Category, nil)
	}
	if !util.DirExists(opts.Source) {
		return CopyStats{}, apperrors.WrapWithDetail(apperrors.CodeFileNotFound, "源目录不存在 source directory not found", opts.Source, nil)
	}

	videos, err := FindVideos(opts.Source, opts.Formats)
	if err != nil {
		return CopyStats{}, err
	}
	var stats CopyStats
	if len(videos) == 0 {
		log.GetLogger().Info("no videos to add", zap.String("source", opts.Source))
		return stats, nil
	}

	categoryDir := filepath.Join(opts.SplitDir, opts.Category)
	if err = os.MkdirAll(categoryDir, 0o755); err != nil {
		return stats, apperrors.WrapWithDetail(apperrors.CodeFileWriteError, "创建目录失败 create directory", categoryDir, err)
	}
	for _, src := range videos {
		if err = ctx.Err(); err != nil {
			return stats, err
		}
		dst := filepath.Join(categoryDir, filepath.Base(src))
		if util.FileExists(dst) {
			stats.Skipped++
			continue
		}
		if err = util.CopyFile(src, dst); err != nil {
			log.GetLogger().Error("复制失败 copy failed", zap.String("src", src), zap.Error(err))
			stats.Failed++
			continue
		}
		stats.Copied++
	}
	return stats, nil
}
