package service

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"vidset/internal/dataset"
	"vidset/internal/metrics"
	"vidset/log"
	apperrors "vidset/pkg/errors"
	"vidset/pkg/util"
)

const (
	ReportFileName         = "dataset_report.json"
	AnalysisReportFileName = "analysis_report.json"
)

// Ratios returns the configured split ratios with any non-nil override applied.
func (s *Service) Ratios(train, test, validation *float64) dataset.Ratios {
	r := dataset.Ratios{
		Train:      s.Config.Dataset.Splits.TrainRatio,
		Test:       s.Config.Dataset.Splits.TestRatio,
		Validation: s.Config.Dataset.Splits.ValidationRatio,
	}
	if train != nil {
		r.Train = *train
	}
	if test != nil {
		r.Test = *test
	}
	if validation != nil {
		r.Validation = *validation
	}
	return r
}

func (s *Service) Organize(ctx context.Context, input, output string, ratios dataset.Ratios) (result dataset.OrganizeResult, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("organize", start, err) }(time.Now())
	return dataset.Organize(ctx, input, output, s.Config.Video.Formats, ratios, dataset.NewRand(s.Config.Dataset.Seed))
}

func (s *Service) AddVideos(ctx context.Context, source, splitDir, category string) (stats dataset.CopyStats, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("add_videos", start, err) }(time.Now())
	return dataset.AddVideos(ctx, dataset.AddOptions{
		Source:   source,
		SplitDir: splitDir,
		Category: category,
		Formats:  s.Config.Video.Formats,
		Known:    s.Config.Dataset.Categories,
	})
}

func (s *Service) WriteMetadata(root, outPath string) (dataset.Metadata, error) {
	return dataset.WriteMetadata(root, s.Config.Video.Formats, outPath)
}

func (s *Service) Stats(root string) (dataset.Statistics, error) {
	return dataset.Stats(root, s.Config.Video.Formats)
}

// Labels maps category names to class ids: the configured categories, or the
// directories under root when none are configured.
func (s *Service) Labels(root string) (map[string]int, error) {
	categories := s.Config.Dataset.Categories
	if len(categories) == 0 {
		if root == "" {
			return nil, apperrors.New(apperrors.CodeInvalidParams, "参数错误 dataset directory or configured categories required")
		}
		var err error
		if categories, err = dataset.Categories(root); err != nil {
			return nil, err
		}
	}
	return dataset.LabelMapping(categories), nil
}

func (s *Service) Manifest(root, split, outPath string) ([]dataset.ManifestRow, error) {
	rows, err := dataset.Manifest(root, split, s.Config.Video.Formats)
	if err != nil {
		return nil, err
	}
	if outPath != "" {
		if err = dataset.WriteManifestCSV(outPath, rows); err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func (s *Service) datasetInfo() dataset.DatasetInfo {
	md := s.Config.Metadata
	return dataset.DatasetInfo{
		Name:         s.Config.Dataset.Name,
		Version:      s.Config.Dataset.Version,
		Description:  s.Config.Dataset.Description,
		Author:       md.Author,
		Designer:     md.Designer,
		Website:      md.Website,
		Email:        md.Email,
		Phone:        md.Phone,
		Organization: md.Organization,
	}
}

type ReportFiles struct {
	Report   string `json:"report"`
	Analysis string `json:"analysis,omitempty"`
}

// WriteReports writes the dataset report into outDir and, with withAnalysis, the probed
// analysis report next to it.
func (s *Service) WriteReports(ctx context.Context, root, outDir string, withAnalysis bool) (files ReportFiles, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("report", start, err) }(time.Now())

	report, err := dataset.BuildReport(root, s.Config.Video.Formats, s.datasetInfo(), s.Config.Dataset.Categories)
	if err != nil {
		return ReportFiles{}, err
	}
	files.Report = filepath.Join(outDir, ReportFileName)
	if err = util.WriteJSONFile(files.Report, report); err != nil {
		return ReportFiles{}, apperrors.WrapWithDetail(apperrors.CodeFileWriteError, "写入报告失败 write report", files.Report, err)
	}

	if withAnalysis {
		analysisReport, err := dataset.BuildAnalysisReport(ctx, root, s.Config.Video.Formats, s.Accessor)
		if err != nil {
			return files, err
		}
		files.Analysis = filepath.Join(outDir, AnalysisReportFileName)
		if err = util.WriteJSONFile(files.Analysis, analysisReport); err != nil {
			return files, apperrors.WrapWithDetail(apperrors.CodeFileWriteError, "写入报告失败 write report", files.Analysis, err)
		}
	}
	log.GetLogger().Info("reports written", zap.String("dataset", root), zap.String("report", files.Report),
		zap.String("analysis", files.Analysis))
	return files, nil
}
