package storage

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vidset/internal/analysis"
	"vidset/internal/fingerprint"
	"vidset/internal/types"
)

var (
	_ fingerprint.Cache     = (*Store)(nil)
	_ analysis.QualityCache = (*Store)(nil)
)

func (s *Store) Get(ctx context.Context, key fingerprint.Key) (string, bool, error) {
	var rec types.FingerprintRecord
	err := s.db.WithContext(ctx).
		Where("path = ? AND size = ? AND mod_time = ? AND sample_count = ? AND method = ?",
			key.Path, key.Size, key.ModTime.UnixNano(), key.SampleCount, key.Method).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, dbErr(err)
	}
	return rec.Fingerprint, true, nil
}

func (s *Store) Put(ctx context.Context, key fingerprint.Key, fp string) error {
	rec := types.FingerprintRecord{
		Path:        key.Path,
		Size:        key.Size,
		ModTime:     key.ModTime.UnixNano(),
		SampleCount: key.SampleCount,
		Method:      key.Method,
		Fingerprint: fp,
	}
	return dbErr(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}, {Name: "size"}, {Name: "mod_time"}, {Name: "sample_count"}, {Name: "method"}},
		DoUpdates: clause.AssignmentColumns([]string{"fingerprint"}),
	}).Create(&rec).Error)
}

func (s *Store) GetQuality(ctx context.Context, key analysis.QualityKey) (analysis.QualityReport, bool, error) {
	var rec types.QualityRecord
	err := s.db.WithContext(ctx).
		Where("path = ? AND size = ? AND mod_time = ? AND samples = ?",
			key.Path, key.Size, key.ModTime.UnixNano(), key.Samples).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return analysis.QualityReport{}, false, nil
	}
	if err != nil {
		return analysis.QualityReport{}, false, dbErr(err)
	}
	var report analysis.QualityReport
	if err = json.Unmarshal([]byte(rec.Report), &report); err != nil {
		// unreadable rows are recomputed
		return analysis.QualityReport{}, false, nil
	}
	return report, true, nil
}

func (s *Store) PutQuality(ctx context.Context, key analysis.QualityKey, report analysis.QualityReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	rec := types.QualityRecord{
		Path:    key.Path,
		Size:    key.Size,
		ModTime: key.ModTime.UnixNano(),
		Samples: key.Samples,
		Report:  string(data),
	}
	return dbErr(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}, {Name: "size"}, {Name: "mod_time"}, {Name: "samples"}},
		DoUpdates: clause.AssignmentColumns([]string{"report"}),
	}).Create(&rec).Error)
}
