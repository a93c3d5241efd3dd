package fingerprint

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"vidset/internal/batch"
	"vidset/log"
	apperrors "vidset/pkg/errors"
)

const DefaultThreshold = 0.95

// Detector finds near-duplicate videos. Every video is fingerprinted once, then
// all pairs are compared in memory.
type Detector struct {
	hasher  *Hasher
	cache   Cache
	workers int
}

// NewDetector accepts a nil cache.
func NewDetector(hasher *Hasher, workers int, cache Cache) *Detector {
	return &Detector{hasher: hasher, cache: cache, workers: workers}
}

// Fingerprints computes one fingerprint per distinct path in parallel.
func (d *Detector) Fingerprints(ctx context.Context, paths []string, onProgress func(done, total int)) map[string]string {
	unique := lo.Uniq(paths)
	outcomes := batch.Run(ctx, unique, batch.Options{Workers: d.workers, OnProgress: onProgress, Operation: "fingerprint"},
		func(ctx context.Context, path string) (string, error) {
			return d.fingerprint(ctx, path), nil
		})

	result := make(map[string]string, len(outcomes))
	for _, o := range outcomes {
		result[o.Item] = o.Value
	}
	return result
}

func (d *Detector) fingerprint(ctx context.Context, path string) string {
	if d.cache == nil {
		return d.hasher.Fingerprint(ctx, path)
	}

	key, err := KeyFor(path, d.hasher.SampleCount(), d.hasher.Method())
	if err != nil {
		return d.hasher.Fingerprint(ctx, path)
	}
	if fp, ok, err := d.cache.Get(ctx, key); err == nil && ok {
		return fp
	} else if err != nil {
		log.GetLogger().Warn("fingerprint cache read failed", zap.String("path", path), zap.Error(err))
	}

	fp := d.hasher.Fingerprint(ctx, path)
	if fp == "" {
		return fp
	}
	if err = d.cache.Put(ctx, key, fp); err != nil {
		log.GetLogger().Warn("fingerprint cache write failed", zap.String("path", path), zap.Error(err))
	}
	return fp
}

// DetectDuplicates maps each video to the other videos scoring at least threshold
// against it. Videos without duplicates are left out; lists keep input order.
func (d *Detector) DetectDuplicates(ctx context.Context, paths []string, threshold float64, onProgress func(done, total int)) (map[string][]string, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, apperrors.Newf(apperrors.CodeInvalidParams, "相似度阈值无效 threshold %.3f must be within (0, 1]", threshold)
	}
	fingerprints := d.Fingerprints(ctx, paths, onProgress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return FindDuplicates(lo.Uniq(paths), fingerprints, threshold), nil
}

// FindDuplicates compares precomputed fingerprints pairwise.
func FindDuplicates(paths []string, fingerprints map[string]string, threshold float64) map[string][]string {
	duplicates := make(map[string][]string)
	for i, a := range paths {
		for j, b := range paths {
			if i == j {
				continue
			}
			if Similarity(fingerprints[a], fingerprints[b]) >= threshold {
				duplicates[a] = append(duplicates[a], b)
			}
		}
	}
	return duplicates
}
