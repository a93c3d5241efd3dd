package service

import (
	"time"

	"go.uber.org/zap"

	"vidset/config"
	"vidset/internal/analysis"
	"vidset/internal/extract"
	"vidset/internal/fingerprint"
	"vidset/internal/keyframe"
	"vidset/internal/media"
	"vidset/internal/process"
	"vidset/internal/segment"
	"vidset/internal/storage"
	"vidset/log"
)

// Service wires resolved configuration into the core components. Store is optional;
// without it nothing is cached and jobs are not persisted.
type Service struct {
	Config    config.Config
	Accessor  *media.Accessor
	Encoder   media.Encoder
	Selector  *keyframe.Selector
	Hasher    *fingerprint.Hasher
	Detector  *fingerprint.Detector
	Quality   *analysis.QualityAnalyzer
	Splitter  *segment.Splitter
	Extractor *extract.Extractor
	Processor *process.Processor
	Store     *storage.Store
}

// NewService uses the ffmpeg binaries named in cfg.
func NewService(cfg config.Config, store *storage.Store) (*Service, error) {
	ff := media.NewFFmpeg(cfg.App.FfmpegPath, cfg.App.FfprobePath, decodeTimeout(cfg))
	return NewServiceWith(cfg, ff, ff, ff, store)
}

// NewServiceWith accepts any decode/encode backend, e.g. the in-memory one used in tests.
func NewServiceWith(cfg config.Config, decoder media.Decoder, encoder media.Encoder,
	transcoder process.Transcoder, store *storage.Store) (*Service, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	method, err := fingerprint.ParseMethod(cfg.Analysis.FingerprintMethod)
	if err != nil {
		return nil, err
	}

	var (
		fpCache      fingerprint.Cache
		qualityCache analysis.QualityCache
	)
	if store != nil {
		fpCache, qualityCache = store, store
	}

	accessor := media.NewAccessor(decoder, decodeTimeout(cfg))
	selector := keyframe.NewSelector(accessor)
	hasher := fingerprint.NewHasher(selector, method, cfg.Analysis.SampleCount)

	s := &Service{
		Config:    cfg,
		Accessor:  accessor,
		Encoder:   encoder,
		Selector:  selector,
		Hasher:    hasher,
		Detector:  fingerprint.NewDetector(hasher, cfg.App.Workers, fpCache),
		Quality:   analysis.NewQualityAnalyzer(accessor, cfg.Analysis.QualitySamples, qualityCache),
		Splitter:  segment.NewSplitter(accessor, encoder),
		Extractor: extract.NewExtractor(accessor, encoder),
		Processor: process.NewProcessor(accessor, transcoder),
		Store:     store,
	}
	log.GetLogger().Debug("service ready", zap.String("fingerprint_method", method.String()),
		zap.Int("workers", cfg.App.Workers), zap.Bool("persistent", store != nil))
	return s, nil
}

func decodeTimeout(cfg config.Config) time.Duration {
	return time.Duration(cfg.App.DecodeTimeoutSec) * time.Second
}
