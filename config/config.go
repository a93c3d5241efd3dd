package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"vidset/internal/appdirs"
	"vidset/log"
	apperrors "vidset/pkg/errors"
)

const envPrefix = "VIDSET_"

type App struct {
	Workers          int    `toml:"workers" env:"WORKERS"`
	DecodeTimeoutSec int    `toml:"decode_timeout_sec" env:"DECODE_TIMEOUT_SEC"`
	FfmpegPath       string `toml:"ffmpeg_path" env:"FFMPEG_PATH"`
	FfprobePath      string `toml:"ffprobe_path" env:"FFPROBE_PATH"`
}

type Server struct {
	Host string `toml:"host" env:"HOST"`
	Port int    `toml:"port" env:"PORT"`
}

type Processing struct {
	Resolution  []int   `toml:"resolution" env:"RESOLUTION" envSeparator:","`
	MaxDuration float64 `toml:"max_duration" env:"MAX_DURATION"`
}

type Video struct {
	Formats    []string   `toml:"formats" env:"FORMATS" envSeparator:","`
	Processing Processing `toml:"processing" envPrefix:"PROCESSING_"`
}

type FrameExtraction struct {
	Fps     float64 `toml:"fps" env:"FPS"`
	Format  string  `toml:"format" env:"FORMAT"`
	Quality int     `toml:"quality" env:"QUALITY"`
}

type Splits struct {
	TrainRatio      float64 `toml:"train_ratio" env:"TRAIN_RATIO"`
	TestRatio       float64 `toml:"test_ratio" env:"TEST_RATIO"`
	ValidationRatio float64 `toml:"validation_ratio" env:"VALIDATION_RATIO"`
}

type Dataset struct {
	Name        string   `toml:"name" env:"NAME"`
	Version     string   `toml:"version" env:"VERSION"`
	Description string   `toml:"description" env:"DESCRIPTION"`
	Root        string   `toml:"root" env:"ROOT"`
	Categories  []string `toml:"categories" env:"CATEGORIES" envSeparator:","`
	Seed        int64    `toml:"seed" env:"SEED"`
	Splits      Splits   `toml:"splits" envPrefix:"SPLITS_"`
}

type Metadata struct {
	Author       string `toml:"author"`
	Designer     string `toml:"designer"`
	Website      string `toml:"website"`
	Email        string `toml:"email"`
	Phone        string `toml:"phone"`
	Organization string `toml:"organization"`
}

type Analysis struct {
	SampleCount        int     `toml:"sample_count" env:"SAMPLE_COUNT"`
	DuplicateThreshold float64 `toml:"duplicate_threshold" env:"DUPLICATE_THRESHOLD"`
	SceneThreshold     float64 `toml:"scene_threshold" env:"SCENE_THRESHOLD"`
	QualitySamples     int     `toml:"quality_samples" env:"QUALITY_SAMPLES"`
	FingerprintMethod  string  `toml:"fingerprint_method" env:"FINGERPRINT_METHOD"`
}

type Queue struct {
	RedisAddr     string `toml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `toml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `toml:"redis_db" env:"REDIS_DB"`
	Concurrency   int    `toml:"concurrency" env:"CONCURRENCY"`
}

type Config struct {
	App             App             `toml:"app" envPrefix:"APP_"`
	Server          Server          `toml:"server" envPrefix:"SERVER_"`
	Video           Video           `toml:"video" envPrefix:"VIDEO_"`
	FrameExtraction FrameExtraction `toml:"frame_extraction" envPrefix:"FRAME_EXTRACTION_"`
	Dataset         Dataset         `toml:"dataset" envPrefix:"DATASET_"`
	Metadata        Metadata        `toml:"metadata"`
	Analysis        Analysis        `toml:"analysis" envPrefix:"ANALYSIS_"`
	Queue           Queue           `toml:"queue" envPrefix:"QUEUE_"`
}

var Conf = defaultConfig()

var resolveConfigPath = func() (string, error) {
	paths, err := appdirs.Resolve()
	if err != nil {
		return "", err
	}
	return paths.ConfigFile, nil
}

func defaultConfig() Config {
	return Config{
		App: App{
			Workers:          4,
			DecodeTimeoutSec: 30,
			FfmpegPath:       "ffmpeg",
			FfprobePath:      "ffprobe",
		},
		Server: Server{
			Host: "127.0.0.1",
			Port: 8899,
		},
		Video: Video{
			Formats: []string{"mp4", "mov", "avi", "mkv"},
			Processing: Processing{
				Resolution:  []int{224, 224},
				MaxDuration: 300,
			},
		},
		FrameExtraction: FrameExtraction{
			Fps:     1,
			Format:  "jpg",
			Quality: 95,
		},
		Dataset: Dataset{
			Name:        "Video Classification Dataset",
			Version:     "1.0.0",
			Description: "Category-labeled videos split into train/test/validation",
			Root:        "data",
			Seed:        42,
			Splits: Splits{
				TrainRatio:      0.7,
				TestRatio:       0.2,
				ValidationRatio: 0.1,
			},
		},
		Analysis: Analysis{
			SampleCount:        10,
			DuplicateThreshold: 0.95,
			SceneThreshold:     30,
			QualitySamples:     10,
			FingerprintMethod:  "digest",
		},
		Queue: Queue{
			RedisAddr:   "127.0.0.1:6379",
			Concurrency: 2,
		},
	}
}

// Default returns a fresh copy of the built-in configuration.
func Default() Config {
	return defaultConfig()
}

func ResolveConfigPath() (string, error) {
	return resolveConfigPath()
}

// LoadOrCreateConfig reads the resolved config file into Conf, writing the defaults first
// when it does not exist yet. created reports whether a new file was written.
func LoadOrCreateConfig() (bool, error) {
	configPath, err := resolveConfigPath()
	if err != nil {
		return false, err
	}

	if _, err = os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		Conf = defaultConfig()
		if err = applyEnv(&Conf); err != nil {
			return false, err
		}
		if err = writeConfig(configPath, Conf); err != nil {
			return false, err
		}
		log.GetLogger().Info("已生成默认配置文件 default config written", zap.String("path", configPath))
		return true, nil
	} else if err != nil {
		return false, err
	}

	return false, LoadConfigFile(configPath)
}

// LoadConfigFile reads an explicit config file (the CLI --config flag) on top of the defaults.
func LoadConfigFile(path string) error {
	cfg := defaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidParams, "配置文件解析失败 invalid config file "+path, err)
	}
	if err := applyEnv(&cfg); err != nil {
		return err
	}
	Conf = cfg
	log.GetLogger().Debug("config loaded", zap.String("path", path))
	return nil
}

func applyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidParams, "环境变量配置无效 invalid environment override", err)
	}
	return nil
}

func SaveConfig() error {
	configPath, err := resolveConfigPath()
	if err != nil {
		return err
	}
	return writeConfig(configPath, Conf)
}

func writeConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return toml.NewEncoder(file).Encode(cfg)
}

// CheckConfig validates Conf.
func CheckConfig() error {
	return Validate(Conf)
}

func Validate(cfg Config) error {
	var problems []string

	if len(cfg.Video.Formats) == 0 {
		problems = append(problems, "video.formats must not be empty")
	}
	if res := cfg.Video.Processing.Resolution; len(res) != 2 || res[0] <= 0 || res[1] <= 0 {
		problems = append(problems, "video.processing.resolution must be [width, height] with positive values")
	}
	if cfg.Video.Processing.MaxDuration < 0 {
		problems = append(problems, "video.processing.max_duration must not be negative")
	}
	if cfg.FrameExtraction.Fps <= 0 {
		problems = append(problems, "frame_extraction.fps must be positive")
	}
	switch strings.ToLower(cfg.FrameExtraction.Format) {
	case "jpg", "jpeg", "png":
	default:
		problems = append(problems, fmt.Sprintf("frame_extraction.format %q is not jpg or png", cfg.FrameExtraction.Format))
	}
	if q := cfg.FrameExtraction.Quality; q < 1 || q > 100 {
		problems = append(problems, "frame_extraction.quality must be within 1..100")
	}

	s := cfg.Dataset.Splits
	if s.TrainRatio < 0 || s.TestRatio < 0 || s.ValidationRatio < 0 {
		problems = append(problems, "dataset.splits ratios must not be negative")
	} else if math.Abs(s.TrainRatio+s.TestRatio+s.ValidationRatio-1) > 1e-6 {
		problems = append(problems, "dataset.splits ratios must sum to 1")
	}

	if t := cfg.Analysis.DuplicateThreshold; t <= 0 || t > 1 {
		problems = append(problems, "analysis.duplicate_threshold must be within (0, 1]")
	}
	if cfg.Analysis.SampleCount <= 0 {
		problems = append(problems, "analysis.sample_count must be positive")
	}
	switch strings.ToLower(cfg.Analysis.FingerprintMethod) {
	case "", "digest", "perceptual":
	default:
		problems = append(problems, fmt.Sprintf("analysis.fingerprint_method %q is not digest or perceptual", cfg.Analysis.FingerprintMethod))
	}

	if len(problems) > 0 {
		return apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "配置校验失败 invalid configuration",
			strings.Join(problems, "; "), errors.New(problems[0]))
	}
	return nil
}
