package storage

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vidset/internal/appdirs"
	"vidset/internal/types"
	"vidset/log"
	apperrors "vidset/pkg/errors"
)

// Store persists jobs and analysis caches in sqlite.
type Store struct {
	db *gorm.DB
}

var appDirsResolver = appdirs.Resolve

// InitDB opens the database at the resolved cache location.
func InitDB() (*Store, error) {
	dbPath, err := resolveDBPath()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDBError, "无法确定数据库路径 resolve database path", err)
	}
	return Open(dbPath)
}

// Open creates the parent directory, connects and migrates the schema.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.WrapWithDetail(apperrors.CodeDBError, "创建数据库目录失败 create database directory", dir, err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, apperrors.WrapWithDetail(apperrors.CodeDBError, "数据库连接失败 connect database", dbPath, err)
	}

	if err = db.AutoMigrate(&types.Job{}, &types.FingerprintRecord{}, &types.QualityRecord{}); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDBError, "数据库迁移失败 migrate database", err)
	}

	log.GetLogger().Info("Database initialized successfully", zap.String("path", dbPath))
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func resolveDBPath() (string, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	return dirs.DBPath(), nil
}
