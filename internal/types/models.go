// Package types holds the persisted records.
package types

import "time"

// Job is one asynchronous request and its latest state. Args and Result hold JSON.
type Job struct {
	Id         uint   `gorm:"primaryKey;autoIncrement"`
	JobId      string `gorm:"uniqueIndex;size:64"`
	Type       string `gorm:"index;size:32"`
	Stage      uint8  `gorm:"index"`
	InputPath  string
	OutputDir  string
	Args       string
	Result     string
	Message    string
	FailReason string
	Current    int64
	Total      int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// FingerprintRecord caches one video fingerprint; ModTime is stored in Unix nanoseconds.
type FingerprintRecord struct {
	Id          uint   `gorm:"primaryKey;autoIncrement"`
	Path        string `gorm:"uniqueIndex:idx_fingerprint_key"`
	Size        int64  `gorm:"uniqueIndex:idx_fingerprint_key"`
	ModTime     int64  `gorm:"uniqueIndex:idx_fingerprint_key"`
	SampleCount int    `gorm:"uniqueIndex:idx_fingerprint_key"`
	Method      string `gorm:"uniqueIndex:idx_fingerprint_key;size:16"`
	Fingerprint string
	CreatedAt   time.Time
}

// QualityRecord caches one quality report as JSON.
type QualityRecord struct {
	Id        uint   `gorm:"primaryKey;autoIncrement"`
	Path      string `gorm:"uniqueIndex:idx_quality_key"`
	Size      int64  `gorm:"uniqueIndex:idx_quality_key"`
	ModTime   int64  `gorm:"uniqueIndex:idx_quality_key"`
	Samples   int    `gorm:"uniqueIndex:idx_quality_key"`
	Report    string
	CreatedAt time.Time
}
