package appdirs

import (
	"path/filepath"
	"strings"
)

const (
	JobRootName    = "jobs"
	ReportRootName = "reports"
	dbFileName     = "vidset.db"
)

// JobRoot is where queued jobs write their artifacts, one directory per job id.
func (p Paths) JobRoot() string {
	return filepath.Join(orDefault(p.OutputDir, "."), JobRootName)
}

func (p Paths) JobDir(jobID string) string {
	return filepath.Join(p.JobRoot(), jobID)
}

func (p Paths) ReportRoot() string {
	return filepath.Join(orDefault(p.OutputDir, "."), ReportRootName)
}

// DBPath is the sqlite file holding job records and the fingerprint and quality caches.
func (p Paths) DBPath() string {
	return filepath.Join(orDefault(p.CacheDir, "cache"), dbFileName)
}

func ResolveReportRoot() (string, error) {
	paths, err := Resolve()
	if err != nil {
		return "", err
	}
	return paths.ReportRoot(), nil
}

func orDefault(dir, fallback string) string {
	if cleaned := strings.TrimSpace(dir); cleaned != "" {
		return filepath.Clean(cleaned)
	}
	return fallback
}
