package service

import (
	"fmt"
	"path/filepath"
	"strings"

	"vidset/internal/appdirs"
)

var appDirsResolver = appdirs.Resolve

func resolveJobRoot() (string, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	return dirs.JobRoot(), nil
}

func resolveJobDir(jobID string) (string, error) {
	if strings.TrimSpace(jobID) == "" {
		return "", fmt.Errorf("job id is empty")
	}

	jobRoot, err := resolveJobRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(jobRoot, jobID), nil
}

// resolveArtifactPath turns a file under the job root into the slash-separated path the
// API exposes, e.g. jobs/<id>/quality.json.
func resolveArtifactPath(localPath string) (string, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}

	jobRoot := dirs.JobRoot()
	relPath, err := filepath.Rel(jobRoot, filepath.Clean(localPath))
	if err != nil {
		return "", err
	}
	if relPath == "." || relPath == "" {
		return "", fmt.Errorf("job artifact path %q is not a file path", localPath)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("job artifact path %q is outside job root %q", localPath, jobRoot)
	}
	return filepath.ToSlash(filepath.Join(appdirs.JobRootName, relPath)), nil
}
