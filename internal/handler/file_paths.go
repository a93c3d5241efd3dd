package handler

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"vidset/internal/appdirs"
)

var appDirsResolver = appdirs.Resolve

type downloadRoot struct {
	alias string
	dirs  []string
}

// resolveDownloadPath maps an API path onto a file under the job or report root.
// The boolean is false for traversal attempts and paths outside every root.
func resolveDownloadPath(requested string) (string, bool) {
	requested = strings.TrimSpace(requested)
	requested = strings.TrimPrefix(requested, string(filepath.Separator))
	requested = strings.TrimPrefix(requested, "/")
	if hasParentTraversal(requested) {
		return "", false
	}
	requested = filepath.ToSlash(filepath.Clean(requested))
	if requested == "." || requested == "" {
		return "", false
	}

	roots := []downloadRoot{
		{alias: appdirs.JobRootName, dirs: rootCandidates(appdirs.Paths.JobRoot, appdirs.JobRootName)},
		{alias: appdirs.ReportRootName, dirs: rootCandidates(appdirs.Paths.ReportRoot, appdirs.ReportRootName)},
	}

	for _, root := range roots {
		prefix := root.alias + "/"
		if !strings.HasPrefix(requested, prefix) {
			continue
		}
		relativePath := filepath.FromSlash(strings.TrimPrefix(requested, prefix))

		var fallback string
		for _, rootDir := range root.dirs {
			candidate := filepath.Clean(filepath.Join(rootDir, relativePath))
			if !isPathWithinRoot(rootDir, candidate) {
				continue
			}
			if fallback == "" {
				fallback = candidate
			}
			if isRegularFile(candidate) {
				return candidate, true
			}
		}
		return fallback, fallback != ""
	}
	return "", false
}

// rootCandidates lists the resolved root first, then the working-directory alias.
func rootCandidates(under func(appdirs.Paths) string, fallback string) []string {
	candidates := []string{fallback}
	if dirs, err := appDirsResolver(); err == nil {
		candidates = append([]string{under(dirs)}, candidates...)
	}
	return lo.Uniq(lo.FilterMap(candidates, func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		return filepath.Clean(p), p != ""
	}))
}

func hasParentTraversal(path string) bool {
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return true
		}
	}
	return false
}

func isPathWithinRoot(root, candidate string) bool {
	root = filepath.Clean(root)
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
