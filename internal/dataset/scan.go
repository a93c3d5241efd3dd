// Package dataset scans, splits and describes a category-per-directory video dataset.
package dataset

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"

	apperrors "vidset/pkg/errors"
)

// Split names in the order they are created and reported.
var SplitNames = []string{"train", "test", "validation"}

// HasFormat matches the file extension against formats, ignoring case and a leading dot.
func HasFormat(path string, formats []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return false
	}
	return lo.ContainsBy(formats, func(f string) bool {
		return strings.TrimPrefix(strings.ToLower(f), ".") == ext
	})
}

// Categories lists the immediate child directories of root, sorted.
func Categories(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, apperrors.WrapWithDetail(apperrors.CodeFileNotFound, "数据集目录不可读 dataset directory unreadable", root, err)
	}
	categories := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		return e.Name(), e.IsDir()
	})
	slices.Sort(categories)
	return categories, nil
}

// FindVideos walks dir recursively and returns the absolute paths of matching files, sorted.
func FindVideos(dir string, formats []string) ([]string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	var videos []string
	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && HasFormat(path, formats) {
			videos = append(videos, path)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.WrapWithDetail(apperrors.CodeFileNotFound, "扫描视频失败 scan videos", dir, err)
	}
	slices.Sort(videos)
	return videos, nil
}

// VideosByCategory maps every category directory under root to its videos. Categories
// without videos are present with an empty list.
func VideosByCategory(root string, formats []string) (map[string][]string, error) {
	categories, err := Categories(root)
	if err != nil {
		return nil, err
	}
	result := make(map[string][]string, len(categories))
	for _, category := range categories {
		videos, err := FindVideos(filepath.Join(root, category), formats)
		if err != nil {
			return nil, err
		}
		result[category] = lo.Ternary(videos == nil, []string{}, videos)
	}
	return result, nil
}

// CategoryCounts is the input of the balance analysis.
func CategoryCounts(videos map[string][]string) map[string]int {
	return lo.MapValues(videos, func(v []string, _ string) int { return len(v) })
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
