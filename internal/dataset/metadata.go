package dataset

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/samber/lo"

	apperrors "vidset/pkg/errors"
	"vidset/pkg/util"
)

type CategoryFiles struct {
	Count int      `json:"count"`
	Files []string `json:"files"`
}

type Metadata struct {
	Categories []string                 `json:"categories"`
	Videos     map[string]CategoryFiles `json:"videos"`
}

type Statistics struct {
	TotalCategories int            `json:"total_categories"`
	TotalVideos     int            `json:"total_videos"`
	Categories      map[string]int `json:"categories"`
}

// CreateMetadata lists every category under root together with its video paths.
func CreateMetadata(root string, formats []string) (Metadata, error) {
	byCategory, err := VideosByCategory(root, formats)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		Categories: sortedKeys(byCategory),
		Videos: lo.MapValues(byCategory, func(files []string, _ string) CategoryFiles {
			return CategoryFiles{Count: len(files), Files: files}
		}),
	}, nil
}

func WriteMetadata(root string, formats []string, outPath string) (Metadata, error) {
	md, err := CreateMetadata(root, formats)
	if err != nil {
		return Metadata{}, err
	}
	if err = util.WriteJSONFile(outPath, md); err != nil {
		return Metadata{}, apperrors.WrapWithDetail(apperrors.CodeFileWriteError, "写入元数据失败 write metadata", outPath, err)
	}
	return md, nil
}

func LoadMetadata(path string) (Metadata, error) {
	var md Metadata
	if err := util.ReadJSONFile(path, &md); err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, apperrors.WrapWithDetail(apperrors.CodeFileNotFound, "元数据文件不存在 metadata not found", path, err)
		}
		return Metadata{}, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "元数据文件无效 invalid metadata", path, err)
	}
	return md, nil
}

// LabelMapping assigns 0..n-1 to the category names in sorted order.
func LabelMapping(categories []string) map[string]int {
	sorted := lo.Uniq(categories)
	slices.Sort(sorted)
	labels := make(map[string]int, len(sorted))
	for i, name := range sorted {
		labels[name] = i
	}
	return labels
}

func Stats(root string, formats []string) (Statistics, error) {
	byCategory, err := VideosByCategory(root, formats)
	if err != nil {
		return Statistics{}, err
	}
	return statsOf(byCategory), nil
}

func statsOf(byCategory map[string][]string) Statistics {
	counts := CategoryCounts(byCategory)
	return Statistics{
		TotalCategories: len(counts),
		TotalVideos:     lo.Sum(lo.Values(counts)),
		Categories:      counts,
	}
}

// ManifestRow is one labelled video.
type ManifestRow struct {
	VideoPath string `json:"video_path"`
	Category  string `json:"category"`
	Label     int    `json:"label"`
}

// Manifest lists the videos of root (or root/<split> when split is set) with their labels,
// ordered by category then path.
func Manifest(root, split string, formats []string) ([]ManifestRow, error) {
	if split != "" {
		if !slices.Contains(SplitNames, split) {
			return nil, apperrors.Newf(apperrors.CodeInvalidParams, "未知的数据集划分 unknown split %q", split)
		}
		root = filepath.Join(root, split)
	}
	byCategory, err := VideosByCategory(root, formats)
	if err != nil {
		return nil, err
	}
	labels := LabelMapping(lo.Keys(byCategory))
	var rows []ManifestRow
	for _, category := range sortedKeys(byCategory) {
		for _, path := range byCategory[category] {
			rows = append(rows, ManifestRow{VideoPath: path, Category: category, Label: labels[category]})
		}
	}
	return rows, nil
}

// WriteManifestCSV writes rows with a video_path,category,label header.
func WriteManifestCSV(path string, rows []ManifestRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return apperrors.WrapWithDetail(apperrors.CodeFileWriteError, "写入清单失败 write manifest", path, err)
	}
	w := csv.NewWriter(f)
	records := [][]string{{"video_path", "category", "label"}}
	for _, r := range rows {
		records = append(records, []string{r.VideoPath, r.Category, strconv.Itoa(r.Label)})
	}
	if err = w.WriteAll(records); err != nil {
		_ = f.Close()
		return apperrors.WrapWithDetail(apperrors.CodeFileWriteError, "写入清单失败 write manifest", path, err)
	}
	return f.Close()
}
