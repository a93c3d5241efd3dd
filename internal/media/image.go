package media

import (
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	apperrors "vidset/pkg/errors"
)

// ImageExt normalises a configured image format to a file extension without the dot.
func ImageExt(format string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "jpg", "jpeg", "":
		return "jpg", nil
	case "png":
		return "png", nil
	default:
		return "", apperrors.Newf(apperrors.CodeUnsupportedFormat, "不支持的图片格式 unsupported image format %q", format)
	}
}

// SaveImage writes frame to path as jpg (with quality 1..100) or png.
func SaveImage(path string, frame Frame, format string, quality int) error {
	ext, err := ImageExt(format)
	if err != nil {
		return err
	}
	if frame.Empty() {
		return apperrors.New(apperrors.CodeInvalidParams, "空帧 empty frame")
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "创建目录失败 create dir", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return apperrors.WrapWithDetail(apperrors.CodeFileWriteError, "写入图片失败 write image", path, err)
	}
	defer file.Close()

	img := frame.RGBA()
	if ext == "png" {
		err = png.Encode(file, img)
	} else {
		if quality < 1 || quality > 100 {
			quality = 95
		}
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return apperrors.WrapWithDetail(apperrors.CodeFileWriteError, "写入图片失败 write image", path, err)
	}
	return file.Close()
}
