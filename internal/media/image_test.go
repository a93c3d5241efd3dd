package media

import (
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vidset/pkg/errors"
)

func TestSaveImage(t *testing.T) {
	frame := NewFrame(4, 3)
	for i := range frame.Data {
		frame.Data[i] = 128
	}
	dir := t.TempDir()

	pngPath := filepath.Join(dir, "nested", "f.png")
	require.NoError(t, SaveImage(pngPath, frame, "png", 0))
	file, err := os.Open(pngPath)
	require.NoError(t, err)
	img, err := png.Decode(file)
	file.Close()
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	jpgPath := filepath.Join(dir, "f.jpg")
	require.NoError(t, SaveImage(jpgPath, frame, "JPEG", 95))
	file, err = os.Open(jpgPath)
	require.NoError(t, err)
	_, err = jpeg.Decode(file)
	file.Close()
	require.NoError(t, err)

	err = SaveImage(filepath.Join(dir, "f.gif"), frame, "gif", 0)
	assert.True(t, apperrors.Is(err, apperrors.CodeUnsupportedFormat))

	err = SaveImage(filepath.Join(dir, "empty.png"), Frame{}, "png", 0)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidParams))
}

func TestImageExt(t *testing.T) {
	ext, err := ImageExt(".JPEG")
	require.NoError(t, err)
	assert.Equal(t, "jpg", ext)
	ext, err = ImageExt("png")
	require.NoError(t, err)
	assert.Equal(t, "png", ext)
}
