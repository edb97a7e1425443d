package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessReencodesAsJPEG(t *testing.T) {
	data := encodePNG(t, 64, 48)

	res, err := Process(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", res.MIME)

	decoded, format, err := image.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 64, decoded.Bounds().Dx())
	assert.Equal(t, 48, decoded.Bounds().Dy())
}

func TestProcessDownscalesLargeImages(t *testing.T) {
	data := encodePNG(t, MaxDimension*2, MaxDimension)

	res, err := Process(bytes.NewReader(data))
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, MaxDimension, decoded.Bounds().Dx())
	assert.Equal(t, MaxDimension/2, decoded.Bounds().Dy())
}

func TestProcessRejectsNonImageData(t *testing.T) {
	_, err := Process(strings.NewReader("definitely not an image"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported image format")
}

func TestProcessAcceptsJPEGInput(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	res, err := Process(&buf)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", res.MIME)
}
