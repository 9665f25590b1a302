package processor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x * 255) / w)
			img.Set(x, y, color.RGBA{R: v, G: v, B: 255 - v, A: 255})
		}
	}
	return img
}

// jpegWithEXIF returns a JPEG carrying an APP1 EXIF segment right after SOI.
func jpegWithEXIF(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), &jpeg.Options{Quality: 90}))
	raw := buf.Bytes()

	payload := append([]byte("Exif\x00\x00"), []byte("GPS 50.8503N 4.3517E camera-serial-42")...)
	segLen := len(payload) + 2
	app1 := append([]byte{0xFF, 0xE1, byte(segLen >> 8), byte(segLen)}, payload...)

	out := append([]byte{}, raw[:2]...)
	out = append(out, app1...)
	return append(out, raw[2:]...)
}

func TestSanitizeImage_StripsEXIF(t *testing.T) {
	in := jpegWithEXIF(t, 64, 48)
	require.True(t, bytes.Contains(in, []byte("Exif")))

	out, mime, err := SanitizeImage(in, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)
	assert.False(t, bytes.Contains(out, []byte("Exif")))
	assert.False(t, bytes.Contains(out, []byte("camera-serial-42")))

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 48, cfg.Height)
}

func TestSanitizeImage_KeepsPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(30, 20)))

	out, mime, err := SanitizeImage(buf.Bytes(), "IMAGE/PNG")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Width)
	assert.Equal(t, 20, cfg.Height)
}

func TestSanitizeImage_Errors(t *testing.T) {
	_, _, err := SanitizeImage(nil, "image/jpeg")
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, _, err = SanitizeImage([]byte("definitely not an image"), "image/jpeg")
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestImageQuality(t *testing.T) {
	flat := image.NewRGBA(image.Rect(0, 0, 50, 50))
	for i := range flat.Pix {
		flat.Pix[i] = 255
	}
	assert.Less(t, ImageQuality(flat), ImageQuality(testImage(50, 50)))
	assert.Equal(t, 0.0, ImageQuality(image.NewRGBA(image.Rect(0, 0, 0, 0))))
}

func TestPrepareForOCR_BoundsSize(t *testing.T) {
	out := PrepareForOCR(testImage(3000, 100))
	assert.Equal(t, 2500, out.Bounds().Dx())
}

func TestLocalOCR_WithoutEngine(t *testing.T) {
	engine := NewLocalOCR("", time.Second)
	engine.now = func() time.Time { return fixedNow }

	data := engine.Analyze(context.Background(), []byte("anything"), "image/jpeg")
	assert.LessOrEqual(t, data.Confidence, 0.15)
	assert.Equal(t, "2024-06-15", data.Date)
	assert.NotNil(t, data.Items)
}

func TestLocalOCR_MissingBinary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(40, 40)))

	engine := NewLocalOCR(filepath.Join(t.TempDir(), "no-such-tesseract"), time.Second)
	data := engine.Analyze(context.Background(), buf.Bytes(), "image/png")
	assert.LessOrEqual(t, data.Confidence, 0.15)
	assert.Nil(t, data.Total)
}

func TestLocalOCR_WithFakeEngine(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script engine")
	}
	script := filepath.Join(t.TempDir(), "tesseract")
	body := "#!/bin/sh\ncat > /dev/null\nprintf 'DELHAIZE\\n12/03/2024\\nTotal: 6,20\\n'\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(40, 40)))

	engine := NewLocalOCR(script, 5*time.Second)
	data := engine.Analyze(context.Background(), buf.Bytes(), "image/png")

	assert.Equal(t, "DELHAIZE", data.Merchant)
	require.NotNil(t, data.Total)
	assert.InDelta(t, 6.20, *data.Total, 0.001)
	assert.Equal(t, "2024-03-12", data.Date)
	assert.GreaterOrEqual(t, data.Confidence, 0.15)
	assert.LessOrEqual(t, data.Confidence, 0.5)
}
