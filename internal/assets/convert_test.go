package assets

import (
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptedImageURL(t *testing.T) {
	cases := map[string]bool{
		"https://host/scan.jpg":             true,
		"https://host/scan.JPEG":            true,
		"https://host/plan.tiff":            true,
		"https://host/photo.webp":           true,
		"https://host/scan.png?token=abc":   true,
		"https://host/scan.png#fragment":    true,
		"https://host/doc.pdf":              false,
		"https://host/installer.exe":        false,
		"https://host/download?format=jpg":  false,
		"https://host/noextension":          false,
	}
	for u, want := range cases {
		assert.Equal(t, want, acceptedImageURL(u), u)
	}
}

func TestURLExtStripsQueryAndFragment(t *testing.T) {
	assert.Equal(t, ".png", urlExt("https://host/a.PNG?size=full"))
	assert.Equal(t, ".tif", urlExt("https://host/b.tif#top"))
	assert.Equal(t, "", urlExt("https://host/plain"))
}

func TestDecodeAndSaveTIFFRoundTrip(t *testing.T) {
	body := pngBytes(t)

	img, err := decodeImage(body, "https://host/square.png")
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "square.tif")
	require.NoError(t, saveTIFF(img, out))

	back, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), back.Bounds())
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	_, err := decodeImage([]byte("not an image at all"), "https://host/x.jpg")
	assert.Error(t, err)

	// The webp side path must fail cleanly on junk too.
	_, err = decodeImage([]byte("not webp"), "https://host/x.webp")
	assert.Error(t, err)
}
