package assets

import (
	"bytes"
	"fmt"
	"image"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/webp"
)

// acceptedImageExts are the source formats the pipeline will fetch.
// Everything decodable ends up re-encoded as TIFF, the archival
// raster format.
var acceptedImageExts = []string{".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".gif", ".webp"}

func acceptedImageURL(u string) bool {
	ext := urlExt(u)
	for _, accepted := range acceptedImageExts {
		if ext == accepted {
			return true
		}
	}
	return false
}

func urlExt(u string) string {
	u = strings.ToLower(u)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return path.Ext(u)
}

// decodeImage decodes a fetched image body. WEBP is not registered
// with the image package by the general decoder, so it takes a
// format-specific path; everything else goes through imaging's
// sniffing decoder.
func decodeImage(data []byte, sourceURL string) (image.Image, error) {
	if urlExt(sourceURL) == ".webp" {
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode webp: %w", err)
		}
		return img, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// saveTIFF re-encodes to the canonical archival format. The output
// path must carry a .tif extension; imaging picks the codec from it.
func saveTIFF(img image.Image, outputPath string) error {
	return imaging.Save(img, outputPath)
}
