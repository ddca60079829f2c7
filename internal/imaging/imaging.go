// Package imaging holds the displayed-image representation and the
// resize-for-upload preprocessor. Preprocessing is best-effort: a page
// that cannot be decoded is sent to the translation provider as-is
// rather than failing the request.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// JPEGQuality is the fixed re-encode quality for resized uploads.
// 85 keeps bubble text legible while bounding payload size.
const JPEGQuality = 85

// DataImage is a self-contained encoded image: mime type plus payload.
// It is the canonical value handed between the archive store, the
// preprocessor, and the renderer.
type DataImage struct {
	MIME string
	Data []byte
}

// DataURI encodes the image as a data URI for the browser.
func (d DataImage) DataURI() string {
	return "data:" + d.MIME + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}

// Base64 returns the bare base64 payload (no data-URI prefix), the form
// the translation providers transmit.
func (d DataImage) Base64() string {
	return base64.StdEncoding.EncodeToString(d.Data)
}

// Empty reports whether the image holds no payload.
func (d DataImage) Empty() bool {
	return len(d.Data) == 0
}

// ParseDataURI decodes a data:<mime>;base64,<payload> string.
func ParseDataURI(uri string) (DataImage, error) {
	if !strings.HasPrefix(uri, "data:") {
		return DataImage{}, fmt.Errorf("not a data URI")
	}
	rest := uri[len("data:"):]
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return DataImage{}, fmt.Errorf("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(rest[sep+len(";base64,"):])
	if err != nil {
		return DataImage{}, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return DataImage{MIME: rest[:sep], Data: data}, nil
}

// Resize scales img so its larger dimension equals maxDim, preserving
// aspect ratio, and re-encodes as JPEG. When both dimensions already
// fit, the input is returned byte-identical with no re-encode. Decode
// failures fall back to the input so preprocessing never blocks a
// translation request.
func Resize(img DataImage, maxDim int) DataImage {
	if maxDim <= 0 || img.Empty() {
		return img
	}

	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return img
	}

	bounds := decoded.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	var nw, nh int
	if w > h {
		nw = maxDim
		nh = int(float64(h)*float64(maxDim)/float64(w) + 0.5)
	} else {
		nh = maxDim
		nw = int(float64(w)*float64(maxDim)/float64(h) + 0.5)
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), decoded, bounds, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return img
	}
	return DataImage{MIME: "image/jpeg", Data: buf.Bytes()}
}
