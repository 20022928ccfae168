package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"math"
	"time"
)

// Cropper defaults. 0.6 keeps the on-screen palm guide inside the crop.
const (
	DefaultCropFraction = 0.6
	DefaultJPEGQuality  = 90
)

// Cropper center-crops frames and encodes them as JPEG.
type Cropper struct {
	fraction float64
	quality  int
	now      func() time.Time
}

// NewCropper creates a cropper. Out-of-range values fall back to defaults.
func NewCropper(fraction float64, quality int) *Cropper {
	if !(fraction > 0 && fraction <= 1) {
		fraction = DefaultCropFraction
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Cropper{fraction: fraction, quality: quality, now: time.Now}
}

// Fraction returns the crop fraction in use.
func (c *Cropper) Fraction() float64 { return c.fraction }

// Quality returns the JPEG quality in use.
func (c *Cropper) Quality() int { return c.quality }

// CropRect returns the centered rectangle for a w×h frame.
func (c *Cropper) CropRect(w, h int) Rect {
	cw := int(math.Round(float64(w) * c.fraction))
	ch := int(math.Round(float64(h) * c.fraction))
	cw = max(cw, 1)
	ch = max(ch, 1)
	return Rect{X: (w - cw) / 2, Y: (h - ch) / 2, Width: cw, Height: ch}
}

// Crop crops and encodes img. The returned buffer is not shared.
func (c *Cropper) Crop(img image.Image) (*CapturedFrame, error) {
	if img == nil {
		return nil, NewError(KindNotReady, "capture", errors.New("no frame available"))
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, NewError(KindNotReady, "capture", fmt.Errorf("invalid frame geometry %dx%d", w, h))
	}

	rect := c.CropRect(w, h)
	src := image.Rect(
		bounds.Min.X+rect.X,
		bounds.Min.Y+rect.Y,
		bounds.Min.X+rect.X+rect.Width,
		bounds.Min.Y+rect.Y+rect.Height,
	)

	dst := image.NewRGBA(image.Rect(0, 0, rect.Width, rect.Height))
	draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("capture: jpeg encode failed: %w", err)
	}

	return &CapturedFrame{
		EncodedImage: buf.Bytes(),
		ContentType:  "image/jpeg",
		CropRect:     rect,
		SourceWidth:  w,
		SourceHeight: h,
		CapturedAt:   c.now(),
	}, nil
}
