package imagegen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// OGImageData contains the dynamic data for the OG image.
type OGImageData struct {
	Headline string // e.g. "Thundery Showers"
	Detail   string // e.g. "25-33°C  Humidity 60-95%"
}

// OGImageCache caches the generated OG image for a short period.
type OGImageCache struct {
	mu        sync.RWMutex
	data      []byte
	expiresAt time.Time
	cacheTTL  time.Duration
}

// NewOGImageCache creates a new OG image cache with the specified TTL.
func NewOGImageCache(ttl time.Duration) *OGImageCache {
	return &OGImageCache{
		cacheTTL: ttl,
	}
}

// Get returns the cached OG image if still valid.
func (c *OGImageCache) Get() ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.data == nil || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.data, true
}

// Set stores a new OG image in the cache.
func (c *OGImageCache) Set(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = data
	c.expiresAt = time.Now().Add(c.cacheTTL)
}

// OGWidth and OGHeight are the standard Open Graph image dimensions.
const (
	OGWidth  = 1200
	OGHeight = 630
)

const footer = "Singapore Weather"

// GenerateOGImage creates an OG image by compositing the banner image with text overlay.
func GenerateOGImage(bannerImage []byte, data OGImageData) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(bannerImage))
	if err != nil {
		return nil, fmt.Errorf("decode banner image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, OGWidth, OGHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, coverRect(src.Bounds(), OGWidth, OGHeight), draw.Src, nil)

	drawGradientOverlay(dst)
	drawTextOverlay(dst, data)

	return encodePNG(dst)
}

// GenerateFallbackOGImage creates a simple OG image when no banner is available.
func GenerateFallbackOGImage(data OGImageData) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, OGWidth, OGHeight))

	for y := 0; y < OGHeight; y++ {
		progress := float64(y) / float64(OGHeight)
		c := color.RGBA{uint8(20 + progress*10), uint8(30 + progress*20), uint8(60 + progress*30), 255}
		for x := 0; x < OGWidth; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	drawTextOverlay(img, data)
	return encodePNG(img)
}

// coverRect returns the centred region of src with the aspect ratio w:h,
// so scaling it into a w×h target fills the target without distortion.
func coverRect(src image.Rectangle, w, h int) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	if sw*h > sh*w {
		cw := sh * w / h
		x0 := src.Min.X + (sw-cw)/2
		return image.Rect(x0, src.Min.Y, x0+cw, src.Max.Y)
	}
	ch := sw * h / w
	y0 := src.Min.Y + (sh-ch)/2
	return image.Rect(src.Min.X, y0, src.Max.X, y0+ch)
}

// drawGradientOverlay darkens the bottom of the image for text readability.
func drawGradientOverlay(img *image.RGBA) {
	bounds := img.Bounds()
	gradientHeight := 300

	for y := bounds.Max.Y - gradientHeight; y < bounds.Max.Y; y++ {
		progress := float64(y-(bounds.Max.Y-gradientHeight)) / float64(gradientHeight)
		alpha := progress * progress * 0.85

		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			orig := img.RGBAAt(x, y)
			orig.R = uint8(float64(orig.R) * (1 - alpha))
			orig.G = uint8(float64(orig.G) * (1 - alpha))
			orig.B = uint8(float64(orig.B) * (1 - alpha))
			img.SetRGBA(x, y, orig)
		}
	}
}

func drawTextOverlay(img *image.RGBA, data OGImageData) {
	white := color.RGBA{255, 255, 255, 255}
	lightGray := color.RGBA{200, 200, 200, 255}

	if data.Headline != "" {
		drawText(img, data.Headline, 60, OGHeight-230, 8, white)
	}
	if data.Detail != "" {
		drawText(img, data.Detail, 60, OGHeight-110, 4, lightGray)
	}
	drawText(img, footer, 60, OGHeight-50, 3, lightGray)
}

// drawText renders text with the fixed 7x13 face at 1x and scales it up by
// factor, placing the top-left corner at x, y.
func drawText(img *image.RGBA, text string, x, y, factor int, col color.Color) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	if width == 0 {
		return
	}
	height := face.Height

	glyphs := image.NewRGBA(image.Rect(0, 0, width, height))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(text)

	target := image.Rect(x, y, x+width*factor, y+height*factor).Intersect(img.Bounds())
	if target.Empty() {
		return
	}
	draw.NearestNeighbor.Scale(img, image.Rect(x, y, x+width*factor, y+height*factor), glyphs, glyphs.Bounds(), draw.Over, nil)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode OG image: %w", err)
	}
	return buf.Bytes(), nil
}
