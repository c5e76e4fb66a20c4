package frame

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
)

// Resolutions supported by the sensor, keyed the way the camera names them.
var Resolutions = map[string][2]int{
	"QQVGA": {160, 120},
	"QVGA":  {320, 240},
	"VGA":   {640, 480},
	"SVGA":  {800, 600},
	"XGA":   {1024, 768},
	"SXGA":  {1280, 1024},
	"UXGA":  {1600, 1200},
}

// Pattern is a synthetic Source: it renders a moving gradient and
// encodes it as JPEG (or hands out raw RGBA in raw mode). It stands in
// for the sensor, which is outside this repo, but honors the same
// contract: exclusive ownership, release exactly once. Safe for
// concurrent Acquire - every MJPEG client drives the shared source
// from its own handler goroutine.
type Pattern struct {
	Counter

	width   int
	height  int
	quality int
	raw     bool

	mu   sync.Mutex
	tick uint8
	pool sync.Pool
}

// NewPattern creates a pattern source. Unknown resolution falls back to VGA.
func NewPattern(resolution string, quality int, raw bool) *Pattern {
	size, ok := Resolutions[resolution]
	if !ok {
		size = Resolutions["VGA"]
	}
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	return &Pattern{width: size[0], height: size[1], quality: quality, raw: raw}
}

func (p *Pattern) Acquire() (*Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tick++

	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x) + p.tick,
				G: uint8(y) + p.tick,
				B: uint8(x+y) - p.tick,
				A: 0xFF,
			})
		}
	}

	if p.raw {
		p.acquire()
		return New(img.Pix, EncodingRaw, p.recycle), nil
	}

	buf, _ := p.pool.Get().(*bytes.Buffer)
	if buf == nil {
		buf = bytes.NewBuffer(nil)
	}
	buf.Reset()

	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		p.pool.Put(buf)
		return nil, ErrNotReady
	}

	p.acquire()

	pb := buf
	return New(buf.Bytes(), EncodingJPEG, func([]byte) {
		p.released()
		p.pool.Put(pb)
	}), nil
}

func (p *Pattern) recycle([]byte) { p.released() }

func (p *Pattern) Close() error { return nil }
