package viz

import (
	"image"
	"image/color"
	"image/gif"
	"io"
	"os"
)

const (
	gifCharW = 8
	gifCharH = 16
)

// GIFRecorder captures canvas frames and encodes them as an animated GIF.
type GIFRecorder struct {
	frames []*image.Paletted
	// Delay between frames in 100ths of a second.
	Delay int
}

func NewGIFRecorder() *GIFRecorder {
	return &GIFRecorder{Delay: 2}
}

func (r *GIFRecorder) Len() int { return len(r.frames) }

// Capture rasterizes the current canvas, one block per braille dot.
func (r *GIFRecorder) Capture(c *Canvas) {
	img := image.NewPaletted(
		image.Rect(0, 0, c.Width*gifCharW, c.Height*gifCharH),
		color.Palette{color.Black, color.White},
	)
	dotW, dotH := gifCharW/2, gifCharH/4
	c.EachDot(func(x, y int) {
		for py := 0; py < dotH; py++ {
			for px := 0; px < dotW; px++ {
				img.SetColorIndex(x*dotW+px, y*dotH+py, 1)
			}
		}
	})
	r.frames = append(r.frames, img)
}

func (r *GIFRecorder) Encode(w io.Writer) error {
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range r.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, r.Delay)
	}
	return gif.EncodeAll(w, &anim)
}

// Save writes the recording to path. It does nothing when no frame was captured.
func (r *GIFRecorder) Save(path string) error {
	if len(r.frames) == 0 {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
