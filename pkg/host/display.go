package host

import "sync/atomic"

const (
	ScreenWidth  = 480
	ScreenHeight = 270
)

// Display receives a copy of the framebuffer after each batch of ticks.
// pix holds width*height RGBA8888 pixels.
type Display interface {
	Size() (width, height int)
	UpdateFrame(pix []byte) error
}

// HeadlessDisplay discards frames, keeping only the most recent one.
type HeadlessDisplay struct {
	Width, Height int

	frameCount uint64
	last       []byte
}

func NewHeadlessDisplay(width, height int) *HeadlessDisplay {
	return &HeadlessDisplay{Width: width, Height: height}
}

func (h *HeadlessDisplay) Size() (int, int) {
	return h.Width, h.Height
}

func (h *HeadlessDisplay) UpdateFrame(pix []byte) error {
	h.last = pix
	atomic.AddUint64(&h.frameCount, 1)
	return nil
}

func (h *HeadlessDisplay) FrameCount() uint64 {
	return atomic.LoadUint64(&h.frameCount)
}

// LastFrame returns the pixels passed to the most recent UpdateFrame.
func (h *HeadlessDisplay) LastFrame() []byte {
	return h.last
}
