package cpu

import (
	"encoding/binary"
	"image"
)

// Memory is the word-addressed buffer the engine reads and writes. Hosts
// allocate it and treat its first words as packed RGBA8888 pixels.
type Memory []uint32

// NewMemory allocates a zeroed memory of the given number of words.
func NewMemory(words int) Memory {
	return make(Memory, words)
}

// FramebufferRGBA decodes the first width*height words into RGBA8888 bytes.
// The low byte of each word is red, the high byte is alpha. Pixels past the
// end of memory are left transparent.
func (m Memory) FramebufferRGBA(width, height int) []byte {
	pixels := make([]byte, width*height*4)
	n := width * height
	if n > len(m) {
		n = len(m)
	}
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(pixels[i*4:], m[i])
	}
	return pixels
}

// FramebufferImage returns the framebuffer prefix as an *image.RGBA.
func (m Memory) FramebufferImage(width, height int) *image.RGBA {
	return &image.RGBA{
		Pix:    m.FramebufferRGBA(width, height),
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
}

// RGBA packs a colour into the word layout used by the framebuffer.
func RGBA(r, g, b, a byte) uint32 {
	return uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24
}
