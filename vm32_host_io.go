// vm32_host_io.go - Host side of the VM32 memory-mapped I/O contract

package main

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"
)

// ButtonNames lists the button register bits in bit order. The names are
// the keys of the [keys] table in the host config.
var ButtonNames = [...]string{
	"up", "down", "left", "right",
	"a", "b", "x", "y",
	"l", "r", "select", "start",
}

// ButtonBit returns the KB_* bit for a button name.
func ButtonBit(name string) (uint32, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range ButtonNames {
		if n == name {
			return 1 << i, true
		}
	}
	return 0, false
}

// ButtonMaskFromNames ORs together the bits of the named buttons.
func ButtonMaskFromNames(names ...string) (uint32, error) {
	var mask uint32
	for _, n := range names {
		bit, ok := ButtonBit(n)
		if !ok {
			return 0, fmt.Errorf("unknown button %q", n)
		}
		mask |= bit
	}
	return mask, nil
}

// ButtonMaskString renders a mask as "up+a" style text for the status bar.
func ButtonMaskString(mask uint32) string {
	if mask&KB_MASK == 0 {
		return "-"
	}
	var parts []string
	for i, n := range ButtonNames {
		if mask&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "+")
}

// FramebufferToRGBA converts ARGB8888 cells into alpha-premultiplied RGBA
// bytes, the layout ebiten's WritePixels and image.RGBA expect. dst must
// hold 4 bytes per cell.
func FramebufferToRGBA(cells []int32, dst []byte) {
	for i, c := range cells {
		p := uint32(c)
		a := p >> 24
		o := i * 4
		dst[o+0] = premultiply(p>>16, a)
		dst[o+1] = premultiply(p>>8, a)
		dst[o+2] = premultiply(p, a)
		dst[o+3] = byte(a)
	}
}

// FramebufferToNRGBA converts ARGB8888 cells into straight-alpha RGBA bytes.
func FramebufferToNRGBA(cells []int32, dst []byte) {
	for i, c := range cells {
		p := uint32(c)
		o := i * 4
		dst[o+0] = byte(p >> 16)
		dst[o+1] = byte(p >> 8)
		dst[o+2] = byte(p)
		dst[o+3] = byte(p >> 24)
	}
}

func premultiply(c, a uint32) byte {
	return byte(((c&0xFF)*a + 127) / 255)
}

// FramebufferImage copies a framebuffer into a new straight-alpha image. The
// alpha byte is taken as is, so cleared memory renders transparent.
func FramebufferImage(cells []int32) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, FB_WIDTH, FB_HEIGHT))
	FramebufferToNRGBA(cells[:min(len(cells), FB_SIZE)], img.Pix)
	return img
}

// EncodeFramebufferPNG writes the framebuffer as a PNG image.
func EncodeFramebufferPNG(w io.Writer, cells []int32) error {
	if err := png.Encode(w, FramebufferImage(cells)); err != nil {
		return fmt.Errorf("encoding framebuffer: %w", err)
	}
	return nil
}

// encodeRGBAPNG writes a frame already converted by FramebufferToRGBA.
func encodeRGBAPNG(w io.Writer, pix []byte) error {
	img := image.NewRGBA(image.Rect(0, 0, FB_WIDTH, FB_HEIGHT))
	copy(img.Pix, pix)
	return png.Encode(w, img)
}
