package sensehat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// framebufferName is the sysfs name of the LED matrix framebuffer.
const framebufferName = "RPi-Sense FB"

const matrixSize = 8

// ErrNoFramebuffer is returned when no LED matrix framebuffer is present.
var ErrNoFramebuffer = errors.New("sense hat framebuffer not found")

// RGB is one LED colour.
type RGB struct {
	R, G, B uint8
}

// lowLightGamma maps 5-bit channel values when low-light mode is on.
var lowLightGamma = [32]uint8{
	0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 2, 2, 2,
	3, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 10, 10,
}

// display drives the 8x8 LED matrix through its framebuffer device.
type display struct {
	path     string
	rotation int
	lowLight bool
}

// findFramebuffer scans sysfsRoot (normally /sys/class/graphics) for the
// LED matrix and returns the matching /dev path.
func findFramebuffer(sysfsRoot string) (string, error) {
	names, err := filepath.Glob(filepath.Join(sysfsRoot, "fb*", "name"))
	if err != nil {
		return "", err
	}
	for _, n := range names {
		b, err := os.ReadFile(n)
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(b)) == framebufferName {
			return filepath.Join("/dev", filepath.Base(filepath.Dir(n))), nil
		}
	}
	return "", ErrNoFramebuffer
}

// setPixels writes 64 pixels, row-major from the top left corner.
func (d *display) setPixels(px [matrixSize * matrixSize]RGB) error {
	f, err := os.OpenFile(d.path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open framebuffer: %w", err)
	}
	_, werr := f.WriteAt(d.render(px), 0)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("write framebuffer: %w", werr)
	}
	return nil
}

func (d *display) clear() error {
	return d.setPixels([matrixSize * matrixSize]RGB{})
}

// render packs the pixels as little-endian RGB565, applying rotation
// (clockwise) and the low-light gamma.
func (d *display) render(px [matrixSize * matrixSize]RGB) []byte {
	out := make([]byte, 2*len(px))
	for y := 0; y < matrixSize; y++ {
		for x := 0; x < matrixSize; x++ {
			dx, dy := rotate(x, y, d.rotation)
			binary.LittleEndian.PutUint16(out[2*(dy*matrixSize+dx):], d.pack(px[y*matrixSize+x]))
		}
	}
	return out
}

func rotate(x, y, rotation int) (int, int) {
	const last = matrixSize - 1
	switch rotation {
	case 90:
		return last - y, x
	case 180:
		return last - x, last - y
	case 270:
		return y, last - x
	}
	return x, y
}

func (d *display) pack(c RGB) uint16 {
	r, g, b := uint16(c.R>>3), uint16(c.G>>2), uint16(c.B>>3)
	if d.lowLight {
		r = uint16(lowLightGamma[r])
		g = uint16(lowLightGamma[g>>1]) << 1
		b = uint16(lowLightGamma[b])
	}
	return r<<11 | g<<5 | b
}

// arrow returns an upward arrow glyph in colour c.
func arrow(c RGB) [matrixSize * matrixSize]RGB {
	glyph := [matrixSize]string{
		"...XX...",
		"..XXXX..",
		".XXXXXX.",
		"XX.XX.XX",
		"...XX...",
		"...XX...",
		"...XX...",
		"...XX...",
	}
	var px [matrixSize * matrixSize]RGB
	for y, row := range glyph {
		for x, ch := range row {
			if ch == 'X' {
				px[y*matrixSize+x] = c
			}
		}
	}
	return px
}
