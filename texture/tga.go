package texture

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

// TGA image types.
const (
	tgaColourMapped    = 1
	tgaTrueColour      = 2
	tgaColourMappedRLE = 9
	tgaTrueColourRLE   = 10
)

// Image descriptor bits.
const (
	descAlphaBits  = 0x0f
	descRightLeft  = 0x10
	descTopDown    = 0x20
	tgaHeaderBytes = 18
)

// maxPixels caps the declared image area so a bad header cannot demand an
// arbitrary allocation.
const maxPixels = 4096 * 4096

// transparentKey is the palette colour treated as fully transparent.
var transparentKey = color.RGBA{R: 0xff, G: 0x00, B: 0xff}

// Pixels is a decoded image: 4 bytes per pixel in R, G, B, A order with
// rows running top to bottom.
type Pixels struct {
	W, H int
	Pix  []byte
}

// NRGBA exposes the pixels as a standard library image without copying.
func (p *Pixels) NRGBA() *image.NRGBA {
	return &image.NRGBA{Pix: p.Pix, Stride: p.W * 4, Rect: image.Rect(0, 0, p.W, p.H)}
}

type tgaHeader struct {
	idLength       uint8
	colourMapType  uint8
	imageType      uint8
	colourMapStart uint16
	colourMapLen   uint16
	colourMapDepth uint8
	width          uint16
	height         uint16
	bitsPerPixel   uint8
	descriptor     uint8
}

func parseHeader(b []byte) tgaHeader {
	return tgaHeader{
		idLength:       b[0],
		colourMapType:  b[1],
		imageType:      b[2],
		colourMapStart: binary.LittleEndian.Uint16(b[3:5]),
		colourMapLen:   binary.LittleEndian.Uint16(b[5:7]),
		colourMapDepth: b[7],
		// 8:12 is the x/y origin, which nothing uses
		width:        binary.LittleEndian.Uint16(b[12:14]),
		height:       binary.LittleEndian.Uint16(b[14:16]),
		bitsPerPixel: b[16],
		descriptor:   b[17],
	}
}

func (h tgaHeader) validate() error {
	switch h.imageType {
	case tgaColourMapped, tgaTrueColour, tgaColourMappedRLE, tgaTrueColourRLE:
	default:
		return headerError("unsupported image type %d (want 1, 2, 9 or 10)", h.imageType)
	}
	switch h.bitsPerPixel {
	case 8, 16, 24, 32:
	default:
		return headerError("unsupported pixel depth %d (want 8, 16, 24 or 32)", h.bitsPerPixel)
	}
	if h.colourMapType > 1 {
		return headerError("unsupported colour map type %d", h.colourMapType)
	}
	if h.width == 0 || h.height == 0 {
		return headerError("empty image %dx%d", h.width, h.height)
	}
	if int(h.width)*int(h.height) > maxPixels {
		return headerError("image %dx%d exceeds %d pixels", h.width, h.height, maxPixels)
	}

	mapped := h.imageType == tgaColourMapped || h.imageType == tgaColourMappedRLE
	if h.colourMapType == 1 {
		if h.colourMapDepth != 24 {
			return headerError("unsupported palette depth %d (want 24)", h.colourMapDepth)
		}
		if h.bitsPerPixel != 8 {
			return headerError("paletted images must be 8 bpp, got %d", h.bitsPerPixel)
		}
		if h.colourMapLen == 0 {
			return headerError("colour map declared with no entries")
		}
	} else {
		if mapped {
			return headerError("colour-mapped image has no palette")
		}
		if h.bitsPerPixel == 8 {
			return headerError("8 bpp images need a palette")
		}
	}
	return nil
}

// Decode reads a TGA image.
func Decode(r io.Reader) (*Pixels, error) {
	return decodeTGA("", r)
}

func decodeTGA(path string, r io.Reader) (*Pixels, error) {
	px, err := decode(bufio.NewReader(r))
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) && de.Path == "" {
			de.Path = path
		}
		return nil, err
	}
	return px, nil
}

func decode(br *bufio.Reader) (*Pixels, error) {
	var raw [tgaHeaderBytes]byte
	if _, err := io.ReadFull(br, raw[:]); err != nil {
		return nil, &DecodeError{Pixel: -1, Reason: "truncated header", Err: err}
	}
	h := parseHeader(raw[:])
	if err := h.validate(); err != nil {
		return nil, err
	}

	if _, err := br.Discard(int(h.idLength)); err != nil {
		return nil, &DecodeError{Pixel: -1, Reason: "truncated image id", Err: err}
	}

	var palette [256]color.RGBA
	var inPalette [256]bool
	if h.colourMapType == 1 {
		entry := make([]byte, 3)
		for i := 0; i < int(h.colourMapLen); i++ {
			if _, err := io.ReadFull(br, entry); err != nil {
				return nil, &DecodeError{Pixel: -1, Reason: "truncated palette", Err: err}
			}
			idx := int(h.colourMapStart) + i
			if idx > 255 {
				continue
			}
			palette[idx] = color.RGBA{R: entry[2], G: entry[1], B: entry[0], A: 0xff}
			inPalette[idx] = true
		}
	} else if h.colourMapLen > 0 {
		skip := int(h.colourMapLen) * ((int(h.colourMapDepth) + 7) / 8)
		if _, err := br.Discard(skip); err != nil {
			return nil, &DecodeError{Pixel: -1, Reason: "truncated colour map", Err: err}
		}
	}

	w, ht := int(h.width), int(h.height)
	out := &Pixels{W: w, H: ht, Pix: make([]byte, w*ht*4)}
	bpp := int(h.bitsPerPixel) / 8
	hasAlpha := h.descriptor&descAlphaBits != 0

	put := func(n int, p []byte) error {
		x, y := n%w, n/w
		if h.descriptor&descTopDown == 0 {
			y = ht - 1 - y
		}
		if h.descriptor&descRightLeft != 0 {
			x = w - 1 - x
		}
		dst := out.Pix[(y*w+x)*4 : (y*w+x)*4+4]

		switch bpp {
		case 1:
			if !inPalette[p[0]] {
				return &DecodeError{Pixel: n, Reason: fmt.Sprintf("palette index %d not in colour map", p[0])}
			}
			c := palette[p[0]]
			if c.R == transparentKey.R && c.G == transparentKey.G && c.B == transparentKey.B {
				dst[0], dst[1], dst[2], dst[3] = 0, 0, 0, 0
				return nil
			}
			dst[0], dst[1], dst[2], dst[3] = c.R, c.G, c.B, 0xff
		case 2:
			v := uint16(p[0]) | uint16(p[1])<<8
			dst[0] = expand5(uint8(v>>10) & 0x1f)
			dst[1] = expand5(uint8(v>>5) & 0x1f)
			dst[2] = expand5(uint8(v) & 0x1f)
			dst[3] = 0xff
			if hasAlpha && v&0x8000 == 0 {
				dst[3] = 0
			}
		case 3:
			dst[0], dst[1], dst[2], dst[3] = p[2], p[1], p[0], 0xff
		case 4:
			dst[0], dst[1], dst[2], dst[3] = p[2], p[1], p[0], p[3]
		}
		return nil
	}

	total := w * ht
	rle := h.imageType == tgaColourMappedRLE || h.imageType == tgaTrueColourRLE
	p := make([]byte, bpp)
	for n := 0; n < total; {
		if !rle {
			if _, err := io.ReadFull(br, p); err != nil {
				return nil, &DecodeError{Pixel: n, Reason: "unexpected end of stream", Err: err}
			}
			if err := put(n, p); err != nil {
				return nil, err
			}
			n++
			continue
		}

		packet, err := br.ReadByte()
		if err != nil {
			return nil, &DecodeError{Pixel: n, Reason: "unexpected end of stream", Err: err}
		}
		count := int(packet&0x7f) + 1
		if n+count > total {
			return nil, &DecodeError{Pixel: n, Reason: fmt.Sprintf("packet of %d pixels overflows %dx%d image", count, w, ht)}
		}
		if packet&0x80 != 0 {
			if _, err := io.ReadFull(br, p); err != nil {
				return nil, &DecodeError{Pixel: n, Reason: "unexpected end of stream", Err: err}
			}
			for i := 0; i < count; i++ {
				if err := put(n, p); err != nil {
					return nil, err
				}
				n++
			}
			continue
		}
		for i := 0; i < count; i++ {
			if _, err := io.ReadFull(br, p); err != nil {
				return nil, &DecodeError{Pixel: n, Reason: "unexpected end of stream", Err: err}
			}
			if err := put(n, p); err != nil {
				return nil, err
			}
			n++
		}
	}

	return out, nil
}

func expand5(v uint8) uint8 {
	return v<<3 | v>>2
}
