package texture

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const maxPacket = 128

// Encode writes p as a 32-bit, top-down TGA, run-length compressed when rle
// is set.
func Encode(w io.Writer, p *Pixels, rle bool) error {
	if p == nil {
		return fmt.Errorf("texture: nothing to encode")
	}
	if p.W <= 0 || p.H <= 0 || p.W > 0xffff || p.H > 0xffff {
		return fmt.Errorf("texture: cannot encode image of size %dx%d", p.W, p.H)
	}
	if len(p.Pix) != p.W*p.H*4 {
		return fmt.Errorf("texture: pixel buffer is %d bytes, want %d", len(p.Pix), p.W*p.H*4)
	}

	bw := bufio.NewWriter(w)
	var header [tgaHeaderBytes]byte
	header[2] = tgaTrueColour
	if rle {
		header[2] = tgaTrueColourRLE
	}
	binary.LittleEndian.PutUint16(header[12:14], uint16(p.W))
	binary.LittleEndian.PutUint16(header[14:16], uint16(p.H))
	header[16] = 32
	header[17] = descTopDown | 8
	if _, err := bw.Write(header[:]); err != nil {
		return err
	}

	n := p.W * p.H
	if !rle {
		for i := 0; i < n; i++ {
			if _, err := bw.Write(bgra(p.Pix, i)); err != nil {
				return err
			}
		}
		return bw.Flush()
	}

	for i := 0; i < n; {
		run := 1
		for i+run < n && run < maxPacket && samePixel(p.Pix, i, i+run) {
			run++
		}
		if run > 1 {
			if err := bw.WriteByte(0x80 | byte(run-1)); err != nil {
				return err
			}
			if _, err := bw.Write(bgra(p.Pix, i)); err != nil {
				return err
			}
			i += run
			continue
		}

		// raw packet: extend until the next repeat or the packet limit
		raw := 1
		for i+raw < n && raw < maxPacket {
			if i+raw+1 < n && samePixel(p.Pix, i+raw, i+raw+1) {
				break
			}
			raw++
		}
		if err := bw.WriteByte(byte(raw - 1)); err != nil {
			return err
		}
		for j := 0; j < raw; j++ {
			if _, err := bw.Write(bgra(p.Pix, i+j)); err != nil {
				return err
			}
		}
		i += raw
	}
	return bw.Flush()
}

func bgra(pix []byte, i int) []byte {
	o := i * 4
	return []byte{pix[o+2], pix[o+1], pix[o], pix[o+3]}
}

func samePixel(pix []byte, a, b int) bool {
	return bytes.Equal(pix[a*4:a*4+4], pix[b*4:b*4+4])
}
