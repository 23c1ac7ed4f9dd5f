package tilemap

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// EmptyAtlas marks a cell with nothing drawn.
const EmptyAtlas = -1

const headerBytes = 5

// layerPrealloc bounds the up-front allocation per layer; headers are not
// trusted until the cells are actually read.
const layerPrealloc = 4096

// Cell is one stored map cell. X and Y select the tile inside the atlas.
type Cell struct {
	X, Y  int
	Atlas int
	Solid bool
}

// Empty reports whether nothing is drawn in c.
func (c Cell) Empty() bool {
	return c.Atlas == EmptyAtlas
}

// Data is the raw content of a map file: per layer, W*H cells in row-major
// order.
type Data struct {
	W, H   int
	Layers [][]Cell
}

// Parse reads a map file. Cells with a negative atlas or tile coordinate are
// normalized to EmptyAtlas.
func Parse(r io.Reader) (*Data, error) {
	br := bufio.NewReader(r)

	var hdr [headerBytes]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, fmt.Errorf("short header: %w", err)
	}
	w := int(binary.LittleEndian.Uint16(hdr[0:2]))
	h := int(binary.LittleEndian.Uint16(hdr[2:4]))
	n := int(hdr[4])
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty map %dx%d", w, h)
	}
	if n == 0 {
		return nil, fmt.Errorf("map has no layers")
	}

	d := &Data{W: w, H: h, Layers: make([][]Cell, n)}
	var raw [4]byte
	for l := range d.Layers {
		cells := make([]Cell, 0, min(w*h, layerPrealloc))
		for i := 0; i < w*h; i++ {
			if _, err := io.ReadFull(br, raw[:]); err != nil {
				return nil, fmt.Errorf("layer %d cell (%d,%d): %w", l, i%w, i/w, err)
			}
			c := Cell{
				X:     int(int8(raw[0])),
				Y:     int(int8(raw[1])),
				Atlas: int(int8(raw[2])),
				Solid: raw[3] != 0,
			}
			if c.Atlas < 0 || c.X < 0 || c.Y < 0 {
				c.X, c.Y, c.Atlas = 0, 0, EmptyAtlas
			}
			cells = append(cells, c)
		}
		d.Layers[l] = cells
	}
	return d, nil
}

// Encode writes d in the map file format.
func Encode(w io.Writer, d *Data) error {
	if d == nil || d.W <= 0 || d.H <= 0 || d.W > 0xffff || d.H > 0xffff {
		return fmt.Errorf("tilemap: invalid map size")
	}
	if len(d.Layers) == 0 || len(d.Layers) > 0xff {
		return fmt.Errorf("tilemap: invalid layer count %d", len(d.Layers))
	}

	bw := bufio.NewWriter(w)
	var hdr [headerBytes]byte
	binary.LittleEndian.PutUint16(hdr[0:2], uint16(d.W))
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(d.H))
	hdr[4] = uint8(len(d.Layers))
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}

	for l, cells := range d.Layers {
		if len(cells) != d.W*d.H {
			return fmt.Errorf("tilemap: layer %d has %d cells, want %d", l, len(cells), d.W*d.H)
		}
		for _, c := range cells {
			if c.X > 127 || c.Y > 127 || c.Atlas > 127 {
				return fmt.Errorf("tilemap: layer %d cell %+v out of range", l, c)
			}
			atlas := c.Atlas
			if atlas < 0 {
				atlas = EmptyAtlas
			}
			var solid byte
			if c.Solid {
				solid = 1
			}
			if _, err := bw.Write([]byte{byte(int8(c.X)), byte(int8(c.Y)), byte(int8(atlas)), solid}); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
