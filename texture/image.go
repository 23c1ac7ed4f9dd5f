package texture

import (
	"image"
	"image/color"

	"github.com/milk9111/tileworld/common"
	"github.com/milk9111/tileworld/render"
)

// Image is one acquisition of a texture. Handles that share a path share the
// GPU copy.
type Image struct {
	reg      *Registry
	e        *entry
	released bool
}

// Path returns the canonical path, or FromMemory.
func (img *Image) Path() string {
	return img.e.path
}

func (img *Image) Size() (int, int) {
	return img.e.w, img.e.h
}

func (img *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, img.e.w, img.e.h)
}

// Texture returns the GPU texture, nil after Registry.ReleaseAll.
func (img *Image) Texture() render.Texture {
	return img.e.tex
}

// Release is shorthand for Registry.Release.
func (img *Image) Release() error {
	return img.reg.Release(img)
}

// Begin opens the batch bracket for this image. Brackets do not nest.
func (img *Image) Begin(repeat bool) {
	img.mustBeLive()
	if img.reg.open != nil {
		panic("texture: Begin on " + img.e.path + " while " + img.reg.open.e.path + " is open")
	}
	img.reg.open = img
	img.reg.batcher.Begin(img.e.tex, repeat)
}

// End closes the bracket opened by Begin.
func (img *Image) End() {
	if img.reg.open != img {
		panic("texture: End on " + img.e.path + " without a matching Begin")
	}
	img.reg.batcher.End()
	img.reg.open = nil
}

func (img *Image) mustBeLive() {
	if img.released {
		panic("texture: " + img.e.path + " used after release")
	}
}

func (img *Image) cache(r render.Region) {
	img.mustBeLive()
	if img.reg.open == nil || img.reg.open.e != img.e {
		panic("texture: draw of " + img.e.path + " outside its batch bracket")
	}
	img.reg.batcher.Cache(r)
}

// DrawRegionZ draws src at dst with depth z.
func (img *Image) DrawRegionZ(src image.Rectangle, dst common.Vec, z float32, flags render.Flags) {
	img.cache(render.Region{
		SrcX: float32(src.Min.X), SrcY: float32(src.Min.Y),
		SrcW: src.Dx(), SrcH: src.Dy(),
		DstX: dst.X, DstY: dst.Y,
		DstW: src.Dx(), DstH: src.Dy(),
		Z:     z,
		Tint:  render.White,
		Flags: flags,
	})
}

func (img *Image) DrawRegion(src image.Rectangle, dst common.Vec, flags render.Flags) {
	img.DrawRegionZ(src, dst, 0, flags)
}

func (img *Image) DrawRegionTinted(tint color.RGBA, src image.Rectangle, dst common.Vec, flags render.Flags) {
	img.cache(render.Region{
		SrcX: float32(src.Min.X), SrcY: float32(src.Min.Y),
		SrcW: src.Dx(), SrcH: src.Dy(),
		DstX: dst.X, DstY: dst.Y,
		DstW: src.Dx(), DstH: src.Dy(),
		Tint:  render.Tint(tint),
		Flags: flags,
	})
}

// StretchRegion scales src to fill size at dst.
func (img *Image) StretchRegion(src image.Rectangle, dst common.Vec, size image.Point, flags render.Flags) {
	img.cache(render.Region{
		SrcX: float32(src.Min.X), SrcY: float32(src.Min.Y),
		SrcW: src.Dx(), SrcH: src.Dy(),
		DstX: dst.X, DstY: dst.Y,
		DstW: size.X, DstH: size.Y,
		Tint:  render.White,
		Flags: flags,
	})
}

// StretchRegionRepeat fills size at dst with copies of src, cropping the
// last row and column.
func (img *Image) StretchRegionRepeat(tint color.RGBA, src image.Rectangle, dst common.Vec, size image.Point, flags render.Flags) {
	sw, sh := src.Dx(), src.Dy()
	if sw <= 0 || sh <= 0 {
		return
	}
	colours := render.Tint(tint)
	for y := 0; y < size.Y; y += sh {
		h := min(sh, size.Y-y)
		for x := 0; x < size.X; x += sw {
			w := min(sw, size.X-x)
			img.cache(render.Region{
				SrcX: float32(src.Min.X), SrcY: float32(src.Min.Y),
				SrcW: w, SrcH: h,
				DstX: dst.X + float32(x), DstY: dst.Y + float32(y),
				DstW: w, DstH: h,
				Tint:  colours,
				Flags: flags,
			})
		}
	}
}

// Draw draws the whole image at dst.
func (img *Image) Draw(dst common.Vec, flags render.Flags) {
	img.DrawRegion(img.Bounds(), dst, flags)
}

// DrawSingle draws the whole image in its own bracket.
func (img *Image) DrawSingle(dst common.Vec, flags render.Flags) {
	img.Begin(false)
	img.Draw(dst, flags)
	img.End()
}

// DrawRegionSingle draws src in its own bracket.
func (img *Image) DrawRegionSingle(src image.Rectangle, dst common.Vec, flags render.Flags) {
	img.Begin(false)
	img.DrawRegion(src, dst, flags)
	img.End()
}
