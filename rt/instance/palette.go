package instance

// Palette is the colour policy for instance slots. Colours are 0xRRGGBB.
type Palette struct {
	Highlight uint32
	Default   uint32
	Groups    map[int]uint32
}

// Resolve applies the precedence: selection highlight, then the colour of a
// positive group id, then the default.
func (p Palette) Resolve(groupID int, selected bool) uint32 {
	if selected {
		return p.Highlight
	}
	if groupID > 0 {
		if c, ok := p.Groups[groupID]; ok {
			return c
		}
	}
	return p.Default
}

// PackRGB packs 8-bit channels into 0xRRGGBB.
func PackRGB(r, g, b uint8) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// UnpackRGB splits 0xRRGGBB into channels.
func UnpackRGB(c uint32) (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}
