package session

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
)

var ErrInvalidColorRamp = errors.New("invalid color ramp")

// DefaultRampRadius is the ramp radius used by the color picker.
const DefaultRampRadius = 10

// ColorRamp is a player color expressed as hue, saturation and lightness in
// 0..255 plus the ramp radius used when remapping palettes.
type ColorRamp struct {
	H uint8 `json:"h"`
	S uint8 `json:"s"`
	L uint8 `json:"l"`
	R uint8 `json:"r"`
}

// String renders the ramp the way the "color" command expects it: "H,S,L,R".
func (c ColorRamp) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", c.H, c.S, c.L, c.R)
}

func ParseColorRamp(s string) (ColorRamp, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 4 {
		return ColorRamp{}, fmt.Errorf("%w: %q", ErrInvalidColorRamp, s)
	}
	var vals [4]uint8
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return ColorRamp{}, fmt.Errorf("%w: %q", ErrInvalidColorRamp, s)
		}
		vals[i] = uint8(n)
	}
	return ColorRamp{H: vals[0], S: vals[1], L: vals[2], R: vals[3]}, nil
}

// RampFromOffsets builds a ramp from slider positions in [0,1].
func RampFromOffsets(h, s, l float64) ColorRamp {
	return ColorRamp{H: offsetByte(h), S: offsetByte(s), L: offsetByte(l), R: DefaultRampRadius}
}

func offsetByte(v float64) uint8 {
	v = math.Max(0, math.Min(1, v))
	return uint8(255 * v)
}

// RandomColorRamp picks a ramp that is never too dark to read.
func RandomColorRamp(r *rand.Rand) ColorRamp {
	return ColorRamp{
		H: uint8(r.IntN(255)),
		S: uint8(r.IntN(255)),
		L: uint8(51 + r.IntN(255-51)),
		R: DefaultRampRadius,
	}
}

// Hex returns the base color of the ramp as "#rrggbb".
func (c ColorRamp) Hex() string {
	r, g, b := c.RGB()
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// RGB converts the ramp's base HSL color to 8-bit RGB.
func (c ColorRamp) RGB() (uint8, uint8, uint8) {
	h := float64(c.H) / 255
	s := float64(c.S) / 255
	l := float64(c.L) / 255
	if s == 0 {
		v := uint8(math.Round(l * 255))
		return v, v, v
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return hueByte(p, q, h+1.0/3), hueByte(p, q, h), hueByte(p, q, h-1.0/3)
}

func hueByte(p, q, t float64) uint8 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	var v float64
	switch {
	case t < 1.0/6:
		v = p + (q-p)*6*t
	case t < 0.5:
		v = q
	case t < 2.0/3:
		v = p + (q-p)*(2.0/3-t)*6
	default:
		v = p
	}
	return uint8(math.Round(v * 255))
}
