package spec

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RGB is a fully opaque packed colour. It marshals as a "#rrggbb" hex string.
type RGB struct {
	R, G, B uint8
}

var Black = RGB{}

// ParseRGB accepts #rgb, #rrggbb and #rrggbbaa hex notation, with the
// leading hash optional. Any alpha component is ignored since wallpapers
// are always opaque.
func ParseRGB(s string) (RGB, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(h) {
	case 3:
		r, err1 := hexNibble(h[0])
		g, err2 := hexNibble(h[1])
		b, err3 := hexNibble(h[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return RGB{}, fmt.Errorf("invalid colour %q", s)
		}
		return RGB{r<<4 | r, g<<4 | g, b<<4 | b}, nil
	case 6, 8:
		r, err1 := hexByte(h[0], h[1])
		g, err2 := hexByte(h[2], h[3])
		b, err3 := hexByte(h[4], h[5])
		if err1 != nil || err2 != nil || err3 != nil {
			return RGB{}, fmt.Errorf("invalid colour %q", s)
		}
		if len(h) == 8 {
			if _, err := hexByte(h[6], h[7]); err != nil {
				return RGB{}, fmt.Errorf("invalid colour %q", s)
			}
		}
		return RGB{r, g, b}, nil
	}
	return RGB{}, fmt.Errorf("invalid colour %q (want #rgb, #rrggbb or #rrggbbaa)", s)
}

func hexNibble(c byte) (uint8, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	}
	return 0, fmt.Errorf("bad hex digit %q", c)
}

func hexByte(hi, lo byte) (uint8, error) {
	h, err := hexNibble(hi)
	if err != nil {
		return 0, err
	}
	l, err := hexNibble(lo)
	if err != nil {
		return 0, err
	}
	return h<<4 | l, nil
}

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// XRGB packs the colour into the 0x00RRGGBB layout used by wl_shm's
// XRGB8888 format on little-endian hosts.
func (c RGB) XRGB() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

func (c RGB) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

func (c *RGB) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRGB(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
