// Package spec defines the wallpaper specification types shared between the
// controller CLI and the daemon: what to show (image, solid colour, or
// nothing), how to scale it, and how to transition to it.
package spec

import (
	"fmt"
	"os"
	"time"
)

type Mode string

const (
	ModeFill    Mode = "fill"
	ModeFit     Mode = "fit"
	ModeStretch Mode = "stretch"
	ModeCenter  Mode = "center"
	ModeTile    Mode = "tile"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFill, ModeFit, ModeStretch, ModeCenter, ModeTile:
		return Mode(s), nil
	case "":
		return ModeFill, nil
	}
	return "", fmt.Errorf("invalid mode %q (want fill|fit|stretch|center|tile)", s)
}

type Transition string

const (
	TransitionNone Transition = "none"
	TransitionFade Transition = "fade"
	TransitionWipe Transition = "wipe"
)

func ParseTransition(s string) (Transition, error) {
	switch Transition(s) {
	case TransitionNone, TransitionFade, TransitionWipe:
		return Transition(s), nil
	case "":
		return TransitionNone, nil
	}
	return "", fmt.Errorf("invalid transition %q (want none|fade|wipe)", s)
}

// Direction selects the sweep origin for wipe transitions.
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionLeft, DirectionRight:
		return Direction(s), nil
	case "":
		return DirectionLeft, nil
	}
	return "", fmt.Errorf("invalid direction %q (want left|right)", s)
}

// TransitionSpec describes how to move from the current wallpaper to the new
// one. A zero duration is equivalent to TransitionNone.
type TransitionSpec struct {
	Kind     Transition `json:"kind"`
	Duration int        `json:"duration_ms"`
	From     Direction  `json:"from,omitempty"`
}

func (t TransitionSpec) Effective() Transition {
	if t.Duration <= 0 {
		return TransitionNone
	}
	return t.Kind
}

type Kind string

const (
	KindImage  Kind = "image"
	KindColour Kind = "colour"

	// KindNone represents "no wallpaper set". It is a real spec value so
	// that unsetting participates in the same transition machinery as any
	// other change.
	KindNone Kind = "none"
)

// Spec is the logical desired wallpaper for one or all outputs. It is
// immutable once constructed; commands replace it wholesale.
type Spec struct {
	Kind Kind `json:"kind"`

	// Image only.
	Path string `json:"path,omitempty"`
	Mode Mode   `json:"mode,omitempty"`

	// Solid colour for KindColour; letterbox background for KindImage.
	Colour RGB `json:"colour"`

	// Target output name; empty means all outputs.
	Output string `json:"output,omitempty"`

	Transition TransitionSpec `json:"transition"`
}

func Image(path string, mode Mode, bg RGB, output string, tr TransitionSpec) Spec {
	return Spec{Kind: KindImage, Path: path, Mode: mode, Colour: bg, Output: output, Transition: tr}
}

func Colour(c RGB, output string, tr TransitionSpec) Spec {
	return Spec{Kind: KindColour, Colour: c, Output: output, Transition: tr}
}

// Unset is the "no wallpaper" spec for an output.
func Unset(output string, tr TransitionSpec) Spec {
	return Spec{Kind: KindNone, Output: output, Transition: tr}
}

func (s Spec) String() string {
	switch s.Kind {
	case KindImage:
		return fmt.Sprintf("image %s mode=%s", s.Path, s.Mode)
	case KindColour:
		return fmt.Sprintf("colour %s", s.Colour.Hex())
	default:
		return "unset"
	}
}

// RenderKey is the hashable identity of a rendered frame: the same key must
// always produce a byte-identical pixel buffer. For images the content is
// identified by path plus file size and mtime, so an edited file renders
// fresh even at the same path.
type RenderKey struct {
	Kind   Kind
	Path   string
	Size   int64
	Mtime  int64 // unix nanoseconds
	Mode   Mode
	Colour RGB
	Width  int
	Height int
}

// Key derives the RenderKey for this spec at the given output resolution.
// Image specs stat the file so the key tracks content changes.
func (s Spec) Key(width, height int) (RenderKey, error) {
	k := RenderKey{
		Kind:   s.Kind,
		Mode:   s.Mode,
		Colour: s.Colour,
		Width:  width,
		Height: height,
	}
	if s.Kind != KindImage {
		return k, nil
	}
	fi, err := os.Stat(s.Path)
	if err != nil {
		return RenderKey{}, fmt.Errorf("stat %s: %w", s.Path, err)
	}
	k.Path = s.Path
	k.Size = fi.Size()
	k.Mtime = fi.ModTime().UnixNano()
	return k, nil
}

func (k RenderKey) String() string {
	switch k.Kind {
	case KindImage:
		return fmt.Sprintf("image:%s@%d:%s:%s:%dx%d", k.Path, k.Size, k.Mode, k.Colour.Hex(), k.Width, k.Height)
	case KindColour:
		return fmt.Sprintf("colour:%s:%dx%d", k.Colour.Hex(), k.Width, k.Height)
	default:
		return fmt.Sprintf("none:%dx%d", k.Width, k.Height)
	}
}

// DurationMS converts a whole-millisecond duration into a time.Duration,
// clamping negatives to zero.
func DurationMS(ms int) time.Duration {
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}
