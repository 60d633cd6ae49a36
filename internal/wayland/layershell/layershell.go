// Package layershell is a client binding for the wlr-layer-shell-unstable-v1
// protocol, written against the neurlang wayland proxy machinery. Only the
// parts a wallpaper needs are bound; popups are declared but unused.
package layershell

import (
	"sync"

	"github.com/neurlang/wayland/wl"
)

const (
	InterfaceName = "zwlr_layer_shell_v1"

	LayerBackground uint32 = 0
	LayerBottom     uint32 = 1
	LayerTop        uint32 = 2
	LayerOverlay    uint32 = 3

	AnchorTop    uint32 = 1
	AnchorBottom uint32 = 2
	AnchorLeft   uint32 = 4
	AnchorRight  uint32 = 8
	AnchorAll           = AnchorTop | AnchorBottom | AnchorLeft | AnchorRight

	KeyboardInteractivityNone      uint32 = 0
	KeyboardInteractivityExclusive uint32 = 1
	KeyboardInteractivityOnDemand  uint32 = 2
)

// LayerFromName maps the config file's layer name onto the protocol value.
func LayerFromName(name string) (uint32, bool) {
	switch name {
	case "background", "":
		return LayerBackground, true
	case "bottom":
		return LayerBottom, true
	case "top":
		return LayerTop, true
	case "overlay":
		return LayerOverlay, true
	}
	return 0, false
}

// LayerShell is the zwlr_layer_shell_v1 global.
type LayerShell struct {
	wl.BaseProxy
}

func NewLayerShell(ctx *wl.Context) *LayerShell {
	ret := new(LayerShell)
	ctx.Register(ret)
	return ret
}

// BindLayerShell binds the named registry global to a new LayerShell proxy.
func BindLayerShell(registry *wl.Registry, name uint32, version uint32) (*LayerShell, error) {
	shell := NewLayerShell(registry.Context())
	if err := registry.Bind(name, InterfaceName, version, shell); err != nil {
		return nil, err
	}
	return shell, nil
}

const opLayerShellGetLayerSurface = 0
const opLayerShellDestroy = 1

// GetLayerSurface creates a layer surface for the given wl_surface on the
// given output.
func (p *LayerShell) GetLayerSurface(surface *wl.Surface, output *wl.Output, layer uint32, namespace string) (*LayerSurface, error) {
	ret := NewLayerSurface(p.Context())
	err := p.Context().SendRequest(p, opLayerShellGetLayerSurface, ret, surface, output, layer, namespace)
	return ret, err
}

func (p *LayerShell) Destroy() error {
	err := p.Context().SendRequest(p, opLayerShellDestroy)
	p.Context().Unregister(p.Id())
	return err
}

// The layer shell global itself has no events.
func (p *LayerShell) Dispatch(event *wl.Event) {}

// LayerSurfaceConfigureEvent carries the compositor's size grant. It must
// be acknowledged before the next commit.
type LayerSurfaceConfigureEvent struct {
	Serial uint32
	Width  uint32
	Height uint32
}

type LayerSurfaceConfigureHandler interface {
	HandleLayerSurfaceConfigure(LayerSurfaceConfigureEvent)
}

// LayerSurfaceClosedEvent means the compositor destroyed the surface, for
// example because its output disappeared.
type LayerSurfaceClosedEvent struct{}

type LayerSurfaceClosedHandler interface {
	HandleLayerSurfaceClosed(LayerSurfaceClosedEvent)
}

// LayerSurface is a zwlr_layer_surface_v1 proxy.
type LayerSurface struct {
	wl.BaseProxy
	mu                sync.RWMutex
	configureHandlers []LayerSurfaceConfigureHandler
	closedHandlers    []LayerSurfaceClosedHandler
}

func NewLayerSurface(ctx *wl.Context) *LayerSurface {
	ret := new(LayerSurface)
	ctx.Register(ret)
	return ret
}

const (
	opLayerSurfaceSetSize                  = 0
	opLayerSurfaceSetAnchor                = 1
	opLayerSurfaceSetExclusiveZone         = 2
	opLayerSurfaceSetMargin                = 3
	opLayerSurfaceSetKeyboardInteractivity = 4
	opLayerSurfaceGetPopup                 = 5
	opLayerSurfaceAckConfigure             = 6
	opLayerSurfaceDestroy                  = 7
	opLayerSurfaceSetLayer                 = 8
)

func (p *LayerSurface) SetSize(width, height uint32) error {
	return p.Context().SendRequest(p, opLayerSurfaceSetSize, width, height)
}

func (p *LayerSurface) SetAnchor(anchor uint32) error {
	return p.Context().SendRequest(p, opLayerSurfaceSetAnchor, anchor)
}

func (p *LayerSurface) SetExclusiveZone(zone int32) error {
	return p.Context().SendRequest(p, opLayerSurfaceSetExclusiveZone, zone)
}

func (p *LayerSurface) SetMargin(top, right, bottom, left int32) error {
	return p.Context().SendRequest(p, opLayerSurfaceSetMargin, top, right, bottom, left)
}

func (p *LayerSurface) SetKeyboardInteractivity(ki uint32) error {
	return p.Context().SendRequest(p, opLayerSurfaceSetKeyboardInteractivity, ki)
}

func (p *LayerSurface) AckConfigure(serial uint32) error {
	return p.Context().SendRequest(p, opLayerSurfaceAckConfigure, serial)
}

func (p *LayerSurface) Destroy() error {
	err := p.Context().SendRequest(p, opLayerSurfaceDestroy)
	p.Context().Unregister(p.Id())
	return err
}

// SetLayer moves the surface to another layer. Requires protocol v2.
func (p *LayerSurface) SetLayer(layer uint32) error {
	return p.Context().SendRequest(p, opLayerSurfaceSetLayer, layer)
}

func (p *LayerSurface) AddConfigureHandler(h LayerSurfaceConfigureHandler) {
	if h == nil {
		return
	}
	p.mu.Lock()
	p.configureHandlers = append(p.configureHandlers, h)
	p.mu.Unlock()
}

func (p *LayerSurface) AddClosedHandler(h LayerSurfaceClosedHandler) {
	if h == nil {
		return
	}
	p.mu.Lock()
	p.closedHandlers = append(p.closedHandlers, h)
	p.mu.Unlock()
}

func (p *LayerSurface) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0:
		p.mu.RLock()
		handlers := p.configureHandlers
		p.mu.RUnlock()
		if len(handlers) == 0 {
			return
		}
		ev := LayerSurfaceConfigureEvent{
			Serial: event.Uint32(),
			Width:  event.Uint32(),
			Height: event.Uint32(),
		}
		for _, h := range handlers {
			h.HandleLayerSurfaceConfigure(ev)
		}
	case 1:
		p.mu.RLock()
		handlers := p.closedHandlers
		p.mu.RUnlock()
		for _, h := range handlers {
			h.HandleLayerSurfaceClosed(LayerSurfaceClosedEvent{})
		}
	}
}
