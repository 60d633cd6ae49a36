// Package wayland is the compositor backend. It owns the display
// connection, tracks outputs as they come and go, and turns protocol
// callbacks into the engine's event stream.
package wayland

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/neurlang/wayland/wl"
	"github.com/neurlang/wayland/wlclient"

	"github.com/dustpile/fresco/internal/engine"
	"github.com/dustpile/fresco/internal/wayland/layershell"
)

// Client speaks the Wayland protocol for the daemon. Requests may be sent
// from the engine goroutine while the dispatch goroutine reads events, so
// every request batch holds mu.
type Client struct {
	display    *wl.Display
	registry   *wl.Registry
	compositor *wl.Compositor
	shm        *wl.Shm
	shell      *layershell.LayerShell
	layer      uint32

	mu       sync.Mutex
	outputs  map[uint32]*outputState // keyed by registry global name
	surfaces map[uint32]*surface

	events chan engine.Event
	done   chan struct{}

	disconnectOnce sync.Once
}

var _ engine.Compositor = (*Client)(nil)

// Connect establishes the display connection, binds the globals fresco
// needs, and starts the dispatch loop. layerName chooses which layer-shell
// layer surfaces are placed on.
func Connect(layerName string) (*Client, error) {
	layer, ok := layershell.LayerFromName(layerName)
	if !ok {
		return nil, fmt.Errorf("unknown layer %q", layerName)
	}

	display, err := wlclient.DisplayConnect(nil)
	if err != nil {
		return nil, fmt.Errorf("connect to wayland display: %w", err)
	}

	c := &Client{
		display:  display,
		layer:    layer,
		outputs:  make(map[uint32]*outputState),
		surfaces: make(map[uint32]*surface),
		events:   make(chan engine.Event, 64),
		done:     make(chan struct{}),
	}

	c.registry, err = display.GetRegistry()
	if err != nil {
		return nil, fmt.Errorf("get registry: %w", err)
	}
	c.registry.AddGlobalHandler(c)
	c.registry.AddGlobalRemoveHandler(c)

	// First roundtrip announces the globals, second delivers the initial
	// burst of per-output geometry and mode events.
	if err := wlclient.DisplayRoundtrip(display); err != nil {
		return nil, fmt.Errorf("registry roundtrip: %w", err)
	}
	if err := wlclient.DisplayRoundtrip(display); err != nil {
		return nil, fmt.Errorf("output roundtrip: %w", err)
	}

	if c.compositor == nil {
		return nil, errors.New("compositor lacks wl_compositor")
	}
	if c.shm == nil {
		return nil, errors.New("compositor lacks wl_shm")
	}
	if c.shell == nil {
		return nil, errors.New("compositor lacks zwlr_layer_shell_v1; is this a wlroots compositor?")
	}

	go c.dispatchLoop()
	go c.sessionLoop()
	return c, nil
}

func (c *Client) Events() <-chan engine.Event { return c.events }

func (c *Client) Close() {
	close(c.done)
	c.disconnect()
}

func (c *Client) disconnect() {
	c.disconnectOnce.Do(func() {
		wlclient.DisplayDisconnect(c.display)
	})
}

func (c *Client) dispatchLoop() {
	for {
		err := wlclient.DisplayDispatch(c.display)
		select {
		case <-c.done:
			close(c.events)
			return
		default:
		}
		if err != nil {
			log.Errorf("wayland connection lost: %v", err)
			c.events <- engine.ConnectionLost{Err: err}
			close(c.events)
			return
		}
	}
}

// HandleRegistryGlobal binds the globals fresco uses as they are announced.
func (c *Client) HandleRegistryGlobal(ev wl.RegistryGlobalEvent) {
	switch ev.Interface {
	case "wl_compositor":
		c.compositor = wlclient.RegistryBindCompositorInterface(c.registry, ev.Name, minu32(ev.Version, 4))
		log.Debugf("bound wl_compositor v%d", ev.Version)
	case "wl_shm":
		c.shm = wlclient.RegistryBindShmInterface(c.registry, ev.Name, 1)
		log.Debugf("bound wl_shm")
	case layershell.InterfaceName:
		shell, err := layershell.BindLayerShell(c.registry, ev.Name, minu32(ev.Version, 2))
		if err != nil {
			log.Errorf("bind layer shell: %v", err)
			return
		}
		c.shell = shell
		log.Debugf("bound %s v%d", layershell.InterfaceName, ev.Version)
	case "wl_output":
		proxy := wlclient.RegistryBindOutputInterface(c.registry, ev.Name, minu32(ev.Version, 4))
		c.addOutput(ev.Name, ev.Version, proxy)
	}
}

// HandleRegistryGlobalRemove retires outputs when displays disconnect.
func (c *Client) HandleRegistryGlobalRemove(ev wl.RegistryGlobalRemoveEvent) {
	c.mu.Lock()
	out, ok := c.outputs[ev.Name]
	if ok {
		delete(c.outputs, ev.Name)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	log.Infof("output %s disconnected", out.info.Name)
	c.events <- engine.OutputRemoved{ID: ev.Name}
}

// CreateSurface builds and commits a bare background layer surface on the
// output. The compositor answers with a configure event before any buffer
// may be attached.
func (c *Client) CreateSurface(out engine.OutputInfo) (engine.Surface, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.outputs[out.ID]
	if !ok {
		return nil, fmt.Errorf("unknown output %d", out.ID)
	}

	wlSurface, err := c.compositor.CreateSurface()
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}

	// An empty input region lets clicks pass through the wallpaper.
	region, err := c.compositor.CreateRegion()
	if err != nil {
		wlSurface.Destroy()
		return nil, fmt.Errorf("create region: %w", err)
	}
	wlSurface.SetInputRegion(region)
	region.Destroy()

	ls, err := c.shell.GetLayerSurface(wlSurface, state.proxy, c.layer, "fresco")
	if err != nil {
		wlSurface.Destroy()
		return nil, fmt.Errorf("get layer surface: %w", err)
	}
	ls.SetAnchor(layershell.AnchorAll)
	ls.SetExclusiveZone(-1)
	ls.SetKeyboardInteractivity(layershell.KeyboardInteractivityNone)
	ls.SetSize(0, 0)

	s := &surface{
		client:    c,
		outputID:  out.ID,
		wlSurface: wlSurface,
		layer:     ls,
	}
	ls.AddConfigureHandler(s)
	ls.AddClosedHandler(s)
	c.surfaces[out.ID] = s

	// The initial commit carries no buffer; it asks for the first
	// configure.
	wlSurface.Commit()
	return s, nil
}

func (c *Client) removeSurface(id uint32) {
	c.mu.Lock()
	delete(c.surfaces, id)
	c.mu.Unlock()
}

func minu32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
