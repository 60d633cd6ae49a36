package wayland

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/neurlang/wayland/wl"

	"github.com/dustpile/fresco/internal/engine"
)

// outputState accumulates a wl_output's event burst until the done event
// seals it, then announces the output to the engine.
type outputState struct {
	client    *Client
	proxy     *wl.Output
	version   uint32
	info      engine.OutputInfo
	announced engine.OutputInfo
	seen      bool
}

func (c *Client) addOutput(name uint32, version uint32, proxy *wl.Output) {
	o := &outputState{
		client:  c,
		proxy:   proxy,
		version: version,
		info:    engine.OutputInfo{ID: name},
	}
	proxy.AddGeometryHandler(o)
	proxy.AddModeHandler(o)
	if version >= 4 {
		proxy.AddNameHandler(o)
		proxy.AddDescriptionHandler(o)
	}
	if version >= 2 {
		proxy.AddDoneHandler(o)
	}

	c.mu.Lock()
	c.outputs[name] = o
	c.mu.Unlock()
}

func (o *outputState) HandleOutputGeometry(ev wl.OutputGeometryEvent) {
	if o.info.Desc == "" {
		o.info.Desc = strings.TrimSpace(ev.Make + " " + ev.Model)
	}
}

func (o *outputState) HandleOutputMode(ev wl.OutputModeEvent) {
	if ev.Flags&wl.OutputModeCurrent == 0 {
		return
	}
	o.info.Width = int(ev.Width)
	o.info.Height = int(ev.Height)
	// Ancient singleton-version outputs never send done.
	if o.version < 2 {
		o.announce()
	}
}

func (o *outputState) HandleOutputName(ev wl.OutputNameEvent) {
	o.info.Name = ev.Name
}

func (o *outputState) HandleOutputDescription(ev wl.OutputDescriptionEvent) {
	o.info.Desc = ev.Description
}

func (o *outputState) HandleOutputDone(ev wl.OutputDoneEvent) {
	o.announce()
}

func (o *outputState) announce() {
	if o.info.Name == "" {
		// Compositors older than wl_output v4 never name their
		// outputs; fall back to the registry id.
		o.info.Name = fmt.Sprintf("output-%d", o.info.ID)
	}
	if o.info.Width == 0 || o.info.Height == 0 {
		return
	}
	if !o.seen {
		o.seen = true
		o.announced = o.info
		log.Infof("output %s connected: %dx%d (%s)", o.info.Name, o.info.Width, o.info.Height, o.info.Desc)
		o.client.events <- engine.OutputAdded{Output: o.info}
		return
	}
	if o.info != o.announced {
		o.announced = o.info
		log.Infof("output %s changed: %dx%d", o.info.Name, o.info.Width, o.info.Height)
		o.client.events <- engine.OutputChanged{Output: o.info}
	}
}
