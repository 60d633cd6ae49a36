package wayland

import (
	"fmt"
	"os"

	"github.com/neurlang/wayland/wl"
	"github.com/neurlang/wayland/wlclient"

	"github.com/dustpile/fresco/internal/wayland/layershell"
)

// ProbeReport is the result of a standalone environment check, used by the
// doctor command when no daemon is running to answer instead.
type ProbeReport struct {
	WaylandDisplay string        `json:"wayland_display"`
	SessionType    string        `json:"session_type"`
	Compositor     bool          `json:"wl_compositor"`
	Shm            bool          `json:"wl_shm"`
	LayerShell     bool          `json:"layer_shell"`
	Outputs        []ProbeOutput `json:"outputs"`
	Problems       []string      `json:"problems,omitempty"`
}

type ProbeOutput struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Probe connects to the compositor, inventories the globals fresco needs,
// and disconnects. It never creates surfaces.
func Probe() ProbeReport {
	report := ProbeReport{
		WaylandDisplay: os.Getenv("WAYLAND_DISPLAY"),
		SessionType:    os.Getenv("XDG_SESSION_TYPE"),
	}
	if report.WaylandDisplay == "" {
		report.Problems = append(report.Problems, "WAYLAND_DISPLAY is not set")
	}
	if report.SessionType != "wayland" {
		report.Problems = append(report.Problems, fmt.Sprintf("XDG_SESSION_TYPE is %q, expected wayland", report.SessionType))
	}
	if report.WaylandDisplay != "" && SocketPath() == "" {
		report.Problems = append(report.Problems, "XDG_RUNTIME_DIR is not set; cannot locate the compositor socket")
	}

	display, err := wlclient.DisplayConnect(nil)
	if err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("cannot connect to compositor: %v", err))
		return report
	}
	defer wlclient.DisplayDisconnect(display)

	registry, err := display.GetRegistry()
	if err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("get registry: %v", err))
		return report
	}

	probe := &probeHandler{registry: registry, report: &report}
	registry.AddGlobalHandler(probe)
	if err := wlclient.DisplayRoundtrip(display); err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("roundtrip: %v", err))
		return report
	}
	// Second roundtrip collects the output event bursts.
	if err := wlclient.DisplayRoundtrip(display); err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("roundtrip: %v", err))
		return report
	}

	for _, o := range probe.outputs {
		report.Outputs = append(report.Outputs, *o)
	}
	if !report.Compositor {
		report.Problems = append(report.Problems, "compositor does not advertise wl_compositor")
	}
	if !report.Shm {
		report.Problems = append(report.Problems, "compositor does not advertise wl_shm")
	}
	if !report.LayerShell {
		report.Problems = append(report.Problems, "compositor does not advertise zwlr_layer_shell_v1 (GNOME and KDE do not support it)")
	}
	if len(report.Outputs) == 0 {
		report.Problems = append(report.Problems, "no outputs advertised")
	}
	return report
}

type probeHandler struct {
	registry *wl.Registry
	report   *ProbeReport
	outputs  []*ProbeOutput
}

func (p *probeHandler) HandleRegistryGlobal(ev wl.RegistryGlobalEvent) {
	switch ev.Interface {
	case "wl_compositor":
		p.report.Compositor = true
	case "wl_shm":
		p.report.Shm = true
	case layershell.InterfaceName:
		p.report.LayerShell = true
	case "wl_output":
		out := &ProbeOutput{Name: fmt.Sprintf("output-%d", ev.Name)}
		p.outputs = append(p.outputs, out)
		proxy := wlclient.RegistryBindOutputInterface(p.registry, ev.Name, minu32(ev.Version, 4))
		proxy.AddModeHandler(&probeOutputHandler{out: out})
		if ev.Version >= 4 {
			proxy.AddNameHandler(&probeOutputHandler{out: out})
		}
	}
}

type probeOutputHandler struct {
	out *ProbeOutput
}

func (h *probeOutputHandler) HandleOutputMode(ev wl.OutputModeEvent) {
	if ev.Flags&wl.OutputModeCurrent != 0 {
		h.out.Width = int(ev.Width)
		h.out.Height = int(ev.Height)
	}
}

func (h *probeOutputHandler) HandleOutputName(ev wl.OutputNameEvent) {
	h.out.Name = ev.Name
}
