package ipc

import (
	"context"

	"github.com/dustpile/fresco/internal/engine"
	"github.com/dustpile/fresco/internal/spec"
)

// EngineInterface is the slice of the engine the IPC server needs. The
// controller process talks to it over the control socket.
type EngineInterface interface {
	Apply(ctx context.Context, s spec.Spec) ([]engine.ApplyResult, error)
	Status(ctx context.Context) (engine.StatusReport, error)
	Stop()
}

// ApplyRequest carries one wallpaper command from the controller.
type ApplyRequest struct {
	Spec spec.Spec `json:"spec"`
}

type ApplyResponse struct {
	Status  string               `json:"status"`
	Results []engine.ApplyResult `json:"results"`
}

type StatusResponse struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Version string              `json:"version"`
	PID     int                 `json:"pid"`
	Socket  string              `json:"socket"`
	Config  string              `json:"config"`
	Engine  engine.StatusReport `json:"engine"`
}

type DoctorResponse struct {
	Status         string              `json:"status"`
	Version        string              `json:"version"`
	PID            int                 `json:"pid"`
	WaylandDisplay string              `json:"wayland_display"`
	SessionType    string              `json:"session_type"`
	Compositor     bool                `json:"wl_compositor"`
	Shm            bool                `json:"wl_shm"`
	LayerShell     bool                `json:"layer_shell"`
	Engine         engine.StatusReport `json:"engine"`
	Problems       []string            `json:"problems,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
