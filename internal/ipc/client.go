package ipc

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"resty.dev/v3"

	"github.com/dustpile/fresco/internal/paths"
	"github.com/dustpile/fresco/internal/spec"
)

func newClient() *resty.Client {
	path := paths.Socket()

	client := resty.NewWithClient(&http.Client{
		Transport: &http.Transport{
			DialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
				return net.Dial("unix", path)
			},
		},
	})

	client.SetBaseURL("http://fresco")
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", "fresco")

	return client
}

// Apply sends a wallpaper command to the running daemon.
func Apply(s spec.Spec) (*ApplyResponse, error) {
	result := ApplyResponse{}
	response, err := newClient().R().
		SetBody(ApplyRequest{Spec: s}).
		SetResult(&result).
		Post("/apply")
	if err != nil {
		return nil, err
	}
	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("daemon refused command: %s", response.Status())
	}
	return &result, nil
}

// Status queries the running daemon.
func Status() (*StatusResponse, error) {
	result := StatusResponse{}
	response, err := newClient().R().SetResult(&result).Get("/status")
	if err != nil {
		return nil, err
	}
	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("status query failed: %s", response.Status())
	}
	return &result, nil
}

// Doctor asks the running daemon for its health report.
func Doctor() (*DoctorResponse, error) {
	result := DoctorResponse{}
	response, err := newClient().R().SetResult(&result).Get("/doctor")
	if err != nil {
		return nil, err
	}
	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("doctor query failed: %s", response.Status())
	}
	return &result, nil
}

// Stop asks the running daemon to shut down.
func Stop() error {
	response, err := newClient().R().Post("/stop")
	if err != nil {
		return err
	}
	if response.StatusCode() != http.StatusOK {
		return fmt.Errorf("stop failed: %s", response.Status())
	}
	return nil
}

// IsRunning reports whether a daemon answers on the control socket.
func IsRunning() bool {
	_, err := Status()
	return err == nil
}
