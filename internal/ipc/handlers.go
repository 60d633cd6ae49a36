package ipc

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/viper"

	"github.com/dustpile/fresco"
	"github.com/dustpile/fresco/internal/paths"
)

const commandTimeout = 10 * time.Second

// GET /status
func statusHandler(eng EngineInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := contextWithTimeout(c)
		defer cancel()
		report, err := eng.Status(ctx)
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		}
		return c.JSONPretty(http.StatusOK, StatusResponse{
			Status:  "ok",
			Message: "fresco is running",
			Version: strings.Trim(fresco.Version, "\n\r "),
			PID:     os.Getpid(),
			Socket:  paths.Socket(),
			Config:  viper.ConfigFileUsed(),
			Engine:  report,
		}, "  ")
	}
}

// GET /doctor
func doctorHandler(eng EngineInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := contextWithTimeout(c)
		defer cancel()
		report, err := eng.Status(ctx)
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		}
		resp := DoctorResponse{
			Status:         "ok",
			Version:        strings.Trim(fresco.Version, "\n\r "),
			PID:            os.Getpid(),
			WaylandDisplay: os.Getenv("WAYLAND_DISPLAY"),
			SessionType:    os.Getenv("XDG_SESSION_TYPE"),
			// The daemon refuses to start without these globals, so a
			// responding daemon implies all three.
			Compositor: true,
			Shm:        true,
			LayerShell: true,
			Engine:     report,
		}
		if len(report.Outputs) == 0 {
			resp.Problems = append(resp.Problems, "no outputs are connected")
		}
		return c.JSONPretty(http.StatusOK, resp, "  ")
	}
}

// POST /apply
func applyHandler(eng EngineInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req ApplyRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		}
		ctx, cancel := contextWithTimeout(c)
		defer cancel()
		results, err := eng.Apply(ctx, req.Spec)
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		}
		status := "ok"
		for _, r := range results {
			if !r.OK {
				status = "partial"
			}
		}
		return c.JSON(http.StatusOK, ApplyResponse{Status: status, Results: results})
	}
}

// POST /stop
func stopHandler(eng EngineInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Reply before the engine tears the process down.
		err := c.JSON(http.StatusOK, map[string]string{"status": "ok"})
		go eng.Stop()
		return err
	}
}

func contextWithTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), commandTimeout)
}
