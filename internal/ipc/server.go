package ipc

import (
	"net"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"github.com/dustpile/fresco/internal/middleware"
	"github.com/dustpile/fresco/internal/paths"
)

// Start serves the control API on the unix socket. It blocks until the
// process exits, so callers run it on its own goroutine.
func Start(eng EngineInterface) {
	sockPath := paths.Socket()

	// A previous daemon that crashed leaves the socket file behind.
	if _, err := os.Stat(sockPath); err == nil {
		_ = os.Remove(sockPath)
	}

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		log.Fatalf("listen on %s: %v", sockPath, err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Listener = listener

	e.Use(middleware.CharmLog())

	RegisterRoutes(e, eng)

	log.Infof("control socket listening at %s", sockPath)
	server := new(http.Server)
	if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
		log.Fatalf("socket server error: %v", err)
	}
}
