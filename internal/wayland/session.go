package wayland

import (
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

const (
	sessionCheckInterval = 5 * time.Second
	sessionFailureLimit  = 3
)

// SocketPath returns the compositor socket the current session points at,
// or "" when the environment does not describe one.
func SocketPath() string {
	display := os.Getenv("WAYLAND_DISPLAY")
	if display == "" {
		return ""
	}
	if filepath.IsAbs(display) {
		return display
	}
	runtime := os.Getenv("XDG_RUNTIME_DIR")
	if runtime == "" {
		return ""
	}
	return filepath.Join(runtime, display)
}

// sessionLoop polls the compositor socket so a session that dies without
// tearing down our connection still shuts the daemon down. Severing the
// display makes the dispatch loop report the loss.
func (c *Client) sessionLoop() {
	path := SocketPath()
	if path == "" {
		return
	}

	ticker := time.NewTicker(sessionCheckInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		conn, err := net.DialTimeout("unix", path, time.Second)
		if err != nil {
			failures++
			log.Warnf("compositor socket check failed (%d/%d): %v", failures, sessionFailureLimit, err)
			if failures >= sessionFailureLimit {
				log.Errorf("compositor session is gone, disconnecting")
				c.disconnect()
				return
			}
			continue
		}
		conn.Close()
		failures = 0
	}
}
