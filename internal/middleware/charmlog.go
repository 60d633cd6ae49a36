// Package middleware holds echo middleware shared by the control socket
// server.
package middleware

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
)

// CharmLog logs each request through the daemon's structured logger instead
// of echo's own.
func CharmLog() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			log.Debugf("%s %s -> %d (%v)", req.Method, req.URL.Path, c.Response().Status, time.Since(start).Round(time.Microsecond))
			return err
		}
	}
}
