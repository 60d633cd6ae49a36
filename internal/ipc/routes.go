package ipc

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, eng EngineInterface) {
	e.GET("/status", statusHandler(eng))
	e.GET("/doctor", doctorHandler(eng))
	e.POST("/apply", applyHandler(eng))
	e.POST("/stop", stopHandler(eng))
}
