package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const serviceName = "ecopulse"

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Time    string `json:"time"`
}

// Health возвращает статус сервиса.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: serviceName,
		Time:    time.Now().UTC().Format(timeLayout),
	})
}
