package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apipredict "github.com/kardialab/kardia/pkg/api/types/predict"
	"github.com/kardialab/kardia/pkg/serving"
)

// HealthHandler reports liveness. It answers 200 even without a model, so
// probes can tell "server down" from "model missing".
func HealthHandler(m serving.Model) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, apipredict.HealthResponse{
			Status:      "ok",
			ModelLoaded: m != nil,
		})
	}
}
