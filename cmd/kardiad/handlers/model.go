package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apipredict "github.com/kardialab/kardia/pkg/api/types/predict"
	"github.com/kardialab/kardia/pkg/domain/schema"
	"github.com/kardialab/kardia/pkg/serving"
)

// ModelInfoHandler describes the served model: estimator family, decision
// threshold and the expected input fields.
func ModelInfoHandler(m serving.Model) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m == nil {
			return modelNotLoaded()
		}

		s := m.Schema()
		info := apipredict.ModelInfo{
			Family:    m.Family(),
			Threshold: m.Threshold(),
			Fields:    make([]apipredict.FieldSpec, len(s.Fields)),
		}
		for i, f := range s.Fields {
			spec := apipredict.FieldSpec{Name: f.Name, Kind: string(f.Kind)}
			for _, level := range f.Levels {
				spec.Levels = append(spec.Levels, schema.FormatLevel(level))
			}
			info.Fields[i] = spec
		}
		return c.JSON(http.StatusOK, info)
	}
}
