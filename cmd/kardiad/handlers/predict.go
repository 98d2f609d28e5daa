package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	apierr "github.com/kardialab/kardia/pkg/api/types/errors"
	apipredict "github.com/kardialab/kardia/pkg/api/types/predict"
	"github.com/kardialab/kardia/pkg/domain/schema"
	"github.com/kardialab/kardia/pkg/serving"
)

// MaxBatchSize bounds one batch request.
const MaxBatchSize = 1000

// PredictHandler scores one observation. A nil model means the artifact was
// not loadable at startup; the endpoint then reports 503 instead of failing
// at bind time.
func PredictHandler(m serving.Model) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m == nil {
			return modelNotLoaded()
		}

		payload := apipredict.Request{}
		if err := c.Bind(&payload); err != nil {
			return apierr.BadRequest("request body should be a JSON object", err)
		}

		row, ferrs := m.Schema().Validate(payload)
		if 0 < len(ferrs) {
			return badFields(ferrs)
		}

		labels, proba, err := m.Predict([]schema.Row{row})
		if err != nil {
			return apierr.InternalServerError(err)
		}

		return c.JSON(http.StatusOK, apipredict.NewResponse(labels[0], proba[0]))
	}
}

// BatchPredictHandler scores up to MaxBatchSize observations in one request.
// Validation is all-or-nothing: if any record is broken, nothing is scored.
func BatchPredictHandler(m serving.Model) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m == nil {
			return modelNotLoaded()
		}

		payload := apipredict.BatchRequest{}
		if err := c.Bind(&payload); err != nil {
			return apierr.BadRequest("request body should be a JSON object", err)
		}
		if len(payload.Records) == 0 {
			return apierr.BadRequest(`"records" should not be empty`, nil)
		}
		if MaxBatchSize < len(payload.Records) {
			return apierr.BadRequest(
				fmt.Sprintf(`"records" should hold at most %d items`, MaxBatchSize),
				nil,
			)
		}

		rows := make([]schema.Row, len(payload.Records))
		broken := []schema.FieldError{}
		for i, record := range payload.Records {
			row, ferrs := m.Schema().Validate(record)
			for _, fe := range ferrs {
				fe.Field = fmt.Sprintf("records[%d].%s", i, fe.Field)
				broken = append(broken, fe)
			}
			rows[i] = row
		}
		if 0 < len(broken) {
			return badFields(broken)
		}

		labels, proba, err := m.Predict(rows)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		resp := apipredict.BatchResponse{
			Predictions: make([]apipredict.Response, len(labels)),
		}
		for i := range labels {
			resp.Predictions[i] = apipredict.NewResponse(labels[i], proba[i])
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func modelNotLoaded() *echo.HTTPError {
	return apierr.ServiceUnavailable(
		"no model is loaded. train one and restart the server.", nil,
	)
}

func badFields(ferrs []schema.FieldError) *echo.HTTPError {
	names := make([]string, len(ferrs))
	reasons := make([]string, len(ferrs))
	for i, fe := range ferrs {
		names[i] = fe.Field
		reasons[i] = fe.Error()
	}
	return apierr.BadRequest(
		strings.Join(reasons, "; "),
		nil,
		apierr.WithFields(names...),
	)
}
