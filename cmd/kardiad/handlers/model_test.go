package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/kardialab/kardia/cmd/kardiad/handlers"
	httptestutil "github.com/kardialab/kardia/internal/testutils/http"
	apipredict "github.com/kardialab/kardia/pkg/api/types/predict"
	srvmock "github.com/kardialab/kardia/pkg/serving/mock"
	"github.com/kardialab/kardia/pkg/utils/cmp"
)

func TestModelInfoHandler(t *testing.T) {

	t.Run("it describes the served model", func(t *testing.T) {
		mckmodel := srvmock.NewModel()
		mckmodel.Impl.Schema = heartSchema
		mckmodel.Impl.Family = func() string { return "random_forest" }
		mckmodel.Impl.Threshold = func() float64 { return 0.5 }

		e := echo.New()
		c, respRec := httptestutil.Get(e, "/api/model")

		if err := handlers.ModelInfoHandler(mckmodel)(c); err != nil {
			t.Fatalf("response is not ok. error = %v", err)
		}

		actual := apipredict.ModelInfo{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatal(err)
		}
		if actual.Family != "random_forest" || actual.Threshold != 0.5 {
			t.Errorf("unexpected model info: %+v", actual)
		}
		if len(actual.Fields) != 3 {
			t.Fatalf("unexpected field count: %d", len(actual.Fields))
		}
		if actual.Fields[0].Name != "age" || actual.Fields[0].Kind != "numeric" {
			t.Errorf("unexpected field: %+v", actual.Fields[0])
		}
		if !cmp.SliceEq(actual.Fields[2].Levels, []string{"0", "1", "2", "3"}) {
			t.Errorf("unexpected levels: %v", actual.Fields[2].Levels)
		}
	})

	t.Run("it answers 503 when no model is loaded", func(t *testing.T) {
		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/model")

		err := handlers.ModelInfoHandler(nil)(c)
		httpErr := &echo.HTTPError{}
		if !errors.As(err, &httpErr) || httpErr.Code != http.StatusServiceUnavailable {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
