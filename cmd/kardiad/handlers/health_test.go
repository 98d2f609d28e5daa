package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/kardialab/kardia/cmd/kardiad/handlers"
	httptestutil "github.com/kardialab/kardia/internal/testutils/http"
	apipredict "github.com/kardialab/kardia/pkg/api/types/predict"
	srvmock "github.com/kardialab/kardia/pkg/serving/mock"
)

func TestHealthHandler(t *testing.T) {

	t.Run("it reports ok with a loaded model", func(t *testing.T) {
		mckmodel := srvmock.NewModel()

		e := echo.New()
		c, respRec := httptestutil.Get(e, "/api/health")

		if err := handlers.HealthHandler(mckmodel)(c); err != nil {
			t.Fatalf("response is not ok. error = %v", err)
		}
		if respRec.Code != http.StatusOK {
			t.Fatalf("unexpected status: %d", respRec.Code)
		}

		actual := apipredict.HealthResponse{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatal(err)
		}
		if actual.Status != "ok" || !actual.ModelLoaded {
			t.Errorf("unexpected response: %+v", actual)
		}
	})

	t.Run("it reports ok without a model, but flags it", func(t *testing.T) {
		e := echo.New()
		c, respRec := httptestutil.Get(e, "/api/health")

		if err := handlers.HealthHandler(nil)(c); err != nil {
			t.Fatalf("response is not ok. error = %v", err)
		}
		if respRec.Code != http.StatusOK {
			t.Fatalf("unexpected status: %d", respRec.Code)
		}

		actual := apipredict.HealthResponse{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatal(err)
		}
		if actual.Status != "ok" || actual.ModelLoaded {
			t.Errorf("unexpected response: %+v", actual)
		}
	})
}
