// Package predict holds the wire types of the prediction service.
package predict

// RiskLevel buckets a positive-class probability for human readers.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// RiskOf buckets a probability. Boundaries are 0.3 and 0.7.
func RiskOf(proba float64) RiskLevel {
	switch {
	case proba < 0.3:
		return RiskLow
	case proba < 0.7:
		return RiskMedium
	default:
		return RiskHigh
	}
}

func (r RiskLevel) Message() string {
	switch r {
	case RiskLow:
		return "Low risk of heart disease"
	case RiskMedium:
		return "Moderate risk of heart disease, further screening advised"
	default:
		return "High risk of heart disease, clinical follow-up advised"
	}
}

// Request is one observation. Keys are feature names, values are numbers
// (booleans are accepted for binary features).
type Request map[string]any

type Response struct {
	Prediction  int       `json:"prediction"`
	Probability float64   `json:"probability"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Message     string    `json:"message"`
}

func NewResponse(label int, proba float64) Response {
	risk := RiskOf(proba)
	return Response{
		Prediction:  label,
		Probability: proba,
		RiskLevel:   risk,
		Message:     risk.Message(),
	}
}

type BatchRequest struct {
	Records []Request `json:"records"`
}

type BatchResponse struct {
	Predictions []Response `json:"predictions"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// FieldSpec describes one feature of the served model.
type FieldSpec struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Levels []string `json:"levels,omitempty"`
}

// ModelInfo describes the served model.
type ModelInfo struct {
	Family    string      `json:"family"`
	Threshold float64     `json:"threshold"`
	Fields    []FieldSpec `json:"fields"`
}
