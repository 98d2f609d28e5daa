package trainer

// TrainerConfig drives kardia-train. Column lists default to the heart
// disease dataset layout.
type TrainerConfig struct {
	// DataPath of the training CSV.
	DataPath string `yaml:"dataPath"`

	// Label column. Values must be 0 or 1.
	Label string `yaml:"label"`

	// Numeric feature columns. Imputed with the median and standardized.
	Numeric []string `yaml:"numeric"`

	// Categorical feature columns. Imputed with the most frequent value and
	// one-hot encoded.
	Categorical []string `yaml:"categorical"`

	// ModelDir receives the model artifact pair.
	ModelDir string `yaml:"modelDir"`

	// TrackingURI selects the run store: postgres URL or a directory path.
	TrackingURI string `yaml:"trackingURI"`

	Seed      int64   `yaml:"seed"`
	Folds     int     `yaml:"folds"`
	TestRatio float64 `yaml:"testRatio"`
}

func (c *TrainerConfig) fillDefaults() {
	if c.DataPath == "" {
		c.DataPath = "data/heart.csv"
	}
	if c.Label == "" {
		c.Label = "target"
	}
	if c.Numeric == nil {
		c.Numeric = []string{"age", "trestbps", "chol", "thalach", "oldpeak"}
	}
	if c.Categorical == nil {
		c.Categorical = []string{
			"sex", "cp", "fbs", "restecg", "exang", "slope", "ca", "thal",
		}
	}
	if c.ModelDir == "" {
		c.ModelDir = "models"
	}
	if c.TrackingURI == "" {
		c.TrackingURI = "runs"
	}
}
