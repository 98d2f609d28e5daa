package server

// ServerConfig drives kardiad.
type ServerConfig struct {
	// ServerPort to listen on. "8080" when omitted.
	ServerPort string `yaml:"port"`

	// ModelDir holds the model artifact pair.
	ModelDir string `yaml:"modelDir"`

	// AuthSecret enables bearer token authentication on the prediction
	// endpoints when set. Empty leaves them open.
	AuthSecret string `yaml:"authSecret"`

	// CORSOrigins allowed on the API. Empty means any origin.
	CORSOrigins []string `yaml:"corsOrigins"`
}

func (c *ServerConfig) fillDefaults() {
	if c.ServerPort == "" {
		c.ServerPort = "8080"
	}
	if c.ModelDir == "" {
		c.ModelDir = "models"
	}
}
