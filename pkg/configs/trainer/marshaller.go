package trainer

import (
	"os"

	"gopkg.in/yaml.v3"
)

func LoadTrainerConfig(filepath string) (*TrainerConfig, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	return Unmarshal(content)
}

func Unmarshal(conf []byte) (*TrainerConfig, error) {
	var out TrainerConfig
	err := yaml.Unmarshal(conf, &out)
	if err != nil {
		return nil, err
	}
	out.fillDefaults()
	return &out, nil
}
