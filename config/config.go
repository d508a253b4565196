package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v8"
	"github.com/semafind/semaknn/httpapi"
	"github.com/semafind/semaknn/models"
	"gopkg.in/yaml.v3"
)

// ---------------------------

const SEMAKNN_CONFIG = "SEMAKNN_CONFIG"

type ConfigMap struct {
	// Global debug flag
	Debug bool `yaml:"debug"`
	// Pretty log output
	PrettyLogOutput bool `yaml:"prettyLogOutput"`
	// Number of distance workers, 0 means one per CPU
	Workers int `yaml:"workers"`
	// Default number of neighbours when a request does not specify one
	K int `yaml:"k"`
	// Path of the dataset store, empty keeps datasets in memory
	DataPath string `yaml:"dataPath"`
	// HTTP Parameters
	HttpApi httpapi.HttpApiConfig `yaml:"httpApi" envPrefix:"HTTPAPI_"`
}

func DefaultConfig() ConfigMap {
	return ConfigMap{
		Workers: models.DefaultWorkers,
		K:       models.DefaultK,
		HttpApi: httpapi.HttpApiConfig{
			HttpHost:        "localhost",
			HttpPort:        8081,
			MetricsHttpPort: 8091,
			EnableMetrics:   true,
		},
	}
}

// LoadConfig starts from the defaults, applies the yaml file named by
// SEMAKNN_CONFIG if set and finally SEMAKNN_ prefixed environment variables,
// e.g. SEMAKNN_WORKERS or SEMAKNN_HTTPAPI_HTTP_PORT.
func LoadConfig() (ConfigMap, error) {
	configMap := DefaultConfig()
	// ---------------------------
	if cFilePath, ok := os.LookupEnv(SEMAKNN_CONFIG); ok {
		cFile, err := os.Open(cFilePath)
		if err != nil {
			return configMap, fmt.Errorf("failed to open config file %s: %w", cFilePath, err)
		}
		defer cFile.Close()
		decoder := yaml.NewDecoder(cFile)
		if err := decoder.Decode(&configMap); err != nil {
			return configMap, fmt.Errorf("failed to parse config file %s: %w", cFilePath, err)
		}
	}
	// ---------------------------
	opts := env.Options{Prefix: "SEMAKNN_", UseFieldNameByDefault: true}
	if err := env.ParseWithOptions(&configMap, opts); err != nil {
		return configMap, fmt.Errorf("failed to parse env: %w", err)
	}
	// ---------------------------
	if configMap.K <= 0 {
		return configMap, fmt.Errorf("k must be positive, got %d", configMap.K)
	}
	return configMap, nil
}
