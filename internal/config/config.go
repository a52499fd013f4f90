package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the framescene.yaml document.
type Config struct {
	Version int `yaml:"version"`
	Frame   struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"frame"`
	Server struct {
		Port    int    `yaml:"port"`
		TLSCert string `yaml:"tls_cert"`
		TLSKey  string `yaml:"tls_key"`
	} `yaml:"server"`
	Storage struct {
		// Driver is "postgres" or "sqlite".
		Driver string `yaml:"driver"`
		// Path is the SQLite database file.
		Path string `yaml:"path"`
		// LogEvents also writes editor events to the database.
		LogEvents bool `yaml:"log_events"`
	} `yaml:"storage"`
	Registry struct {
		// Path to an app catalog; the built-in catalog is used when empty.
		Path string `yaml:"path"`
	} `yaml:"registry"`
	MQTT struct {
		Broker      string `yaml:"broker"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`
}

// Port returns the configured API port, defaulting to 8080 if not set.
func (c *Config) Port() int {
	if c.Server.Port == 0 {
		return 8080
	}
	return c.Server.Port
}

// FrameID returns the frame the scenes belong to, defaulting to "default".
func (c *Config) FrameID() string {
	if c.Frame.ID == "" {
		return "default"
	}
	return c.Frame.ID
}

// StorageDriver returns the scene store backend, defaulting to sqlite.
func (c *Config) StorageDriver() string {
	if c.Storage.Driver == "" {
		return "sqlite"
	}
	return c.Storage.Driver
}

// StoragePath returns the SQLite file, defaulting to framescene.db.
func (c *Config) StoragePath() string {
	if c.Storage.Path == "" {
		return "framescene.db"
	}
	return c.Storage.Path
}

// TopicPrefix returns the MQTT topic prefix, defaulting to framescene.
func (c *Config) TopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return "framescene"
	}
	return c.MQTT.TopicPrefix
}

// MQTTEnabled reports whether events should be published to a broker.
func (c *Config) MQTTEnabled() bool {
	return c.MQTT.Broker != ""
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{Version: 1}
}

// Parse decodes and checks a framescene.yaml document.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported framescene.yaml version: %d", cfg.Version)
	}
	switch cfg.StorageDriver() {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
	if (cfg.Server.TLSCert == "") != (cfg.Server.TLSKey == "") {
		return nil, fmt.Errorf("tls_cert and tls_key must be set together")
	}

	return &cfg, nil
}

// Load reads framescene.yaml from path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}
