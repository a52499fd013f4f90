package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("version: 1\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 8080 {
		t.Errorf("Port() = %d, want 8080", cfg.Port())
	}
	if cfg.FrameID() != "default" {
		t.Errorf("FrameID() = %q, want default", cfg.FrameID())
	}
	if cfg.StorageDriver() != "sqlite" || cfg.StoragePath() != "framescene.db" {
		t.Errorf("unexpected storage defaults: %s %s", cfg.StorageDriver(), cfg.StoragePath())
	}
	if cfg.MQTTEnabled() {
		t.Error("MQTT should be disabled without a broker")
	}
	if cfg.TopicPrefix() != "framescene" {
		t.Errorf("TopicPrefix() = %q", cfg.TopicPrefix())
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framescene.yaml")
	doc := `version: 1
frame:
  id: kitchen
  name: Kitchen frame
server:
  port: 9090
storage:
  driver: postgres
  log_events: true
registry:
  path: apps.yaml
mqtt:
  broker: tcp://broker:1883
  topic_prefix: home/frames
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FrameID() != "kitchen" || cfg.Frame.Name != "Kitchen frame" {
		t.Errorf("unexpected frame: %+v", cfg.Frame)
	}
	if cfg.Port() != 9090 {
		t.Errorf("Port() = %d", cfg.Port())
	}
	if cfg.StorageDriver() != "postgres" || !cfg.Storage.LogEvents {
		t.Errorf("unexpected storage: %+v", cfg.Storage)
	}
	if cfg.Registry.Path != "apps.yaml" {
		t.Errorf("unexpected registry path %q", cfg.Registry.Path)
	}
	if !cfg.MQTTEnabled() || cfg.TopicPrefix() != "home/frames" {
		t.Errorf("unexpected mqtt: %+v", cfg.MQTT)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"wrong version", "version: 2\n"},
		{"missing version", "frame:\n  id: x\n"},
		{"unknown driver", "version: 1\nstorage:\n  driver: mongo\n"},
		{"half tls", "version: 1\nserver:\n  tls_cert: cert.pem\n"},
		{"bad yaml", "version: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
