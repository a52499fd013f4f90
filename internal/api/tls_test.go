package api

import (
	"testing"

	"github.com/AaronLay10/FrameScene/internal/config"
)

func TestTLSFromConfig_Off(t *testing.T) {
	t.Setenv("FRAMESCENE_TLS_CERT", "")
	t.Setenv("FRAMESCENE_TLS_KEY", "")

	if cfg := TLSFromConfig(config.Default()); cfg != nil {
		t.Errorf("TLS should be off without cert and key, got %+v", cfg)
	}
}

func TestTLSFromConfig_OnlyCert(t *testing.T) {
	t.Setenv("FRAMESCENE_TLS_CERT", "/path/to/cert.pem")
	t.Setenv("FRAMESCENE_TLS_KEY", "")

	if cfg := TLSFromConfig(config.Default()); cfg != nil {
		t.Error("TLS should be off when only the cert is set")
	}
}

func TestTLSFromConfig_File(t *testing.T) {
	t.Setenv("FRAMESCENE_TLS_CERT", "")
	t.Setenv("FRAMESCENE_TLS_KEY", "")

	c := config.Default()
	c.Server.TLSCert = "/etc/framescene/cert.pem"
	c.Server.TLSKey = "/etc/framescene/key.pem"

	cfg := TLSFromConfig(c)
	if cfg == nil {
		t.Fatal("TLS should be on when the file sets cert and key")
	}
	if cfg.CertFile != "/etc/framescene/cert.pem" || cfg.KeyFile != "/etc/framescene/key.pem" {
		t.Errorf("unexpected paths %+v", cfg)
	}
}

func TestTLSFromConfig_EnvOverride(t *testing.T) {
	t.Setenv("FRAMESCENE_TLS_CERT", "/path/to/cert.pem")
	t.Setenv("FRAMESCENE_TLS_KEY", "")

	c := config.Default()
	c.Server.TLSCert = "/etc/framescene/cert.pem"
	c.Server.TLSKey = "/etc/framescene/key.pem"

	cfg := TLSFromConfig(c)
	if cfg == nil {
		t.Fatal("TLS should be on")
	}
	if cfg.CertFile != "/path/to/cert.pem" {
		t.Errorf("CertFile = %q, want %q", cfg.CertFile, "/path/to/cert.pem")
	}
	if cfg.KeyFile != "/etc/framescene/key.pem" {
		t.Errorf("KeyFile = %q, want %q", cfg.KeyFile, "/etc/framescene/key.pem")
	}
}

func TestTLSLoad_InvalidFiles(t *testing.T) {
	cfg := &TLSConfig{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"}
	if _, err := cfg.Load(); err == nil {
		t.Error("Load should fail when the cert files don't exist")
	}
}
