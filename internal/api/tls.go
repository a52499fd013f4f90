package api

import (
	"crypto/tls"
	"fmt"
	"os"

	"github.com/AaronLay10/FrameScene/internal/config"
)

// TLSConfig holds TLS certificate paths.
type TLSConfig struct {
	CertFile string
	KeyFile  string
}

// TLSFromConfig returns the TLS settings of cfg, or nil when TLS is off.
// FRAMESCENE_TLS_CERT and FRAMESCENE_TLS_KEY override the file.
func TLSFromConfig(cfg *config.Config) *TLSConfig {
	cert := cfg.Server.TLSCert
	key := cfg.Server.TLSKey
	if v := os.Getenv("FRAMESCENE_TLS_CERT"); v != "" {
		cert = v
	}
	if v := os.Getenv("FRAMESCENE_TLS_KEY"); v != "" {
		key = v
	}
	if cert == "" || key == "" {
		return nil
	}
	return &TLSConfig{CertFile: cert, KeyFile: key}
}

// Load reads the certificate pair into a tls.Config.
func (c *TLSConfig) Load() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
