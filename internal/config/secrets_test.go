package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSecret(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestResolveSecret(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		file    *string
		want    string
		wantErr bool
	}{
		{name: "env only", env: "env-value", want: "env-value"},
		{name: "file only", file: ptr("file-value\n"), want: "file-value"},
		{name: "file wins over env", env: "env-value", file: ptr("file-value"), want: "file-value"},
		{name: "neither set", want: ""},
		{name: "trims whitespace", file: ptr("  secret-value  \n\n"), want: "secret-value"},
		{name: "empty file", file: ptr(""), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const envName = "TEST_FRAMESCENE_SECRET"
			t.Setenv(envName, tt.env)
			t.Setenv(envName+"_FILE", "")
			if tt.file != nil {
				t.Setenv(envName+"_FILE", writeSecret(t, *tt.file))
			}

			got, err := ResolveSecret(envName)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveSecret_FileNotFound(t *testing.T) {
	t.Setenv("TEST_FRAMESCENE_MISSING_FILE", "/nonexistent/path/to/secret")

	if _, err := ResolveSecret("TEST_FRAMESCENE_MISSING"); err == nil {
		t.Error("expected error when file does not exist")
	}
}

func TestResolveMQTTCredentials(t *testing.T) {
	t.Setenv("MQTT_USERNAME", "frame")
	t.Setenv("MQTT_USERNAME_FILE", "")
	t.Setenv("MQTT_PASSWORD", "")
	t.Setenv("MQTT_PASSWORD_FILE", writeSecret(t, "hunter2\n"))

	creds, err := ResolveMQTTCredentials()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.Username != "frame" || creds.Password != "hunter2" {
		t.Errorf("unexpected credentials: %+v", creds)
	}

	t.Setenv("MQTT_PASSWORD_FILE", "/nonexistent/password")
	if _, err := ResolveMQTTCredentials(); err == nil {
		t.Error("expected error for unreadable password file")
	}
}

func ptr(s string) *string { return &s }
