package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return dir
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != DefaultPort || cfg.Host != DefaultHost {
		t.Errorf("expected defaults, got %s:%d", cfg.Host, cfg.Port)
	}
}

func TestLoadAppliesDefaultsToPartialConfig(t *testing.T) {
	dir := writeConfig(t, `{"name":"demo","port":8080}`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected explicit port 8080, got %d", cfg.Port)
	}
	if cfg.Live.PingInterval != "30s" {
		t.Errorf("expected default ping interval, got %q", cfg.Live.PingInterval)
	}
	if cfg.Metrics.Namespace != "demo" {
		t.Errorf("metrics namespace should default to the project name, got %q", cfg.Metrics.Namespace)
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	dir := writeConfig(t, `{`)
	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected an error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "E102") {
		t.Errorf("expected E102, got %v", err)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	dir := writeConfig(t, `{"port":99999}`)
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "E103") {
		t.Errorf("expected E103 for out-of-range port, got %v", err)
	}
}

func TestValidateRejectsBadDuration(t *testing.T) {
	dir := writeConfig(t, `{"live":{"pingInterval":"soon"}}`)
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "E103") {
		t.Errorf("expected E103 for bad duration, got %v", err)
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	dir := writeConfig(t, `{"log":{"level":"loud"}}`)
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "E103") {
		t.Errorf("expected E103 for bad log level, got %v", err)
	}
}

func TestLiveConfigConversion(t *testing.T) {
	dir := writeConfig(t, `{"live":{"pingInterval":"5s","sendBuffer":8,"allowedOrigins":["https://example.com"]}}`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lc := cfg.LiveConfig()
	if lc.PingInterval != 5*time.Second {
		t.Errorf("expected 5s ping interval, got %v", lc.PingInterval)
	}
	if lc.SendBuffer != 8 {
		t.Errorf("expected send buffer 8, got %d", lc.SendBuffer)
	}
	if len(lc.AllowedOrigins) != 1 || lc.AllowedOrigins[0] != "https://example.com" {
		t.Errorf("unexpected origins: %v", lc.AllowedOrigins)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := New()
	cfg.Name = "saved"
	cfg.Port = 4000
	if err := cfg.SaveTo(filepath.Join(dir, ConfigFileName)); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Name != "saved" || loaded.Port != 4000 {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
}
