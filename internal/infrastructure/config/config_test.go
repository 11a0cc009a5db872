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
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
site:
  id: "reef-tank"
database:
  path: "/tmp/aquarium.db"
mqtt:
  broker:
    host: "broker.local"
    port: 1884
    client_id: "tank-core"
  qos: 0
control:
  tick_interval: 500ms
  lamp: false
history:
  retention: 72h
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "reef-tank" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "reef-tank")
	}
	if cfg.MQTT.Broker.Host != "broker.local" || cfg.MQTT.Broker.Port != 1884 {
		t.Errorf("MQTT.Broker = %+v", cfg.MQTT.Broker)
	}
	if cfg.Control.TickInterval != 500*time.Millisecond {
		t.Errorf("Control.TickInterval = %v, want 500ms", cfg.Control.TickInterval)
	}
	if cfg.Control.Lamp {
		t.Error("Control.Lamp = true, want false from file")
	}
	if !cfg.Control.Pump || !cfg.Control.Coordinator {
		t.Error("pump and coordinator should keep their default of true")
	}
	if cfg.History.Retention != 72*time.Hour {
		t.Errorf("History.Retention = %v, want 72h", cfg.History.Retention)
	}
	if cfg.History.PruneInterval != time.Hour {
		t.Errorf("History.PruneInterval = %v, want default 1h", cfg.History.PruneInterval)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "site:\n  id: tank\n")

	t.Setenv("AQUARIUM_MQTT_HOST", "mqtt.internal")
	t.Setenv("AQUARIUM_MQTT_PORT", "8883")
	t.Setenv("AQUARIUM_MQTT_PASSWORD", "s3cret")
	t.Setenv("AQUARIUM_DATABASE_PATH", "/var/lib/aquarium/history.db")
	t.Setenv("AQUARIUM_TICK_INTERVAL", "10s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "mqtt.internal" {
		t.Errorf("MQTT.Broker.Host = %q", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker.Port = %d", cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Auth.Password != "s3cret" {
		t.Error("MQTT password not taken from environment")
	}
	if cfg.Database.Path != "/var/lib/aquarium/history.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Control.TickInterval != 10*time.Second {
		t.Errorf("Control.TickInterval = %v", cfg.Control.TickInterval)
	}
}

func TestLoad_BadEnvOverride(t *testing.T) {
	path := writeConfig(t, "site:\n  id: tank\n")
	t.Setenv("AQUARIUM_API_PORT", "eighty")

	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for non-numeric port")
	}
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv("AQUARIUM_CONFIG", "")
	if got := PathFromEnv(); got != DefaultPath {
		t.Errorf("PathFromEnv() = %q, want %q", got, DefaultPath)
	}

	t.Setenv("AQUARIUM_CONFIG", "/etc/aquarium.yaml")
	if got := PathFromEnv(); got != "/etc/aquarium.yaml" {
		t.Errorf("PathFromEnv() = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"missing site id", func(c *Config) { c.Site.ID = "" }, "site.id is required"},
		{"missing db path", func(c *Config) { c.Database.Path = "" }, "database.path is required"},
		{"bad qos", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"bad api port", func(c *Config) { c.API.Port = 0 }, "api.port"},
		{"api port ignored when disabled", func(c *Config) { c.API.Enabled = false; c.API.Port = 0 }, ""},
		{"influx without url", func(c *Config) { c.InfluxDB.Enabled = true }, "influxdb.url"},
		{"file logging without path", func(c *Config) { c.Logging.Output = "file" }, "logging.file"},
		{"nothing to run", func(c *Config) {
			c.Control.Pump, c.Control.Lamp, c.Control.Coordinator = false, false, false
		}, "at least one"},
		{"zero retention", func(c *Config) { c.History.Retention = 0 }, "history.retention"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Site.ID = ""
	cfg.Database.Path = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"site.id", "database.path"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestTimeouts(t *testing.T) {
	cfg := defaultConfig()
	if cfg.ReadTimeout() != 30*time.Second || cfg.WriteTimeout() != 30*time.Second || cfg.IdleTimeout() != 60*time.Second {
		t.Errorf("timeouts = %v/%v/%v", cfg.ReadTimeout(), cfg.WriteTimeout(), cfg.IdleTimeout())
	}
}
