package influxdb

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/aquarium-core/internal/infrastructure/config"
)

func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:59999", // nothing listens here
		Token:         "aquarium-dev-token",
		Org:           "aquarium",
		Bucket:        "telemetry",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

func lineProtocol(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	if _, err := Connect(context.Background(), cfg); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}
	if _, err := Connect(context.Background(), testConfig()); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestReadingPoint(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	got := lineProtocol(readingPoint("temperature", 24.5, ts))

	want := "sensor_readings,sensor=temperature value=24.5 1700000000000000000"
	if got != want {
		t.Errorf("line protocol = %q, want %q", got, want)
	}
}

func TestStatusPoint(t *testing.T) {
	ts := time.Unix(1700000000, 0)

	on := lineProtocol(statusPoint("pump", "AUTO", "ON", ts))
	if !strings.HasPrefix(on, "device_status,device=pump,mode=AUTO ") || !strings.Contains(on, "on=1i") {
		t.Errorf("ON point = %q", on)
	}

	off := lineProtocol(statusPoint("lamp", "MANUAL", "OFF", ts))
	if !strings.Contains(off, "on=0i") || !strings.Contains(off, `state="OFF"`) {
		t.Errorf("OFF point = %q", off)
	}
}

func TestClosedClientIgnoresWrites(t *testing.T) {
	c := &Client{}

	c.WriteReading("water_level", 50, time.Now())
	c.WriteDeviceStatus("pump", "AUTO", "OFF", time.Now())
	c.Flush()

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
