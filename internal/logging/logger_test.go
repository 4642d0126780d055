package logging

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	prev := logger
	SetLogger(zap.New(core))
	t.Cleanup(func() { logger = prev })
	return logs
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitializeWithoutLevelIsSilent(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	prev := logger
	t.Cleanup(func() { logger = prev })

	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be a nop when SENSORNODE_LOG_LEVEL is unset")
	}
}

func TestInitializeFromEnvLevel(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	prev := logger
	t.Cleanup(func() { logger = prev })

	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	core := GetLogger().Core()
	if core.Enabled(zapcore.InfoLevel) || !core.Enabled(zapcore.WarnLevel) {
		t.Error("expected warn level from environment")
	}
}

func TestLogTransition(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)

	LogTransition("CONNECTING", "CONNECTED", "join succeeded")

	entries := logs.FilterMessage("State transition").All()
	if len(entries) != 1 {
		t.Fatalf("got %d transition entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["from"] != "CONNECTING" || fields["to"] != "CONNECTED" || fields["reason"] != "join succeeded" {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestLogPairingMessageOmitsPassword(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	LogPairingMessage("websocket", "Home", true, "")

	entry := logs.All()[0]
	fields := entry.ContextMap()
	if fields["password_set"] != true {
		t.Errorf("password_set = %v, want true", fields["password_set"])
	}
	for k := range fields {
		if strings.Contains(k, "passw") && k != "password_set" {
			t.Errorf("unexpected field %q", k)
		}
	}
}

func TestLogUplinkResult(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	LogUplinkResult("http://host/api/sensor_data", 200, []byte("ok\n"), nil)
	LogUplinkResult("http://host/api/sensor_data", 503, nil, errors.New("HTTP 503"))

	if n := logs.FilterMessage("Uplink send succeeded").Len(); n != 1 {
		t.Errorf("success entries = %d, want 1", n)
	}
	body := logs.FilterMessage("Uplink response body").All()
	if len(body) != 1 || body[0].ContextMap()["body"] != "ok." {
		t.Errorf("response body entry = %v", body)
	}
	failed := logs.FilterMessage("Uplink send failed").All()
	if len(failed) != 1 || failed[0].Level != zapcore.WarnLevel {
		t.Errorf("failure entry = %v", failed)
	}
}

func TestDumps(t *testing.T) {
	if got := hexDump([]byte{0x7b, 0x0a}); got != "7b0a" {
		t.Errorf("hexDump = %q", got)
	}
	if got := asciiDump([]byte("a\x00b")); got != "a.b" {
		t.Errorf("asciiDump = %q", got)
	}
	long := make([]byte, 300)
	if got := hexDump(long); !strings.HasSuffix(got, "...") || len(got) != 512+3 {
		t.Errorf("hexDump did not truncate, len %d", len(got))
	}
	if got := wsMessageTypeName(42); got != "unknown(42)" {
		t.Errorf("wsMessageTypeName(42) = %q", got)
	}
}
