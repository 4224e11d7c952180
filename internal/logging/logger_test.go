package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be silent without a level")
	}
}

func TestInitializeFromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error: %v", err)
	}
	core := GetLogger().Core()
	if core.Enabled(zapcore.InfoLevel) || !core.Enabled(zapcore.WarnLevel) {
		t.Error("logger level should be warn")
	}
	SetLogger(nil)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestLogUplink(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogUplink("70B3D57ED005A1B2", 90, []byte{0x00, 0x77})

	entries := logs.FilterMessage("Uplink received").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["dev_eui"] != "70B3D57ED005A1B2" {
		t.Errorf("dev_eui = %v", fields["dev_eui"])
	}
	if fields["hex"] != "0077" || fields["base64"] != "AHc=" {
		t.Errorf("hex = %v, base64 = %v", fields["hex"], fields["base64"])
	}
}

func TestDumps(t *testing.T) {
	if got := asciiDump([]byte("ok\x00")); got != "ok." {
		t.Errorf("asciiDump() = %q, want %q", got, "ok.")
	}
	long := make([]byte, 300)
	if got := hexDump(long); len(got) != 512+3 {
		t.Errorf("hexDump(300 bytes) length = %d, want 515", len(got))
	}
	if hexDump(nil) != "" || asciiDump(nil) != "" {
		t.Error("empty input should dump to empty string")
	}
}
