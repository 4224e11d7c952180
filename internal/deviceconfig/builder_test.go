package deviceconfig

import (
	"bytes"
	"testing"
	"time"

	"github.com/cloudia/cloudia/internal/protocol"
)

// Configuration a sensor ships with: 20 s period, 8 samples
var sampleConfig = &Configuration{Period: 0x94, Samples: 8}

func TestNewConfigBuilder(t *testing.T) {
	t.Run("with current config", func(t *testing.T) {
		builder := NewConfigBuilder(sampleConfig)

		if builder.current != sampleConfig {
			t.Error("Builder should store reference to current config")
		}
		if builder.HasChanges() {
			t.Error("New builder should have no changes")
		}

		cfg, err := builder.Build()
		if err != nil {
			t.Fatalf("Build() error: %v", err)
		}
		if *cfg != *sampleConfig {
			t.Errorf("Build() = %+v, want %+v", cfg, sampleConfig)
		}
	})

	t.Run("without current config", func(t *testing.T) {
		builder := NewConfigBuilder(nil)

		if _, err := builder.Build(); !IsValidationError(err) {
			t.Errorf("Build() without period error = %v, want validation error", err)
		}
		if _, err := builder.SetPeriod(10, protocol.UnitSeconds).Build(); !IsValidationError(err) {
			t.Errorf("Build() without samples error = %v, want validation error", err)
		}
	})
}

func TestConfigBuilderPayload(t *testing.T) {
	tests := []struct {
		name    string
		build   func(b *ConfigBuilder) *ConfigBuilder
		want    []byte
		wantErr bool
	}{
		{
			name: "10 seconds, 10 samples",
			build: func(b *ConfigBuilder) *ConfigBuilder {
				return b.SetPeriodFlag("10s").SetSamples(10)
			},
			want: []byte{0x00, 0x00, 0x8A, 0x0A},
		},
		{
			name: "5 minutes, 255 samples",
			build: func(b *ConfigBuilder) *ConfigBuilder {
				return b.SetPeriod(5, protocol.UnitMinutes).SetSamples(255)
			},
			want: []byte{0x00, 0x00, 0x45, 0xFF},
		},
		{
			name: "2 hours from duration",
			build: func(b *ConfigBuilder) *ConfigBuilder {
				return b.SetPeriodDuration(2 * time.Hour).SetSamples(1)
			},
			want: []byte{0x00, 0x00, 0x02, 0x01},
		},
		{
			name: "seconds overflow",
			build: func(b *ConfigBuilder) *ConfigBuilder {
				return b.SetPeriodFlag("128s").SetSamples(1)
			},
			wantErr: true,
		},
		{
			name: "malformed period",
			build: func(b *ConfigBuilder) *ConfigBuilder {
				return b.SetPeriodFlag("10x").SetSamples(1)
			},
			wantErr: true,
		},
		{
			name: "too many samples",
			build: func(b *ConfigBuilder) *ConfigBuilder {
				return b.SetPeriodFlag("10s").SetSamples(256)
			},
			wantErr: true,
		},
		{
			name: "unrepresentable duration",
			build: func(b *ConfigBuilder) *ConfigBuilder {
				return b.SetPeriodDuration(1500 * time.Millisecond).SetSamples(1)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.build(NewConfigBuilder(nil)).Build()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Build() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !bytes.Equal(cfg.Payload(), tt.want) {
				t.Errorf("Payload() = % x, want % x", cfg.Payload(), tt.want)
			}
		})
	}
}

func TestConfigBuilderKeepsReservedBytes(t *testing.T) {
	current := &Configuration{Reserved1: 0x01, Reserved2: 0x02, Period: 0x94, Samples: 8}
	cfg, err := NewConfigBuilder(current).SetSamples(0).Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if want := []byte{0x01, 0x02, 0x94, 0x00}; !bytes.Equal(cfg.Payload(), want) {
		t.Errorf("Payload() = % x, want % x", cfg.Payload(), want)
	}
}

func TestConfigBuilderReset(t *testing.T) {
	builder := NewConfigBuilder(sampleConfig).SetPeriodFlag("1m").SetSamples(3)
	if !builder.HasChanges() {
		t.Fatal("HasChanges() = false after setters")
	}

	builder.Reset()
	if builder.HasChanges() {
		t.Error("HasChanges() = true after Reset")
	}
	cfg, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if *cfg != *sampleConfig {
		t.Errorf("Build() after Reset = %+v, want %+v", cfg, sampleConfig)
	}
}

func TestConfigBuilderLaterSetterWins(t *testing.T) {
	cfg, err := NewConfigBuilder(nil).
		SetPeriodFlag("bogus").
		SetPeriod(30, protocol.UnitSeconds).
		SetSamples(4).
		Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if cfg.Period != 0x9E {
		t.Errorf("period byte = 0x%02x, want 0x9e", cfg.Period)
	}
}
