package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
		ok   bool
	}{
		{"debug", zapcore.DebugLevel, true},
		{"info", zapcore.InfoLevel, true},
		{"warn", zapcore.WarnLevel, true},
		{"error", zapcore.ErrorLevel, true},
		{"verbose", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNamedCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).Named("window")

	log.Info("window evaluated", Int("index", 3), String("policy", "peak"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.LoggerName != "window" {
		t.Errorf("logger name = %q, want window", e.LoggerName)
	}
	ctx := e.ContextMap()
	if ctx["index"] != int64(3) {
		t.Errorf("index = %v, want 3", ctx["index"])
	}
	if ctx["policy"] != "peak" {
		t.Errorf("policy = %v, want peak", ctx["policy"])
	}
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Info("ignored")
	log.Named("x").Errorf("also %s", "ignored")
	if err := log.Sync(); err != nil {
		t.Errorf("Sync() = %v, want nil", err)
	}
}
