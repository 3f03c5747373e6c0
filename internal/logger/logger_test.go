package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/jwebster45206/combat-engine/internal/config"
)

func TestNewHandler_Format(t *testing.T) {
	tests := []struct {
		env  string
		json bool
	}{
		{"production", true},
		{"development", false},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			var buf bytes.Buffer
			cfg := &config.Config{Environment: tt.env, LogLevel: slog.LevelInfo}
			slog.New(newHandler(&buf, cfg)).Info("hello", "k", "v")

			isJSON := json.Valid(bytes.TrimSpace(buf.Bytes()))
			if isJSON != tt.json {
				t.Errorf("json output = %v, want %v: %s", isJSON, tt.json, buf.String())
			}
		})
	}
}

func TestNewHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{Environment: "development", LogLevel: slog.LevelWarn}
	l := slog.New(newHandler(&buf, cfg))
	l.Info("quiet")
	l.Warn("loud")

	if strings.Contains(buf.String(), "quiet") {
		t.Errorf("info record logged at warn level: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "loud") {
		t.Errorf("warn record missing: %s", buf.String())
	}
}

func TestScopes(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	l := WithError(WithSession(WithCombatant(WithRequestID(base, "r1"), "ann"), "s1"), errors.New("boom"))
	l.Info("scoped")
	out := buf.String()
	for _, want := range []string{"request_id=r1", "combatant=ann", "session_id=s1", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}

	buf.Reset()
	WithError(WithSession(base, ""), nil).Info("bare")
	if strings.Contains(buf.String(), "session_id") || strings.Contains(buf.String(), "error=") {
		t.Errorf("empty scopes should add nothing: %s", buf.String())
	}
}
