package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInit_SingletonAndComponent(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var first, second bytes.Buffer
	Init(Options{Level: "info", Service: "event-booker", Output: &first})
	Init(Options{Level: "debug", Output: &second})

	authLog := Component("auth")
	authLog.Info().Msg("hello")
	rootLog := Get()
	rootLog.Debug().Msg("suppressed")

	if second.Len() != 0 {
		t.Fatal("second Init must not replace the singleton")
	}
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(first.Bytes()), &line); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", first.String(), err)
	}
	if line["service"] != "event-booker" || line["component"] != "auth" {
		t.Errorf("missing fields: %v", line)
	}
}

func TestGet_BeforeInitIsNop(t *testing.T) {
	Reset()
	l := Get()
	if l.GetLevel() != zerolog.Disabled {
		t.Errorf("expected disabled logger, got %v", l.GetLevel())
	}
}
