package log

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerDevLevel(t *testing.T) {
	if got := NewLogger("dev").GetLevel(); got != zerolog.DebugLevel {
		t.Fatalf("в dev ожидался debug, получен %s", got)
	}
}

func TestNewLoggerDefaultLevel(t *testing.T) {
	if got := NewLogger("prod").GetLevel(); got != zerolog.InfoLevel {
		t.Fatalf("вне dev ожидался info, получен %s", got)
	}
}
