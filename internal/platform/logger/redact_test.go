package logger

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeKVs(t *testing.T) {
	out := sanitizeKVs([]any{
		"api_key", "abc",
		"Authorization", "Bearer x",
		"session_id", "s-123",
		"op", "execute",
	})
	if len(out) != 8 {
		t.Fatalf("len=%d, want 8", len(out))
	}
	if out[1] != redacted || out[3] != redacted {
		t.Fatalf("secrets not redacted: %v", out)
	}
	h, ok := out[5].(string)
	if !ok || !strings.HasPrefix(h, "hash:") || len(h) != len("hash:")+12 {
		t.Fatalf("session_id not hashed: %v", out[5])
	}
	if out[7] != "execute" {
		t.Fatalf("plain value changed: %v", out[7])
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]any{"op", "x", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected: %v", out)
	}
}

func TestSanitizeValueTruncatesSQL(t *testing.T) {
	long := strings.Repeat("a", maxSQLLogLen+50)
	got, _ := sanitizeValue("sql", long).(string)
	if len(got) != maxSQLLogLen+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("sql not truncated: len=%d", len(got))
	}
}

func TestSanitizeValueJWTAndNested(t *testing.T) {
	jwt := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJzdHVkaW8ifQ.sig"
	if got := sanitizeValue("note", jwt); got != redacted {
		t.Fatalf("jwt-looking value not redacted: %v", got)
	}
	m, ok := sanitizeValue("payload", map[string]any{"password": "p", "n": 1}).(map[string]any)
	if !ok {
		t.Fatalf("nested map lost its type")
	}
	if m["password"] != redacted || m["n"] != 1 {
		t.Fatalf("nested map not sanitized: %v", m)
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"production", "development", "test", ""} {
		log, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		log.With("component", "test").Debug("ok", "session_id", "abc")
		log.Sync()
	}
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	s := "ab" + "é" + "cd" // é is two bytes, starting at index 2
	got := truncate(s, 3)
	if !utf8.ValidString(got) {
		t.Fatalf("invalid utf-8: %q", got)
	}
	if got != "ab..." {
		t.Fatalf("got %q", got)
	}
	if got := truncate("héllo", 10); got != "héllo" {
		t.Fatalf("short input changed: %q", got)
	}
}
