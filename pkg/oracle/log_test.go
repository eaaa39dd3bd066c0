package oracle

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func logRecord(fields ...string) string {
	return strings.Join(fields, fieldSep) + recordSep
}

func TestParseLog(t *testing.T) {
	out := logRecord("abc123", "Ann", "ann@example.com", "2024-05-01T10:00:00+02:00", "fix api", "details\n") +
		"\n" + logRecord("def456", "Bob", "bob@example.com", "2024-04-30T08:00:00Z", "init", "")

	commits, err := parseLog(out)
	if err != nil {
		t.Fatalf("parseLog: %v", err)
	}
	if len(commits) != 2 {
		t.Fatalf("commits = %d, want 2", len(commits))
	}
	want := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	if commits[0].Hash != "abc123" || !commits[0].Time.Equal(want) || commits[0].Body != "details" {
		t.Fatalf("first commit = %+v", commits[0])
	}
	if commits[1].Subject != "init" || commits[1].Body != "" {
		t.Fatalf("second commit = %+v", commits[1])
	}
}

func TestParseLogRejectsBadDate(t *testing.T) {
	out := logRecord("abc123", "Ann", "ann@example.com", "yesterday", "fix", "")
	_, err := parseLog(out)
	var perr *time.ParseError
	if !errors.As(err, &perr) || !strings.Contains(err.Error(), "abc123") {
		t.Fatalf("parseLog error = %v, want a date parse error naming the commit", err)
	}
}
