package main

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestRenderBar(t *testing.T) {
	tests := []struct {
		completed, total int
		full             int
	}{
		{0, 4, 0},
		{1, 4, 10},
		{4, 4, 40},
		{0, 0, 0},
	}
	for _, tt := range tests {
		bar := renderBar(tt.completed, tt.total, 40)
		if n := utf8.RuneCountInString(bar); n != 42 {
			t.Errorf("renderBar(%d, %d) has %d runes, want 42", tt.completed, tt.total, n)
		}
		if got := strings.Count(bar, "█"); got != tt.full {
			t.Errorf("renderBar(%d, %d) has %d full blocks, want %d", tt.completed, tt.total, got, tt.full)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := map[float64]string{
		12.34: "12.3s",
		90:    "1.5m",
		5400:  "1.5h",
	}
	for in, want := range tests {
		if got := formatSeconds(in); got != want {
			t.Errorf("formatSeconds(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestProgressBarReport(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressBar(&buf, true)

	p.Report(0, 0, "Computing Hessian")
	p.Report(1, 2, "")
	p.Report(2, 2, "")

	out := buf.String()
	if !strings.HasPrefix(out, "Computing Hessian\n") {
		t.Errorf("expected message line first, got %q", out)
	}
	if !strings.Contains(out, "50.0% (1/2)") || !strings.Contains(out, "100.0% (2/2)") {
		t.Errorf("expected both progress updates, got %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("expected a newline after the final update")
	}

	buf.Reset()
	quiet := newProgressBar(&buf, false)
	quiet.Report(0, 0, "hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output for messages when not verbose, got %q", buf.String())
	}
}
