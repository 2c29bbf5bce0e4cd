package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// progressBar renders per-scale progress as a text bar on a terminal.
type progressBar struct {
	mu        sync.Mutex
	out       io.Writer
	width     int
	verbose   bool
	startTime time.Time
}

func newProgressBar(out io.Writer, verbose bool) *progressBar {
	return &progressBar{out: out, width: 40, verbose: verbose, startTime: time.Now()}
}

// Report matches vesselness.ProgressCallback. Messages are printed on their
// own line when verbose; otherwise only the bar is drawn.
func (p *progressBar) Report(completed, total int, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if message != "" && total == 0 {
		if p.verbose {
			fmt.Fprintln(p.out, message)
		}
		return
	}
	if total <= 0 {
		return
	}

	percentage := float64(completed) / float64(total) * 100
	elapsed := time.Since(p.startTime).Seconds()
	remaining := 0.0
	if completed > 0 && completed < total {
		remaining = elapsed / float64(completed) * float64(total-completed)
	}

	fmt.Fprintf(p.out, "\r%s %.1f%% (%d/%d) [%s elapsed | %s remaining]",
		renderBar(completed, total, p.width), percentage, completed, total,
		formatSeconds(elapsed), formatSeconds(remaining))
	if completed >= total {
		fmt.Fprintln(p.out)
	}
}

// renderBar draws completed/total as a bar of the given width.
func renderBar(completed, total, width int) string {
	numBars := 0
	if total > 0 {
		numBars = completed * width / total
	}
	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < width; i++ {
		switch {
		case i < numBars:
			b.WriteString("█")
		case i == numBars:
			b.WriteString("▓")
		default:
			b.WriteString("░")
		}
	}
	b.WriteString("]")
	return b.String()
}

// formatSeconds picks seconds, minutes or hours depending on magnitude.
func formatSeconds(s float64) string {
	switch {
	case s < 60:
		return fmt.Sprintf("%.1fs", s)
	case s < 3600:
		return fmt.Sprintf("%.1fm", s/60)
	default:
		return fmt.Sprintf("%.1fh", s/3600)
	}
}
