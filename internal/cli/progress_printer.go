package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"imgbatch/internal/job"
)

// progressPrinter renders a job event stream as plain text. With live set it
// keeps a single status line updated in place; otherwise every status change
// is its own line.
type progressPrinter struct {
	out  io.Writer
	live bool

	total   int
	done    int
	status  string
	pending bool
}

func newProgressPrinter(out io.Writer, live bool) *progressPrinter {
	return &progressPrinter{out: out, live: live}
}

func (p *progressPrinter) Handle(ev job.Event) {
	switch ev.Kind {
	case job.EventStarted:
		fmt.Fprintf(p.out, "job %s started\n", ev.JobID)
	case job.EventFileCountKnown:
		p.total = ev.Count
		p.line(fmt.Sprintf("%d candidate files", ev.Count))
	case job.EventStatusText:
		p.status = ev.Text
		p.line(ev.Text)
	case job.EventImagePreview:
	case job.EventFileProcessed:
		p.done++
		if p.live {
			p.line(p.status)
		}
	case job.EventError:
		p.println(formatErrorEvent(ev))
	case job.EventFailed:
		p.println("error: " + ev.Message)
	case job.EventFinished:
		p.println("Finished.")
	}
}

func (p *progressPrinter) line(text string) {
	if !p.live {
		fmt.Fprintln(p.out, text)
		return
	}
	fmt.Fprintf(p.out, "\r\033[2K%s", p.render(text))
	p.pending = true
}

func (p *progressPrinter) println(text string) {
	if p.live && p.pending {
		fmt.Fprint(p.out, "\r\033[2K")
		p.pending = false
	}
	fmt.Fprintln(p.out, text)
}

func (p *progressPrinter) render(text string) string {
	if p.total <= 0 {
		return text
	}
	return fmt.Sprintf("[%d/%d] %s", p.done, p.total, text)
}

func formatErrorEvent(ev job.Event) string {
	parts := []string{"error: " + string(ev.ErrorKind)}
	if ev.Detail != "" {
		parts = append(parts, ev.Detail)
	}
	if ev.Message != "" && ev.Message != ev.Detail {
		parts = append(parts, ev.Message)
	}
	return strings.Join(parts, ": ")
}

func printSummary(out io.Writer, s job.Summary, destDir string) {
	st := s.Stats
	fmt.Fprintf(out, "converted: %d\n", st.Converted)
	fmt.Fprintf(out, "skipped (already in %s): %d\n", filepath.Base(destDir), st.SkippedExists)
	fmt.Fprintf(out, "skipped (unrecognized): %d\n", st.SkippedUnrecognized)
	fmt.Fprintf(out, "failed: %d\n", st.Failed)
	if st.Deleted > 0 || st.DeleteFailed > 0 {
		fmt.Fprintf(out, "originals deleted: %d (failed: %d)\n", st.Deleted, st.DeleteFailed)
	}
	if d := s.Duration(); d > 0 {
		fmt.Fprintf(out, "elapsed: %s\n", d.Round(time.Millisecond))
	}
}
