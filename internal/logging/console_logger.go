package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ConsoleLogger writes log lines to an io.Writer.
type ConsoleLogger struct {
	out      io.Writer
	verbose  bool
	terminal bool

	mu sync.Mutex
	// progressOpen is set while an in-place progress line has no trailing newline.
	progressOpen bool
}

// NewConsoleLogger logs to stderr. Verbose lines are dropped unless verbose is set.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return NewWriterLogger(os.Stderr, verbose)
}

// NewWriterLogger logs to w. In-place progress is used only when w is a
// terminal.
func NewWriterLogger(w io.Writer, verbose bool) *ConsoleLogger {
	return &ConsoleLogger{out: w, verbose: verbose, terminal: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (l *ConsoleLogger) Verbose(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.write("[VERBOSE] ", format, args)
}

func (l *ConsoleLogger) Info(format string, args ...interface{}) {
	l.write("", format, args)
}

func (l *ConsoleLogger) Error(format string, args ...interface{}) {
	l.write("[ERROR] ", format, args)
}

// Progress reports that batch (one-based) of totalBatches is committed and
// loaded of total rows are in the staging table.
func (l *ConsoleLogger) Progress(batch, totalBatches int, loaded, total int64) {
	pct := 100.0
	if total > 0 {
		pct = float64(loaded) * 100 / float64(total)
	}
	line := fmt.Sprintf("Batch %d/%d: %d/%d rows (%.0f%%)", batch, totalBatches, loaded, total, pct)

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.terminal {
		fmt.Fprintln(l.out, line)
		return
	}

	fmt.Fprint(l.out, "\r\033[K"+line)
	l.progressOpen = batch < totalBatches
	if !l.progressOpen {
		fmt.Fprintln(l.out)
	}
}

func (l *ConsoleLogger) write(prefix, format string, args []interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.progressOpen {
		fmt.Fprintln(l.out)
		l.progressOpen = false
	}
	fmt.Fprint(l.out, prefix+strings.TrimSuffix(msg, "\n")+"\n")
}
