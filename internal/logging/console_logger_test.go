package logging

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

var (
	_ ffmm.Logger           = (*ConsoleLogger)(nil)
	_ ffmm.ProgressReporter = (*ConsoleLogger)(nil)
	_ ffmm.Logger           = (*NullLogger)(nil)
	_ ffmm.ProgressReporter = (*NullLogger)(nil)
)

func TestConsoleLogger_Levels(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		log     func(l *ConsoleLogger)
		want    string
	}{
		{"info", false, func(l *ConsoleLogger) { l.Info("Reading %s", "fondos.parquet") }, "Reading fondos.parquet\n"},
		{"error", false, func(l *ConsoleLogger) { l.Error("batch %d failed", 3) }, "[ERROR] batch 3 failed\n"},
		{"verbose enabled", true, func(l *ConsoleLogger) { l.Verbose("run %s", "abc") }, "[VERBOSE] run abc\n"},
		{"verbose disabled", false, func(l *ConsoleLogger) { l.Verbose("run %s", "abc") }, ""},
		{"trailing newline not doubled", false, func(l *ConsoleLogger) { l.Info("done\n") }, "done\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewWriterLogger(&buf, tt.verbose))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestConsoleLogger_ProgressOnPlainWriter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, false)

	l.Progress(1, 3, 100000, 250000)
	l.Progress(3, 3, 250000, 250000)

	assert.Equal(t,
		"Batch 1/3: 100000/250000 rows (40%)\nBatch 3/3: 250000/250000 rows (100%)\n",
		buf.String())
}

func TestConsoleLogger_ProgressOnTerminalRewritesLine(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, false)
	l.terminal = true

	l.Progress(1, 2, 5, 10)
	l.Info("interrupting")
	l.Progress(2, 2, 10, 10)

	assert.Equal(t,
		"\r\033[KBatch 1/2: 5/10 rows (50%)\ninterrupting\n\r\033[KBatch 2/2: 10/10 rows (100%)\n",
		buf.String())
}

func TestConsoleLogger_ProgressWithEmptySource(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger(&buf, false).Progress(0, 0, 0, 0)
	assert.Equal(t, "Batch 0/0: 0/0 rows (100%)\n", buf.String())
}

func TestConsoleLogger_ConcurrentWritesKeepLinesWhole(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, true)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Info("line %d", i)
			l.Verbose("detail %d", i)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 40)
	for i := 0; i < 20; i++ {
		assert.Contains(t, lines, fmt.Sprintf("line %d", i))
		assert.Contains(t, lines, fmt.Sprintf("[VERBOSE] detail %d", i))
	}
}

func TestNullLogger_Discards(t *testing.T) {
	l := NewNullLogger()
	assert.NotPanics(t, func() {
		l.Info("x")
		l.Verbose("x")
		l.Error("x")
		l.Progress(1, 1, 1, 1)
	})
}
