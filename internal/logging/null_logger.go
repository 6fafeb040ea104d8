package logging

// NullLogger discards all messages, progress included.
type NullLogger struct{}

func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

func (l *NullLogger) Verbose(format string, args ...interface{}) {}

func (l *NullLogger) Info(format string, args ...interface{}) {}

func (l *NullLogger) Error(format string, args ...interface{}) {}

func (l *NullLogger) Progress(batch, totalBatches int, loaded, total int64) {}
