// Package logging implements ffmm.Logger.
//
//   - ConsoleLogger writes to stderr (or any io.Writer) and renders batch
//     progress, rewriting a single line in place when attached to a terminal.
//   - NullLogger discards everything.
//
// Both are safe for concurrent use.
package logging
