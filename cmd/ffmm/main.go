package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/ffmm-chile/ffmm/internal/cli"
	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(ffmm.ExitPanic)
		}
	}()

	if os.Getenv("FFMM_TEST_PANIC") == "1" {
		panic("intentional test panic")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(ffmm.ExitCodeForError(err))
	}
}
