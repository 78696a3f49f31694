// Command labdoc edits a lab write-up from the terminal. It drives the same
// editor core the API serves, one command per line.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"golang.org/x/term"

	"netlabs/api/internal/clipboard"
)

func main() {
	readOnly := flag.Bool("readonly", false, "open documents read-only")
	width := flag.Int("width", 100, "layout width in columns")
	height := flag.Int("height", 40, "layout height in rows")
	flag.Parse()

	var (
		lines lineReader
		out   io.Writer = os.Stdout
	)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		state, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			log.Fatalf("labdoc: raw terminal: %v", err)
		}
		defer term.Restore(int(os.Stdin.Fd()), state)
		t := term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{os.Stdin, os.Stdout}, "")
		lines, out = t, t
	} else {
		lines = &scannerReader{scanner: bufio.NewScanner(os.Stdin), out: os.Stdout}
	}
	log.SetOutput(io.Discard)

	var clip textClipboard = &clipboard.Memory{}
	if system := (clipboard.System{}); system.Available() {
		clip = system
	}

	r := newREPL(lines, out, clip, !*readOnly, float64(*width), float64(*height))
	if path := flag.Arg(0); path != "" {
		if err := r.exec("open " + path); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
	if err := r.run(); err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
	}
}
