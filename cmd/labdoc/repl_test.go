package main

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"netlabs/api/internal/clipboard"
)

func runScript(t *testing.T, script string, editable bool) (*repl, *clipboard.Memory, string) {
	t.Helper()
	var out bytes.Buffer
	clip := &clipboard.Memory{}
	lines := &scannerReader{scanner: bufio.NewScanner(strings.NewReader(script))}
	r := newREPL(lines, &out, clip, editable, 100, 40)
	if err := r.run(); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	return r, clip, out.String()
}

func TestREPLEditingSession(t *testing.T) {
	target := filepath.Join(t.TempDir(), "lab.html")
	script := strings.Join([]string{
		"type Hello",
		"key Enter",
		"type /",
		"type head",
		"menu",
		"pick 0",
		"select 1 6",
		"link",
		"https://netlabs.example/ospf",
		"select 2 2",
		"copy",
		"save " + target,
		"quit",
		"type never reached",
	}, "\n")

	r, clip, out := runScript(t, script, true)

	if !strings.Contains(out, "Heading 1") {
		t.Fatalf("menu listing missing heading: %s", out)
	}
	html := r.ed.HTML()
	if !strings.Contains(html, "<h1>") || !strings.Contains(html, "https://netlabs.example/ospf") {
		t.Fatalf("unexpected html: %q", html)
	}
	if strings.Contains(html, "never reached") {
		t.Fatal("commands after quit were run")
	}
	if text, _ := clip.ReadText(); text != "Hello" {
		t.Fatalf("clipboard = %q, want %q", text, "Hello")
	}
	if !strings.Contains(out, "[success] Copied to clipboard") || !strings.Contains(out, "[success] Saved") {
		t.Fatalf("expected notices in output: %s", out)
	}
	saved, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(saved) != html {
		t.Fatalf("saved file = %q, want %q", saved, html)
	}
	if r.ed.Dirty() {
		t.Fatal("editor should be clean after save")
	}
}

func TestREPLLinkPromptCancelledAtEOF(t *testing.T) {
	r, _, _ := runScript(t, "type Hello\nselect 1 6\nlink", true)
	if strings.Contains(r.ed.HTML(), "href") {
		t.Fatalf("link applied without an answer: %q", r.ed.HTML())
	}
}

func TestREPLOpenAndReadOnly(t *testing.T) {
	source := filepath.Join(t.TempDir(), "in.html")
	if err := os.WriteFile(source, []byte("<h2>Topology</h2><p>R1 to R2</p>"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	r, _, out := runScript(t, "open "+source+"\ntype x\nview", false)
	if r.path != source {
		t.Fatalf("path = %q, want %q", r.path, source)
	}
	if !strings.Contains(r.ed.HTML(), "<h2>Topology</h2>") || strings.Contains(r.ed.HTML(), "x") {
		t.Fatalf("unexpected html: %q", r.ed.HTML())
	}
	if !strings.Contains(out, "[error] The editor is read-only") || !strings.Contains(out, "editable=false") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestREPLSaveWithoutFile(t *testing.T) {
	r, _, out := runScript(t, "type draft\nsave", true)
	if !strings.Contains(out, "No file to save to") {
		t.Fatalf("expected save error notice: %s", out)
	}
	if !r.ed.Dirty() {
		t.Fatal("failed save should leave the editor dirty")
	}
}

func TestREPLPaste(t *testing.T) {
	script := strings.Join([]string{
		"paste",
		"type ping 10.0.0.1",
		"copy",
		"key Enter",
		"paste",
	}, "\n")

	r, _, out := runScript(t, script, true)

	if !strings.Contains(out, "clipboard is empty") {
		t.Fatalf("expected empty clipboard message: %s", out)
	}
	if got := strings.Count(r.ed.HTML(), "<p>ping 10.0.0.1</p>"); got != 2 {
		t.Fatalf("pasted paragraphs = %d, want 2: %q", got, r.ed.HTML())
	}
}

func TestREPLUsageErrors(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{line: "frobnicate", want: `unknown command "frobnicate"`},
		{line: "select", want: "usage: select"},
		{line: "select a", want: `bad anchor "a"`},
		{line: "pick two", want: "usage: pick"},
		{line: "run Sparkles", want: `no command titled "Sparkles"`},
		{line: "open", want: "usage: open"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, _, out := runScript(t, tt.line, true)
			if !strings.Contains(out, "error: "+tt.want) {
				t.Fatalf("output %q does not contain %q", out, tt.want)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		arg     string
		anchor  int
		head    int
		wantErr bool
	}{
		{arg: "3", anchor: 3, head: 3},
		{arg: "1 9", anchor: 1, head: 9},
		{arg: "1 2 3", wantErr: true},
		{arg: "1 b", wantErr: true},
	}
	for _, tt := range tests {
		anchor, head, err := parseRange(tt.arg)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseRange(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
		}
		if err == nil && (anchor != tt.anchor || head != tt.head) {
			t.Fatalf("parseRange(%q) = %d, %d", tt.arg, anchor, head)
		}
	}
}
