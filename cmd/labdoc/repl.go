package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"netlabs/api/internal/editor"
	"netlabs/api/internal/engine"
)

const prompt = "labdoc> "

var errQuit = errors.New("quit")

// lineReader is satisfied by *term.Terminal.
type lineReader interface {
	ReadLine() (string, error)
	SetPrompt(prompt string)
}

// scannerReader reads lines from a non-terminal input such as a pipe.
type scannerReader struct {
	scanner *bufio.Scanner
	out     io.Writer
	prompt  string
}

func (s *scannerReader) ReadLine() (string, error) {
	if s.prompt != "" && s.out != nil {
		fmt.Fprint(s.out, s.prompt)
	}
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

func (s *scannerReader) SetPrompt(prompt string) {
	s.prompt = prompt
}

// textClipboard is a clipboard that copy writes to and paste reads from.
type textClipboard interface {
	editor.Clipboard
	ReadText() (string, error)
}

type repl struct {
	lines    lineReader
	out      io.Writer
	clip     textClipboard
	editable bool
	width    float64
	height   float64

	ed   *editor.Editor
	path string
}

func newREPL(lines lineReader, out io.Writer, clip textClipboard, editable bool, width, height float64) *repl {
	r := &repl{lines: lines, out: out, clip: clip, editable: editable, width: width, height: height}
	r.ed = r.newEditor("")
	return r
}

func (r *repl) newEditor(value string) *editor.Editor {
	return editor.New(editor.Config{
		Editable:   r.editable,
		Value:      value,
		OnSave:     r.writeFile,
		RequestURL: editor.PromptRequester{Prompt: r.ask},
		Clipboard:  r.clip,
		Layout:     engine.NewGridLayout(r.width, r.height),
		Logger:     log.Default(),
	})
}

func (r *repl) writeFile(_ context.Context, html string) error {
	if r.path == "" {
		return errors.New("No file to save to. Use: save <file>")
	}
	return os.WriteFile(r.path, []byte(html), 0o644)
}

// ask prompts for a URL on the same input the commands come from.
func (r *repl) ask(message, initial string) (string, bool) {
	label := message + ": "
	if initial != "" {
		label = fmt.Sprintf("%s [%s]: ", message, initial)
	}
	r.lines.SetPrompt(label)
	defer r.lines.SetPrompt(prompt)
	answer, err := r.lines.ReadLine()
	if err != nil {
		return "", false
	}
	return answer, true
}

func (r *repl) run() error {
	r.lines.SetPrompt(prompt)
	for {
		line, err := r.lines.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		err = r.exec(line)
		r.printNotices()
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
	}
}

// exec runs one command line. Editor action failures are reported as
// notices, so only usage errors come back as errors.
func (r *repl) exec(line string) error {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	ed := r.ed

	switch name {
	case "":
		return nil
	case "help":
		fmt.Fprint(r.out, helpText)
	case "quit", "exit":
		return errQuit
	case "open":
		if arg == "" {
			return errors.New("usage: open <file>")
		}
		data, err := os.ReadFile(arg)
		if err != nil {
			return err
		}
		r.path = arg
		r.ed = r.newEditor(string(data))
		fmt.Fprintf(r.out, "opened %s\n", arg)
	case "new":
		r.path = ""
		r.ed = r.newEditor("")
	case "type":
		_ = ed.HandleText(strings.ReplaceAll(arg, `\n`, "\n"))
	case "key":
		handled, _ := ed.HandleKey(editor.Key(arg))
		if !handled {
			fmt.Fprintf(r.out, "key %q not handled\n", arg)
		}
	case "select":
		anchor, head, err := parseRange(arg)
		if err != nil {
			return err
		}
		_ = ed.Select(anchor, head)
	case "menu":
		r.printMenu(ed.View().Menu)
	case "pick":
		i, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("usage: pick <index>")
		}
		_ = ed.SelectCommand(i)
	case "run":
		kind, ok := commandKind(arg)
		if !ok {
			return fmt.Errorf("no command titled %q", arg)
		}
		_ = ed.RunCommand(kind)
	case "quick":
		ed.ToggleMenu(editor.MenuQuick)
	case "actions":
		ed.ToggleMenu(editor.MenuActions)
	case "insert":
		_ = ed.QuickSlash()
	case "divider":
		_ = ed.QuickDivider()
	case "code":
		_ = ed.QuickCodeBlock()
	case "dup":
		_ = ed.Duplicate()
	case "copy":
		_ = ed.Copy()
	case "paste":
		text, err := r.clip.ReadText()
		if err != nil {
			return err
		}
		if text == "" {
			fmt.Fprintln(r.out, "clipboard is empty")
			return nil
		}
		_ = ed.HandleText(text)
	case "del":
		_ = ed.DeleteBlock()
	case "mark":
		_ = ed.ToggleMark(arg)
	case "link":
		_ = ed.Link()
	case "undo":
		ed.Undo()
	case "redo":
		ed.Redo()
	case "readonly":
		ed.SetEditable(false)
	case "editable":
		ed.SetEditable(true)
	case "html":
		fmt.Fprintln(r.out, strings.TrimRight(ed.HTML(), "\n"))
	case "tree":
		data, err := json.MarshalIndent(ed.View().Doc, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, string(data))
	case "view":
		r.printView(ed.View())
	case "save":
		if arg != "" {
			r.path = arg
		}
		_ = ed.Save(context.Background())
	default:
		return fmt.Errorf("unknown command %q, try help", name)
	}
	return nil
}

func parseRange(arg string) (int, int, error) {
	fields := strings.Fields(arg)
	if len(fields) == 0 || len(fields) > 2 {
		return 0, 0, errors.New("usage: select <anchor> [head]")
	}
	anchor, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad anchor %q", fields[0])
	}
	head := anchor
	if len(fields) == 2 {
		if head, err = strconv.Atoi(fields[1]); err != nil {
			return 0, 0, fmt.Errorf("bad head %q", fields[1])
		}
	}
	return anchor, head, nil
}

func commandKind(title string) (editor.Kind, bool) {
	for _, c := range editor.Commands() {
		if strings.EqualFold(c.Title, title) {
			return c.Kind, true
		}
	}
	return 0, false
}

func (r *repl) printNotices() {
	for _, n := range r.ed.Notices() {
		fmt.Fprintf(r.out, "[%s] %s\n", n.Level, n.Message)
	}
}

func (r *repl) printMenu(menu editor.MenuView) {
	if !menu.Open {
		fmt.Fprintln(r.out, "menu closed")
		return
	}
	fmt.Fprintf(r.out, "/%s\n", menu.Query)
	if menu.EmptyText != "" {
		fmt.Fprintf(r.out, "  %s\n", menu.EmptyText)
		return
	}
	for i, item := range menu.Items {
		cursor := " "
		if i == menu.SelectedIndex {
			cursor = ">"
		}
		fmt.Fprintf(r.out, "%s %2d %-3s %-14s %s\n", cursor, i, item.Icon, item.Title, item.Description)
	}
}

func (r *repl) printView(v editor.View) {
	if !v.Ready {
		fmt.Fprintln(r.out, v.Placeholder)
		return
	}
	fmt.Fprintf(r.out, "editable=%v dirty=%v saving=%v file=%q\n", v.Editable, v.Dirty, v.Saving, r.path)
	fmt.Fprintf(r.out, "selection %d..%d\n", v.Selection.Anchor, v.Selection.Head)
	if v.Block != nil {
		fmt.Fprintf(r.out, "block %s [%d, %d) depth %d\n", v.Block.Node.Type, v.Block.RangeStart, v.Block.RangeEnd, v.Block.Depth)
	}
	if v.Controls.Visible {
		fmt.Fprintf(r.out, "controls at %.0f", v.Controls.VerticalOffset)
		if v.Controls.OpenMenu != editor.MenuNone {
			fmt.Fprintf(r.out, ", %s menu open", v.Controls.OpenMenu)
		}
		fmt.Fprintln(r.out)
	}
	if v.Bubble.Visible {
		fmt.Fprintf(r.out, "bubble marks=%v href=%q\n", v.Bubble.ActiveMarks, v.Bubble.Href)
	}
	if v.Menu.Open {
		r.printMenu(v.Menu)
	}
}

const helpText = `commands:
  open <file> | new | save [file] | html | tree | view | quit
  type <text>      insert text (\n splits blocks, "/" opens the slash menu)
  key <name>       Enter, Backspace, ArrowUp, ArrowDown, Escape, Mod-b, Mod-k ...
  select <a> [b]   set the selection
  menu | pick <i>  show or choose slash-menu items
  run <title>      apply a command at the cursor, e.g. run Heading 2
  quick | actions  toggle the block control menus
  insert | divider | code | dup | copy | del
  paste            type the clipboard text at the cursor
  mark <type>      bold, italic, underline, strike, code
  link             add or edit the link on the selection
  undo | redo | readonly | editable
`
