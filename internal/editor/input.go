package editor

import (
	"errors"
	"fmt"
)

// ErrUnknownInput is returned by Apply for an input type it does not know.
var ErrUnknownInput = errors.New("unknown input")

// Input is a surface event in serializable form, as remote surfaces send
// them.
type Input struct {
	Type   string   `json:"type"`
	Text   string   `json:"text,omitempty"`
	Key    Key      `json:"key,omitempty"`
	Anchor int      `json:"anchor,omitempty"`
	Head   int      `json:"head,omitempty"`
	Index  int      `json:"index,omitempty"`
	Target Target   `json:"target,omitempty"`
	Mark   string   `json:"mark,omitempty"`
	Menu   MenuKind `json:"menu,omitempty"`
	Action string   `json:"action,omitempty"`
	Value  string   `json:"value,omitempty"`
}

// Input types.
const (
	InputText    = "text"
	InputKey     = "key"
	InputSelect  = "select"
	InputPointer = "pointer"
	InputScroll  = "scroll"
	InputCommand = "command"
	InputMenu    = "menu"
	InputBlock   = "block"
	InputMark    = "mark"
	InputLink    = "link"
	InputDialog  = "dialog"
	InputUndo    = "undo"
	InputRedo    = "redo"
)

// Apply dispatches one input to the matching editor action.
func (e *Editor) Apply(in Input) error {
	switch in.Type {
	case InputText:
		return e.HandleText(in.Text)
	case InputKey:
		_, err := e.HandleKey(in.Key)
		return err
	case InputSelect:
		return e.Select(in.Anchor, in.Head)
	case InputPointer:
		e.PointerDown(in.Target)
		return nil
	case InputScroll:
		e.Scrolled()
		return nil
	case InputCommand:
		return e.SelectCommand(in.Index)
	case InputMenu:
		e.ToggleMenu(in.Menu)
		return nil
	case InputBlock:
		switch in.Action {
		case "duplicate":
			return e.Duplicate()
		case "copy":
			return e.Copy()
		case "delete":
			return e.DeleteBlock()
		case "slash":
			return e.QuickSlash()
		case "divider":
			return e.QuickDivider()
		case "code":
			return e.QuickCodeBlock()
		}
	case InputMark:
		return e.ToggleMark(in.Mark)
	case InputLink:
		return e.Link()
	case InputDialog:
		switch in.Action {
		case "value":
			return e.SetDialogValue(in.Value)
		case "confirm":
			if in.Value != "" {
				if err := e.SetDialogValue(in.Value); err != nil {
					return err
				}
			}
			return e.ConfirmDialog()
		case "remove":
			return e.RemoveLink()
		case "cancel":
			e.CancelDialog()
			return nil
		}
	case InputUndo:
		e.Undo()
		return nil
	case InputRedo:
		e.Redo()
		return nil
	}
	return fmt.Errorf("%w: %s %s", ErrUnknownInput, in.Type, in.Action)
}
