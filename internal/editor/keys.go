package editor

import "netlabs/api/internal/doc"

// Key is a key chord as the surface reports it.
type Key string

const (
	KeyEnter      Key = "Enter"
	KeyShiftEnter Key = "Shift-Enter"
	KeyBackspace  Key = "Backspace"
	KeyDelete     Key = "Delete"
	KeyEscape     Key = "Escape"
	KeyArrowUp    Key = "ArrowUp"
	KeyArrowDown  Key = "ArrowDown"
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"
	KeyUndo       Key = "Mod-z"
	KeyRedo       Key = "Mod-Shift-z"
	KeyRedoAlt    Key = "Mod-y"
	KeyBold       Key = "Mod-b"
	KeyItalic     Key = "Mod-i"
	KeyUnderline  Key = "Mod-u"
	KeyStrike     Key = "Mod-Shift-x"
	KeyCode       Key = "Mod-e"
	KeyLink       Key = "Mod-k"
)

var markKeys = map[Key]string{
	KeyBold:      doc.MarkBold,
	KeyItalic:    doc.MarkItalic,
	KeyUnderline: doc.MarkUnderline,
	KeyStrike:    doc.MarkStrike,
	KeyCode:      doc.MarkCode,
}
