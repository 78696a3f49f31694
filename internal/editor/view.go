package editor

import (
	"netlabs/api/internal/doc"
	"netlabs/api/internal/engine"
)

// MenuView is the slash menu as the surface draws it.
type MenuView struct {
	MenuState
	// EmptyText is set when the query matched nothing.
	EmptyText string `json:"emptyText,omitempty"`
}

// View is a serializable snapshot of everything the surface draws.
type View struct {
	Ready       bool             `json:"ready"`
	Placeholder string           `json:"placeholder,omitempty"`
	Editable    bool             `json:"editable"`
	Dirty       bool             `json:"dirty"`
	Saving      bool             `json:"saving"`
	HTML        string           `json:"html"`
	Doc         *doc.Node        `json:"doc,omitempty"`
	Selection   engine.Selection `json:"selection"`
	StoredMarks []doc.Mark       `json:"storedMarks,omitempty"`
	Block       *BlockReference  `json:"block,omitempty"`
	Menu        MenuView         `json:"menu"`
	Controls    ControlsState    `json:"controls"`
	Bubble      BubbleState      `json:"bubble"`
	Dialog      DialogState      `json:"dialog"`
	Notices     []Notice         `json:"notices,omitempty"`
	CanUndo     bool             `json:"canUndo"`
	CanRedo     bool             `json:"canRedo"`
}

// View returns the current snapshot. Pending notices are included but not
// cleared.
func (e *Editor) View() View {
	if !e.ready {
		return View{Placeholder: LoadingText}
	}
	st := e.engine.State()
	menu := MenuView{MenuState: e.menu.State()}
	if menu.Empty() {
		menu.EmptyText = NoMatchText
	}
	return View{
		Ready:       true,
		Editable:    e.engine.Editable(),
		Dirty:       e.dirty,
		Saving:      e.Saving(),
		HTML:        e.html,
		Doc:         st.Doc,
		Selection:   st.Selection,
		StoredMarks: st.StoredMarks,
		Block:       LocateActiveBlock(st),
		Menu:        menu,
		Controls:    e.controls.State(),
		Bubble:      e.bubble.State(),
		Dialog:      e.dialogs.State(),
		Notices:     append([]Notice(nil), e.notices...),
		CanUndo:     e.engine.CanUndo(),
		CanRedo:     e.engine.CanRedo(),
	}
}
