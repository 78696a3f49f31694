package editor

import (
	"errors"
	"strings"
)

var (
	// ErrEmptyURL is returned when a dialog is confirmed without a URL.
	ErrEmptyURL = errors.New("please enter a URL")
	// ErrNoDialog is returned for dialog actions while no dialog is open.
	ErrNoDialog = errors.New("no dialog is open")
	// ErrUnsetNotAllowed is returned by Remove on a dialog that does not
	// edit an existing link.
	ErrUnsetNotAllowed = errors.New("nothing to remove")
)

// DialogKind selects the dialog variant.
type DialogKind string

const (
	DialogImage DialogKind = "image"
	DialogLink  DialogKind = "link"
)

// Mode tells what the collected URL is for.
type Mode string

const (
	// ModeLink attaches a hyperlink to text.
	ModeLink Mode = "link"
	// ModeEmbed inserts a freestanding link as content.
	ModeEmbed Mode = "embed"
	// ModeImage inserts an image.
	ModeImage Mode = "image"
)

// URLRequest asks a URLRequester for a URL.
type URLRequest struct {
	Kind DialogKind
	Mode Mode
	// Value prefills the input.
	Value string
	// AllowUnset offers removing an existing link.
	AllowUnset bool
	// Done receives the trimmed URL, or nil to remove the link. It is
	// called at most once and never after a cancel.
	Done func(url *string)
	// Cancelled is called when the request ends without Done.
	Cancelled func()
}

func (r *URLRequest) finish(url *string) {
	if r.Done != nil {
		r.Done(url)
	}
}

func (r *URLRequest) cancel() {
	if r.Cancelled != nil {
		r.Cancelled()
	}
}

// URLRequester collects URLs for commands. Implementations may answer
// synchronously or later.
type URLRequester interface {
	RequestURL(req URLRequest)
}

// PromptRequester collects URLs with a blocking prompt function. Prompt
// returns ok=false when the user cancelled. An empty answer removes the
// link when AllowUnset is set and cancels otherwise.
type PromptRequester struct {
	Prompt func(message, initial string) (answer string, ok bool)
}

// RequestURL implements URLRequester.
func (p PromptRequester) RequestURL(req URLRequest) {
	message := "Link URL"
	switch req.Mode {
	case ModeImage:
		message = "Image URL"
	case ModeEmbed:
		message = "Embed URL"
	}
	answer, ok := p.Prompt(message, req.Value)
	if !ok {
		req.cancel()
		return
	}
	url := strings.TrimSpace(answer)
	switch {
	case url != "":
		req.finish(&url)
	case req.AllowUnset:
		req.finish(nil)
	default:
		req.cancel()
	}
}

// DialogState is the visible state of the URL dialog.
type DialogState struct {
	Open       bool       `json:"open"`
	Kind       DialogKind `json:"kind,omitempty"`
	Mode       Mode       `json:"mode,omitempty"`
	Value      string     `json:"value"`
	AllowUnset bool       `json:"allowUnset"`
	Error      string     `json:"error,omitempty"`
}

// Dialogs is the non-blocking modal URLRequester. The request callback is
// kept outside the visible state and consumed by the first of Confirm,
// Remove or Cancel.
type Dialogs struct {
	state   DialogState
	pending *URLRequest
}

// RequestURL implements URLRequester. A request arriving while another is
// open cancels the earlier one.
func (d *Dialogs) RequestURL(req URLRequest) {
	if prev := d.take(); prev != nil {
		prev.cancel()
	}
	d.pending = &req
	d.state = DialogState{
		Open:       true,
		Kind:       req.Kind,
		Mode:       req.Mode,
		Value:      req.Value,
		AllowUnset: req.AllowUnset,
	}
}

// State returns the visible dialog state.
func (d *Dialogs) State() DialogState {
	return d.state
}

// SetValue updates the input and clears a validation error.
func (d *Dialogs) SetValue(value string) error {
	if !d.state.Open {
		return ErrNoDialog
	}
	d.state.Value = value
	d.state.Error = ""
	return nil
}

// Confirm submits the input. Blank input keeps the dialog open with an
// inline error.
func (d *Dialogs) Confirm() error {
	if !d.state.Open {
		return ErrNoDialog
	}
	url := strings.TrimSpace(d.state.Value)
	if url == "" {
		d.state.Error = "Please enter a URL"
		return ErrEmptyURL
	}
	d.take().finish(&url)
	return nil
}

// Remove submits a removal of the existing link.
func (d *Dialogs) Remove() error {
	if !d.state.Open {
		return ErrNoDialog
	}
	if !d.state.AllowUnset {
		return ErrUnsetNotAllowed
	}
	d.take().finish(nil)
	return nil
}

// Cancel closes the dialog without calling back.
func (d *Dialogs) Cancel() {
	if req := d.take(); req != nil {
		req.cancel()
	}
}

// take closes the dialog and hands out the pending request exactly once.
func (d *Dialogs) take() *URLRequest {
	req := d.pending
	d.pending = nil
	d.state = DialogState{}
	return req
}
