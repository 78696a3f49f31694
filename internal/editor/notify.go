package editor

import (
	"errors"
	"time"

	"netlabs/api/internal/doc"
	"netlabs/api/internal/engine"
)

// NoticeLevel grades a notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient user-visible message.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// noticeMessage turns an action error into text for the user.
func noticeMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoBlock):
		return "Place the cursor inside a block first"
	case errors.Is(err, ErrClipboard):
		return "Could not copy to clipboard"
	case errors.Is(err, engine.ErrReadOnly):
		return "The editor is read-only"
	case errors.Is(err, ErrEmptyURL):
		return "Please enter a URL"
	case errors.Is(err, doc.ErrPosition), errors.Is(err, doc.ErrSchema):
		return "That action is not possible here"
	}
	return "Something went wrong"
}

// saveMessage uses the rejection's own message unless it wraps
// ErrSaveFailed.
func saveMessage(err error) string {
	if msg := err.Error(); msg != "" && !errors.Is(err, ErrSaveFailed) {
		return msg
	}
	return "Save failed"
}
