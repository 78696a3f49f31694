// Package clipboard provides clipboard targets for copied block text.
package clipboard

import (
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
)

// System writes to the operating system clipboard.
type System struct{}

// Available reports whether a system clipboard utility was found.
func (System) Available() bool {
	return !clipboard.Unsupported
}

// WriteText puts text on the system clipboard.
func (System) WriteText(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write system clipboard: %w", err)
	}
	return nil
}

// ReadText returns the system clipboard contents.
func (System) ReadText() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("read system clipboard: %w", err)
	}
	return text, nil
}

// Memory is an in-process clipboard. Servers use it per session so copied
// text can be handed back to the remote surface.
type Memory struct {
	mu   sync.Mutex
	text string
	// Err, when set, makes every write fail.
	Err error
}

// WriteText stores text.
func (m *Memory) WriteText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.text = text
	return nil
}

// ReadText returns the stored text.
func (m *Memory) ReadText() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}
