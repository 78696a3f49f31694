package engine

// StepMap records that OldSize positions starting at Start were replaced by
// NewSize positions.
type StepMap struct {
	Start   int
	OldSize int
	NewSize int
}

// Map maps pos through the step. assoc decides which side a position
// sitting exactly at an insertion sticks to: negative stays before the
// inserted content, positive moves after it.
func (m StepMap) Map(pos, assoc int) int {
	end := m.Start + m.OldSize
	switch {
	case pos < m.Start:
		return pos
	case pos > end:
		return pos + m.NewSize - m.OldSize
	}
	side := assoc
	if m.OldSize > 0 {
		switch pos {
		case m.Start:
			side = -1
		case end:
			side = 1
		}
	}
	if side < 0 {
		return m.Start
	}
	return m.Start + m.NewSize
}

// Mapping is an ordered list of step maps.
type Mapping []StepMap

// Map maps pos through every step in order.
func (m Mapping) Map(pos, assoc int) int {
	for _, step := range m {
		pos = step.Map(pos, assoc)
	}
	return pos
}

// Bookmark tracks a range across document changes. Bookmarks are mapped on
// every dispatched transaction until released.
type Bookmark struct {
	from, to int
	engine   *Engine
}

// Range returns the current mapped bounds.
func (b *Bookmark) Range() (from, to int) {
	return b.from, b.to
}

// Release stops tracking. Releasing twice is harmless.
func (b *Bookmark) Release() {
	if b.engine != nil {
		delete(b.engine.bookmarks, b)
		b.engine = nil
	}
}

func (b *Bookmark) remap(m Mapping) {
	b.from = m.Map(b.from, 1)
	b.to = max(m.Map(b.to, -1), b.from)
}

func (b *Bookmark) clamp(size int) {
	b.from = min(max(b.from, 0), size)
	b.to = min(max(b.to, b.from), size)
}
