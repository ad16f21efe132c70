package session

import "sync"

// UnitKind discriminates storyboard units.
type UnitKind int

const (
	// UnitText is a run of story prose.
	UnitText UnitKind = iota
	// UnitImage is an illustration.
	UnitImage
)

// Unit is one display unit of the accumulated story. Text units grow
// as consecutive text fragments arrive; an image always stands alone.
type Unit struct {
	Kind     UnitKind
	Text     string
	Image    []byte
	MimeType string
}

// Storyboard accumulates incoming story content in arrival order.
// Consecutive text fragments merge into the current text unit; any
// image starts a new unit, and text after an image starts a fresh
// text unit.
type Storyboard struct {
	mu    sync.Mutex
	units []Unit
}

// AppendText folds a text fragment into the storyboard and returns a
// copy of the affected unit.
func (b *Storyboard) AppendText(s string) Unit {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n := len(b.units); n > 0 && b.units[n-1].Kind == UnitText {
		b.units[n-1].Text += s
		return b.units[n-1]
	}
	b.units = append(b.units, Unit{Kind: UnitText, Text: s})
	return b.units[len(b.units)-1]
}

// AppendImage adds an image unit and returns a copy of it.
func (b *Storyboard) AppendImage(data []byte, mimeType string) Unit {
	b.mu.Lock()
	defer b.mu.Unlock()

	u := Unit{Kind: UnitImage, Image: data, MimeType: mimeType}
	b.units = append(b.units, u)
	return u
}

// Units returns a snapshot of the accumulated units.
func (b *Storyboard) Units() []Unit {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Unit(nil), b.units...)
}

// Len returns the number of units.
func (b *Storyboard) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.units)
}

// Reset discards all accumulated units.
func (b *Storyboard) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.units = nil
}
