package lineitems

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ChangeFunc receives the collection after a change. The slice is a copy.
type ChangeFunc func(items []Item)

// Editor maintains an ordered list of line items. It notifies its owner only
// when the canonical form of the collection differs from the last one it
// reported, so an owner that feeds the same data back through SetItems does
// not trigger another round of notifications.
//
// An Editor is owned by a single quote and is not safe for concurrent use.
type Editor struct {
	items        []Item
	lastNotified []byte
	onChange     ChangeFunc
	readOnly     bool
}

// NewEditor seeds the editor. The seed counts as already notified.
func NewEditor(items []Item, onChange ChangeFunc) *Editor {
	e := &Editor{items: Normalize(items), onChange: onChange}
	if e.items == nil {
		e.items = []Item{}
	}
	e.lastNotified = canonical(e.items)
	return e
}

// Items returns a copy of the current collection.
func (e *Editor) Items() []Item {
	out := make([]Item, len(e.items))
	copy(out, e.items)
	return out
}

// Len reports the number of items.
func (e *Editor) Len() int { return len(e.items) }

// SetReadOnly locks or unlocks the collection.
func (e *Editor) SetReadOnly(readOnly bool) { e.readOnly = readOnly }

// ReadOnly reports whether mutations are refused.
func (e *Editor) ReadOnly() bool { return e.readOnly }

// AddItem appends a default item.
func (e *Editor) AddItem() error {
	if e.readOnly {
		return ErrReadOnly
	}
	e.items = append(e.items, NewItem().Recalculate())
	e.notify()
	return nil
}

// RemoveItem deletes the item at index. Out of range indexes leave the
// collection untouched and return ErrIndexOutOfRange.
func (e *Editor) RemoveItem(index int) error {
	if e.readOnly {
		return ErrReadOnly
	}
	if err := e.checkIndex(index); err != nil {
		return err
	}
	e.items = append(e.items[:index:index], e.items[index+1:]...)
	e.notify()
	return nil
}

// MoveUp swaps the item with its predecessor. No-op for the first item.
func (e *Editor) MoveUp(index int) error {
	if e.readOnly {
		return ErrReadOnly
	}
	if err := e.checkIndex(index); err != nil {
		return err
	}
	if index == 0 {
		return nil
	}
	e.items[index-1], e.items[index] = e.items[index], e.items[index-1]
	e.notify()
	return nil
}

// MoveDown swaps the item with its successor. No-op for the last item.
func (e *Editor) MoveDown(index int) error {
	if e.readOnly {
		return ErrReadOnly
	}
	if err := e.checkIndex(index); err != nil {
		return err
	}
	if index == len(e.items)-1 {
		return nil
	}
	e.items[index], e.items[index+1] = e.items[index+1], e.items[index]
	e.notify()
	return nil
}

// UpdateField sets one field of the item at index from raw input and
// recomputes that item's total.
func (e *Editor) UpdateField(index int, field, value string) error {
	if e.readOnly {
		return ErrReadOnly
	}
	if err := e.checkIndex(index); err != nil {
		return err
	}
	updated, err := e.items[index].WithField(field, value)
	if err != nil {
		return err
	}
	e.items[index] = updated
	e.notify()
	return nil
}

// SetItems replaces the collection, typically with data coming back from the
// owner. It reports whether the owner was notified.
func (e *Editor) SetItems(items []Item) (bool, error) {
	if e.readOnly {
		return false, ErrReadOnly
	}
	e.items = Normalize(items)
	if e.items == nil {
		e.items = []Item{}
	}
	return e.notify(), nil
}

// Apply runs a batch of operations. Either every operation succeeds and the
// owner is notified at most once, or the collection is left as it was.
func (e *Editor) Apply(ops []Operation) (bool, error) {
	if e.readOnly {
		return false, ErrReadOnly
	}
	scratch := &Editor{items: e.Items()}
	for idx, op := range ops {
		if err := op.apply(scratch); err != nil {
			return false, fmt.Errorf("operation %d (%s): %w", idx, op.Op, err)
		}
	}
	e.items = scratch.items
	return e.notify(), nil
}

func (e *Editor) checkIndex(index int) error {
	if index < 0 || index >= len(e.items) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(e.items))
	}
	return nil
}

func (e *Editor) notify() bool {
	current := canonical(e.items)
	if bytes.Equal(current, e.lastNotified) {
		return false
	}
	e.lastNotified = current
	if e.onChange != nil {
		e.onChange(e.Items())
	}
	return true
}

// Equal reports whether two collections have the same canonical form.
func Equal(a, b []Item) bool {
	return bytes.Equal(canonical(Normalize(a)), canonical(Normalize(b)))
}

func canonical(items []Item) []byte {
	if items == nil {
		items = []Item{}
	}
	// Marshalling a slice of flat structs cannot fail.
	data, _ := json.Marshal(items)
	return data
}
