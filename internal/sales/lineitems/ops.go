package lineitems

import "fmt"

// Operation is one editor action in a batch submitted over HTTP.
type Operation struct {
	Op    string `json:"op" validate:"required,oneof=add remove move_up move_down update set"`
	Index int    `json:"index"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
	Items []Item `json:"items,omitempty"`
}

// Operation names.
const (
	OpAdd      = "add"
	OpRemove   = "remove"
	OpMoveUp   = "move_up"
	OpMoveDown = "move_down"
	OpUpdate   = "update"
	OpSet      = "set"
)

func (op Operation) apply(e *Editor) error {
	switch op.Op {
	case OpAdd:
		return e.AddItem()
	case OpRemove:
		return e.RemoveItem(op.Index)
	case OpMoveUp:
		return e.MoveUp(op.Index)
	case OpMoveDown:
		return e.MoveDown(op.Index)
	case OpUpdate:
		return e.UpdateField(op.Index, op.Field, op.Value)
	case OpSet:
		_, err := e.SetItems(op.Items)
		return err
	default:
		return fmt.Errorf("unsupported operation %q", op.Op)
	}
}
