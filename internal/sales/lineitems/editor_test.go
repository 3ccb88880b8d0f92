package lineitems

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls [][]Item
}

func (r *recorder) onChange(items []Item) {
	r.calls = append(r.calls, items)
}

func seedItems() []Item {
	return []Item{
		{Description: "Consulting", Quantity: 2, UnitPrice: 100, DiscountPercent: 10, TaxPercent: 8},
		{Description: "Licence", Quantity: 1, UnitPrice: 50.5},
		{Description: "Setup", Quantity: 3, UnitPrice: 20},
	}
}

func TestNewEditorRecomputesTotals(t *testing.T) {
	seed := seedItems()
	seed[0].Total = 1 // stale
	e := NewEditor(seed, nil)

	items := e.Items()
	require.Len(t, items, 3)
	assert.InDelta(t, 194.4, items[0].Total, 1e-9)
	assert.InDelta(t, 50.5, items[1].Total, 1e-9)
	assert.InDelta(t, 60, items[2].Total, 1e-9)
}

func TestAddItemAppendsDefaults(t *testing.T) {
	rec := &recorder{}
	e := NewEditor(seedItems(), rec.onChange)

	require.NoError(t, e.AddItem())
	items := e.Items()
	require.Len(t, items, 4)
	assert.Equal(t, Item{Quantity: 1}, items[3])
	assert.Len(t, rec.calls, 1)
}

func TestRemoveItem(t *testing.T) {
	rec := &recorder{}
	e := NewEditor(seedItems(), rec.onChange)

	require.NoError(t, e.RemoveItem(1))
	items := e.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Consulting", items[0].Description)
	assert.Equal(t, "Setup", items[1].Description)

	err := e.RemoveItem(5)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	err = e.RemoveItem(-1)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	assert.Len(t, e.Items(), 2)
	assert.Len(t, rec.calls, 1)
}

func TestMoveDownThenUpRestoresOrder(t *testing.T) {
	e := NewEditor(seedItems(), nil)
	original := e.Items()

	require.NoError(t, e.MoveDown(0))
	assert.Equal(t, "Licence", e.Items()[0].Description)
	require.NoError(t, e.MoveUp(1))
	assert.Equal(t, original, e.Items())
}

func TestMoveAtBoundariesIsNoop(t *testing.T) {
	rec := &recorder{}
	e := NewEditor(seedItems(), rec.onChange)
	original := e.Items()

	require.NoError(t, e.MoveUp(0))
	require.NoError(t, e.MoveDown(2))
	assert.Equal(t, original, e.Items())
	assert.Empty(t, rec.calls)
}

func TestUpdateFieldRecomputesTotal(t *testing.T) {
	rec := &recorder{}
	e := NewEditor(seedItems(), rec.onChange)

	require.NoError(t, e.UpdateField(1, FieldQuantity, "4"))
	assert.InDelta(t, 202, e.Items()[1].Total, 1e-9)

	require.NoError(t, e.UpdateField(1, FieldDescription, "  Licence (annual) "))
	assert.Equal(t, "  Licence (annual) ", e.Items()[1].Description)

	require.NoError(t, e.UpdateField(1, FieldUnitPrice, "abc"))
	assert.Equal(t, 0.0, e.Items()[1].UnitPrice)
	assert.Equal(t, 0.0, e.Items()[1].Total)

	require.NoError(t, e.UpdateField(0, FieldTaxPercent, "NaN"))
	assert.Equal(t, 0.0, e.Items()[0].TaxPercent)
	assert.InDelta(t, 180, e.Items()[0].Total, 1e-9)

	assert.Len(t, rec.calls, 4)
}

func TestUpdateFieldErrors(t *testing.T) {
	e := NewEditor(seedItems(), nil)
	assert.True(t, errors.Is(e.UpdateField(0, "colour", "red"), ErrUnknownField))
	assert.True(t, errors.Is(e.UpdateField(3, FieldQuantity, "1"), ErrIndexOutOfRange))
}

func TestUpdateFieldWithSameValueDoesNotNotify(t *testing.T) {
	rec := &recorder{}
	e := NewEditor(seedItems(), rec.onChange)

	require.NoError(t, e.UpdateField(0, FieldQuantity, "2"))
	assert.Empty(t, rec.calls)
}

func TestSetItemsDeduplicatesNotifications(t *testing.T) {
	rec := &recorder{}
	e := NewEditor(seedItems(), rec.onChange)

	notified, err := e.SetItems(seedItems())
	require.NoError(t, err)
	assert.False(t, notified)
	assert.Empty(t, rec.calls)

	require.NoError(t, e.UpdateField(0, FieldQuantity, "3"))
	require.Len(t, rec.calls, 1)

	// The owner echoes the notified collection back: no second notification.
	notified, err = e.SetItems(rec.calls[0])
	require.NoError(t, err)
	assert.False(t, notified)
	assert.Len(t, rec.calls, 1)

	changed := seedItems()
	notified, err = e.SetItems(changed)
	require.NoError(t, err)
	assert.True(t, notified)
	assert.Len(t, rec.calls, 2)
}

func TestNotificationIsACopy(t *testing.T) {
	rec := &recorder{}
	e := NewEditor(seedItems(), rec.onChange)
	require.NoError(t, e.AddItem())

	rec.calls[0][0].Description = "mutated"
	assert.Equal(t, "Consulting", e.Items()[0].Description)
}

func TestReadOnlyRefusesMutations(t *testing.T) {
	rec := &recorder{}
	e := NewEditor(seedItems(), rec.onChange)
	e.SetReadOnly(true)

	assert.ErrorIs(t, e.AddItem(), ErrReadOnly)
	assert.ErrorIs(t, e.RemoveItem(0), ErrReadOnly)
	assert.ErrorIs(t, e.MoveUp(1), ErrReadOnly)
	assert.ErrorIs(t, e.MoveDown(0), ErrReadOnly)
	assert.ErrorIs(t, e.UpdateField(0, FieldQuantity, "9"), ErrReadOnly)
	_, err := e.SetItems(nil)
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = e.Apply([]Operation{{Op: OpAdd}})
	assert.ErrorIs(t, err, ErrReadOnly)

	assert.Len(t, e.Items(), 3)
	assert.Empty(t, rec.calls)
}

func TestApplyBatchNotifiesOnce(t *testing.T) {
	rec := &recorder{}
	e := NewEditor(seedItems(), rec.onChange)

	notified, err := e.Apply([]Operation{
		{Op: OpAdd},
		{Op: OpUpdate, Index: 3, Field: FieldDescription, Value: "Training"},
		{Op: OpUpdate, Index: 3, Field: FieldUnitPrice, Value: "75"},
		{Op: OpMoveUp, Index: 3},
		{Op: OpRemove, Index: 0},
	})
	require.NoError(t, err)
	assert.True(t, notified)
	require.Len(t, rec.calls, 1)

	items := e.Items()
	require.Len(t, items, 3)
	assert.Equal(t, []string{"Licence", "Training", "Setup"}, []string{items[0].Description, items[1].Description, items[2].Description})
	assert.InDelta(t, 75, items[1].Total, 1e-9)
}

func TestApplyIsAllOrNothing(t *testing.T) {
	rec := &recorder{}
	e := NewEditor(seedItems(), rec.onChange)
	before := e.Items()

	_, err := e.Apply([]Operation{
		{Op: OpAdd},
		{Op: OpRemove, Index: 10},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Equal(t, before, e.Items())
	assert.Empty(t, rec.calls)
}

func TestApplyNetNoChangeDoesNotNotify(t *testing.T) {
	rec := &recorder{}
	e := NewEditor(seedItems(), rec.onChange)

	notified, err := e.Apply([]Operation{{Op: OpMoveDown, Index: 0}, {Op: OpMoveUp, Index: 1}})
	require.NoError(t, err)
	assert.False(t, notified)
	assert.Empty(t, rec.calls)
}

func TestEqual(t *testing.T) {
	a := seedItems()
	b := seedItems()
	b[0].Total = 42
	assert.True(t, Equal(a, b))
	b[1].Quantity = 2
	assert.False(t, Equal(a, b))
	assert.True(t, Equal(nil, []Item{}))
}
