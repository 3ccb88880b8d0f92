package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-crm/internal/sales/quotations"
	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

func TestMachineEdges(t *testing.T) {
	m := NewMachine()
	tests := []struct {
		from    quotations.Status
		to      quotations.Status
		trigger Trigger
		want    bool
	}{
		{quotations.StatusDraft, quotations.StatusSent, TriggerSend, true},
		{quotations.StatusSent, quotations.StatusViewed, TriggerView, true},
		{quotations.StatusViewed, quotations.StatusViewed, TriggerView, true},
		{quotations.StatusViewed, quotations.StatusAccepted, TriggerSign, true},
		{quotations.StatusSent, quotations.StatusAccepted, TriggerSign, false},
		{quotations.StatusDraft, quotations.StatusAccepted, TriggerOperator, true},
		{quotations.StatusViewed, quotations.StatusRejected, TriggerOperator, true},
		{quotations.StatusAccepted, quotations.StatusRejected, TriggerOperator, false},
		{quotations.StatusAccepted, quotations.StatusSent, TriggerSend, false},
		{quotations.StatusSent, quotations.StatusExpired, TriggerExpire, true},
		{quotations.StatusDraft, quotations.StatusExpired, TriggerExpire, false},
		{quotations.StatusAccepted, quotations.StatusConverted, TriggerConvert, true},
		{quotations.StatusRejected, quotations.StatusConverted, TriggerConvert, false},
		{quotations.StatusConverted, quotations.StatusDraft, TriggerOperator, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to)+"/"+string(tt.trigger), func(t *testing.T) {
			assert.Equal(t, tt.want, m.Can(tt.from, tt.to, tt.trigger))
		})
	}
}

func TestMachineTransition(t *testing.T) {
	m := NewMachine()
	q := &quotations.Quote{Status: quotations.StatusAccepted}

	err := m.Transition(q, quotations.StatusSent, TriggerSend)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.Equal(t, quotations.StatusAccepted, q.Status)

	require.NoError(t, m.Transition(q, quotations.StatusConverted, TriggerConvert))
	assert.Equal(t, quotations.StatusConverted, q.Status)
}

func TestMachineApplyOperatorOnly(t *testing.T) {
	m := NewMachine()

	q := &quotations.Quote{Status: quotations.StatusSent}
	require.NoError(t, m.Apply(q, quotations.StatusRejected))
	assert.Equal(t, quotations.StatusRejected, q.Status)

	q = &quotations.Quote{Status: quotations.StatusDraft}
	assert.ErrorIs(t, m.Apply(q, quotations.StatusSent), ErrIllegalTransition, "send goes through the workflow")
	assert.Equal(t, quotations.StatusDraft, q.Status)

	for _, from := range []quotations.Status{quotations.StatusSent, quotations.StatusViewed} {
		q = &quotations.Quote{Status: from}
		assert.ErrorIs(t, m.Apply(q, quotations.StatusExpired), ErrIllegalTransition, "expiry goes through the sweep")
		assert.Equal(t, from, q.Status)
	}

	q = &quotations.Quote{Status: quotations.StatusAccepted}
	require.NoError(t, m.Apply(q, quotations.StatusConverted))
	assert.Equal(t, quotations.StatusConverted, q.Status)
}

func TestMachineTargets(t *testing.T) {
	m := NewMachine()
	assert.ElementsMatch(t,
		[]quotations.Status{quotations.StatusSent, quotations.StatusAccepted, quotations.StatusRejected},
		m.Targets(quotations.StatusDraft))
	assert.Empty(t, m.Targets(quotations.StatusConverted))
	assert.Empty(t, m.Targets(quotations.StatusExpired))
}
