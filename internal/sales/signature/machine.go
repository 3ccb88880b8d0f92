// Package signature runs the quote signing lifecycle: sending a signature
// request, verifying the single-use token a recipient presents, recording the
// signature, and the operator override that bypasses the token flow.
package signature

import (
	"fmt"

	"github.com/odyssey-erp/odyssey-crm/internal/sales/quotations"
	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

// ErrIllegalTransition is returned for a status move with no edge.
var ErrIllegalTransition = fmt.Errorf("%w: illegal status transition", shared.ErrConflict)

// Trigger names what caused a transition.
type Trigger string

const (
	TriggerSend     Trigger = "send"
	TriggerView     Trigger = "view"
	TriggerSign     Trigger = "sign"
	TriggerOperator Trigger = "operator"
	TriggerExpire   Trigger = "expire"
	TriggerConvert  Trigger = "convert"
)

type edge struct {
	from quotations.Status
	to   quotations.Status
}

// Machine holds the legal status edges per trigger.
type Machine struct {
	edges map[edge][]Trigger
}

// NewMachine returns the quote status machine.
func NewMachine() *Machine {
	m := &Machine{edges: make(map[edge][]Trigger)}
	m.add(TriggerSend, quotations.StatusDraft, quotations.StatusSent)
	m.add(TriggerView, quotations.StatusSent, quotations.StatusViewed)
	m.add(TriggerView, quotations.StatusViewed, quotations.StatusViewed)
	m.add(TriggerSign, quotations.StatusViewed, quotations.StatusAccepted)
	m.add(TriggerExpire, quotations.StatusSent, quotations.StatusExpired)
	m.add(TriggerExpire, quotations.StatusViewed, quotations.StatusExpired)
	m.add(TriggerConvert, quotations.StatusAccepted, quotations.StatusConverted)
	for _, from := range []quotations.Status{quotations.StatusDraft, quotations.StatusSent, quotations.StatusViewed} {
		m.add(TriggerOperator, from, quotations.StatusAccepted)
		m.add(TriggerOperator, from, quotations.StatusRejected)
	}
	return m
}

func (m *Machine) add(trigger Trigger, from, to quotations.Status) {
	e := edge{from: from, to: to}
	m.edges[e] = append(m.edges[e], trigger)
}

// Can reports whether trigger may move a quote from one status to another.
func (m *Machine) Can(from, to quotations.Status, trigger Trigger) bool {
	for _, t := range m.edges[edge{from: from, to: to}] {
		if t == trigger {
			return true
		}
	}
	return false
}

// Transition moves q to the target status if the edge exists for trigger.
func (m *Machine) Transition(q *quotations.Quote, to quotations.Status, trigger Trigger) error {
	if !m.Can(q.Status, to, trigger) {
		return fmt.Errorf("%w: %s -> %s (%s)", ErrIllegalTransition, q.Status, to, trigger)
	}
	q.Status = to
	return nil
}

// Apply serves operator status changes from the quote service: the
// Accepted/Rejected override and conversion. Token-driven moves (send, view,
// sign) and expiry are not reachable here. Expiry depends on the expiry date
// and only Workflow.ExpireOverdue takes it.
func (m *Machine) Apply(q *quotations.Quote, to quotations.Status) error {
	for _, trigger := range []Trigger{TriggerOperator, TriggerConvert} {
		if m.Can(q.Status, to, trigger) {
			q.Status = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, q.Status, to)
}

// Targets lists the statuses reachable from a status by any trigger.
func (m *Machine) Targets(from quotations.Status) []quotations.Status {
	var out []quotations.Status
	for _, to := range []quotations.Status{
		quotations.StatusDraft, quotations.StatusSent, quotations.StatusViewed, quotations.StatusAccepted,
		quotations.StatusRejected, quotations.StatusExpired, quotations.StatusConverted,
	} {
		if len(m.edges[edge{from: from, to: to}]) > 0 {
			out = append(out, to)
		}
	}
	return out
}

var _ quotations.StatusMachine = (*Machine)(nil)
