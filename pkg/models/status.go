package models

import "fmt"

// InvoiceStatus represents the lifecycle state of an invoice.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "DRAFT"
	StatusSent      InvoiceStatus = "SENT"
	StatusPaid      InvoiceStatus = "PAID"
	StatusCancelled InvoiceStatus = "CANCELLED"
	StatusRefunded  InvoiceStatus = "REFUNDED"
	StatusCredited  InvoiceStatus = "CREDITED"
)

// Lifecycle events. Each one names the trigger of exactly one edge
// per source state in the transition table below.
const (
	EventSend   = "send"
	EventCancel = "cancel"
	EventPay    = "pay"
	EventRefund = "refund"
	EventCredit = "credit"
)

// validTransitions is the single source of truth for the lifecycle.
// Map: current status -> event -> target status. CANCELLED, REFUNDED
// and CREDITED are terminal; PAID only moves toward REFUNDED/CREDITED.
var validTransitions = map[InvoiceStatus]map[string]InvoiceStatus{
	StatusDraft: {
		EventSend:   StatusSent,
		EventCancel: StatusCancelled,
	},
	StatusSent: {
		EventPay:    StatusPaid,
		EventCancel: StatusCancelled,
		EventCredit: StatusCredited,
	},
	StatusPaid: {
		EventRefund: StatusRefunded,
		EventCredit: StatusCredited,
	},
}

// AllStatuses returns every valid invoice status.
func AllStatuses() []InvoiceStatus {
	return []InvoiceStatus{
		StatusDraft,
		StatusSent,
		StatusPaid,
		StatusCancelled,
		StatusRefunded,
		StatusCredited,
	}
}

// IsValid reports whether s is a known invoice status.
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusCancelled, StatusRefunded, StatusCredited:
		return true
	default:
		return false
	}
}

func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no event can leave this status.
func (s InvoiceStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0 && s.IsValid()
}

// CanTransitionTo reports whether some event moves s to target.
// A self-transition is not an edge; callers treat it as an
// idempotent no-op before consulting the table.
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionWith returns the target status for an event fired in s.
func (s InvoiceStatus) TransitionWith(event string) (InvoiceStatus, error) {
	target, ok := validTransitions[s][event]
	if !ok {
		return s, fmt.Errorf("event %q is not allowed from status %s", event, s)
	}
	return target, nil
}

// EventFor returns the event that moves s to target, if such an edge exists.
func (s InvoiceStatus) EventFor(target InvoiceStatus) (string, bool) {
	for event, t := range validTransitions[s] {
		if t == target {
			return event, true
		}
	}
	return "", false
}

// ValidTargets returns the statuses reachable from s in one event.
func (s InvoiceStatus) ValidTargets() []InvoiceStatus {
	var targets []InvoiceStatus
	for _, t := range validTransitions[s] {
		targets = append(targets, t)
	}
	return targets
}

// ParseInvoiceStatus parses a string into an InvoiceStatus.
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	status := InvoiceStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid invoice status: %s", s)
	}
	return status, nil
}
