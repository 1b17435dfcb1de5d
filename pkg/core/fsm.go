package core

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/mbardeau/factura/pkg/models"
)

var lifecycleEvents = []string{
	models.EventSend,
	models.EventCancel,
	models.EventPay,
	models.EventRefund,
	models.EventCredit,
}

// init verifies at startup that the statekit machine and the
// transition table in models agree edge for edge, so the two
// representations cannot drift apart.
func init() {
	for _, status := range models.AllStatuses() {
		for _, event := range lifecycleEvents {
			m, err := NewLifecycleMachine(status, "")
			if err != nil {
				panic(fmt.Sprintf("lifecycle machine for %s: %v", status, err))
			}
			want, tableErr := status.TransitionWith(event)
			got, fireErr := m.Fire(event)
			if tableErr == nil && (fireErr != nil || got != want) {
				panic(fmt.Sprintf("lifecycle machine out of sync: %s + %s gave %s, table says %s", status, event, got, want))
			}
			if tableErr != nil && fireErr == nil {
				panic(fmt.Sprintf("lifecycle machine out of sync: %s + %s moved to %s, table forbids it", status, event, got))
			}
		}
	}
}

// lifecycleContext carries the invoice identity through the machine.
type lifecycleContext struct {
	Number string
}

// LifecycleMachine executes validated lifecycle events. The business
// validator decides legality first; the machine is the executor, and
// a before/after state comparison catches any disagreement between
// the two.
type LifecycleMachine struct {
	interpreter *statekit.Interpreter[lifecycleContext]
}

// NewLifecycleMachine builds a machine positioned at initial for the
// invoice identified by number.
func NewLifecycleMachine(initial models.InvoiceStatus, number string) (*LifecycleMachine, error) {
	builder := statekit.NewMachine[lifecycleContext]("invoice-lifecycle").
		WithInitial(statekit.StateID(initial)).
		WithContext(lifecycleContext{Number: number})

	builder.State(statekit.StateID(models.StatusDraft)).
		On(models.EventSend).Target(statekit.StateID(models.StatusSent)).
		On(models.EventCancel).Target(statekit.StateID(models.StatusCancelled)).
		Done()

	builder.State(statekit.StateID(models.StatusSent)).
		On(models.EventPay).Target(statekit.StateID(models.StatusPaid)).
		On(models.EventCancel).Target(statekit.StateID(models.StatusCancelled)).
		On(models.EventCredit).Target(statekit.StateID(models.StatusCredited)).
		Done()

	builder.State(statekit.StateID(models.StatusPaid)).
		On(models.EventRefund).Target(statekit.StateID(models.StatusRefunded)).
		On(models.EventCredit).Target(statekit.StateID(models.StatusCredited)).
		Done()

	builder.State(statekit.StateID(models.StatusCancelled)).Done()
	builder.State(statekit.StateID(models.StatusRefunded)).Done()
	builder.State(statekit.StateID(models.StatusCredited)).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build lifecycle machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &LifecycleMachine{interpreter: interpreter}, nil
}

// Current returns the state the machine sits in.
func (m *LifecycleMachine) Current() models.InvoiceStatus {
	return models.InvoiceStatus(m.interpreter.State().Value)
}

// Fire sends an event and returns the resulting status, or an
// InvalidTransitionError when the machine did not move.
func (m *LifecycleMachine) Fire(event string) (models.InvoiceStatus, error) {
	before := m.Current()
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	after := m.Current()
	if before == after {
		target, err := before.TransitionWith(event)
		if err != nil {
			return before, &models.InvalidTransitionError{
				From:   before,
				To:     before,
				Reason: fmt.Sprintf("no %q event from this status", event),
			}
		}
		return before, &models.InvalidTransitionError{From: before, To: target}
	}
	return after, nil
}
