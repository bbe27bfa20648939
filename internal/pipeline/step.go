package pipeline

import (
	"context"

	"checkout/internal/domain"
)

// Phase is one lifecycle phase of a pipeline run.
type Phase string

const (
	PhaseCollectData Phase = "collect_data"
	PhaseAction      Phase = "action"
	PhaseComplete    Phase = "complete"
)

// Phases lists the lifecycle phases in execution order.
var Phases = []Phase{PhaseCollectData, PhaseAction, PhaseComplete}

type outcomeKind int

const (
	outcomeContinue outcomeKind = iota
	outcomeCompleted
	outcomeSuspended
)

// Outcome is what an action phase asks the engine to do next.
type Outcome struct {
	kind   outcomeKind
	result domain.Result
}

// Continue lets later steps run their action phase.
func Continue() Outcome {
	return Outcome{kind: outcomeContinue}
}

// Completed sets the payment's terminal status from the result and skips the
// remaining action phases.
func Completed(result domain.Result) Outcome {
	return Outcome{kind: outcomeCompleted, result: result}
}

// Succeeded is shorthand for a successful completion.
func Succeeded(result domain.Result) Outcome {
	result.Status = domain.PaymentStatusSuccessful
	return Completed(result)
}

// Failed is shorthand for completing the payment as failed with a
// customer-facing message.
func Failed(message string) Outcome {
	return Completed(domain.Result{
		Status:   domain.PaymentStatusFailed,
		Messages: []string{message},
	})
}

// Suspended attaches the result but leaves the payment in progress, e.g. to
// redirect the customer to an authentication challenge.
func Suspended(result domain.Result) Outcome {
	return Outcome{kind: outcomeSuspended, result: result}
}

// IsContinue reports whether the outcome lets the action phase go on.
func (o Outcome) IsContinue() bool {
	return o.kind == outcomeContinue
}

// Step is a unit of conditional checkout logic.
type Step interface {
	// Name identifies the step in traces and logs.
	Name() string

	// IsApplicable is evaluated before every phase.
	IsApplicable(p *domain.Payment) bool

	// CollectData gathers values later steps depend on.
	CollectData(ctx context.Context, p *domain.Payment) error

	// Action performs the step's main work.
	Action(ctx context.Context, p *domain.Payment) (Outcome, error)

	// Complete runs once per pipeline run after the action phase stops.
	Complete(ctx context.Context, p *domain.Payment) error
}

// NopPhases provides empty phases for steps that only implement some of them.
type NopPhases struct{}

func (NopPhases) CollectData(context.Context, *domain.Payment) error { return nil }

func (NopPhases) Action(context.Context, *domain.Payment) (Outcome, error) {
	return Continue(), nil
}

func (NopPhases) Complete(context.Context, *domain.Payment) error { return nil }
