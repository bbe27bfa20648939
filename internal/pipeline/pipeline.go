package pipeline

import (
	"context"
	"fmt"

	"github.com/newrelic/go-agent/v3/newrelic"

	"checkout/internal/domain"
)

// Pipeline is a fixed, ordered list of steps. The order is declared once
// when the pipeline is assembled and never computed at run time.
type Pipeline struct {
	name  string
	steps []Step
}

// New creates a named pipeline.
func New(name string, steps ...Step) *Pipeline {
	return &Pipeline{name: name, steps: steps}
}

// Name returns the pipeline name.
func (pl *Pipeline) Name() string { return pl.name }

// Steps returns the declared steps.
func (pl *Pipeline) Steps() []Step { return pl.steps }

// Run executes the pipeline for the payment.
func (pl *Pipeline) Run(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	return Run(ctx, pl.steps, p)
}

// Run executes the applicable steps through each phase in order. Once an
// action completes or suspends the payment, later action phases are skipped
// but every applicable step still runs its complete phase. The first error
// aborts the run.
func Run(ctx context.Context, steps []Step, p *domain.Payment) (*domain.Payment, error) {
	for _, step := range steps {
		if !step.IsApplicable(p) {
			continue
		}
		if err := runPhase(ctx, step, PhaseCollectData, func() error {
			return step.CollectData(ctx, p)
		}); err != nil {
			return p, err
		}
	}

	for _, step := range steps {
		if !step.IsApplicable(p) {
			continue
		}

		var outcome Outcome
		if err := runPhase(ctx, step, PhaseAction, func() error {
			var err error
			outcome, err = step.Action(ctx, p)
			return err
		}); err != nil {
			return p, err
		}

		if outcome.kind == outcomeCompleted {
			if err := p.Complete(outcome.result); err != nil {
				return p, fmt.Errorf("%s: %w", step.Name(), err)
			}
			break
		}
		if outcome.kind == outcomeSuspended {
			p.Suspend(outcome.result)
			break
		}
	}

	for _, step := range steps {
		if !step.IsApplicable(p) {
			continue
		}
		if err := runPhase(ctx, step, PhaseComplete, func() error {
			return step.Complete(ctx, p)
		}); err != nil {
			return p, err
		}
	}

	return p, nil
}

func runPhase(ctx context.Context, step Step, phase Phase, fn func() error) error {
	txn := newrelic.FromContext(ctx)
	if txn != nil {
		defer txn.StartSegment("checkout/" + step.Name() + "/" + string(phase)).End()
	}

	if err := fn(); err != nil {
		return fmt.Errorf("%s %s: %w", step.Name(), phase, err)
	}
	return nil
}
