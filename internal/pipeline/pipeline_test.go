package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"checkout/internal/domain"
)

// recordingStep logs every phase it runs into a shared trace.
type recordingStep struct {
	name       string
	trace      *[]string
	applicable func(p *domain.Payment) bool
	outcome    Outcome
	actionErr  error
}

func (s *recordingStep) Name() string { return s.name }

func (s *recordingStep) IsApplicable(p *domain.Payment) bool {
	if s.applicable == nil {
		return true
	}
	return s.applicable(p)
}

func (s *recordingStep) CollectData(ctx context.Context, p *domain.Payment) error {
	*s.trace = append(*s.trace, s.name+":collect")
	return nil
}

func (s *recordingStep) Action(ctx context.Context, p *domain.Payment) (Outcome, error) {
	*s.trace = append(*s.trace, s.name+":action")
	return s.outcome, s.actionErr
}

func (s *recordingStep) Complete(ctx context.Context, p *domain.Payment) error {
	*s.trace = append(*s.trace, s.name+":complete")
	return nil
}

func newPayment() *domain.Payment {
	return domain.NewCartPayment(decimal.NewFromInt(10), "USD", domain.FlowStandardCheckout, "sess-1")
}

func TestRun_PhasesInDeclaredOrder(t *testing.T) {
	var trace []string
	pl := New("test",
		&recordingStep{name: "a", trace: &trace, outcome: Continue()},
		&recordingStep{name: "b", trace: &trace, outcome: Continue()},
	)

	if _, err := pl.Run(context.Background(), newPayment()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"a:collect", "b:collect", "a:action", "b:action", "a:complete", "b:complete"}
	if !reflect.DeepEqual(trace, want) {
		t.Errorf("expected %v, got %v", want, trace)
	}
}

func TestRun_CompletedStopsActionsButNotCompletes(t *testing.T) {
	var trace []string
	p := newPayment()
	pl := New("test",
		&recordingStep{name: "a", trace: &trace, outcome: Succeeded(domain.Result{Redirect: "/done"})},
		&recordingStep{name: "b", trace: &trace, outcome: Continue()},
	)

	if _, err := pl.Run(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"a:collect", "b:collect", "a:action", "a:complete", "b:complete"}
	if !reflect.DeepEqual(trace, want) {
		t.Errorf("expected %v, got %v", want, trace)
	}
	if p.Status() != domain.PaymentStatusSuccessful {
		t.Errorf("expected status %s, got %s", domain.PaymentStatusSuccessful, p.Status())
	}
	result, ok := p.Result()
	if !ok || result.Redirect != "/done" {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestRun_SuspendedKeepsPaymentInProgress(t *testing.T) {
	var trace []string
	p := newPayment()
	pl := New("test",
		&recordingStep{name: "a", trace: &trace, outcome: Suspended(domain.Result{Redirect: "/challenge"})},
		&recordingStep{name: "b", trace: &trace, outcome: Continue()},
	)

	if _, err := pl.Run(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.IsCompleted() {
		t.Error("expected payment to stay in progress")
	}
	result, ok := p.Result()
	if !ok || result.Redirect != "/challenge" || result.Status != domain.PaymentStatusInProgress {
		t.Errorf("unexpected result %+v", result)
	}
	for _, entry := range trace {
		if entry == "b:action" {
			t.Error("expected later actions to be skipped after a suspension")
		}
	}
}

func TestRun_ApplicabilityCheckedPerPhase(t *testing.T) {
	var trace []string
	p := newPayment()
	pl := New("test",
		&recordingStep{name: "a", trace: &trace, outcome: Failed("declined")},
		&recordingStep{name: "b", trace: &trace, outcome: Continue(), applicable: func(p *domain.Payment) bool {
			// Only interested in failed payments.
			return p.Status() == domain.PaymentStatusFailed
		}},
	)

	if _, err := pl.Run(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"a:collect", "a:action", "a:complete", "b:complete"}
	if !reflect.DeepEqual(trace, want) {
		t.Errorf("expected %v, got %v", want, trace)
	}
}

func TestRun_ActionErrorAborts(t *testing.T) {
	var trace []string
	boom := errors.New("boom")
	pl := New("test",
		&recordingStep{name: "a", trace: &trace, actionErr: boom},
		&recordingStep{name: "b", trace: &trace, outcome: Continue()},
	)

	_, err := pl.Run(context.Background(), newPayment())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}

	want := []string{"a:collect", "b:collect", "a:action"}
	if !reflect.DeepEqual(trace, want) {
		t.Errorf("expected %v, got %v", want, trace)
	}
}

func TestRun_CompletingTwiceIsRejected(t *testing.T) {
	p := newPayment()
	if err := p.Complete(domain.Result{Status: domain.PaymentStatusFailed}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var trace []string
	_, err := Run(context.Background(), []Step{
		&recordingStep{name: "a", trace: &trace, outcome: Succeeded(domain.Result{})},
	}, p)
	if !errors.Is(err, domain.ErrPaymentAlreadyCompleted) {
		t.Errorf("expected already completed, got %v", err)
	}
	if p.Status() != domain.PaymentStatusFailed {
		t.Errorf("expected status to stay %s, got %s", domain.PaymentStatusFailed, p.Status())
	}
}

func TestNopPhases(t *testing.T) {
	var nop NopPhases
	p := newPayment()

	if err := nop.CollectData(context.Background(), p); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	outcome, err := nop.Action(context.Background(), p)
	if err != nil || !outcome.IsContinue() {
		t.Errorf("expected continue, got %+v (%v)", outcome, err)
	}
	if err := nop.Complete(context.Background(), p); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
