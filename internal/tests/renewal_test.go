package tests

import (
	"context"
	"errors"
	"testing"

	"checkout/internal/domain"
	"checkout/internal/service"
)

// ──────────────────────────────────────────────
// 8. MERCHANT-INITIATED RENEWALS
// ──────────────────────────────────────────────

func TestChargeRenewal_SavedMethod_ChargesOffSession(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.tokens.AddToken(&domain.PaymentToken{ID: "tok-1", UserID: "user-1", MethodID: "pm_saved", Title: "Visa 4242", Reusable: true})
	order := h.addOrder("order-1", "user-1", "25.00", "USD")

	result, err := h.service.ChargeRenewal(context.Background(), service.RenewalRequest{
		OrderID: order.ID,
		TokenID: "tok-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != domain.PaymentStatusSuccessful {
		t.Errorf("expected success, got %s", result.Status)
	}

	req := h.processor.CreateRequests[0]
	if !req.OffSession {
		t.Error("expected an off-session charge")
	}
	if req.IdempotencyKey != "renewal-order-1" {
		t.Errorf("expected idempotency key renewal-order-1, got %s", req.IdempotencyKey)
	}
	if req.Metadata["payment_type"] != "recurring" {
		t.Errorf("expected recurring metadata, got %v", req.Metadata)
	}
	if !req.SaveMethod {
		t.Error("expected recurring payments to keep the method on the processor")
	}

	stored := h.orders.GetOrder(order.ID)
	if stored.Status != domain.OrderStatusProcessing {
		t.Errorf("expected order paid, got %s", stored.Status)
	}
	if stored.PaymentTokenID != "tok-1" {
		t.Errorf("expected token tok-1 on order, got %s", stored.PaymentTokenID)
	}

	// No browser: no session state, no rate limiting.
	if h.sessions.SetCallCount != 0 || h.sessions.DeleteCallCount != 0 {
		t.Error("expected renewals not to touch session state")
	}
	if h.limiter.IsLimitedCallCount != 0 {
		t.Error("expected renewals not to be rate limited")
	}
	if h.locks.IsLocked("renewal:" + order.ID) {
		t.Error("expected renewal lock to be released")
	}
}

func TestChargeRenewal_RequiresAction_FailsOrder(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.processor.ConfirmStatus = domain.AuthorizationRequiresAction
	h.tokens.AddToken(&domain.PaymentToken{ID: "tok-1", UserID: "user-1", MethodID: "pm_saved", Reusable: true})
	order := h.addOrder("order-1", "user-1", "25.00", "USD")

	result, err := h.service.ChargeRenewal(context.Background(), service.RenewalRequest{
		OrderID: order.ID,
		TokenID: "tok-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != domain.PaymentStatusFailed {
		t.Errorf("expected failed status, got %s", result.Status)
	}
	if result.Redirect != "" {
		t.Errorf("expected no challenge redirect, got %s", result.Redirect)
	}

	stored := h.orders.GetOrder(order.ID)
	if stored.Status != domain.OrderStatusFailed || stored.FailureReason != "authentication_required" {
		t.Errorf("expected order failed for authentication, got %s (%s)", stored.Status, stored.FailureReason)
	}
}

func TestChargeRenewal_NonReusableMethod_Rejected(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.tokens.AddToken(&domain.PaymentToken{ID: "tok-1", UserID: "user-1", MethodID: "pm_saved", Reusable: false})
	order := h.addOrder("order-1", "user-1", "25.00", "USD")

	_, err := h.service.ChargeRenewal(context.Background(), service.RenewalRequest{
		OrderID: order.ID,
		TokenID: "tok-1",
	})

	var failure *domain.PaymentFailureError
	if !errors.As(err, &failure) || failure.Code != "payment_method_not_reusable" {
		t.Fatalf("expected not reusable failure, got %v", err)
	}
	if h.processor.CreateCallCount != 0 {
		t.Error("expected processor not to be called")
	}
}

func TestChargeRenewal_Validation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		req     service.RenewalRequest
		wantErr error
	}{
		{name: "missing order", req: service.RenewalRequest{TokenID: "tok-1"}, wantErr: service.ErrInvalidOrderID},
		{name: "missing token", req: service.RenewalRequest{OrderID: "order-1"}, wantErr: service.ErrInvalidPaymentMethod},
		{name: "unknown token", req: service.RenewalRequest{OrderID: "order-1", TokenID: "tok-404"}, wantErr: service.ErrInvalidPaymentMethod},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness()
			h.addOrder("order-1", "user-1", "25.00", "USD")

			_, err := h.service.ChargeRenewal(context.Background(), tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestChargeRenewal_INR_SendsMandate(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.tokens.AddToken(&domain.PaymentToken{ID: "tok-1", UserID: "user-1", MethodID: "pm_saved", Reusable: true})
	order := h.addOrder("order-1", "user-1", "499.00", "INR")

	if _, err := h.service.ChargeRenewal(context.Background(), service.RenewalRequest{
		OrderID: order.ID,
		TokenID: "tok-1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mandate := h.processor.CreateRequests[0].MandateParams
	if mandate["payment_method_options[card][mandate_options][reference]"] != order.ID {
		t.Errorf("expected mandate reference %s, got %v", order.ID, mandate)
	}
	if mandate["payment_method_options[card][mandate_options][amount]"] != "49900" {
		t.Errorf("expected mandate amount 49900, got %v", mandate)
	}
}
