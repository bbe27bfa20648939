package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"checkout/internal/domain"
	"checkout/internal/redis"
	"checkout/internal/service"
)

// ──────────────────────────────────────────────
// 1. STANDARD CHECKOUT
// ──────────────────────────────────────────────

func TestStandardCheckout_Success_MarksOrderPaid(t *testing.T) {
	t.Parallel()

	h := newHarness()
	order := h.addOrder("order-1", "user-1", "25.00", "USD")

	result, err := h.service.ProcessCheckout(context.Background(), service.CheckoutRequest{
		OrderID:            order.ID,
		SessionID:          testSession,
		PaymentMethodID:    "pm_card",
		PaymentMethodTitle: "Visa 4242",
		Reusable:           true,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if result.Status != domain.PaymentStatusSuccessful {
		t.Errorf("expected status %s, got %s", domain.PaymentStatusSuccessful, result.Status)
	}
	if result.Redirect != confirmationFor(order.ID) {
		t.Errorf("expected redirect %s, got %s", confirmationFor(order.ID), result.Redirect)
	}

	stored := h.orders.GetOrder(order.ID)
	if stored.Status != domain.OrderStatusProcessing {
		t.Errorf("expected order status %s, got %s", domain.OrderStatusProcessing, stored.Status)
	}
	if stored.AuthorizationID != "pi_1" {
		t.Errorf("expected authorization pi_1, got %s", stored.AuthorizationID)
	}
	if stored.ChargeID != "ch_pi_1" {
		t.Errorf("expected charge ch_pi_1, got %s", stored.ChargeID)
	}
	if stored.PaymentMethodTitle != "Visa 4242" {
		t.Errorf("expected method title Visa 4242, got %s", stored.PaymentMethodTitle)
	}
	if !stored.StockReduced || h.orders.Stock("prod-1") != 8 {
		t.Errorf("expected stock reduced to 8, got %d", h.orders.Stock("prod-1"))
	}
	if len(stored.Notes) != 1 {
		t.Errorf("expected 1 order note, got %d", len(stored.Notes))
	}

	req := h.processor.CreateRequests[0]
	if req.Amount != 2500 || req.Currency != "usd" {
		t.Errorf("expected 2500 usd, got %d %s", req.Amount, req.Currency)
	}
	if !req.Confirm {
		t.Error("expected standard checkout to confirm on create")
	}
	if req.ReturnURL != testReturnURL+"?order_id=order-1" {
		t.Errorf("unexpected return url %s", req.ReturnURL)
	}
	if req.Metadata["order_id"] != order.ID || req.Metadata["payment_type"] != "single" {
		t.Errorf("unexpected metadata %v", req.Metadata)
	}

	events := h.publisher.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].OrderStatus != string(domain.OrderStatusProcessing) || events[0].Amount != 2500 {
		t.Errorf("unexpected event %+v", events[0])
	}

	if v := h.sessions.Value(testSession, redis.SessionProcessingOrderID); v != "" {
		t.Errorf("expected processing order to be cleared, got %s", v)
	}
	if h.locks.IsLocked(testSession + ":" + order.CartHash) {
		t.Error("expected checkout lock to be released")
	}
}

func TestStandardCheckout_ResubmitPaidOrder_ReturnsAlreadyPaid(t *testing.T) {
	t.Parallel()

	h := newHarness()
	order := h.addOrder("order-1", "user-1", "25.00", "USD")
	req := service.CheckoutRequest{OrderID: order.ID, SessionID: testSession, PaymentMethodID: "pm_card"}

	if _, err := h.service.ProcessCheckout(context.Background(), req); err != nil {
		t.Fatalf("first checkout failed: %v", err)
	}

	// Retries must not charge again.
	for i := 0; i < 3; i++ {
		result, err := h.service.ProcessCheckout(context.Background(), req)
		if err != nil {
			t.Fatalf("retry %d failed: %v", i, err)
		}
		if !result.AlreadyPaid || result.Status != domain.PaymentStatusSuccessful {
			t.Errorf("retry %d: expected already paid success, got %+v", i, result)
		}
	}

	if h.processor.CreateCallCount != 1 {
		t.Errorf("expected processor to be called once, called %d times", h.processor.CreateCallCount)
	}
	if len(h.publisher.Events()) != 1 {
		t.Errorf("expected 1 event, got %d", len(h.publisher.Events()))
	}
}

func TestStandardCheckout_Validation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		req     service.CheckoutRequest
		wantErr error
	}{
		{
			name:    "missing order id",
			req:     service.CheckoutRequest{SessionID: testSession},
			wantErr: service.ErrInvalidOrderID,
		},
		{
			name:    "missing session",
			req:     service.CheckoutRequest{OrderID: "order-1"},
			wantErr: service.ErrInvalidSessionID,
		},
		{
			name:    "post-redirect flow is not a submission",
			req:     service.CheckoutRequest{OrderID: "order-1", SessionID: testSession, Flow: domain.FlowPostRedirectConfirmation},
			wantErr: service.ErrUnsupportedFlow,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness()
			h.addOrder("order-1", "user-1", "25.00", "USD")

			_, err := h.service.ProcessCheckout(context.Background(), tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestStandardCheckout_MissingMethod_Fails(t *testing.T) {
	t.Parallel()

	h := newHarness()
	order := h.addOrder("order-1", "user-1", "25.00", "USD")

	_, err := h.service.ProcessCheckout(context.Background(), service.CheckoutRequest{
		OrderID:   order.ID,
		SessionID: testSession,
	})

	var failure *domain.PaymentFailureError
	if !errors.As(err, &failure) {
		t.Fatalf("expected payment failure, got %v", err)
	}
	if h.processor.CreateCallCount != 0 {
		t.Error("expected processor not to be called without a method")
	}
}

func TestStandardCheckout_ZeroTotal_VerifiesMethodOnly(t *testing.T) {
	t.Parallel()

	h := newHarness()
	order := h.addOrder("order-1", "user-1", "0", "USD")

	result, err := h.service.ProcessCheckout(context.Background(), service.CheckoutRequest{
		OrderID:         order.ID,
		SessionID:       testSession,
		PaymentMethodID: "pm_card",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != domain.PaymentStatusSuccessful {
		t.Errorf("expected success, got %s", result.Status)
	}
	if h.processor.CreateSetupCallCount != 1 || h.processor.CreateCallCount != 0 {
		t.Errorf("expected one setup and no payment, got %d setups and %d payments",
			h.processor.CreateSetupCallCount, h.processor.CreateCallCount)
	}
	if h.orders.GetOrder(order.ID).Status != domain.OrderStatusProcessing {
		t.Errorf("expected order to be paid, got %s", h.orders.GetOrder(order.ID).Status)
	}
}

func TestStandardCheckout_ManualCapture_PutsOrderOnHold(t *testing.T) {
	t.Parallel()

	h := newHarness(func(d *service.CheckoutDeps) { d.ManualCapture = true })
	h.processor.ConfirmStatus = domain.AuthorizationRequiresCapture
	order := h.addOrder("order-1", "user-1", "25.00", "USD")

	result, err := h.service.ProcessCheckout(context.Background(), service.CheckoutRequest{
		OrderID:         order.ID,
		SessionID:       testSession,
		PaymentMethodID: "pm_card",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != domain.PaymentStatusSuccessful {
		t.Errorf("expected success, got %s", result.Status)
	}
	if h.processor.CreateRequests[0].CaptureMode != "manual" {
		t.Errorf("expected manual capture, got %s", h.processor.CreateRequests[0].CaptureMode)
	}
	if h.orders.GetOrder(order.ID).Status != domain.OrderStatusOnHold {
		t.Errorf("expected order on hold, got %s", h.orders.GetOrder(order.ID).Status)
	}

	events := h.publisher.Events()
	if len(events) != 1 || events[0].OrderStatus != string(domain.OrderStatusOnHold) {
		t.Errorf("expected one on-hold event, got %+v", events)
	}
}

// ──────────────────────────────────────────────
// 2. DECLINES & RATE LIMITING
// ──────────────────────────────────────────────

func TestStandardCheckout_Decline_FailsOrderAndCountsAttempt(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.processor.SetDecline("card_declined", "generic_decline", "Your card was declined.")
	order := h.addOrder("order-1", "user-1", "25.00", "USD")

	result, err := h.service.ProcessCheckout(context.Background(), service.CheckoutRequest{
		OrderID:         order.ID,
		SessionID:       testSession,
		PaymentMethodID: "pm_card",
	})
	if err != nil {
		t.Fatalf("a decline is an outcome, not an error: %v", err)
	}

	if result.Status != domain.PaymentStatusFailed {
		t.Errorf("expected status %s, got %s", domain.PaymentStatusFailed, result.Status)
	}
	if len(result.Messages) != 1 || result.Messages[0] != "Your card was declined." {
		t.Errorf("expected vendor message, got %v", result.Messages)
	}

	stored := h.orders.GetOrder(order.ID)
	if stored.Status != domain.OrderStatusFailed {
		t.Errorf("expected order status %s, got %s", domain.OrderStatusFailed, stored.Status)
	}
	if stored.FailureReason != "generic_decline" {
		t.Errorf("expected failure reason generic_decline, got %s", stored.FailureReason)
	}
	if stored.AuthorizationID != "pi_1" {
		t.Errorf("expected declined authorization to be recorded, got %q", stored.AuthorizationID)
	}

	if h.limiter.Count(testSession) != 1 {
		t.Errorf("expected 1 counted decline, got %d", h.limiter.Count(testSession))
	}
	if h.orders.MarkPaidCallCount != 0 {
		t.Error("expected declined order not to be marked paid")
	}
	if len(h.publisher.Events()) != 0 {
		t.Error("expected no event for a declined payment")
	}
}

func TestStandardCheckout_NonSuspiciousDecline_NotCounted(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.processor.SetDecline("expired_card", "", "Your card has expired.")
	order := h.addOrder("order-1", "user-1", "25.00", "USD")

	result, err := h.service.ProcessCheckout(context.Background(), service.CheckoutRequest{
		OrderID:         order.ID,
		SessionID:       testSession,
		PaymentMethodID: "pm_card",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != domain.PaymentStatusFailed {
		t.Errorf("expected failed status, got %s", result.Status)
	}
	if h.limiter.Count(testSession) != 0 {
		t.Errorf("expected no counted declines, got %d", h.limiter.Count(testSession))
	}
}

func TestStandardCheckout_RepeatedDeclines_RateLimited(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.processor.SetDecline("card_declined", "fraudulent", "Your card was declined.")
	order := h.addOrder("order-1", "user-1", "25.00", "USD")
	req := service.CheckoutRequest{OrderID: order.ID, SessionID: testSession, PaymentMethodID: "pm_card"}

	for i := 0; i < h.limiter.Threshold; i++ {
		if _, err := h.service.ProcessCheckout(context.Background(), req); err != nil {
			t.Fatalf("attempt %d: unexpected error: %v", i, err)
		}
	}

	_, err := h.service.ProcessCheckout(context.Background(), req)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if int(h.processor.CreateCallCount) != h.limiter.Threshold {
		t.Errorf("expected %d processor calls, got %d", h.limiter.Threshold, h.processor.CreateCallCount)
	}
}

func TestStandardCheckout_LimiterUnavailable_FailsOpen(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.limiter.IsLimitedError = ErrMockTimeout
	order := h.addOrder("order-1", "user-1", "25.00", "USD")

	result, err := h.service.ProcessCheckout(context.Background(), service.CheckoutRequest{
		OrderID:         order.ID,
		SessionID:       testSession,
		PaymentMethodID: "pm_card",
	})
	if err != nil {
		t.Fatalf("expected checkout to proceed, got: %v", err)
	}
	if result.Status != domain.PaymentStatusSuccessful {
		t.Errorf("expected success, got %s", result.Status)
	}
}

// ──────────────────────────────────────────────
// 3. DUPLICATE SUBMISSIONS & LOCKING
// ──────────────────────────────────────────────

func TestStandardCheckout_SameCartAlreadyPaid_DeletesDuplicate(t *testing.T) {
	t.Parallel()

	h := newHarness()
	paid := h.addOrder("order-paid", "user-1", "25.00", "USD")
	h.orders.GetOrder(paid.ID).Status = domain.OrderStatusProcessing
	duplicate := h.addOrder("order-2", "user-1", "25.00", "USD")
	_ = h.sessions.Set(context.Background(), testSession, redis.SessionProcessingOrderID, paid.ID)

	result, err := h.service.ProcessCheckout(context.Background(), service.CheckoutRequest{
		OrderID:         duplicate.ID,
		SessionID:       testSession,
		PaymentMethodID: "pm_card",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.AlreadyPaid || result.Status != domain.PaymentStatusSuccessful {
		t.Errorf("expected already paid success, got %+v", result)
	}
	if result.Redirect != confirmationFor(paid.ID) {
		t.Errorf("expected redirect to the paid order, got %s", result.Redirect)
	}
	if h.orders.GetOrder(duplicate.ID) != nil {
		t.Error("expected duplicate order to be deleted")
	}
	if h.processor.CreateCallCount != 0 {
		t.Error("expected processor not to be called for a duplicate")
	}
	if v := h.sessions.Value(testSession, redis.SessionProcessingOrderID); v != "" {
		t.Errorf("expected processing order to be cleared, got %s", v)
	}
}

func TestStandardCheckout_DifferentCart_IsCharged(t *testing.T) {
	t.Parallel()

	h := newHarness()
	paid := h.addOrder("order-paid", "user-1", "10.00", "USD")
	h.orders.GetOrder(paid.ID).Status = domain.OrderStatusProcessing
	next := h.addOrder("order-2", "user-1", "25.00", "USD")
	_ = h.sessions.Set(context.Background(), testSession, redis.SessionProcessingOrderID, paid.ID)

	result, err := h.service.ProcessCheckout(context.Background(), service.CheckoutRequest{
		OrderID:         next.ID,
		SessionID:       testSession,
		PaymentMethodID: "pm_card",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.AlreadyPaid {
		t.Error("expected a new cart to be charged")
	}
	if h.processor.CreateCallCount != 1 {
		t.Errorf("expected 1 processor call, got %d", h.processor.CreateCallCount)
	}
	if h.orders.GetOrder(next.ID).Status != domain.OrderStatusProcessing {
		t.Errorf("expected order paid, got %s", h.orders.GetOrder(next.ID).Status)
	}
}

func TestStandardCheckout_DeclinedRunKeepsProcessingOrder(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.processor.SetDecline("card_declined", "generic_decline", "Your card was declined.")
	order := h.addOrder("order-1", "user-1", "25.00", "USD")

	if _, err := h.service.ProcessCheckout(context.Background(), service.CheckoutRequest{
		OrderID:         order.ID,
		SessionID:       testSession,
		PaymentMethodID: "pm_card",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v := h.sessions.Value(testSession, redis.SessionProcessingOrderID); v != order.ID {
		t.Errorf("expected processing order %s, got %q", order.ID, v)
	}
}

func TestStandardCheckout_LockHeld_ReturnsInProgress(t *testing.T) {
	t.Parallel()

	h := newHarness()
	order := h.addOrder("order-1", "user-1", "25.00", "USD")

	locked, err := h.locks.AcquireCheckoutLock(context.Background(), testSession+":"+order.CartHash, time.Minute)
	if err != nil || !locked {
		t.Fatalf("failed to pre-acquire lock: %v", err)
	}

	_, err = h.service.ProcessCheckout(context.Background(), service.CheckoutRequest{
		OrderID:         order.ID,
		SessionID:       testSession,
		PaymentMethodID: "pm_card",
	})
	if !errors.Is(err, service.ErrCheckoutInProgress) {
		t.Fatalf("expected in-progress error, got %v", err)
	}
	if h.processor.CreateCallCount != 0 {
		t.Error("expected processor not to be called while locked")
	}

	// Another session is not blocked.
	result, err := h.service.ProcessCheckout(context.Background(), service.CheckoutRequest{
		OrderID:         order.ID,
		SessionID:       "sess-2",
		PaymentMethodID: "pm_card",
	})
	if err != nil {
		t.Fatalf("expected other session to proceed, got: %v", err)
	}
	if result.Status != domain.PaymentStatusSuccessful {
		t.Errorf("expected success, got %s", result.Status)
	}
}

func TestStandardCheckout_LockStoreDown_ReturnsError(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.locks.AcquireError = ErrMockTimeout
	order := h.addOrder("order-1", "user-1", "25.00", "USD")

	_, err := h.service.ProcessCheckout(context.Background(), service.CheckoutRequest{
		OrderID:         order.ID,
		SessionID:       testSession,
		PaymentMethodID: "pm_card",
	})
	if !errors.Is(err, ErrMockTimeout) {
		t.Errorf("expected lock store error, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 4. SAVED METHODS
// ──────────────────────────────────────────────

func TestStandardCheckout_SaveMethod_StoresToken(t *testing.T) {
	t.Parallel()

	h := newHarness()
	order := h.addOrder("order-1", "user-1", "25.00", "USD")

	_, err := h.service.ProcessCheckout(context.Background(), service.CheckoutRequest{
		OrderID:            order.ID,
		SessionID:          testSession,
		PaymentMethodID:    "pm_card",
		PaymentMethodTitle: "Visa 4242",
		Reusable:           true,
		SaveMethod:         true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !h.processor.CreateRequests[0].SaveMethod {
		t.Error("expected processor to be asked to keep the method")
	}
	if h.tokens.CountTokens() != 1 {
		t.Fatalf("expected 1 saved token, got %d", h.tokens.CountTokens())
	}
	if got := h.orders.GetOrder(order.ID).PaymentTokenID; got != "tok-1" {
		t.Errorf("expected order token tok-1, got %q", got)
	}
}

func TestStandardCheckout_SaveMethodFlags(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		userID       string
		reusable     bool
		wantPlatform bool
		wantTokens   int32
	}{
		{name: "guest keeps the platform copy only", userID: "", reusable: true, wantPlatform: true, wantTokens: 0},
		{name: "single-use method is never saved", userID: "user-1", reusable: false, wantPlatform: false, wantTokens: 0},
		{name: "registered customer with reusable method", userID: "user-1", reusable: true, wantPlatform: true, wantTokens: 1},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness()
			order := h.addOrder("order-1", tc.userID, "25.00", "USD")

			_, err := h.service.ProcessCheckout(context.Background(), service.CheckoutRequest{
				OrderID:         order.ID,
				SessionID:       testSession,
				PaymentMethodID: "pm_card",
				Reusable:        tc.reusable,
				SaveMethod:      true,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := h.processor.CreateRequests[0].SaveMethod; got != tc.wantPlatform {
				t.Errorf("expected save on processor %v, got %v", tc.wantPlatform, got)
			}
			if h.tokens.AddCallCount != tc.wantTokens {
				t.Errorf("expected %d token saves, got %d", tc.wantTokens, h.tokens.AddCallCount)
			}
		})
	}
}

func TestStandardCheckout_TokenSaveFailure_DoesNotFailPayment(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.tokens.AddError = ErrMockDBConstraint
	order := h.addOrder("order-1", "user-1", "25.00", "USD")

	result, err := h.service.ProcessCheckout(context.Background(), service.CheckoutRequest{
		OrderID:         order.ID,
		SessionID:       testSession,
		PaymentMethodID: "pm_card",
		Reusable:        true,
		SaveMethod:      true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.PaymentStatusSuccessful {
		t.Errorf("expected success, got %s", result.Status)
	}
	if h.orders.GetOrder(order.ID).Status != domain.OrderStatusProcessing {
		t.Error("expected order to be paid")
	}
}

func TestStandardCheckout_SavedTokenOfAnotherCustomer_Rejected(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.tokens.AddToken(&domain.PaymentToken{ID: "tok-9", UserID: "user-2", MethodID: "pm_other", Reusable: true})
	order := h.addOrder("order-1", "user-1", "25.00", "USD")

	_, err := h.service.ProcessCheckout(context.Background(), service.CheckoutRequest{
		OrderID:      order.ID,
		SessionID:    testSession,
		SavedTokenID: "tok-9",
	})
	if !errors.Is(err, service.ErrInvalidPaymentMethod) {
		t.Errorf("expected invalid payment method, got %v", err)
	}
	if h.processor.CreateCallCount != 0 {
		t.Error("expected processor not to be called")
	}
}

func TestStandardCheckout_SavedToken_ChargesStoredMethod(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.tokens.AddToken(&domain.PaymentToken{ID: "tok-1", UserID: "user-1", MethodID: "pm_saved", Title: "Mastercard 4444", Reusable: true})
	order := h.addOrder("order-1", "user-1", "25.00", "USD")

	_, err := h.service.ProcessCheckout(context.Background(), service.CheckoutRequest{
		OrderID:      order.ID,
		SessionID:    testSession,
		SavedTokenID: "tok-1",
		SaveMethod:   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if h.processor.CreateRequests[0].PaymentMethodID != "pm_saved" {
		t.Errorf("expected stored method, got %s", h.processor.CreateRequests[0].PaymentMethodID)
	}
	if h.tokens.AddCallCount != 0 {
		t.Error("expected a saved method not to be saved again")
	}
	stored := h.orders.GetOrder(order.ID)
	if stored.PaymentTokenID != "tok-1" || stored.PaymentMethodTitle != "Mastercard 4444" {
		t.Errorf("unexpected payment details %s %s", stored.PaymentTokenID, stored.PaymentMethodTitle)
	}
}

// ──────────────────────────────────────────────
// 5. PROCESSOR MINIMUMS
// ──────────────────────────────────────────────

func TestStandardCheckout_BelowCachedMinimum_RejectedLocally(t *testing.T) {
	t.Parallel()

	h := newHarness()
	_ = h.minimums.Set(context.Background(), "usd", 50)
	order := h.addOrder("order-1", "user-1", "0.30", "USD")

	_, err := h.service.ProcessCheckout(context.Background(), service.CheckoutRequest{
		OrderID:         order.ID,
		SessionID:       testSession,
		PaymentMethodID: "pm_card",
	})

	var tooSmall *domain.AmountTooSmallError
	if !errors.As(err, &tooSmall) {
		t.Fatalf("expected amount too small, got %v", err)
	}
	if tooSmall.Minimum != 50 {
		t.Errorf("expected minimum 50, got %d", tooSmall.Minimum)
	}
	if h.processor.CreateCallCount != 0 {
		t.Error("expected processor not to be called")
	}
}

func TestStandardCheckout_ProcessorMinimum_IsRemembered(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.processor.CreateErrors = []error{&domain.AmountTooSmallError{Minimum: 50, Currency: "usd"}}
	order := h.addOrder("order-1", "user-1", "0.30", "USD")
	req := service.CheckoutRequest{OrderID: order.ID, SessionID: testSession, PaymentMethodID: "pm_card"}

	if _, err := h.service.ProcessCheckout(context.Background(), req); err == nil {
		t.Fatal("expected first attempt to fail")
	}

	minimum, ok, _ := h.minimums.Get(context.Background(), "usd")
	if !ok || minimum != 50 {
		t.Fatalf("expected cached minimum 50, got %d (%v)", minimum, ok)
	}

	if _, err := h.service.ProcessCheckout(context.Background(), req); err == nil {
		t.Fatal("expected second attempt to fail")
	}
	if h.processor.CreateCallCount != 1 {
		t.Errorf("expected second attempt to be rejected locally, processor called %d times", h.processor.CreateCallCount)
	}
}
