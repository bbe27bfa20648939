package processor

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v74"

	"checkout/internal/domain"
)

// Documented processor minimums in minor units, used when the rejection
// message does not carry a parsable amount.
var defaultMinimums = map[string]int64{
	"usd": 50, "aed": 200, "aud": 50, "bgn": 100, "brl": 50, "cad": 50,
	"chf": 50, "czk": 1500, "dkk": 250, "eur": 50, "gbp": 30, "hkd": 400,
	"huf": 17500, "inr": 50, "jpy": 50, "mxn": 1000, "myr": 200, "nok": 300,
	"nzd": 50, "pln": 200, "ron": 200, "sek": 300, "sgd": 50, "thb": 1000,
}

var minimumPattern = regexp.MustCompile(`at least\D*?(\d[\d,]*(?:\.\d+)?)`)

// translateError converts a vendor error into a domain error. Card errors
// that carry an authorization are handled by the caller before this point.
func translateError(err error, currency string) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return err
	}

	if stripeErr.Code == stripe.ErrorCodeAmountTooSmall {
		return &domain.AmountTooSmallError{
			Minimum:  parseMinimum(stripeErr.Msg, currency),
			Currency: NormalizeCurrency(currency),
		}
	}

	if stripeErr.Type == stripe.ErrorTypeCard || stripeErr.Type == stripe.ErrorTypeInvalidRequest {
		return &domain.PaymentFailureError{
			Code:    reasonOf(stripeErr),
			Message: stripeErr.Msg,
		}
	}

	return &domain.PaymentFailureError{Code: string(stripeErr.Code)}
}

// parseMinimum extracts the minimum from messages such as
// "Amount must be at least $0.50 usd".
func parseMinimum(message, currency string) int64 {
	if m := minimumPattern.FindStringSubmatch(message); m != nil {
		if amount, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "")); err == nil && amount.IsPositive() {
			return ToMinorUnits(amount, currency)
		}
	}
	return defaultMinimums[NormalizeCurrency(currency)]
}

func reasonOf(stripeErr *stripe.Error) string {
	if stripeErr.DeclineCode != "" {
		return string(stripeErr.DeclineCode)
	}
	return string(stripeErr.Code)
}

func authorizationError(stripeErr *stripe.Error) *domain.AuthorizationError {
	if stripeErr == nil {
		return nil
	}
	return &domain.AuthorizationError{
		Code:        string(stripeErr.Code),
		DeclineCode: string(stripeErr.DeclineCode),
		Message:     stripeErr.Msg,
	}
}
