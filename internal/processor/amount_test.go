package processor

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestToMinorUnits(t *testing.T) {
	testCases := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"25.00", "USD", 2500},
		{"0.5", "eur", 50},
		{"12.345", "usd", 1235},
		{"500", "JPY", 500},
		{"499.6", "jpy", 500},
		{"1.234", "KWD", 1230},
		{"1.236", "kwd", 1240},
		{"0", "usd", 0},
	}

	for _, tc := range testCases {
		got := ToMinorUnits(decimal.RequireFromString(tc.amount), tc.currency)
		if got != tc.want {
			t.Errorf("%s %s: expected %d, got %d", tc.amount, tc.currency, tc.want, got)
		}
	}
}

func TestFromMinorUnits(t *testing.T) {
	if got := FromMinorUnits(2500, "usd"); !got.Equal(decimal.RequireFromString("25")) {
		t.Errorf("expected 25, got %s", got)
	}
	if got := FromMinorUnits(500, "jpy"); !got.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected 500, got %s", got)
	}
}

func TestNormalizeCurrency(t *testing.T) {
	if got := NormalizeCurrency(" USD "); got != "usd" {
		t.Errorf("expected usd, got %q", got)
	}
}
