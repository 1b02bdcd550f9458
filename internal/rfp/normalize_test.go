package rfp

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  any
		expect *float64
	}{
		{name: "nil", input: nil, expect: nil},
		{name: "number", input: 1250.5, expect: ptr(1250.5)},
		{name: "currency and separators", input: "$1,250.00", expect: ptr(1250.0)},
		{name: "currency code", input: "USD 12,500", expect: ptr(12500.0)},
		{name: "no digits", input: "to be confirmed", expect: nil},
		{name: "unsupported type", input: true, expect: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParseAmount(tt.input)
			if (got == nil) != (tt.expect == nil) {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
			if got != nil && *got != *tt.expect {
				t.Fatalf("expected %v, got %v", *tt.expect, *got)
			}
		})
	}
}

func TestParseDays(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  any
		expect *int
	}{
		{input: nil, expect: nil},
		{input: 14.0, expect: ptr(14)},
		{input: "two weeks", expect: ptr(14)},
		{input: "2 weeks", expect: ptr(14)},
		{input: "1 month", expect: ptr(30)},
		{input: "within 10 business days", expect: ptr(10)},
		{input: "14-day delivery", expect: ptr(14)},
		{input: "a week", expect: ptr(7)},
		{input: "Immediate", expect: ptr(1)},
		{input: "21", expect: ptr(21)},
		{input: "", expect: nil},
		{input: "to be agreed", expect: nil},
		{input: 1e20, expect: nil},
		{input: -5.0, expect: nil},
		{input: 0.0, expect: nil},
		{input: -3, expect: nil},
		{input: 30, expect: ptr(30)},
		{input: "999999999 months", expect: nil},
		{input: float64(MaxDeliveryDays), expect: ptr(MaxDeliveryDays)},
	}

	for _, tt := range tests {
		got := ParseDays(tt.input)
		if (got == nil) != (tt.expect == nil) {
			t.Fatalf("%v: expected %v, got %v", tt.input, tt.expect, got)
		}
		if got != nil && *got != *tt.expect {
			t.Fatalf("%v: expected %d, got %d", tt.input, *tt.expect, *got)
		}
	}
}

func TestPaymentTermsJSON(t *testing.T) {
	t.Parallel()

	single, err := json.Marshal(PaymentTerms{"Net 30"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(single) != `"Net 30"` {
		t.Fatalf("unexpected single encoding: %s", single)
	}

	empty, _ := json.Marshal(PaymentTerms(nil))
	if string(empty) != "null" {
		t.Fatalf("expected null, got %s", empty)
	}

	var decoded PaymentTerms
	if err := json.Unmarshal([]byte(`["COD", " ", "Net 30"]`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != 2 || decoded[1] != "Net 30" {
		t.Fatalf("unexpected terms: %v", decoded)
	}
}

func TestVendorStatusAdvance(t *testing.T) {
	t.Parallel()

	if got := StatusPending.Advance(StatusSent); got != StatusSent {
		t.Fatalf("expected SENT, got %s", got)
	}
	if got := StatusSent.Advance(StatusResponded); got != StatusResponded {
		t.Fatalf("expected RESPONDED, got %s", got)
	}
	if got := StatusResponded.Advance(StatusSent); got != StatusResponded {
		t.Fatalf("expected RESPONDED to be sticky, got %s", got)
	}
	if got := StatusSent.Advance(StatusPending); got != StatusSent {
		t.Fatalf("expected no transition back to PENDING, got %s", got)
	}
	if got := VendorStatus("").Advance(StatusSent); got != StatusSent {
		t.Fatalf("expected unknown state to take next, got %s", got)
	}
}
