package logschema

import "testing"

func TestValidate(t *testing.T) {
	err := Validate("cycle_success", map[string]interface{}{
		"market":        "XLM-LIBERTAD",
		"rate":          0.08,
		"ratio":         0.52,
		"base_balance":  1200.0,
		"quote_balance": 300.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = Validate("cycle_success", map[string]interface{}{
		"market": "XLM-LIBERTAD",
	})
	if err == nil {
		t.Fatalf("expected error for missing fields")
	}
}

func TestKnownEvents(t *testing.T) {
	names := Known()
	if len(names) == 0 {
		t.Fatalf("expected non-empty schema list")
	}
	found := false
	for _, n := range names {
		if n == "cycle_error" {
			found = true
		}
	}
	if !found {
		t.Fatalf("cycle_error not found in schemas")
	}
}
