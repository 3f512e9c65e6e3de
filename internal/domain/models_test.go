package domain

import (
	"encoding/json"
	"testing"
)

func TestStatusMarshalJSON(t *testing.T) {
	cases := []struct {
		status Status
		want   string
	}{
		{StatusVigente, `"1"`},
		{StatusCancelado, `"0"`},
		{StatusDesconocido, "null"},
	}

	for _, tc := range cases {
		raw, err := json.Marshal(tc.status)
		if err != nil {
			t.Fatalf("marshal %v: %v", tc.status, err)
		}
		if string(raw) != tc.want {
			t.Errorf("Marshal(%v) = %s, want %s", tc.status, raw, tc.want)
		}
	}
}

func TestDirection(t *testing.T) {
	if !DirectionEmitidos.IsValid() || !DirectionRecibidos.IsValid() {
		t.Error("canonical directions must be valid")
	}
	if Direction("todos").IsValid() || Direction("").IsValid() {
		t.Error("unknown directions must be rejected")
	}
	if DirectionEmitidos.Label() != "Emitidos" || DirectionRecibidos.Label() != "Recibidos" {
		t.Errorf("labels = %q/%q", DirectionEmitidos.Label(), DirectionRecibidos.Label())
	}
}

func TestVoucherAmountsEncodeAsNumbers(t *testing.T) {
	raw, err := json.Marshal(Voucher{UUID: "U1"})
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["subtotal"].(float64); !ok {
		t.Errorf("subtotal encoded as %T, want a JSON number", decoded["subtotal"])
	}
}
