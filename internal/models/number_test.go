package models

import (
	"encoding/json"
	"testing"
)

func TestNumberUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare integer", `11`, "11", false},
		{"bare float", `11.5`, "11.5", false},
		{"quoted integer", `"11"`, "11", false},
		{"quoted float", `"0.95"`, "0.95", false},
		{"negative", `-3`, "-3", false},
		{"text", `"foo"`, "", true},
		{"bool", `true`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Number
			err := json.Unmarshal([]byte(tt.input), &n)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s, got %q", tt.input, n)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, n.String())
			}
		})
	}
}

func TestBoolUnmarshal(t *testing.T) {
	for _, input := range []string{`true`, `"true"`} {
		var b Bool
		if err := json.Unmarshal([]byte(input), &b); err != nil {
			t.Fatalf("unmarshal %s: %v", input, err)
		}
		if !bool(b) {
			t.Errorf("expected true for %s", input)
		}
	}

	var b Bool
	if err := json.Unmarshal([]byte(`"maybe"`), &b); err == nil {
		t.Error("expected error for invalid boolean")
	}
}

func TestHexID(t *testing.T) {
	id, err := ParseHexID("9a750cc1bbf94b3cafdfa3a64ed39ae5")
	if err != nil {
		t.Fatalf("ParseHexID: %v", err)
	}
	if got := HexID(id); got != "9a750cc1bbf94b3cafdfa3a64ed39ae5" {
		t.Errorf("round trip mismatch: %s", got)
	}

	dashed, err := ParseHexID("9a750cc1-bbf9-4b3c-afdf-a3a64ed39ae5")
	if err != nil {
		t.Fatalf("ParseHexID dashed: %v", err)
	}
	if dashed != id {
		t.Error("dashed and hex forms should parse to the same id")
	}
}
