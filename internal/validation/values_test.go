package validation

import (
	"testing"

	"github.com/open-procurement/ecatalog/internal/models"
)

func strPtr(s string) *string { return &s }

func TestCheckValue(t *testing.T) {
	tests := []struct {
		name     string
		dataType models.DataType
		value    string
		wantErr  string
	}{
		{"string accepts anything", models.DataTypeString, "anything at all", ""},
		{"boolean true", models.DataTypeBoolean, "true", ""},
		{"boolean false", models.DataTypeBoolean, "false", ""},
		{"boolean rejects yes", models.DataTypeBoolean, "yes", "Must be either true or false"},
		{"boolean rejects 1", models.DataTypeBoolean, "1", "Must be either true or false"},
		{"integer ok", models.DataTypeInteger, "42", ""},
		{"integer negative", models.DataTypeInteger, "-7", ""},
		{"integer rejects float", models.DataTypeInteger, "3.5", "Must be an integer"},
		{"integer rejects text", models.DataTypeInteger, "foo", "Must be an integer"},
		{"number ok", models.DataTypeNumber, "11.5", ""},
		{"number integer form", models.DataTypeNumber, "11", ""},
		{"number rejects text", models.DataTypeNumber, "foo", "Must be a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckValue(tt.dataType, "expectedValue", tt.value)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.wantErr)
			}
			if got := err.Fields["expectedValue"]; got != tt.wantErr {
				t.Errorf("expected message %q, got %v", tt.wantErr, got)
			}
		})
	}
}

func TestCheckValueUnknownDataType(t *testing.T) {
	err := CheckValue("datetime", "expectedValue", "now")
	if err == nil {
		t.Fatal("expected error for unknown data type")
	}
	if _, ok := err.Fields["dataType"]; !ok {
		t.Errorf("expected error keyed to dataType, got %v", err.Fields)
	}
}

func TestCheckRequirementValueExactlyOne(t *testing.T) {
	tests := []struct {
		name   string
		values RequirementValues
		ok     bool
	}{
		{"none supplied", RequirementValues{}, false},
		{"expected only", RequirementValues{Expected: strPtr("7")}, true},
		{"min only", RequirementValues{Min: strPtr("1")}, true},
		{"min and max", RequirementValues{Min: strPtr("1"), Max: strPtr("2")}, false},
		{"all three", RequirementValues{Expected: strPtr("1"), Min: strPtr("1"), Max: strPtr("2")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRequirementValue(models.DataTypeInteger, tt.values)
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected exactly-one-of error")
			}
			for _, field := range []string{"expectedValue", "minValue", "maxValue"} {
				if err.Fields[field] != exactlyOneMessage {
					t.Errorf("expected %s to carry the exactly-one message, got %v", field, err.Fields[field])
				}
			}
		})
	}
}

func TestIndexedList(t *testing.T) {
	items := []Fields{nil, {"id": "missing"}, nil}
	list := IndexedList(items)

	if len(list) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(list))
	}
	if first, ok := list[0].(Fields); !ok || len(first) != 0 {
		t.Errorf("expected empty object at position 0, got %v", list[0])
	}
	if second, ok := list[1].(Fields); !ok || second["id"] != "missing" {
		t.Errorf("expected error at position 1, got %v", list[1])
	}
	if !AnyErrors(items) {
		t.Error("AnyErrors should report true")
	}
	if AnyErrors([]Fields{nil, {}}) {
		t.Error("AnyErrors should report false for empty maps")
	}
}
