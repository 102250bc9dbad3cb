package validation

import (
	"strconv"

	"github.com/open-procurement/ecatalog/internal/models"
)

// MinMaxMessage is the error raised when a minimum bound exceeds the maximum.
const MinMaxMessage = "minValue can`t be greater than maxValue"

const exactlyOneMessage = "Exactly one of expectedValue, minValue, maxValue is required"

// RequirementValues holds the three alternative value fields of a requirement.
// Exactly one must be non-nil for the requirement to be valid.
type RequirementValues struct {
	Expected *string
	Min      *string
	Max      *string
}

// Supplied returns the name and content of the single supplied field.
// ok is false when zero or more than one field is set.
func (v RequirementValues) Supplied() (field, value string, ok bool) {
	count := 0
	if v.Expected != nil {
		count++
		field, value = "expectedValue", *v.Expected
	}
	if v.Min != nil {
		count++
		field, value = "minValue", *v.Min
	}
	if v.Max != nil {
		count++
		field, value = "maxValue", *v.Max
	}
	return field, value, count == 1
}

// CheckRequirementValue validates the value fields of a requirement against
// the referenced criterion's data type. Rule order: first the exactly-one-of
// constraint (violations name all three fields), then the type check on the
// single supplied field.
func CheckRequirementValue(dataType models.DataType, values RequirementValues) *Error {
	field, raw, ok := values.Supplied()
	if !ok {
		return NewFieldsError(Fields{
			"expectedValue": exactlyOneMessage,
			"minValue":      exactlyOneMessage,
			"maxValue":      exactlyOneMessage,
		})
	}
	return CheckValue(dataType, field, raw)
}

// CheckValue validates a single textual value against a criterion data type.
// Errors are keyed to the offending field name.
func CheckValue(dataType models.DataType, field, raw string) *Error {
	switch dataType {
	case models.DataTypeString:
		return nil
	case models.DataTypeBoolean:
		if raw != "true" && raw != "false" {
			return NewError(field, "Must be either true or false")
		}
	case models.DataTypeInteger:
		if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
			return NewError(field, "Must be an integer")
		}
	case models.DataTypeNumber:
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return NewError(field, "Must be a number")
		}
	default:
		return NewError("dataType", "Unknown data type")
	}
	return nil
}
