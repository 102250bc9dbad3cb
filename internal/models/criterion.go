package models

import (
	"time"

	"github.com/google/uuid"
)

// DataType enumerates the value types a criterion can constrain.
type DataType string

const (
	DataTypeString  DataType = "string"
	DataTypeBoolean DataType = "boolean"
	DataTypeInteger DataType = "integer"
	DataTypeNumber  DataType = "number"
)

// Valid reports whether the data type is one of the known choices.
func (d DataType) Valid() bool {
	switch d {
	case DataTypeString, DataTypeBoolean, DataTypeInteger, DataTypeNumber:
		return true
	}
	return false
}

// CriterionStatus represents the lifecycle state of a criterion
type CriterionStatus string

const (
	CriterionActive  CriterionStatus = "active"
	CriterionRetired CriterionStatus = "retired"
)

// Unit is a measurement unit fragment enriched from the unit code table.
type Unit struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Classification is a code-table fragment. The scheme of a primary
// classification is always the canonical ДК021; additional classifications
// carry their own scheme.
type Classification struct {
	ID          string `json:"id"`
	Scheme      string `json:"scheme"`
	Description string `json:"description"`
}

// Criterion is a reusable typed constraint referenced by profile requirements.
type Criterion struct {
	ID                       uuid.UUID       `json:"id"`
	Name                     string          `json:"name,omitempty"`
	NameEng                  string          `json:"nameEng,omitempty"`
	DataType                 DataType        `json:"dataType"`
	MinValue                 string          `json:"minValue,omitempty"`
	MaxValue                 string          `json:"maxValue,omitempty"`
	Unit                     Unit            `json:"unit"`
	Classification           Classification  `json:"classification"`
	AdditionalClassification *Classification `json:"additionalClassification,omitempty"`
	DateModified             time.Time       `json:"dateModified"`
	Status                   CriterionStatus `json:"status"`
}

// CriteriaFilters defines query filters for listing criteria.
// Text filters are case-insensitive substring matches. An empty Status means
// "active only"; StatusAll disables the status filter entirely.
type CriteriaFilters struct {
	Name                       string
	ClassificationID           string
	AdditionalClassificationID string
	UnitCode                   string
	Status                     string
	DateModifiedFrom           *time.Time
	DateModifiedTo             *time.Time
	Ordering                   string
	Limit                      int
	Offset                     int
}

// StatusAll is the special status filter value that disables status filtering.
const StatusAll = "all"
