package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Bool accepts JSON booleans and the literal strings "true"/"false". The
// upstream clients send both forms for valueAddedTaxIncluded.
type Bool bool

func (b *Bool) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if strings.HasPrefix(s, `"`) {
		var unquoted string
		if err := json.Unmarshal(data, &unquoted); err != nil {
			return err
		}
		s = unquoted
	}
	switch s {
	case "true":
		*b = true
	case "false":
		*b = false
	case "null":
	default:
		return fmt.Errorf("invalid boolean %q", s)
	}
	return nil
}

// ClassificationInput is a classification fragment as supplied by a client.
// For the primary classification the scheme is server-stamped and any supplied
// value is ignored; the description is enriched from the code table.
type ClassificationInput struct {
	ID          string `json:"id"`
	Scheme      string `json:"scheme"`
	Description string `json:"description"`
}

// UnitInput is a unit fragment as supplied by a client. The name is enriched
// from the unit code table.
type UnitInput struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ValueInput is the monetary value of a profile as supplied by a client.
// Currency defaults to UAH and valueAddedTaxIncluded to true when absent.
type ValueInput struct {
	Amount                *Number `json:"amount"`
	Currency              string  `json:"currency"`
	ValueAddedTaxIncluded *Bool   `json:"valueAddedTaxIncluded"`
}

// CriterionCreate is the POST /criteria payload. The value bounds stay raw so
// a non-numeric bound surfaces as a field error instead of failing the body
// decode.
type CriterionCreate struct {
	Name                     *string              `json:"name"`
	NameEng                  *string              `json:"nameEng"`
	DataType                 string               `json:"dataType"`
	MinValue                 json.RawMessage      `json:"minValue"`
	MaxValue                 json.RawMessage      `json:"maxValue"`
	Classification           *ClassificationInput `json:"classification"`
	AdditionalClassification *ClassificationInput `json:"additionalClassification"`
	Unit                     *UnitInput           `json:"unit"`
}

// RequirementNode is one requirement entry of an incoming profile tree.
// A nil field was absent from the payload; id presence makes the other fields
// optional (a bare id references the persisted node unchanged).
type RequirementNode struct {
	ID                *string `json:"id"`
	Title             *string `json:"title"`
	Description       *string `json:"description"`
	RelatedCriteriaID *string `json:"relatedCriteria_id"`
	ExpectedValue     *string `json:"expectedValue"`
	MinValue          *string `json:"minValue"`
	MaxValue          *string `json:"maxValue"`
}

// RequirementGroupNode is one requirement group entry of an incoming tree.
// A nil Requirements means the collection was absent and the persisted set is
// kept; a present collection fully replaces the persisted set.
type RequirementGroupNode struct {
	ID           *string            `json:"id"`
	Description  *string            `json:"description"`
	Requirements *[]RequirementNode `json:"requirements"`
}

// CriteriaNode is one profile-criteria entry of an incoming tree.
type CriteriaNode struct {
	ID                *string                 `json:"id"`
	Title             *string                 `json:"title"`
	Description       *string                 `json:"description"`
	RequirementGroups *[]RequirementGroupNode `json:"requirementGroups"`
}

// ProfileCreate is the POST /profiles payload.
type ProfileCreate struct {
	Title                    *string               `json:"title"`
	Description              *string               `json:"description"`
	Classification           *ClassificationInput  `json:"classification"`
	AdditionalClassification []ClassificationInput `json:"additionalClassification"`
	Unit                     *UnitInput            `json:"unit"`
	Value                    *ValueInput           `json:"value"`
	Images                   []Image               `json:"images"`
	Criteria                 []CriteriaNode        `json:"criteria"`
}

// ProfilePatch is the decoded `data` object of a PATCH /profiles/{id} body.
// Unknown-key rejection happens before decoding, against ProfileWritableKeys.
type ProfilePatch struct {
	Title                    *string               `json:"title"`
	Description              *string               `json:"description"`
	Status                   *string               `json:"status"`
	Classification           *ClassificationInput  `json:"classification"`
	AdditionalClassification []ClassificationInput `json:"additionalClassification"`
	Unit                     *UnitInput            `json:"unit"`
	Value                    *ValueInput           `json:"value"`
	Images                   []Image               `json:"images"`
	Criteria                 []CriteriaNode        `json:"criteria"`
}

// ProfileWritableKeys is the accepted top-level key set of the patch `data`
// object. Keys outside this set fail the whole request.
var ProfileWritableKeys = map[string]bool{
	"title":                    true,
	"description":              true,
	"status":                   true,
	"classification":           true,
	"additionalClassification": true,
	"unit":                     true,
	"value":                    true,
	"images":                   true,
	"criteria":                 true,
}

// AccessData identifies the profile owner on mutation requests.
type AccessData struct {
	Owner string `json:"owner"`
	Token string `json:"token"`
}
