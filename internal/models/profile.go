package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProfileStatus represents the lifecycle state of a profile
type ProfileStatus string

const (
	ProfileActive ProfileStatus = "active"
	ProfileDraft  ProfileStatus = "draft"
	ProfileHidden ProfileStatus = "hidden"
)

// Valid reports whether the status is one of the known choices.
func (s ProfileStatus) Valid() bool {
	switch s {
	case ProfileActive, ProfileDraft, ProfileHidden:
		return true
	}
	return false
}

// Value is the monetary value of a profile.
type Value struct {
	Amount                string `json:"amount"`
	Currency              string `json:"currency"`
	ValueAddedTaxIncluded bool   `json:"valueAddedTaxIncluded"`
}

// Image is an illustration attached to a profile.
type Image struct {
	Sizes string `json:"sizes,omitempty"`
	URL   string `json:"url"`
}

// Profile is an owner-held, token-gated procurement specification. The access
// token is generated at creation and never re-displayed on reads; AccessToken
// is excluded from serialization and returned exactly once through the create
// envelope.
type Profile struct {
	ID                       uuid.UUID         `json:"id"`
	AccessToken              uuid.UUID         `json:"-"`
	Author                   string            `json:"author"`
	Status                   ProfileStatus     `json:"status"`
	Title                    string            `json:"title"`
	Description              string            `json:"description,omitempty"`
	Classification           Classification    `json:"classification"`
	AdditionalClassification []Classification  `json:"additionalClassification"`
	Unit                     Unit              `json:"unit"`
	Value                    Value             `json:"value"`
	Images                   []Image           `json:"images"`
	Criteria                 []ProfileCriteria `json:"criteria"`
	DateModified             time.Time         `json:"dateModified"`
}

// ProfileCriteria is an owned tree node bundling requirement groups under a
// profile. Identified by id for in-place updates, created fresh otherwise.
type ProfileCriteria struct {
	ID                uuid.UUID          `json:"id"`
	Title             string             `json:"title"`
	Description       string             `json:"description,omitempty"`
	RequirementGroups []RequirementGroup `json:"requirementGroups"`
}

// RequirementGroup groups requirements under a profile criteria node.
type RequirementGroup struct {
	ID           uuid.UUID     `json:"id"`
	Description  string        `json:"description,omitempty"`
	Requirements []Requirement `json:"requirements"`
}

// Requirement constrains a referenced criterion. Exactly one of
// ExpectedValue/MinValue/MaxValue is set, and it must parse according to the
// referenced criterion's data type.
type Requirement struct {
	ID                uuid.UUID `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	RelatedCriteriaID uuid.UUID `json:"relatedCriteria_id"`
	ExpectedValue     *string   `json:"expectedValue,omitempty"`
	MinValue          *string   `json:"minValue,omitempty"`
	MaxValue          *string   `json:"maxValue,omitempty"`
}

// ProfileFilters defines query filters for listing profiles.
type ProfileFilters struct {
	ClassificationID          string
	ClassificationDescription string
	Author                    string
	Status                    string
	RelatedCriteriaID         *uuid.UUID
	Ordering                  string
	Limit                     int
	Offset                    int
}

// HexID renders a UUID in the 32-character hex form used throughout the API.
func HexID(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}

// ParseHexID accepts both the dashed and the 32-char hex UUID forms.
func ParseHexID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}
