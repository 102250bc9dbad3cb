package standards

import (
	"regexp"

	"github.com/open-procurement/ecatalog/internal/models"
	"github.com/open-procurement/ecatalog/internal/validation"
)

var primaryIDPattern = regexp.MustCompile(`^\d{8}-\d$`)

// ValidateUnit checks a unit fragment against the unit code table and
// enriches it with the canonical name.
func (r *Registry) ValidateUnit(in models.UnitInput) (models.Unit, *validation.Error) {
	if in.Code == "" {
		return models.Unit{}, validation.NewError("code", "Code is required")
	}
	entry, ok := r.LookupUnit(in.Code)
	if !ok {
		return models.Unit{}, validation.NewError("code", "Wrong code")
	}
	return models.Unit{Code: in.Code, Name: entry.Name}, nil
}

// ValidatePrimaryClassification validates a primary classification fragment.
// The scheme is stamped with the canonical value regardless of input and the
// id must match the ДК021 code shape.
func (r *Registry) ValidatePrimaryClassification(in models.ClassificationInput) (models.Classification, *validation.Error) {
	if !primaryIDPattern.MatchString(in.ID) {
		return models.Classification{}, validation.NewError("id", "Wrong id")
	}
	in.Scheme = DefaultClassificationScheme
	return r.validateClassification(in)
}

// ValidateAdditionalClassification validates an additional classification
// fragment against its client-supplied scheme.
func (r *Registry) ValidateAdditionalClassification(in models.ClassificationInput) (models.Classification, *validation.Error) {
	return r.validateClassification(in)
}

func (r *Registry) validateClassification(in models.ClassificationInput) (models.Classification, *validation.Error) {
	if !r.KnownScheme(in.Scheme) {
		return models.Classification{}, validation.NewError("scheme", "Unknown scheme")
	}

	out := models.Classification{
		ID:          in.ID,
		Scheme:      in.Scheme,
		Description: in.Description,
	}
	if r.StandardScheme(in.Scheme) {
		description, ok := r.LookupClassification(in.Scheme, in.ID)
		if !ok {
			return models.Classification{}, validation.NewError("id", "Wrong id")
		}
		out.Description = description
	}
	return out, nil
}
