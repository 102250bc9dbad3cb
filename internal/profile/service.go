package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/open-procurement/ecatalog/internal/models"
	"github.com/open-procurement/ecatalog/internal/standards"
	"github.com/open-procurement/ecatalog/internal/storage"
	"github.com/open-procurement/ecatalog/internal/validation"
)

var (
	// ErrNotFound is returned when a profile id does not resolve.
	ErrNotFound = errors.New("profile not found")
	// ErrMissingAccess is returned when a mutation carries no access data.
	ErrMissingAccess = errors.New("missing access data")
	// ErrWrongAccess is returned when the access data does not match the
	// profile's owner and token.
	ErrWrongAccess = errors.New("wrong access data")
)

const defaultCurrency = "UAH"

// Service manages profiles: creation with a generated access token, the
// token-gated merge patch over the criteria tree, and the soft destroy.
// Mutations run inside a transaction holding a row lock on the profile, so
// concurrent writers serialize and a failing validation rolls everything
// back.
type Service struct {
	repo      storage.Repository
	standards *standards.Registry
	criteria  CriterionResolver
	now       func() time.Time
}

// NewService creates a profile service.
func NewService(repo storage.Repository, registry *standards.Registry, criteria CriterionResolver) *Service {
	return &Service{
		repo:      repo,
		standards: registry,
		criteria:  criteria,
		now:       time.Now,
	}
}

// Create validates and stores a new profile owned by author. The returned
// profile carries the freshly generated access token; the HTTP layer exposes
// it exactly once through the create envelope.
func (s *Service) Create(ctx context.Context, author string, in models.ProfileCreate) (*models.Profile, error) {
	fields := validation.Fields{}

	p := models.Profile{
		ID:                       uuid.New(),
		AccessToken:              uuid.New(),
		Author:                   author,
		Status:                   models.ProfileActive,
		AdditionalClassification: []models.Classification{},
		Images:                   []models.Image{},
		Criteria:                 []models.ProfileCriteria{},
		DateModified:             s.now(),
	}

	if in.Title == nil || *in.Title == "" {
		fields["title"] = requiredMessage
	} else {
		p.Title = *in.Title
	}
	if in.Description != nil {
		p.Description = *in.Description
	}

	if in.Classification == nil {
		fields["classification"] = requiredMessage
	} else if classification, err := s.standards.ValidatePrimaryClassification(*in.Classification); err != nil {
		fields["classification"] = err.Fields
	} else {
		p.Classification = classification
	}

	if additional, errs := s.validateAdditional(in.AdditionalClassification); errs != nil {
		fields["additionalClassification"] = errs
	} else {
		p.AdditionalClassification = additional
	}

	if in.Unit == nil {
		fields["unit"] = requiredMessage
	} else if unit, err := s.standards.ValidateUnit(*in.Unit); err != nil {
		fields["unit"] = err.Fields
	} else {
		p.Unit = unit
	}

	if in.Value == nil {
		fields["value"] = requiredMessage
	} else if err := applyValue(&p.Value, in.Value); err != nil {
		fields["value"] = err.Fields
	}

	if in.Images != nil {
		p.Images = in.Images
	}

	if len(in.Criteria) > 0 {
		reconciler := NewReconciler(s.repo, s.criteria)
		criteria, err := reconciler.Reconcile(ctx, p.ID, in.Criteria)
		if err != nil {
			var verr *validation.Error
			if errors.As(err, &verr) {
				fields.Merge(verr.Fields)
			} else {
				return nil, err
			}
		} else {
			p.Criteria = criteria
		}
	}

	if len(fields) > 0 {
		return nil, validation.NewFieldsError(fields)
	}

	if err := s.repo.CreateProfile(ctx, &p); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return &p, nil
}

// Get returns a profile by id with its full criteria tree.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := s.repo.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// List returns profiles matching the filters plus the total match count
// ignoring pagination.
func (s *Service) List(ctx context.Context, filters models.ProfileFilters) ([]*models.Profile, int, error) {
	profiles, err := s.repo.ListProfiles(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountProfiles(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

// Patch applies a token-gated merge patch. Unknown top-level keys fail the
// whole request naming every unrecognized key; a present criteria collection
// is reconciled into the persisted tree. All of it happens under a row lock
// and nothing partial persists.
func (s *Service) Patch(ctx context.Context, id uuid.UUID, access *models.AccessData, data json.RawMessage) (*models.Profile, error) {
	patch, err := decodePatch(data)
	if err != nil {
		return nil, err
	}

	var result *models.Profile
	err = s.repo.InTx(ctx, func(tx storage.Repository) error {
		p, err := s.lockAndVerify(ctx, tx, id, access)
		if err != nil {
			return err
		}

		fields := validation.Fields{}

		if patch.Title != nil {
			p.Title = *patch.Title
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.Status != nil {
			status := models.ProfileStatus(*patch.Status)
			if !status.Valid() {
				fields["status"] = fmt.Sprintf("%q is not a valid choice", *patch.Status)
			} else {
				p.Status = status
			}
		}

		if patch.Classification != nil {
			if classification, err := s.standards.ValidatePrimaryClassification(*patch.Classification); err != nil {
				fields["classification"] = err.Fields
			} else {
				p.Classification = classification
			}
		}
		if patch.AdditionalClassification != nil {
			if additional, errs := s.validateAdditional(patch.AdditionalClassification); errs != nil {
				fields["additionalClassification"] = errs
			} else {
				p.AdditionalClassification = additional
			}
		}
		if patch.Unit != nil {
			if unit, err := s.standards.ValidateUnit(*patch.Unit); err != nil {
				fields["unit"] = err.Fields
			} else {
				p.Unit = unit
			}
		}
		if patch.Value != nil {
			if err := applyValue(&p.Value, patch.Value); err != nil {
				fields["value"] = err.Fields
			}
		}
		if patch.Images != nil {
			p.Images = patch.Images
		}

		if patch.Criteria != nil {
			reconciler := NewReconciler(tx, s.criteria)
			criteria, err := reconciler.Reconcile(ctx, p.ID, patch.Criteria)
			if err != nil {
				var verr *validation.Error
				if errors.As(err, &verr) {
					fields.Merge(verr.Fields)
				} else {
					return err
				}
			} else {
				p.Criteria = criteria
			}
		}

		if len(fields) > 0 {
			return validation.NewFieldsError(fields)
		}

		p.DateModified = s.now()
		if err := tx.UpdateProfile(ctx, p); err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Destroy soft-deletes a profile: access-gated like patch, the status moves
// to hidden and the full representation is returned. Repeating the call is a
// no-op beyond the dateModified bump.
func (s *Service) Destroy(ctx context.Context, id uuid.UUID, access *models.AccessData) (*models.Profile, error) {
	var result *models.Profile
	err := s.repo.InTx(ctx, func(tx storage.Repository) error {
		p, err := s.lockAndVerify(ctx, tx, id, access)
		if err != nil {
			return err
		}

		p.Status = models.ProfileHidden
		p.DateModified = s.now()
		if err := tx.UpdateProfile(ctx, p); err != nil {
			return fmt.Errorf("failed to hide profile: %w", err)
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// VerifyAccess checks the access envelope against the profile's owner and
// token. The token is accepted in both the hex and the dashed UUID form.
func VerifyAccess(p *models.Profile, access *models.AccessData) error {
	if access == nil {
		return ErrMissingAccess
	}
	token, err := models.ParseHexID(access.Token)
	if err != nil || access.Owner != p.Author || token != p.AccessToken {
		return ErrWrongAccess
	}
	return nil
}

func (s *Service) lockAndVerify(ctx context.Context, tx storage.Repository, id uuid.UUID, access *models.AccessData) (*models.Profile, error) {
	if err := tx.LockProfile(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p, err := tx.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	if err := VerifyAccess(p, access); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) validateAdditional(inputs []models.ClassificationInput) ([]models.Classification, []any) {
	if inputs == nil {
		return nil, nil
	}
	itemErrs := make([]validation.Fields, len(inputs))
	result := make([]models.Classification, 0, len(inputs))
	for i, in := range inputs {
		classification, err := s.standards.ValidateAdditionalClassification(in)
		if err != nil {
			itemErrs[i] = err.Fields
			continue
		}
		result = append(result, classification)
	}
	if validation.AnyErrors(itemErrs) {
		return nil, validation.IndexedList(itemErrs)
	}
	return result, nil
}

// applyValue merges a value fragment onto the stored value, defaulting the
// currency and VAT flag on first set.
func applyValue(value *models.Value, in *models.ValueInput) *validation.Error {
	fresh := value.Amount == ""
	if in.Amount != nil {
		value.Amount = in.Amount.String()
	} else if fresh {
		return validation.NewFieldsError(validation.Fields{"amount": requiredMessage})
	}
	if in.Currency != "" {
		value.Currency = in.Currency
	} else if value.Currency == "" {
		value.Currency = defaultCurrency
	}
	if in.ValueAddedTaxIncluded != nil {
		value.ValueAddedTaxIncluded = bool(*in.ValueAddedTaxIncluded)
	} else if fresh {
		value.ValueAddedTaxIncluded = true
	}
	return nil
}

// decodePatch checks the writable key set and decodes the data object.
func decodePatch(data json.RawMessage) (*models.ProfilePatch, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, validation.NewError("data", "Expected an object")
	}

	var unknown []string
	for key := range raw {
		if !models.ProfileWritableKeys[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, validation.NewError(
			"detail", "Got unknown fields for PATCH: "+strings.Join(unknown, ", "),
		)
	}

	var patch models.ProfilePatch
	if err := json.Unmarshal(data, &patch); err != nil {
		return nil, validation.NewError("data", "Malformed request data")
	}
	return &patch, nil
}
