package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/open-procurement/ecatalog/internal/cache"
	"github.com/open-procurement/ecatalog/internal/models"
	"github.com/open-procurement/ecatalog/internal/standards"
	"github.com/open-procurement/ecatalog/internal/storage"
	"github.com/open-procurement/ecatalog/internal/validation"
)

// ErrNotFound is returned when a criterion id does not resolve.
var ErrNotFound = errors.New("criterion not found")

const requiredMessage = "This field is required."

// patchableFields is the writable field set of PATCH /criteria/{id}. Any
// other key in the payload fails the whole patch.
var patchableFields = map[string]bool{
	"name":     true,
	"nameEng":  true,
	"minValue": true,
	"maxValue": true,
	"status":   true,
}

// Service manages the criteria catalog: creation, listing, the writable-
// subset patch and the soft retire lifecycle.
type Service struct {
	repo      storage.Repository
	standards *standards.Registry
	cache     *cache.CriterionCache
	now       func() time.Time
}

// NewService creates a criteria service. The cache may be nil.
func NewService(repo storage.Repository, registry *standards.Registry, criterionCache *cache.CriterionCache) *Service {
	return &Service{
		repo:      repo,
		standards: registry,
		cache:     criterionCache,
		now:       time.Now,
	}
}

// Create validates and stores a new criterion with a generated id and active
// status. Classification and unit fragments are enriched from the reference
// tables; all field errors are collected before failing.
func (s *Service) Create(ctx context.Context, in models.CriterionCreate) (*models.Criterion, error) {
	fields := validation.Fields{}

	dataType := models.DataType(in.DataType)
	if in.DataType == "" {
		fields["dataType"] = requiredMessage
	} else if !dataType.Valid() {
		fields["dataType"] = fmt.Sprintf("%q is not a valid choice", in.DataType)
	}

	criterion := models.Criterion{
		ID:           uuid.New(),
		DataType:     dataType,
		DateModified: s.now(),
		Status:       models.CriterionActive,
	}
	if in.Name != nil {
		criterion.Name = *in.Name
	}
	if in.NameEng != nil {
		criterion.NameEng = *in.NameEng
	}

	if in.Classification == nil {
		fields["classification"] = requiredMessage
	} else if classification, err := s.standards.ValidatePrimaryClassification(*in.Classification); err != nil {
		fields["classification"] = err.Fields
	} else {
		criterion.Classification = classification
	}

	if in.AdditionalClassification != nil {
		if additional, err := s.standards.ValidateAdditionalClassification(*in.AdditionalClassification); err != nil {
			fields["additionalClassification"] = err.Fields
		} else {
			criterion.AdditionalClassification = &additional
		}
	}

	if in.Unit == nil {
		fields["unit"] = requiredMessage
	} else if unit, err := s.standards.ValidateUnit(*in.Unit); err != nil {
		fields["unit"] = err.Fields
	} else {
		criterion.Unit = unit
	}

	if bound, ok := decodeBound(in.MinValue); !ok {
		fields["minValue"] = "Must be a number"
	} else {
		criterion.MinValue = bound
	}
	if bound, ok := decodeBound(in.MaxValue); !ok {
		fields["maxValue"] = "Must be a number"
	} else {
		criterion.MaxValue = bound
	}
	if err := checkBounds(criterion.MinValue, criterion.MaxValue); err != nil {
		fields.Merge(err.Fields)
	}

	if len(fields) > 0 {
		return nil, validation.NewFieldsError(fields)
	}

	if err := s.repo.CreateCriterion(ctx, &criterion); err != nil {
		return nil, fmt.Errorf("failed to create criterion: %w", err)
	}
	return &criterion, nil
}

// Retrieve returns a criterion by id, consulting the cache first.
func (s *Service) Retrieve(ctx context.Context, id uuid.UUID) (*models.Criterion, error) {
	if cached := s.cache.Get(ctx, id); cached != nil {
		return cached, nil
	}

	criterion, err := s.repo.GetCriterion(ctx, id)
	if err != nil {
		return nil, err
	}
	if criterion == nil {
		return nil, ErrNotFound
	}

	s.cache.Set(ctx, criterion)
	return criterion, nil
}

// List returns criteria matching the filters. An empty status filter narrows
// to active criteria; the special value "all" disables status filtering.
func (s *Service) List(ctx context.Context, filters models.CriteriaFilters) ([]*models.Criterion, error) {
	return s.repo.ListCriteria(ctx, filters)
}

// Patch applies a partial update restricted to the writable field subset.
// Unknown keys fail the whole patch, naming every unrecognized key; nothing
// partially applies.
func (s *Service) Patch(ctx context.Context, id uuid.UUID, payload map[string]json.RawMessage) (*models.Criterion, error) {
	var unknown []string
	for key := range payload {
		if !patchableFields[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, validation.NewError(
			"detail", "Got unknown fields for PATCH: "+strings.Join(unknown, ", "),
		)
	}

	criterion, err := s.repo.GetCriterion(ctx, id)
	if err != nil {
		return nil, err
	}
	if criterion == nil {
		return nil, ErrNotFound
	}

	fields := validation.Fields{}

	if raw, ok := payload["name"]; ok {
		if err := json.Unmarshal(raw, &criterion.Name); err != nil {
			fields["name"] = "Must be a string"
		}
	}
	if raw, ok := payload["nameEng"]; ok {
		if err := json.Unmarshal(raw, &criterion.NameEng); err != nil {
			fields["nameEng"] = "Must be a string"
		}
	}
	if raw, ok := payload["minValue"]; ok {
		var n models.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			fields["minValue"] = "Must be a number"
		} else {
			criterion.MinValue = n.String()
		}
	}
	if raw, ok := payload["maxValue"]; ok {
		var n models.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			fields["maxValue"] = "Must be a number"
		} else {
			criterion.MaxValue = n.String()
		}
	}
	if raw, ok := payload["status"]; ok {
		var status string
		if err := json.Unmarshal(raw, &status); err != nil {
			fields["status"] = "Must be a string"
		} else if err := applyStatus(criterion, models.CriterionStatus(status)); err != nil {
			fields.Merge(err.Fields)
		}
	}

	if err := checkBounds(criterion.MinValue, criterion.MaxValue); err != nil {
		fields.Merge(err.Fields)
	}
	if len(fields) > 0 {
		return nil, validation.NewFieldsError(fields)
	}

	criterion.DateModified = s.now()
	if err := s.repo.UpdateCriterion(ctx, criterion); err != nil {
		return nil, fmt.Errorf("failed to patch criterion: %w", err)
	}
	s.cache.Invalidate(ctx, id)
	return criterion, nil
}

// Retire soft-deletes a criterion. The row is never removed; the status
// moves to retired and stays there on repeated calls.
func (s *Service) Retire(ctx context.Context, id uuid.UUID) (*models.Criterion, error) {
	criterion, err := s.repo.GetCriterion(ctx, id)
	if err != nil {
		return nil, err
	}
	if criterion == nil {
		return nil, ErrNotFound
	}

	if criterion.Status != models.CriterionRetired {
		criterion.Status = models.CriterionRetired
		criterion.DateModified = s.now()
		if err := s.repo.UpdateCriterion(ctx, criterion); err != nil {
			return nil, fmt.Errorf("failed to retire criterion: %w", err)
		}
		s.cache.Invalidate(ctx, id)
	}
	return criterion, nil
}

// ResolveActive resolves a criterion required to be active, as when a
// requirement references it. Missing and retired criteria both fail with
// ErrNotFound.
func (s *Service) ResolveActive(ctx context.Context, id uuid.UUID) (*models.Criterion, error) {
	if cached := s.cache.Get(ctx, id); cached != nil {
		if cached.Status != models.CriterionActive {
			return nil, ErrNotFound
		}
		return cached, nil
	}

	criterion, err := s.repo.GetCriterion(ctx, id)
	if err != nil {
		return nil, err
	}
	if criterion == nil || criterion.Status != models.CriterionActive {
		return nil, ErrNotFound
	}

	s.cache.Set(ctx, criterion)
	return criterion, nil
}

// applyStatus enforces the one-way active→retired lifecycle.
func applyStatus(criterion *models.Criterion, status models.CriterionStatus) *validation.Error {
	switch status {
	case models.CriterionActive, models.CriterionRetired:
	default:
		return validation.NewError("status", fmt.Sprintf("%q is not a valid choice", status))
	}
	if criterion.Status == models.CriterionRetired && status == models.CriterionActive {
		return validation.NewError("status", "Status can only change from active to retired")
	}
	criterion.Status = status
	return nil
}

// decodeBound parses an optional raw value bound. Accepts quoted and bare
// JSON numbers; an absent bound decodes to the empty string.
func decodeBound(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", true
	}
	var n models.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false
	}
	return n.String(), true
}

// checkBounds verifies minValue <= maxValue, compared numerically.
func checkBounds(minValue, maxValue string) *validation.Error {
	if minValue == "" || maxValue == "" {
		return nil
	}
	minFloat, errMin := models.Number(minValue).Float()
	maxFloat, errMax := models.Number(maxValue).Float()
	if errMin != nil || errMax != nil {
		return nil // bounds are numeric-checked at decode time
	}
	if minFloat > maxFloat {
		return validation.NewError("minValue", validation.MinMaxMessage)
	}
	return nil
}
