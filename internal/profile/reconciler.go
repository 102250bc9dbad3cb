package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/open-procurement/ecatalog/internal/catalog"
	"github.com/open-procurement/ecatalog/internal/models"
	"github.com/open-procurement/ecatalog/internal/storage"
	"github.com/open-procurement/ecatalog/internal/validation"
)

const requiredMessage = "This field is required."

// CriterionResolver resolves catalog criteria referenced by requirements.
// Only active criteria resolve.
type CriterionResolver interface {
	ResolveActive(ctx context.Context, id uuid.UUID) (*models.Criterion, error)
}

// Reconciler merges an incoming criteria tree into the persisted tree of one
// profile. Nodes carrying an id must resolve among that profile's own nodes
// and are merge-patched; nodes without an id are created fresh. A child
// collection present in the payload fully replaces the persisted child set;
// an absent collection keeps it. Errors are index-aligned with the payload so
// the caller can point at the failing position:
//
//	{"criteria": [{}, {"requirementGroups": [{"id": "..."}]}]}
//
// Reconcile never persists anything itself; it returns the merged tree for
// the caller to store, so a failing node aborts the whole operation.
type Reconciler struct {
	repo     storage.Repository
	criteria CriterionResolver
}

// NewReconciler creates a reconciler reading persisted nodes from repo and
// resolving requirement references through the catalog.
func NewReconciler(repo storage.Repository, criteria CriterionResolver) *Reconciler {
	return &Reconciler{repo: repo, criteria: criteria}
}

// Reconcile merges the incoming criteria collection into the tree owned by
// profileID and returns the resulting full criteria set.
func (r *Reconciler) Reconcile(ctx context.Context, profileID uuid.UUID, nodes []models.CriteriaNode) ([]models.ProfileCriteria, error) {
	itemErrs := make([]validation.Fields, len(nodes))
	result := make([]models.ProfileCriteria, 0, len(nodes))

	for i := range nodes {
		merged, fields, err := r.reconcileCriteria(ctx, profileID, &nodes[i])
		if err != nil {
			return nil, err
		}
		itemErrs[i] = fields
		if len(fields) == 0 {
			result = append(result, *merged)
		}
	}

	if validation.AnyErrors(itemErrs) {
		return nil, validation.NewFieldsError(validation.Fields{
			"criteria": validation.IndexedList(itemErrs),
		})
	}
	return result, nil
}

func (r *Reconciler) reconcileCriteria(ctx context.Context, profileID uuid.UUID, node *models.CriteriaNode) (*models.ProfileCriteria, validation.Fields, error) {
	fields := validation.Fields{}
	var merged models.ProfileCriteria

	if node.ID != nil {
		existing, err := r.lookupCriteria(ctx, profileID, *node.ID)
		if err != nil {
			return nil, nil, err
		}
		if existing == nil {
			return nil, validation.Fields{
				"id": fmt.Sprintf("Criteria with id %s not found", *node.ID),
			}, nil
		}
		merged = *existing
		if node.Title != nil {
			merged.Title = *node.Title
		}
		if node.Description != nil {
			merged.Description = *node.Description
		}
	} else {
		merged.ID = uuid.New()
		if node.Title == nil {
			fields["title"] = requiredMessage
		} else {
			merged.Title = *node.Title
		}
		if node.Description != nil {
			merged.Description = *node.Description
		}
		if node.RequirementGroups == nil {
			fields["requirementGroups"] = requiredMessage
		}
	}

	if node.RequirementGroups != nil {
		groups := *node.RequirementGroups
		groupErrs := make([]validation.Fields, len(groups))
		mergedGroups := make([]models.RequirementGroup, 0, len(groups))

		for i := range groups {
			group, groupFields, err := r.reconcileGroup(ctx, profileID, &groups[i])
			if err != nil {
				return nil, nil, err
			}
			groupErrs[i] = groupFields
			if len(groupFields) == 0 {
				mergedGroups = append(mergedGroups, *group)
			}
		}

		if validation.AnyErrors(groupErrs) {
			fields["requirementGroups"] = validation.IndexedList(groupErrs)
		} else {
			merged.RequirementGroups = mergedGroups
		}
	}

	if len(fields) > 0 {
		return nil, fields, nil
	}
	return &merged, nil, nil
}

func (r *Reconciler) reconcileGroup(ctx context.Context, profileID uuid.UUID, node *models.RequirementGroupNode) (*models.RequirementGroup, validation.Fields, error) {
	fields := validation.Fields{}
	var merged models.RequirementGroup

	if node.ID != nil {
		existing, err := r.lookupGroup(ctx, profileID, *node.ID)
		if err != nil {
			return nil, nil, err
		}
		if existing == nil {
			return nil, validation.Fields{
				"id": fmt.Sprintf("RequirementGroup with id %s not found", *node.ID),
			}, nil
		}
		merged = *existing
		if node.Description != nil {
			merged.Description = *node.Description
		}
	} else {
		merged.ID = uuid.New()
		if node.Description != nil {
			merged.Description = *node.Description
		}
		if node.Requirements == nil {
			fields["requirements"] = requiredMessage
		}
	}

	if node.Requirements != nil {
		requirements := *node.Requirements
		reqErrs := make([]validation.Fields, len(requirements))
		mergedReqs := make([]models.Requirement, 0, len(requirements))

		for i := range requirements {
			req, reqFields, err := r.reconcileRequirement(ctx, profileID, &requirements[i])
			if err != nil {
				return nil, nil, err
			}
			reqErrs[i] = reqFields
			if len(reqFields) == 0 {
				mergedReqs = append(mergedReqs, *req)
			}
		}

		if validation.AnyErrors(reqErrs) {
			fields["requirements"] = validation.IndexedList(reqErrs)
		} else {
			merged.Requirements = mergedReqs
		}
	}

	if len(fields) > 0 {
		return nil, fields, nil
	}
	return &merged, nil, nil
}

func (r *Reconciler) reconcileRequirement(ctx context.Context, profileID uuid.UUID, node *models.RequirementNode) (*models.Requirement, validation.Fields, error) {
	fields := validation.Fields{}
	var merged models.Requirement

	if node.ID != nil {
		existing, err := r.lookupRequirement(ctx, profileID, *node.ID)
		if err != nil {
			return nil, nil, err
		}
		if existing == nil {
			return nil, validation.Fields{
				"id": fmt.Sprintf("Requirement with id %s not found", *node.ID),
			}, nil
		}
		merged = *existing
		if node.Title != nil {
			merged.Title = *node.Title
		}
		if node.Description != nil {
			merged.Description = *node.Description
		}
	} else {
		merged.ID = uuid.New()
		if node.Title == nil {
			fields["title"] = requiredMessage
		} else {
			merged.Title = *node.Title
		}
		if node.Description != nil {
			merged.Description = *node.Description
		}
		if node.RelatedCriteriaID == nil {
			fields["relatedCriteria_id"] = requiredMessage
		}
	}

	var criterion *models.Criterion
	if node.RelatedCriteriaID != nil {
		resolved, err := r.resolveCriterion(ctx, *node.RelatedCriteriaID)
		if err != nil {
			return nil, nil, err
		}
		if resolved == nil {
			fields["relatedCriteria_id"] = fmt.Sprintf("Criteria with id %s not found", *node.RelatedCriteriaID)
		} else {
			criterion = resolved
			merged.RelatedCriteriaID = resolved.ID
		}
	} else if node.ID != nil && suppliesValue(node) {
		resolved, err := r.resolveCriterion(ctx, models.HexID(merged.RelatedCriteriaID))
		if err != nil {
			return nil, nil, err
		}
		// The stored reference may have retired since; the value then only
		// gets the exactly-one-of check.
		criterion = resolved
	}

	// A supplied value replaces the stored trio wholesale, so a patch cannot
	// leave a requirement with two live value fields.
	if suppliesValue(node) || node.ID == nil {
		merged.ExpectedValue = node.ExpectedValue
		merged.MinValue = node.MinValue
		merged.MaxValue = node.MaxValue
	}

	// The merged value is checked whenever it or the criterion reference
	// changes: re-pointing relatedCriteria_id alone must not keep a stored
	// value the new criterion's dataType cannot parse.
	if suppliesValue(node) || node.ID == nil || node.RelatedCriteriaID != nil {
		values := validation.RequirementValues{
			Expected: merged.ExpectedValue,
			Min:      merged.MinValue,
			Max:      merged.MaxValue,
		}
		if criterion != nil {
			if err := validation.CheckRequirementValue(criterion.DataType, values); err != nil {
				fields.Merge(err.Fields)
			}
		} else if _, _, ok := values.Supplied(); !ok {
			if err := validation.CheckRequirementValue("", values); err != nil {
				fields.Merge(err.Fields)
			}
		}
	}

	if len(fields) > 0 {
		return nil, fields, nil
	}
	return &merged, nil, nil
}

func suppliesValue(node *models.RequirementNode) bool {
	return node.ExpectedValue != nil || node.MinValue != nil || node.MaxValue != nil
}

func (r *Reconciler) lookupCriteria(ctx context.Context, profileID uuid.UUID, raw string) (*models.ProfileCriteria, error) {
	id, err := models.ParseHexID(raw)
	if err != nil {
		return nil, nil
	}
	node, err := r.repo.GetProfileCriteria(ctx, profileID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile criteria %s: %w", id, err)
	}
	return node, nil
}

func (r *Reconciler) lookupGroup(ctx context.Context, profileID uuid.UUID, raw string) (*models.RequirementGroup, error) {
	id, err := models.ParseHexID(raw)
	if err != nil {
		return nil, nil
	}
	node, err := r.repo.GetRequirementGroup(ctx, profileID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load requirement group %s: %w", id, err)
	}
	return node, nil
}

func (r *Reconciler) lookupRequirement(ctx context.Context, profileID uuid.UUID, raw string) (*models.Requirement, error) {
	id, err := models.ParseHexID(raw)
	if err != nil {
		return nil, nil
	}
	node, err := r.repo.GetRequirement(ctx, profileID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load requirement %s: %w", id, err)
	}
	return node, nil
}

func (r *Reconciler) resolveCriterion(ctx context.Context, raw string) (*models.Criterion, error) {
	id, err := models.ParseHexID(raw)
	if err != nil {
		return nil, nil
	}
	criterion, err := r.criteria.ResolveActive(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve criterion %s: %w", id, err)
	}
	return criterion, nil
}
