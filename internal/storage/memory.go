package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/open-procurement/ecatalog/internal/models"
)

// MemoryRepository is an in-memory Repository used by tests. It mirrors the
// arena layout of the Postgres implementation: node rows keyed by id with an
// owning profile id, parents holding child-id lists.
type MemoryRepository struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	criteria map[uuid.UUID]*models.Criterion
	profiles map[uuid.UUID]*profileRecord

	profileCriteria map[uuid.UUID]*criteriaNodeRecord
	groups          map[uuid.UUID]*groupNodeRecord
	requirements    map[uuid.UUID]*requirementNodeRecord
}

type profileRecord struct {
	profile     models.Profile // scalar fields only, Criteria nil
	criteriaIDs []uuid.UUID
}

type criteriaNodeRecord struct {
	profileID   uuid.UUID
	id          uuid.UUID
	title       string
	description string
	groupIDs    []uuid.UUID
}

type groupNodeRecord struct {
	profileID      uuid.UUID
	id             uuid.UUID
	description    string
	requirementIDs []uuid.UUID
}

type requirementNodeRecord struct {
	profileID   uuid.UUID
	requirement models.Requirement
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		criteria:        make(map[uuid.UUID]*models.Criterion),
		profiles:        make(map[uuid.UUID]*profileRecord),
		profileCriteria: make(map[uuid.UUID]*criteriaNodeRecord),
		groups:          make(map[uuid.UUID]*groupNodeRecord),
		requirements:    make(map[uuid.UUID]*requirementNodeRecord),
	}
}

func (m *MemoryRepository) Ping(ctx context.Context) error { return nil }
func (m *MemoryRepository) Close() error                   { return nil }

// InTx serializes transactional scopes; the memory repository has no real
// transactions, so fn runs directly against the repository.
func (m *MemoryRepository) InTx(ctx context.Context, fn func(Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(m)
}

func (m *MemoryRepository) LockProfile(ctx context.Context, id uuid.UUID) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.profiles[id]; !ok {
		return fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return nil
}

// --- Criteria ---

func (m *MemoryRepository) CreateCriterion(ctx context.Context, c *models.Criterion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *c
	m.criteria[c.ID] = &copied
	return nil
}

func (m *MemoryRepository) GetCriterion(ctx context.Context, id uuid.UUID) (*models.Criterion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.criteria[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (m *MemoryRepository) UpdateCriterion(ctx context.Context, c *models.Criterion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.criteria[c.ID]; !ok {
		return fmt.Errorf("criterion not found: %s", c.ID)
	}
	copied := *c
	m.criteria[c.ID] = &copied
	return nil
}

func (m *MemoryRepository) ListCriteria(ctx context.Context, filters models.CriteriaFilters) ([]*models.Criterion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*models.Criterion
	for _, c := range m.criteria {
		if !containsFold(c.Name, filters.Name) {
			continue
		}
		if !containsFold(c.Classification.ID, filters.ClassificationID) {
			continue
		}
		if filters.AdditionalClassificationID != "" {
			if c.AdditionalClassification == nil ||
				!containsFold(c.AdditionalClassification.ID, filters.AdditionalClassificationID) {
				continue
			}
		}
		if !containsFold(c.Unit.Code, filters.UnitCode) {
			continue
		}

		switch filters.Status {
		case models.StatusAll:
		case "":
			if c.Status != models.CriterionActive {
				continue
			}
		default:
			if !containsFold(string(c.Status), filters.Status) {
				continue
			}
		}

		if filters.DateModifiedFrom != nil && c.DateModified.Before(*filters.DateModifiedFrom) {
			continue
		}
		if filters.DateModifiedTo != nil && c.DateModified.After(*filters.DateModifiedTo) {
			continue
		}

		copied := *c
		result = append(result, &copied)
	}

	sortCriteria(result, filters.Ordering)
	return sliceWindow(result, filters.Limit, filters.Offset), nil
}

// --- Profiles ---

func (m *MemoryRepository) CreateProfile(ctx context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeProfile(p)
	return nil
}

func (m *MemoryRepository) UpdateProfile(ctx context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[p.ID]; !ok {
		return fmt.Errorf("profile not found: %s", p.ID)
	}
	m.storeProfile(p)
	return nil
}

func (m *MemoryRepository) storeProfile(p *models.Profile) {
	scalar := *p
	scalar.Criteria = nil

	record := &profileRecord{profile: scalar}
	for i := range p.Criteria {
		pc := &p.Criteria[i]
		record.criteriaIDs = append(record.criteriaIDs, pc.ID)

		node := &criteriaNodeRecord{
			profileID:   p.ID,
			id:          pc.ID,
			title:       pc.Title,
			description: pc.Description,
		}
		for j := range pc.RequirementGroups {
			rg := &pc.RequirementGroups[j]
			node.groupIDs = append(node.groupIDs, rg.ID)

			groupNode := &groupNodeRecord{
				profileID:   p.ID,
				id:          rg.ID,
				description: rg.Description,
			}
			for k := range rg.Requirements {
				req := rg.Requirements[k]
				groupNode.requirementIDs = append(groupNode.requirementIDs, req.ID)
				m.requirements[req.ID] = &requirementNodeRecord{profileID: p.ID, requirement: req}
			}
			m.groups[rg.ID] = groupNode
		}
		m.profileCriteria[pc.ID] = node
	}
	m.profiles[p.ID] = record
}

func (m *MemoryRepository) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.profiles[id]
	if !ok {
		return nil, nil
	}
	return m.assembleProfile(record), nil
}

func (m *MemoryRepository) assembleProfile(record *profileRecord) *models.Profile {
	p := record.profile
	for _, cid := range record.criteriaIDs {
		if pc := m.assembleCriteriaNode(cid); pc != nil {
			p.Criteria = append(p.Criteria, *pc)
		}
	}
	return &p
}

func (m *MemoryRepository) assembleCriteriaNode(id uuid.UUID) *models.ProfileCriteria {
	node, ok := m.profileCriteria[id]
	if !ok {
		return nil
	}
	pc := models.ProfileCriteria{
		ID:          node.id,
		Title:       node.title,
		Description: node.description,
	}
	for _, gid := range node.groupIDs {
		if rg := m.assembleGroupNode(gid); rg != nil {
			pc.RequirementGroups = append(pc.RequirementGroups, *rg)
		}
	}
	return &pc
}

func (m *MemoryRepository) assembleGroupNode(id uuid.UUID) *models.RequirementGroup {
	node, ok := m.groups[id]
	if !ok {
		return nil
	}
	rg := models.RequirementGroup{ID: node.id, Description: node.description}
	for _, rid := range node.requirementIDs {
		if record, ok := m.requirements[rid]; ok {
			rg.Requirements = append(rg.Requirements, record.requirement)
		}
	}
	return &rg
}

func (m *MemoryRepository) ListProfiles(ctx context.Context, filters models.ProfileFilters) ([]*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*models.Profile
	for _, record := range m.profiles {
		p := m.assembleProfile(record)

		if !containsFold(p.Classification.ID, filters.ClassificationID) {
			continue
		}
		if !containsFold(p.Classification.Description, filters.ClassificationDescription) {
			continue
		}
		if !containsFold(p.Author, filters.Author) {
			continue
		}
		if !containsFold(string(p.Status), filters.Status) {
			continue
		}
		if filters.RelatedCriteriaID != nil && !treeReferences(p, *filters.RelatedCriteriaID) {
			continue
		}

		result = append(result, p)
	}

	sortProfiles(result, filters.Ordering)
	return sliceWindow(result, filters.Limit, filters.Offset), nil
}

func (m *MemoryRepository) CountProfiles(ctx context.Context, filters models.ProfileFilters) (int, error) {
	unpaged := filters
	unpaged.Limit = 0
	unpaged.Offset = 0
	matched, err := m.ListProfiles(ctx, unpaged)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func treeReferences(p *models.Profile, criterionID uuid.UUID) bool {
	for i := range p.Criteria {
		for j := range p.Criteria[i].RequirementGroups {
			for _, req := range p.Criteria[i].RequirementGroups[j].Requirements {
				if req.RelatedCriteriaID == criterionID {
					return true
				}
			}
		}
	}
	return false
}

// --- Tree nodes ---

func (m *MemoryRepository) GetProfileCriteria(ctx context.Context, profileID, id uuid.UUID) (*models.ProfileCriteria, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	node, ok := m.profileCriteria[id]
	if !ok || node.profileID != profileID {
		return nil, nil
	}
	return m.assembleCriteriaNode(id), nil
}

func (m *MemoryRepository) GetRequirementGroup(ctx context.Context, profileID, id uuid.UUID) (*models.RequirementGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	node, ok := m.groups[id]
	if !ok || node.profileID != profileID {
		return nil, nil
	}
	return m.assembleGroupNode(id), nil
}

func (m *MemoryRepository) GetRequirement(ctx context.Context, profileID, id uuid.UUID) (*models.Requirement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.requirements[id]
	if !ok || record.profileID != profileID {
		return nil, nil
	}
	req := record.requirement
	return &req, nil
}

// --- Helpers ---

func containsFold(value, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(filter))
}

func sortCriteria(items []*models.Criterion, ordering string) {
	field, desc := parseOrdering(ordering, "dateModified")
	sort.SliceStable(items, func(i, j int) bool {
		var less bool
		switch field {
		case "name":
			less = items[i].Name < items[j].Name
		case "status":
			less = items[i].Status < items[j].Status
		default:
			less = items[i].DateModified.Before(items[j].DateModified)
		}
		if desc {
			return !less
		}
		return less
	})
}

func sortProfiles(items []*models.Profile, ordering string) {
	field, desc := parseOrdering(ordering, "dateModified")
	sort.SliceStable(items, func(i, j int) bool {
		var less bool
		switch field {
		case "title":
			less = items[i].Title < items[j].Title
		case "author":
			less = items[i].Author < items[j].Author
		default:
			less = items[i].DateModified.Before(items[j].DateModified)
		}
		if desc {
			return !less
		}
		return less
	})
}

func parseOrdering(ordering, fallback string) (field string, desc bool) {
	if ordering == "" {
		return fallback, true
	}
	if strings.HasPrefix(ordering, "-") {
		return ordering[1:], true
	}
	return ordering, false
}

func sliceWindow[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
