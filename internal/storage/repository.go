package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/open-procurement/ecatalog/internal/models"
)

// ErrNotFound is returned by LockProfile when the row does not exist. Get
// methods signal absence with (nil, nil) instead.
var ErrNotFound = errors.New("not found")

// Repository defines the interface for catalog persistence. Get methods
// return (nil, nil) when the record does not exist.
//
// Profile trees are persisted arena-style: node rows live in flat tables
// keyed by id and scoped to their owning profile, parents hold ordered child
// id lists. Create/UpdateProfile upsert every node of the supplied tree and
// replace the child-id lists; nodes dropped from a list stay in their table
// (detached, not destroyed) and remain resolvable through the scoped Get
// methods.
type Repository interface {
	// Criteria
	CreateCriterion(ctx context.Context, c *models.Criterion) error
	GetCriterion(ctx context.Context, id uuid.UUID) (*models.Criterion, error)
	UpdateCriterion(ctx context.Context, c *models.Criterion) error
	ListCriteria(ctx context.Context, filters models.CriteriaFilters) ([]*models.Criterion, error)

	// Profiles
	CreateProfile(ctx context.Context, p *models.Profile) error
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpdateProfile(ctx context.Context, p *models.Profile) error
	ListProfiles(ctx context.Context, filters models.ProfileFilters) ([]*models.Profile, error)
	CountProfiles(ctx context.Context, filters models.ProfileFilters) (int, error)

	// Profile-scoped tree node lookups used by reconciliation
	GetProfileCriteria(ctx context.Context, profileID, id uuid.UUID) (*models.ProfileCriteria, error)
	GetRequirementGroup(ctx context.Context, profileID, id uuid.UUID) (*models.RequirementGroup, error)
	GetRequirement(ctx context.Context, profileID, id uuid.UUID) (*models.Requirement, error)

	// InTx runs fn against a transactional view of the repository.
	// LockProfile serializes concurrent writers on the same profile row;
	// it only has effect inside a transaction.
	InTx(ctx context.Context, fn func(Repository) error) error
	LockProfile(ctx context.Context, id uuid.UUID) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
