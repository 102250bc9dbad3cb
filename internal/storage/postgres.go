package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/open-procurement/ecatalog/internal/models"
)

// querier abstracts pgxpool.Pool and pgx.Tx so every repository method works
// both inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
	db   querier
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5 // default
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool, db: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// InTx runs fn against a transactional repository view.
func (r *PostgresRepository) InTx(ctx context.Context, fn func(Repository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txRepo := &PostgresRepository{pool: r.pool, db: tx}
	if err := fn(txRepo); err != nil {
		tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LockProfile takes a row lock on the profile so concurrent reconcile-then-
// persist sequences against the same profile serialize instead of racing.
func (r *PostgresRepository) LockProfile(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT id FROM profiles WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("profile %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to lock profile: %w", err)
	}
	return nil
}

// --- Criteria ---

const criterionColumns = `
	id, name, name_eng, data_type, min_value, max_value,
	unit_code, unit_name, classification_id, classification_description,
	additional_classification_id, additional_classification_scheme,
	additional_classification_description, date_modified, status
`

// CreateCriterion inserts a new criterion record
func (r *PostgresRepository) CreateCriterion(ctx context.Context, c *models.Criterion) error {
	query := `
		INSERT INTO criteria (` + criterionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	var addID, addScheme, addDescription sql.NullString
	if c.AdditionalClassification != nil {
		addID = nullString(c.AdditionalClassification.ID)
		addScheme = nullString(c.AdditionalClassification.Scheme)
		addDescription = nullString(c.AdditionalClassification.Description)
	}

	_, err := r.db.Exec(ctx, query,
		c.ID,
		nullString(c.Name),
		nullString(c.NameEng),
		string(c.DataType),
		nullString(c.MinValue),
		nullString(c.MaxValue),
		c.Unit.Code,
		c.Unit.Name,
		c.Classification.ID,
		c.Classification.Description,
		addID,
		addScheme,
		addDescription,
		c.DateModified,
		string(c.Status),
	)

	if err != nil {
		return fmt.Errorf("failed to create criterion: %w", err)
	}
	return nil
}

// GetCriterion retrieves a criterion by ID
func (r *PostgresRepository) GetCriterion(ctx context.Context, id uuid.UUID) (*models.Criterion, error) {
	query := `SELECT ` + criterionColumns + ` FROM criteria WHERE id = $1`

	c, err := scanCriterion(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get criterion: %w", err)
	}
	return c, nil
}

// UpdateCriterion updates an existing criterion
func (r *PostgresRepository) UpdateCriterion(ctx context.Context, c *models.Criterion) error {
	query := `
		UPDATE criteria
		SET name = $2, name_eng = $3, min_value = $4, max_value = $5,
		    status = $6, date_modified = $7
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query,
		c.ID,
		nullString(c.Name),
		nullString(c.NameEng),
		nullString(c.MinValue),
		nullString(c.MaxValue),
		string(c.Status),
		c.DateModified,
	)
	if err != nil {
		return fmt.Errorf("failed to update criterion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("criterion not found: %s", c.ID)
	}
	return nil
}

// ListCriteria returns criteria matching filters
func (r *PostgresRepository) ListCriteria(ctx context.Context, filters models.CriteriaFilters) ([]*models.Criterion, error) {
	query := `SELECT ` + criterionColumns + ` FROM criteria WHERE 1=1`
	args := make([]any, 0)
	argNum := 1

	contains := func(column, value string) {
		query += fmt.Sprintf(" AND %s ILIKE '%%' || $%d || '%%'", column, argNum)
		args = append(args, value)
		argNum++
	}

	if filters.Name != "" {
		contains("name", filters.Name)
	}
	if filters.ClassificationID != "" {
		contains("classification_id", filters.ClassificationID)
	}
	if filters.AdditionalClassificationID != "" {
		contains("additional_classification_id", filters.AdditionalClassificationID)
	}
	if filters.UnitCode != "" {
		contains("unit_code", filters.UnitCode)
	}

	switch filters.Status {
	case models.StatusAll:
		// no status filter
	case "":
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(models.CriterionActive))
		argNum++
	default:
		contains("status", filters.Status)
	}

	if filters.DateModifiedFrom != nil {
		query += fmt.Sprintf(" AND date_modified >= $%d", argNum)
		args = append(args, *filters.DateModifiedFrom)
		argNum++
	}
	if filters.DateModifiedTo != nil {
		query += fmt.Sprintf(" AND date_modified <= $%d", argNum)
		args = append(args, *filters.DateModifiedTo)
		argNum++
	}

	query += orderClause(filters.Ordering, criteriaOrderColumns, "date_modified DESC")

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
		argNum++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list criteria: %w", err)
	}
	defer rows.Close()

	var criteria []*models.Criterion
	for rows.Next() {
		c, err := scanCriterion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan criterion: %w", err)
		}
		criteria = append(criteria, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating criteria: %w", err)
	}
	return criteria, nil
}

func scanCriterion(row pgx.Row) (*models.Criterion, error) {
	var c models.Criterion
	var name, nameEng, minValue, maxValue sql.NullString
	var dataType, status string
	var addID, addScheme, addDescription sql.NullString

	err := row.Scan(
		&c.ID,
		&name,
		&nameEng,
		&dataType,
		&minValue,
		&maxValue,
		&c.Unit.Code,
		&c.Unit.Name,
		&c.Classification.ID,
		&c.Classification.Description,
		&addID,
		&addScheme,
		&addDescription,
		&c.DateModified,
		&status,
	)
	if err != nil {
		return nil, err
	}

	c.Name = name.String
	c.NameEng = nameEng.String
	c.MinValue = minValue.String
	c.MaxValue = maxValue.String
	c.DataType = models.DataType(dataType)
	c.Status = models.CriterionStatus(status)
	c.Classification.Scheme = "ДК021"

	if addID.Valid {
		c.AdditionalClassification = &models.Classification{
			ID:          addID.String,
			Scheme:      addScheme.String,
			Description: addDescription.String,
		}
	}
	return &c, nil
}

// --- Profiles ---

const profileColumns = `
	id, access_token, author, status, title, description,
	classification_id, classification_description, additional_classification,
	unit_code, unit_name, value_amount, value_currency, value_vat_included,
	images, criteria_ids, date_modified
`

// CreateProfile inserts the profile record and persists its criteria tree.
func (r *PostgresRepository) CreateProfile(ctx context.Context, p *models.Profile) error {
	additionalJSON, err := json.Marshal(p.AdditionalClassification)
	if err != nil {
		return fmt.Errorf("failed to marshal additional classification: %w", err)
	}
	imagesJSON, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("failed to marshal images: %w", err)
	}

	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = r.db.Exec(ctx, query,
		p.ID,
		p.AccessToken,
		p.Author,
		string(p.Status),
		p.Title,
		nullString(p.Description),
		p.Classification.ID,
		p.Classification.Description,
		additionalJSON,
		p.Unit.Code,
		p.Unit.Name,
		p.Value.Amount,
		p.Value.Currency,
		p.Value.ValueAddedTaxIncluded,
		imagesJSON,
		criteriaIDs(p),
		p.DateModified,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return r.persistTree(ctx, p)
}

// GetProfile retrieves a profile with its attached criteria tree
func (r *PostgresRepository) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p, ids, err := scanProfile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if err := r.loadTree(ctx, p, ids); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProfile updates the profile record and persists its criteria tree.
// Child-id lists are replaced wholesale; node rows dropped from a list are
// detached but kept in their table.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, p *models.Profile) error {
	additionalJSON, err := json.Marshal(p.AdditionalClassification)
	if err != nil {
		return fmt.Errorf("failed to marshal additional classification: %w", err)
	}
	imagesJSON, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("failed to marshal images: %w", err)
	}

	query := `
		UPDATE profiles
		SET status = $2, title = $3, description = $4,
		    classification_id = $5, classification_description = $6,
		    additional_classification = $7, unit_code = $8, unit_name = $9,
		    value_amount = $10, value_currency = $11, value_vat_included = $12,
		    images = $13, criteria_ids = $14, date_modified = $15
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query,
		p.ID,
		string(p.Status),
		p.Title,
		nullString(p.Description),
		p.Classification.ID,
		p.Classification.Description,
		additionalJSON,
		p.Unit.Code,
		p.Unit.Name,
		p.Value.Amount,
		p.Value.Currency,
		p.Value.ValueAddedTaxIncluded,
		imagesJSON,
		criteriaIDs(p),
		p.DateModified,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("profile not found: %s", p.ID)
	}

	return r.persistTree(ctx, p)
}

// profileFilterClause builds the WHERE tail shared by ListProfiles and
// CountProfiles.
func profileFilterClause(filters models.ProfileFilters) (string, []any) {
	var clause string
	args := make([]any, 0)
	argNum := 1

	contains := func(column, value string) {
		clause += fmt.Sprintf(" AND %s ILIKE '%%' || $%d || '%%'", column, argNum)
		args = append(args, value)
		argNum++
	}

	if filters.ClassificationID != "" {
		contains("classification_id", filters.ClassificationID)
	}
	if filters.ClassificationDescription != "" {
		contains("classification_description", filters.ClassificationDescription)
	}
	if filters.Author != "" {
		contains("author", filters.Author)
	}
	if filters.Status != "" {
		contains("status", filters.Status)
	}

	if filters.RelatedCriteriaID != nil {
		clause += fmt.Sprintf(`
			AND EXISTS (
				SELECT 1
				FROM profile_criteria pc
				JOIN requirement_groups rg ON rg.id = ANY(pc.requirement_group_ids)
				JOIN requirements req ON req.id = ANY(rg.requirement_ids)
				WHERE pc.id = ANY(profiles.criteria_ids)
				  AND req.related_criteria_id = $%d
			)`, argNum)
		args = append(args, *filters.RelatedCriteriaID)
	}
	return clause, args
}

// ListProfiles returns profiles matching filters
func (r *PostgresRepository) ListProfiles(ctx context.Context, filters models.ProfileFilters) ([]*models.Profile, error) {
	clause, args := profileFilterClause(filters)
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE 1=1` + clause
	argNum := len(args) + 1

	query += orderClause(filters.Ordering, profileOrderColumns, "date_modified DESC")

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
		argNum++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	type pending struct {
		profile *models.Profile
		ids     []uuid.UUID
	}
	var loaded []pending

	for rows.Next() {
		p, ids, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		loaded = append(loaded, pending{profile: p, ids: ids})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	profiles := make([]*models.Profile, 0, len(loaded))
	for _, item := range loaded {
		if err := r.loadTree(ctx, item.profile, item.ids); err != nil {
			return nil, err
		}
		profiles = append(profiles, item.profile)
	}
	return profiles, nil
}

// CountProfiles returns the number of profiles matching the filters,
// ignoring pagination.
func (r *PostgresRepository) CountProfiles(ctx context.Context, filters models.ProfileFilters) (int, error) {
	clause, args := profileFilterClause(filters)
	query := `SELECT COUNT(*) FROM profiles WHERE 1=1` + clause

	var total int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return total, nil
}

func scanProfile(row pgx.Row) (*models.Profile, []uuid.UUID, error) {
	var p models.Profile
	var status string
	var description sql.NullString
	var additionalJSON, imagesJSON []byte
	var ids []uuid.UUID

	err := row.Scan(
		&p.ID,
		&p.AccessToken,
		&p.Author,
		&status,
		&p.Title,
		&description,
		&p.Classification.ID,
		&p.Classification.Description,
		&additionalJSON,
		&p.Unit.Code,
		&p.Unit.Name,
		&p.Value.Amount,
		&p.Value.Currency,
		&p.Value.ValueAddedTaxIncluded,
		&imagesJSON,
		&ids,
		&p.DateModified,
	)
	if err != nil {
		return nil, nil, err
	}

	p.Status = models.ProfileStatus(status)
	p.Description = description.String
	p.Classification.Scheme = "ДК021"

	if additionalJSON != nil {
		if err := json.Unmarshal(additionalJSON, &p.AdditionalClassification); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal additional classification: %w", err)
		}
	}
	if imagesJSON != nil {
		if err := json.Unmarshal(imagesJSON, &p.Images); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal images: %w", err)
		}
	}
	return &p, ids, nil
}

// --- Tree nodes ---

// GetProfileCriteria retrieves a profile criteria node owned by the profile
func (r *PostgresRepository) GetProfileCriteria(ctx context.Context, profileID, id uuid.UUID) (*models.ProfileCriteria, error) {
	query := `
		SELECT id, title, description, requirement_group_ids
		FROM profile_criteria
		WHERE id = $1 AND profile_id = $2
	`

	var pc models.ProfileCriteria
	var description sql.NullString
	var groupIDs []uuid.UUID

	err := r.db.QueryRow(ctx, query, id, profileID).Scan(&pc.ID, &pc.Title, &description, &groupIDs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile criteria: %w", err)
	}
	pc.Description = description.String

	for _, gid := range groupIDs {
		group, err := r.GetRequirementGroup(ctx, profileID, gid)
		if err != nil {
			return nil, err
		}
		if group != nil {
			pc.RequirementGroups = append(pc.RequirementGroups, *group)
		}
	}
	return &pc, nil
}

// GetRequirementGroup retrieves a requirement group node owned by the profile
func (r *PostgresRepository) GetRequirementGroup(ctx context.Context, profileID, id uuid.UUID) (*models.RequirementGroup, error) {
	query := `
		SELECT id, description, requirement_ids
		FROM requirement_groups
		WHERE id = $1 AND profile_id = $2
	`

	var rg models.RequirementGroup
	var description sql.NullString
	var requirementIDs []uuid.UUID

	err := r.db.QueryRow(ctx, query, id, profileID).Scan(&rg.ID, &description, &requirementIDs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get requirement group: %w", err)
	}
	rg.Description = description.String

	for _, rid := range requirementIDs {
		req, err := r.GetRequirement(ctx, profileID, rid)
		if err != nil {
			return nil, err
		}
		if req != nil {
			rg.Requirements = append(rg.Requirements, *req)
		}
	}
	return &rg, nil
}

// GetRequirement retrieves a requirement node owned by the profile
func (r *PostgresRepository) GetRequirement(ctx context.Context, profileID, id uuid.UUID) (*models.Requirement, error) {
	query := `
		SELECT id, title, description, related_criteria_id, expected_value, min_value, max_value
		FROM requirements
		WHERE id = $1 AND profile_id = $2
	`

	var req models.Requirement
	var description, expected, minValue, maxValue sql.NullString

	err := r.db.QueryRow(ctx, query, id, profileID).Scan(
		&req.ID,
		&req.Title,
		&description,
		&req.RelatedCriteriaID,
		&expected,
		&minValue,
		&maxValue,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get requirement: %w", err)
	}

	req.Description = description.String
	if expected.Valid {
		req.ExpectedValue = &expected.String
	}
	if minValue.Valid {
		req.MinValue = &minValue.String
	}
	if maxValue.Valid {
		req.MaxValue = &maxValue.String
	}
	return &req, nil
}

// persistTree upserts every node of the profile's attached tree and replaces
// the parents' child-id lists.
func (r *PostgresRepository) persistTree(ctx context.Context, p *models.Profile) error {
	for i := range p.Criteria {
		pc := &p.Criteria[i]

		groupIDs := make([]uuid.UUID, 0, len(pc.RequirementGroups))
		for j := range pc.RequirementGroups {
			rg := &pc.RequirementGroups[j]

			requirementIDs := make([]uuid.UUID, 0, len(rg.Requirements))
			for k := range rg.Requirements {
				req := &rg.Requirements[k]
				if err := r.upsertRequirement(ctx, p.ID, req); err != nil {
					return err
				}
				requirementIDs = append(requirementIDs, req.ID)
			}

			if err := r.upsertRequirementGroup(ctx, p.ID, rg, requirementIDs); err != nil {
				return err
			}
			groupIDs = append(groupIDs, rg.ID)
		}

		if err := r.upsertProfileCriteria(ctx, p.ID, pc, groupIDs); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) upsertProfileCriteria(ctx context.Context, profileID uuid.UUID, pc *models.ProfileCriteria, groupIDs []uuid.UUID) error {
	query := `
		INSERT INTO profile_criteria (id, profile_id, title, description, requirement_group_ids)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, description = EXCLUDED.description,
		    requirement_group_ids = EXCLUDED.requirement_group_ids
	`
	_, err := r.db.Exec(ctx, query, pc.ID, profileID, pc.Title, nullString(pc.Description), groupIDs)
	if err != nil {
		return fmt.Errorf("failed to upsert profile criteria: %w", err)
	}
	return nil
}

func (r *PostgresRepository) upsertRequirementGroup(ctx context.Context, profileID uuid.UUID, rg *models.RequirementGroup, requirementIDs []uuid.UUID) error {
	query := `
		INSERT INTO requirement_groups (id, profile_id, description, requirement_ids)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET description = EXCLUDED.description,
		    requirement_ids = EXCLUDED.requirement_ids
	`
	_, err := r.db.Exec(ctx, query, rg.ID, profileID, nullString(rg.Description), requirementIDs)
	if err != nil {
		return fmt.Errorf("failed to upsert requirement group: %w", err)
	}
	return nil
}

func (r *PostgresRepository) upsertRequirement(ctx context.Context, profileID uuid.UUID, req *models.Requirement) error {
	query := `
		INSERT INTO requirements (id, profile_id, title, description, related_criteria_id, expected_value, min_value, max_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, description = EXCLUDED.description,
		    related_criteria_id = EXCLUDED.related_criteria_id,
		    expected_value = EXCLUDED.expected_value,
		    min_value = EXCLUDED.min_value, max_value = EXCLUDED.max_value
	`
	_, err := r.db.Exec(ctx, query,
		req.ID,
		profileID,
		req.Title,
		nullString(req.Description),
		req.RelatedCriteriaID,
		nullStringPtr(req.ExpectedValue),
		nullStringPtr(req.MinValue),
		nullStringPtr(req.MaxValue),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert requirement: %w", err)
	}
	return nil
}

func (r *PostgresRepository) loadTree(ctx context.Context, p *models.Profile, ids []uuid.UUID) error {
	for _, cid := range ids {
		pc, err := r.GetProfileCriteria(ctx, p.ID, cid)
		if err != nil {
			return err
		}
		if pc != nil {
			p.Criteria = append(p.Criteria, *pc)
		}
	}
	return nil
}

// --- Ordering ---

var criteriaOrderColumns = map[string]string{
	"id":                           "id",
	"name":                         "name",
	"nameEng":                      "name_eng",
	"dataType":                     "data_type",
	"minValue":                     "min_value",
	"maxValue":                     "max_value",
	"unit_code":                    "unit_code",
	"classification_id":            "classification_id",
	"additional_classification_id": "additional_classification_id",
	"status":                       "status",
	"dateModified":                 "date_modified",
}

var profileOrderColumns = map[string]string{
	"id":                "id",
	"title":             "title",
	"author":            "author",
	"status":            "status",
	"classification_id": "classification_id",
	"dateModified":      "date_modified",
}

// orderClause builds an ORDER BY from an API ordering value ("-" prefix means
// descending). Unknown fields fall back to the default ordering.
func orderClause(ordering string, columns map[string]string, fallback string) string {
	if ordering == "" {
		return " ORDER BY " + fallback
	}

	direction := "ASC"
	field := ordering
	if strings.HasPrefix(ordering, "-") {
		direction = "DESC"
		field = ordering[1:]
	}

	column, ok := columns[field]
	if !ok {
		return " ORDER BY " + fallback
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, direction)
}

// --- Helpers ---

func criteriaIDs(p *models.Profile) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Criteria))
	for i := range p.Criteria {
		ids = append(ids, p.Criteria[i].ID)
	}
	return ids
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
