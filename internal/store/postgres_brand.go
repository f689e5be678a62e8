package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"brand-catalog-service/internal/domain"
)

const (
	projectColumns = `id, user_id, name, status, settings, created_at, updated_at`

	createProjectQuery = `
		INSERT INTO projects (user_id, name, status, settings)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + projectColumns + `;`

	listProjectsQuery = `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE user_id = $1
		ORDER BY created_at DESC;`

	brandColumns = `id, user_id, project_id, name, slug, tagline, mission, vision, brand_values,
		personality, positioning, target_market, visual_identity, status, created_at, updated_at`

	// brandOwnedBy matches brands owned directly or, when user_id is unset, through
	// one of the user's projects. A set user_id always wins over the project.
	brandOwnedBy = `(user_id = $1 OR (user_id IS NULL AND project_id IN (SELECT id FROM projects WHERE user_id = $1)))`

	createBrandQuery = `
		INSERT INTO brands (user_id, project_id, name, slug, tagline, mission, vision, brand_values,
			personality, positioning, target_market, visual_identity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + brandColumns + `;`

	getBrandByIDQuery = `SELECT ` + brandColumns + ` FROM brands WHERE id = $1;`

	getBrandBySlugQuery = `SELECT ` + brandColumns + ` FROM brands WHERE ` + brandOwnedBy + ` AND slug = $2;`

	listBrandsQuery = `
		SELECT ` + brandColumns + `
		FROM brands
		WHERE ` + brandOwnedBy + `
		ORDER BY created_at DESC;`

	updateBrandQuery = `
		UPDATE brands
		SET name = $1, slug = $2, tagline = $3, mission = $4, vision = $5, brand_values = $6,
			personality = $7, positioning = $8, target_market = $9, visual_identity = $10, status = $11,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $12
		RETURNING ` + brandColumns + `;`

	deleteBrandQuery = `DELETE FROM brands WHERE id = $1;`
)

// --- ProjectStorer Implementation ---

func (s *PostgresStore) CreateProject(ctx context.Context, project *domain.Project) (*domain.Project, error) {
	var created domain.Project
	err := s.db.QueryRowxContext(ctx, createProjectQuery,
		project.UserID, project.Name, project.Status, project.Settings,
	).StructScan(&created)
	if err != nil {
		return nil, fmt.Errorf("store: CreateProject failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context, userID string) ([]domain.Project, error) {
	projects := []domain.Project{}
	if err := s.db.SelectContext(ctx, &projects, listProjectsQuery, userID); err != nil {
		return nil, fmt.Errorf("store: ListProjects failed to query projects: %w", err)
	}
	return projects, nil
}

// --- BrandStorer Implementation ---

func (s *PostgresStore) CreateBrand(ctx context.Context, brand *domain.Brand) (*domain.Brand, error) {
	var created domain.Brand
	err := s.db.QueryRowxContext(ctx, createBrandQuery,
		brand.UserID, brand.ProjectID, brand.Name, brand.Slug, brand.Tagline, brand.Mission, brand.Vision,
		brand.Values, brand.Personality, brand.Positioning, brand.TargetMarket, brand.VisualIdentity, brand.Status,
	).StructScan(&created)
	if err != nil {
		if uniqueViolationOn(err, "slug") {
			return nil, ErrBrandSlugExists
		}
		return nil, fmt.Errorf("store: CreateBrand failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetBrandByID(ctx context.Context, id int64) (*domain.Brand, error) {
	var brand domain.Brand
	if err := s.db.GetContext(ctx, &brand, getBrandByIDQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBrandNotFound
		}
		return nil, fmt.Errorf("store: GetBrandByID failed to scan row: %w", err)
	}
	return &brand, nil
}

func (s *PostgresStore) GetBrandBySlug(ctx context.Context, userID, slug string) (*domain.Brand, error) {
	var brand domain.Brand
	if err := s.db.GetContext(ctx, &brand, getBrandBySlugQuery, userID, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBrandNotFound
		}
		return nil, fmt.Errorf("store: GetBrandBySlug failed to scan row: %w", err)
	}
	return &brand, nil
}

func (s *PostgresStore) ListBrands(ctx context.Context, userID string) ([]domain.Brand, error) {
	brands := []domain.Brand{}
	if err := s.db.SelectContext(ctx, &brands, listBrandsQuery, userID); err != nil {
		return nil, fmt.Errorf("store: ListBrands failed to query brands: %w", err)
	}
	return brands, nil
}

func (s *PostgresStore) UpdateBrand(ctx context.Context, brand *domain.Brand) (*domain.Brand, error) {
	var updated domain.Brand
	err := s.db.QueryRowxContext(ctx, updateBrandQuery,
		brand.Name, brand.Slug, brand.Tagline, brand.Mission, brand.Vision, brand.Values,
		brand.Personality, brand.Positioning, brand.TargetMarket, brand.VisualIdentity, brand.Status, brand.ID,
	).StructScan(&updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBrandNotFound
		}
		if uniqueViolationOn(err, "slug") {
			return nil, ErrBrandSlugExists
		}
		return nil, fmt.Errorf("store: UpdateBrand failed to scan row: %w", err)
	}
	return &updated, nil
}

func (s *PostgresStore) DeleteBrand(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, deleteBrandQuery, id)
	if err != nil {
		return fmt.Errorf("store: DeleteBrand failed to execute delete: %w", err)
	}
	return checkAffected(res, "DeleteBrand", ErrBrandNotFound)
}
