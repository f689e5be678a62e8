package catalog

import (
	"context"

	"go.uber.org/zap"

	"brand-catalog-service/internal/auth"
	"brand-catalog-service/internal/domain"
	"brand-catalog-service/internal/slug"
)

// ProjectInput is the create shape for a project.
type ProjectInput struct {
	Name     string         `json:"name" validate:"required,max=200"`
	Settings domain.JSONMap `json:"settings"`
}

// ListProjects returns the caller's projects, newest first.
func (s *Service) ListProjects(ctx context.Context, user auth.User) ([]domain.Project, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	return s.store.ListProjects(ctx, user.ID)
}

// CreateProject creates a project owned by the caller.
func (s *Service) CreateProject(ctx context.Context, user auth.User, in ProjectInput) (*domain.Project, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	return s.store.CreateProject(ctx, &domain.Project{
		UserID:   user.ID,
		Name:     in.Name,
		Status:   "active",
		Settings: in.Settings,
	})
}

// BrandInput is the create shape for a brand. The strategy records are validated once here.
type BrandInput struct {
	ProjectID      *int64                 `json:"project_id" validate:"omitempty,gt=0"`
	Name           string                 `json:"name" validate:"required,max=200"`
	Slug           string                 `json:"slug" validate:"omitempty,max=200"`
	Tagline        *string                `json:"tagline" validate:"omitempty,max=300"`
	Mission        *string                `json:"mission" validate:"omitempty,max=2000"`
	Vision         *string                `json:"vision" validate:"omitempty,max=2000"`
	Values         []string               `json:"values" validate:"max=20,dive,max=200"`
	Personality    *domain.Personality    `json:"personality"`
	Positioning    *domain.Positioning    `json:"positioning"`
	TargetMarket   *domain.TargetMarket   `json:"target_market"`
	VisualIdentity *domain.VisualIdentity `json:"visual_identity"`
	Status         string                 `json:"status" validate:"omitempty,oneof=draft active archived"`
}

// BrandUpdate is a partial brand update. Nil fields are left alone.
type BrandUpdate struct {
	Name           *string                `json:"name" validate:"omitempty,min=1,max=200"`
	Slug           *string                `json:"slug" validate:"omitempty,min=1,max=200"`
	Tagline        *string                `json:"tagline" validate:"omitempty,max=300"`
	Mission        *string                `json:"mission" validate:"omitempty,max=2000"`
	Vision         *string                `json:"vision" validate:"omitempty,max=2000"`
	Values         []string               `json:"values" validate:"omitempty,max=20,dive,max=200"`
	Personality    *domain.Personality    `json:"personality"`
	Positioning    *domain.Positioning    `json:"positioning"`
	TargetMarket   *domain.TargetMarket   `json:"target_market"`
	VisualIdentity *domain.VisualIdentity `json:"visual_identity"`
	Status         *string                `json:"status" validate:"omitempty,oneof=draft active archived"`
}

// ListBrands returns every brand the caller owns, directly or through a project.
func (s *Service) ListBrands(ctx context.Context, user auth.User) ([]domain.Brand, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	return s.store.ListBrands(ctx, user.ID)
}

// GetBrand returns one brand after resolving ownership.
func (s *Service) GetBrand(ctx context.Context, user auth.User, brandID int64) (*domain.Brand, error) {
	if _, err := s.owners.Brand(ctx, user, brandID); err != nil {
		return nil, err
	}
	return s.store.GetBrandByID(ctx, brandID)
}

// GetBrandBySlug looks a brand up within the caller's slug scope.
func (s *Service) GetBrandBySlug(ctx context.Context, user auth.User, brandSlug string) (*domain.Brand, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	return s.store.GetBrandBySlug(ctx, user.ID, brandSlug)
}

// CreateBrand creates a brand for the caller, or under one of the caller's projects.
func (s *Service) CreateBrand(ctx context.Context, user auth.User, in BrandInput) (*domain.Brand, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	if in.ProjectID != nil {
		if err := s.owners.Project(ctx, user, *in.ProjectID); err != nil {
			return nil, err
		}
	}

	brandSlug := slug.Make(nonEmptyOr(in.Slug, in.Name))
	if brandSlug == "" {
		return nil, invalid("brand name must contain at least one letter or digit")
	}
	brand := &domain.Brand{
		UserID:      &user.ID,
		ProjectID:   in.ProjectID,
		Name:        in.Name,
		Slug:        brandSlug,
		Tagline:     in.Tagline,
		Mission:     in.Mission,
		Vision:      in.Vision,
		Values:      in.Values,
		Status:      nonEmptyOr(in.Status, "draft"),
		Personality: valueOr(in.Personality, domain.Personality{}),
		Positioning: valueOr(in.Positioning, domain.Positioning{}),
	}
	brand.TargetMarket = valueOr(in.TargetMarket, domain.TargetMarket{})
	brand.VisualIdentity = valueOr(in.VisualIdentity, domain.VisualIdentity{})
	if brand.Values == nil {
		brand.Values = []string{}
	}

	created, err := s.store.CreateBrand(ctx, brand)
	if err != nil {
		return nil, err
	}
	s.logger.Info("brand created", zap.Int64("brand_id", created.ID), zap.String("user_id", user.ID))
	return created, nil
}

// UpdateBrand applies a partial update.
func (s *Service) UpdateBrand(ctx context.Context, user auth.User, brandID int64, in BrandUpdate) (*domain.Brand, error) {
	if _, err := s.owners.Brand(ctx, user, brandID); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	brand, err := s.store.GetBrandByID(ctx, brandID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		brand.Name = *in.Name
	}
	if in.Slug != nil {
		brand.Slug = slug.Make(*in.Slug)
		if brand.Slug == "" {
			return nil, invalid("slug must contain at least one letter or digit")
		}
	}
	if in.Tagline != nil {
		brand.Tagline = in.Tagline
	}
	if in.Mission != nil {
		brand.Mission = in.Mission
	}
	if in.Vision != nil {
		brand.Vision = in.Vision
	}
	if in.Values != nil {
		brand.Values = in.Values
	}
	if in.Personality != nil {
		brand.Personality = *in.Personality
	}
	if in.Positioning != nil {
		brand.Positioning = *in.Positioning
	}
	if in.TargetMarket != nil {
		brand.TargetMarket = *in.TargetMarket
	}
	if in.VisualIdentity != nil {
		brand.VisualIdentity = *in.VisualIdentity
	}
	if in.Status != nil {
		brand.Status = *in.Status
	}
	return s.store.UpdateBrand(ctx, brand)
}

// DeleteBrand removes a brand and, through the store's cascade, everything under it.
func (s *Service) DeleteBrand(ctx context.Context, user auth.User, brandID int64) error {
	if _, err := s.owners.Brand(ctx, user, brandID); err != nil {
		return err
	}
	if err := s.store.DeleteBrand(ctx, brandID); err != nil {
		return err
	}
	s.logger.Info("brand deleted", zap.Int64("brand_id", brandID), zap.String("user_id", user.ID))
	return nil
}
