package domain

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
)

// Project is a user workspace. Older brands hang off a project instead of a user.
type Project struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	Status    string    `db:"status" json:"status"`
	Settings  JSONMap   `db:"settings" json:"settings"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Brand is a brand identity profile. Every descriptive field is optional.
type Brand struct {
	ID             int64          `db:"id" json:"id"`
	UserID         *string        `db:"user_id" json:"user_id,omitempty"`
	ProjectID      *int64         `db:"project_id" json:"project_id,omitempty"`
	Name           string         `db:"name" json:"name"`
	Slug           string         `db:"slug" json:"slug"`
	Tagline        *string        `db:"tagline" json:"tagline,omitempty"`
	Mission        *string        `db:"mission" json:"mission,omitempty"`
	Vision         *string        `db:"vision" json:"vision,omitempty"`
	Values         pq.StringArray `db:"brand_values" json:"values"`
	Personality    Personality    `db:"personality" json:"personality"`
	Positioning    Positioning    `db:"positioning" json:"positioning"`
	TargetMarket   TargetMarket   `db:"target_market" json:"target_market"`
	VisualIdentity VisualIdentity `db:"visual_identity" json:"visual_identity"`
	Status         string         `db:"status" json:"status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// Personality describes the brand voice.
type Personality struct {
	Archetype string   `json:"archetype,omitempty" validate:"max=120"`
	Traits    []string `json:"traits,omitempty" validate:"max=12,dive,max=80"`
	Voice     string   `json:"voice,omitempty" validate:"max=500"`
	Tone      []string `json:"tone,omitempty" validate:"max=12,dive,max=80"`
}

// Positioning describes where the brand sits in its market.
type Positioning struct {
	Statement            string   `json:"statement,omitempty" validate:"max=1000"`
	Category             string   `json:"category,omitempty" validate:"max=200"`
	Differentiators      []string `json:"differentiators,omitempty" validate:"max=12,dive,max=300"`
	PricePositioning     string   `json:"price_positioning,omitempty" validate:"omitempty,oneof=budget mid-market premium luxury"`
	CompetitiveAdvantage string   `json:"competitive_advantage,omitempty" validate:"max=1000"`
}

// TargetMarket describes the primary audience.
type TargetMarket struct {
	Demographics   string   `json:"demographics,omitempty" validate:"max=1000"`
	Psychographics string   `json:"psychographics,omitempty" validate:"max=1000"`
	PainPoints     []string `json:"pain_points,omitempty" validate:"max=12,dive,max=300"`
	Segments       []string `json:"segments,omitempty" validate:"max=12,dive,max=200"`
}

// VisualIdentity describes the brand's look.
type VisualIdentity struct {
	PrimaryColors   []string `json:"primary_colors,omitempty" validate:"max=8,dive,max=32"`
	SecondaryColors []string `json:"secondary_colors,omitempty" validate:"max=8,dive,max=32"`
	Typography      string   `json:"typography,omitempty" validate:"max=300"`
	LogoDirection   string   `json:"logo_direction,omitempty" validate:"max=1000"`
	ImageryStyle    string   `json:"imagery_style,omitempty" validate:"max=1000"`
}

func (p Personality) Value() (driver.Value, error)    { return valueJSON(p) }
func (p *Personality) Scan(src any) error             { return scanJSON(src, p) }
func (p Positioning) Value() (driver.Value, error)    { return valueJSON(p) }
func (p *Positioning) Scan(src any) error             { return scanJSON(src, p) }
func (t TargetMarket) Value() (driver.Value, error)   { return valueJSON(t) }
func (t *TargetMarket) Scan(src any) error            { return scanJSON(src, t) }
func (v VisualIdentity) Value() (driver.Value, error) { return valueJSON(v) }
func (v *VisualIdentity) Scan(src any) error          { return scanJSON(src, v) }
