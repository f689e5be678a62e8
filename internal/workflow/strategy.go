package workflow

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"brand-catalog-service/internal/catalog"
	"brand-catalog-service/internal/domain"
)

// Strategy is the phase 5 synthesis.
type Strategy struct {
	Name           string                 `json:"name"`
	Tagline        string                 `json:"tagline"`
	Mission        string                 `json:"mission"`
	Vision         string                 `json:"vision"`
	Values         []string               `json:"values"`
	Personality    *domain.Personality    `json:"personality"`
	Positioning    *domain.Positioning    `json:"positioning"`
	TargetMarket   *domain.TargetMarket   `json:"target_market"`
	VisualIdentity *domain.VisualIdentity `json:"visual_identity"`
}

var pricePositions = []string{"budget", "mid-market", "premium", "luxury"}

// StrategyFromPayload decodes a phase 5 payload.
func StrategyFromPayload(raw json.RawMessage) (Strategy, error) {
	var body struct {
		Strategy *Strategy `json:"strategy"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return Strategy{}, fmt.Errorf("workflow: decode strategy: %w", err)
	}
	if body.Strategy == nil {
		return Strategy{}, fmt.Errorf("%w: phase 5 payload has no strategy", ErrInvalidTransition)
	}
	return *body.Strategy, nil
}

// BrandInput flattens the strategy into the brand create shape.
func (s Strategy) BrandInput(projectID *int64) catalog.BrandInput {
	in := catalog.BrandInput{
		ProjectID:      projectID,
		Name:           strings.TrimSpace(s.Name),
		Tagline:        optional(s.Tagline),
		Mission:        optional(s.Mission),
		Vision:         optional(s.Vision),
		Personality:    s.Personality,
		Positioning:    s.Positioning,
		TargetMarket:   s.TargetMarket,
		VisualIdentity: s.VisualIdentity,
	}
	for _, v := range s.Values {
		if v = strings.TrimSpace(v); v != "" {
			in.Values = append(in.Values, v)
		}
	}
	if p := in.Positioning; p != nil && !slices.Contains(pricePositions, p.PricePositioning) {
		cleaned := *p
		cleaned.PricePositioning = ""
		in.Positioning = &cleaned
	}
	return in
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
