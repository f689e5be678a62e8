package ai

import (
	"fmt"
	"strings"
)

const brandSystemPrompt = `You are a senior brand strategist guiding a founder through a five phase brand workshop.
Each user message is either the founder's brief or a JSON object {"phase": n, "selectedOption": {...}}
recording the proposal they picked in phase n. Build on every earlier choice.
Respond only with JSON that matches the response schema.`

var phaseInstructions = map[int]string{
	1: "Phase 1: propose 3 distinct brand concepts (name, tagline, concept, mission, vision, values).",
	2: "Phase 2: propose 3 market positioning strategies for the chosen concept.",
	3: "Phase 3: propose 3 target market definitions that fit the chosen positioning.",
	4: "Phase 4: propose 3 combinations of brand personality and visual identity.",
	5: "Phase 5: synthesize every selection so far into one complete brand strategy.",
}

func phaseInstruction(phase int) string {
	return brandSystemPrompt + "\n\n" + phaseInstructions[phase]
}

const categorySystemPrompt = `You design e-commerce category trees. Use short, shopper friendly names.
Do not repeat a name anywhere in the tree. Respond only with JSON that matches the response schema.`

// CategoryTreeRequest describes the catalog the wizard should structure.
type CategoryTreeRequest struct {
	BrandName           string
	BrandContext        string
	CatalogName         string
	ParentCategoryCount int
	SubcategoryCount    int
	Notes               string
}

func (r CategoryTreeRequest) prompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Brand: %s\n", r.BrandName)
	if r.BrandContext != "" {
		fmt.Fprintf(&b, "About the brand: %s\n", r.BrandContext)
	}
	if r.CatalogName != "" {
		fmt.Fprintf(&b, "Catalog: %s\n", r.CatalogName)
	}
	fmt.Fprintf(&b, "Create %d parent categories with %d subcategories each.\n", r.ParentCategoryCount, r.SubcategoryCount)
	if r.Notes != "" {
		fmt.Fprintf(&b, "Additional guidance: %s\n", r.Notes)
	}
	return b.String()
}
