package ai

import "google.golang.org/genai"

func str(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func strList(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Description: desc, Items: &genai.Schema{Type: genai.TypeString}}
}

func object(required []string, props map[string]*genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}

// optionsOf wraps a proposal schema in {"options": [...]}.
func optionsOf(item *genai.Schema) *genai.Schema {
	return object([]string{"options"}, map[string]*genai.Schema{
		"options": {Type: genai.TypeArray, Items: item},
	})
}

var personalitySchema = object([]string{"archetype", "traits", "voice", "tone"}, map[string]*genai.Schema{
	"archetype": str("Brand archetype, e.g. The Explorer"),
	"traits":    strList("Personality traits"),
	"voice":     str("How the brand speaks"),
	"tone":      strList("Tone descriptors"),
})

var positioningSchema = object([]string{"statement", "category", "differentiators"}, map[string]*genai.Schema{
	"statement":       str("Positioning statement"),
	"category":        str("Market category"),
	"differentiators": strList("What sets the brand apart"),
	"price_positioning": {
		Type: genai.TypeString,
		Enum: []string{"budget", "mid-market", "premium", "luxury"},
	},
	"competitive_advantage": str("The single strongest advantage"),
})

var targetMarketSchema = object([]string{"demographics", "psychographics", "pain_points"}, map[string]*genai.Schema{
	"demographics":   str("Who the customers are"),
	"psychographics": str("What the customers value"),
	"pain_points":    strList("Problems the brand solves"),
	"segments":       strList("Named customer segments"),
})

var visualIdentitySchema = object([]string{"primary_colors", "typography"}, map[string]*genai.Schema{
	"primary_colors":   strList("Hex colors"),
	"secondary_colors": strList("Hex colors"),
	"typography":       str("Type direction"),
	"logo_direction":   str("Logo concept"),
	"imagery_style":    str("Photography and illustration style"),
})

// phaseSchemas are the response schemas of the five brand wizard phases.
var phaseSchemas = map[int]*genai.Schema{
	1: optionsOf(object([]string{"name", "tagline", "concept"}, map[string]*genai.Schema{
		"name":    str("Brand name"),
		"tagline": str("Short tagline"),
		"concept": str("One paragraph brand concept"),
		"mission": str("Mission statement"),
		"vision":  str("Vision statement"),
		"values":  strList("Core values"),
	})),
	2: optionsOf(positioningSchema),
	3: optionsOf(targetMarketSchema),
	4: optionsOf(object([]string{"personality", "visual_identity"}, map[string]*genai.Schema{
		"personality":     personalitySchema,
		"visual_identity": visualIdentitySchema,
	})),
	5: object([]string{"strategy"}, map[string]*genai.Schema{
		"strategy": object([]string{"name", "tagline", "mission", "vision", "values"}, map[string]*genai.Schema{
			"name":            str("Brand name"),
			"tagline":         str("Tagline"),
			"mission":         str("Mission statement"),
			"vision":          str("Vision statement"),
			"values":          strList("Core values"),
			"personality":     personalitySchema,
			"positioning":     positioningSchema,
			"target_market":   targetMarketSchema,
			"visual_identity": visualIdentitySchema,
		}),
	}),
}

var categoryTreeSchema = object([]string{"categories"}, map[string]*genai.Schema{
	"categories": {
		Type: genai.TypeArray,
		Items: object([]string{"name", "subcategories"}, map[string]*genai.Schema{
			"name":        str("Parent category name"),
			"description": str("Parent category description"),
			"subcategories": {
				Type: genai.TypeArray,
				Items: object([]string{"name"}, map[string]*genai.Schema{
					"name":        str("Subcategory name"),
					"description": str("Subcategory description"),
				}),
			},
		}),
	},
})
