package ai

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"brand-catalog-service/internal/config"
)

func chunk(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: text}}}}},
	}
}

// fakeStream replays one scripted attempt per call.
type fakeStream struct {
	attempts [][]string
	errs     []error
	calls    int
	contents []*genai.Content
	cfg      *genai.GenerateContentConfig
}

func (f *fakeStream) stream(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	i := f.calls
	f.calls++
	f.contents, f.cfg = contents, cfg
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		if i < len(f.errs) && f.errs[i] != nil {
			yield(nil, f.errs[i])
			return
		}
		if i >= len(f.attempts) {
			return
		}
		for _, text := range f.attempts[i] {
			if !yield(chunk(text), nil) {
				return
			}
		}
	}
}

func testClient(f *fakeStream) *Client {
	c := newClient(f.stream, config.AIConfig{Model: "test-model", MaxRetries: 2}, zap.NewNop(), nil)
	c.retry.InitialBackoff = time.Millisecond
	c.retry.MaxBackoff = time.Millisecond
	return c
}

func TestGenerateBrandPhase_JoinsStreamChunks(t *testing.T) {
	f := &fakeStream{attempts: [][]string{{`{"options":[{"name":"Nor`, `th"},{"name":"Fjord"}]}`}}}
	c := testClient(f)

	transcript := []Message{
		{Role: RoleUser, Content: "outdoor apparel for cold climates"},
	}
	raw, err := c.GenerateBrandPhase(context.Background(), 1, transcript)
	require.NoError(t, err)

	var out struct {
		Options []struct{ Name string } `json:"options"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out.Options, 2)
	assert.Equal(t, "North", out.Options[0].Name)

	assert.Equal(t, 1, f.calls)
	require.Len(t, f.contents, 1)
	assert.Equal(t, string(genai.RoleUser), f.contents[0].Role)
	assert.Equal(t, "application/json", f.cfg.ResponseMIMEType)
	assert.Same(t, phaseSchemas[1], f.cfg.ResponseSchema)
}

func TestGenerateBrandPhase_MapsAssistantRole(t *testing.T) {
	f := &fakeStream{attempts: [][]string{{`{"options":[{}]}`}}}
	c := testClient(f)

	_, err := c.GenerateBrandPhase(context.Background(), 2, []Message{
		{Role: RoleUser, Content: "brief"},
		{Role: RoleAssistant, Content: `{"options":[]}`},
		{Role: RoleUser, Content: `{"phase":1,"selectedOption":{}}`},
	})
	require.NoError(t, err)
	require.Len(t, f.contents, 3)
	assert.Equal(t, string(genai.RoleModel), f.contents[1].Role)
}

func TestGenerateBrandPhase_RetriesMalformedOutput(t *testing.T) {
	f := &fakeStream{attempts: [][]string{
		{`{"options":`},
		{`{"options":[]}`},
		{`{"strategy":{"name":"North"}}`},
	}}
	c := testClient(f)

	raw, err := c.GenerateBrandPhase(context.Background(), 5, []Message{{Role: RoleUser, Content: "x"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"strategy":{"name":"North"}}`, string(raw))
	assert.Equal(t, 3, f.calls)
}

func TestGenerateBrandPhase_GivesUpAfterMaxAttempts(t *testing.T) {
	boom := errors.New("upstream 503")
	f := &fakeStream{errs: []error{boom, boom, boom, boom}}
	c := testClient(f)

	_, err := c.GenerateBrandPhase(context.Background(), 1, []Message{{Role: RoleUser, Content: "x"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, f.calls)
}

func TestGenerateBrandPhase_StopsOnCancelledContext(t *testing.T) {
	f := &fakeStream{errs: []error{context.Canceled}}
	c := testClient(f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GenerateBrandPhase(ctx, 1, []Message{{Role: RoleUser, Content: "x"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.calls)
}

func TestGenerateBrandPhase_Validation(t *testing.T) {
	c := testClient(&fakeStream{})
	_, err := c.GenerateBrandPhase(context.Background(), 6, []Message{{Role: RoleUser, Content: "x"}})
	assert.Error(t, err)
	_, err = c.GenerateBrandPhase(context.Background(), 1, nil)
	assert.Error(t, err)
}

func TestNotConfigured(t *testing.T) {
	c, err := New(context.Background(), config.AIConfig{}, nil, nil)
	require.NoError(t, err)
	assert.False(t, c.Configured())

	_, err = c.GenerateBrandPhase(context.Background(), 1, []Message{{Role: RoleUser, Content: "x"}})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.GenerateCategoryTree(context.Background(), CategoryTreeRequest{BrandName: "Acme"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGenerateCategoryTree(t *testing.T) {
	f := &fakeStream{attempts: [][]string{{`{"categories":[
		{"name":" Tops ","description":"Upper body","subcategories":[{"name":"Tees"},{"name":"  "}]},
		{"name":"","subcategories":[]},
		{"name":"Bottoms","subcategories":[{"name":"Shorts"}]}
	]}`}}}
	c := testClient(f)

	tree, err := c.GenerateCategoryTree(context.Background(), CategoryTreeRequest{
		BrandName: "Acme", ParentCategoryCount: 2, SubcategoryCount: 1,
	})
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "Tops", tree[0].Name)
	require.Len(t, tree[0].Subcategories, 1)
	assert.Equal(t, "Tees", tree[0].Subcategories[0].Name)
	assert.Equal(t, "Bottoms", tree[1].Name)

	require.Len(t, f.contents, 1)
	assert.Contains(t, f.contents[0].Parts[0].Text, "Create 2 parent categories with 1 subcategories each.")
}

func TestBackoffFor(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond, BackoffMultiplier: 2}
	assert.Equal(t, 100*time.Millisecond, backoffFor(0, cfg))
	assert.Equal(t, 200*time.Millisecond, backoffFor(1, cfg))
	assert.Equal(t, 300*time.Millisecond, backoffFor(2, cfg))
}
