package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"brand-catalog-service/internal/ai"
	"brand-catalog-service/internal/auth"
	"brand-catalog-service/internal/catalog"
	"brand-catalog-service/internal/domain"
	"brand-catalog-service/internal/ownership"
	"brand-catalog-service/internal/store"
)

func TestMain(m *testing.M) {
	// genai pulls in opencensus, whose stats worker starts in init and never exits.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

var (
	alice = auth.User{ID: "alice"}
	bob   = auth.User{ID: "bob"}
)

type scriptedGenerator struct {
	mu    sync.Mutex
	calls []int
	block chan struct{}
	fail  error
}

func (g *scriptedGenerator) GenerateBrandPhase(_ context.Context, phase int, _ []ai.Message) (json.RawMessage, error) {
	g.mu.Lock()
	g.calls = append(g.calls, phase)
	block, fail := g.block, g.fail
	g.mu.Unlock()

	if block != nil {
		<-block
	}
	if fail != nil {
		return nil, fail
	}
	if phase == 5 {
		return strategy, nil
	}
	return twoOptions, nil
}

func (g *scriptedGenerator) set(fn func(g *scriptedGenerator)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g)
}

func newWizard(t *testing.T, gen PhaseGenerator) (*BrandWizard, *catalog.Service) {
	t.Helper()
	svc := catalog.NewService(store.NewMemoryStore(zap.NewNop()), zap.NewNop(), nil)
	w := NewBrandWizard(NewMemorySessionStore(time.Hour), gen, svc, zap.NewNop(), nil)
	t.Cleanup(w.Close)
	return w, svc
}

func TestBrandWizard_FullRun(t *testing.T) {
	gen := &scriptedGenerator{}
	w, svc := newWizard(t, gen)
	ctx := context.Background()

	s, err := w.Create(ctx, alice, nil)
	require.NoError(t, err)

	_, err = w.Start(ctx, alice, s.ID, "outdoor apparel for cold climates")
	require.NoError(t, err)
	w.Wait()

	s, err = w.Advance(ctx, alice, s.ID, Phase1)
	require.NoError(t, err)

	for s.Phase() != Phase5 {
		_, err = w.Select(ctx, alice, s.ID, s.Phase(), 1)
		require.NoError(t, err)
		w.Wait()
		s, err = w.Advance(ctx, alice, s.ID, s.Phase().next())
		require.NoError(t, err)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, gen.calls)

	s, brand, err := w.Save(ctx, alice, s.ID)
	require.NoError(t, err)
	assert.Equal(t, PhaseComplete, s.Phase())
	require.NotNil(t, s.BrandID)
	assert.Equal(t, brand.ID, *s.BrandID)
	assert.Equal(t, "North", brand.Name)
	assert.Equal(t, "north", brand.Slug)
	assert.Equal(t, "Made for cold", *brand.Tagline)
	assert.Equal(t, []string{"warmth"}, []string(brand.Values))

	brands, err := svc.ListBrands(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, brands, 1)

	_, _, err = w.Save(ctx, alice, s.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition, "a session saves once")
}

func TestBrandWizard_DiscardRejectsLatePayload(t *testing.T) {
	release := make(chan struct{})
	gen := &scriptedGenerator{block: release}
	w, _ := newWizard(t, gen)
	ctx := context.Background()

	s, err := w.Create(ctx, alice, nil)
	require.NoError(t, err)
	_, err = w.Start(ctx, alice, s.ID, "brief")
	require.NoError(t, err)
	assert.True(t, w.Generating(s.ID))

	s, err = w.Discard(ctx, alice, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, s.State.Epoch)
	assert.False(t, w.Generating(s.ID))

	close(release)
	w.Wait()

	s, err = w.Get(ctx, alice, s.ID)
	require.NoError(t, err)
	assert.Equal(t, PhaseInitial, s.Phase())
	assert.Empty(t, s.State.Payloads, "late payload must not land after discard")
	assert.Empty(t, s.State.Messages)
	assert.Empty(t, s.GenerationError)
}

func TestBrandWizard_GenerationFailureAndRetry(t *testing.T) {
	gen := &scriptedGenerator{fail: errors.New("quota exceeded")}
	w, _ := newWizard(t, gen)
	ctx := context.Background()

	s, err := w.Create(ctx, alice, nil)
	require.NoError(t, err)
	_, err = w.Start(ctx, alice, s.ID, "brief")
	require.NoError(t, err)
	w.Wait()

	s, err = w.Get(ctx, alice, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "quota exceeded", s.GenerationError)
	assert.Equal(t, Phase1, s.State.Awaiting)

	gen.set(func(g *scriptedGenerator) { g.fail = nil })
	_, err = w.Retry(ctx, alice, s.ID)
	require.NoError(t, err)
	w.Wait()

	s, err = w.Get(ctx, alice, s.ID)
	require.NoError(t, err)
	assert.Empty(t, s.GenerationError)
	assert.NotNil(t, s.State.Payloads[Phase1])

	_, err = w.Retry(ctx, alice, s.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition, "nothing awaited")
}

func TestBrandWizard_Ownership(t *testing.T) {
	w, _ := newWizard(t, &scriptedGenerator{})
	ctx := context.Background()

	_, err := w.Create(ctx, auth.User{}, nil)
	assert.ErrorIs(t, err, ownership.ErrUnauthenticated)

	s, err := w.Create(ctx, alice, nil)
	require.NoError(t, err)

	_, err = w.Get(ctx, bob, s.ID)
	assert.ErrorIs(t, err, ownership.ErrNotFound)
	_, err = w.Start(ctx, bob, s.ID, "brief")
	assert.ErrorIs(t, err, ownership.ErrNotFound)
	_, err = w.Discard(ctx, bob, s.ID)
	assert.ErrorIs(t, err, ownership.ErrNotFound)
	_, err = w.Get(ctx, alice, "missing")
	assert.ErrorIs(t, err, ownership.ErrNotFound)
}

// runToPhase5 drives a fresh session of w to the strategy phase.
func runToPhase5(t *testing.T, w *BrandWizard) *Session {
	t.Helper()
	ctx := context.Background()
	s, err := w.Create(ctx, alice, nil)
	require.NoError(t, err)
	_, err = w.Start(ctx, alice, s.ID, "brief")
	require.NoError(t, err)
	w.Wait()
	s, err = w.Advance(ctx, alice, s.ID, Phase1)
	require.NoError(t, err)
	for s.Phase() != Phase5 {
		_, err = w.Select(ctx, alice, s.ID, s.Phase(), 0)
		require.NoError(t, err)
		w.Wait()
		s, err = w.Advance(ctx, alice, s.ID, s.Phase().next())
		require.NoError(t, err)
	}
	return s
}

func TestBrandWizard_SaveSuffixesTakenSlug(t *testing.T) {
	w, svc := newWizard(t, &scriptedGenerator{})
	ctx := context.Background()

	_, err := svc.CreateBrand(ctx, alice, catalog.BrandInput{Name: "North"})
	require.NoError(t, err)
	_, err = svc.CreateBrand(ctx, alice, catalog.BrandInput{Name: "North", Slug: "north-2"})
	require.NoError(t, err)

	s := runToPhase5(t, w)
	s, brand, err := w.Save(ctx, alice, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "north-3", brand.Slug)
	assert.Equal(t, "North", brand.Name)
	assert.Equal(t, PhaseComplete, s.Phase())

	_, err = svc.CreateBrand(ctx, bob, catalog.BrandInput{Name: "North"})
	require.NoError(t, err, "slugs are unique per owner only")
}

type failingCreator struct{ err error }

func (f failingCreator) CreateBrand(context.Context, auth.User, catalog.BrandInput) (*domain.Brand, error) {
	return nil, f.err
}

func TestBrandWizard_SaveFailureKeepsPhase5(t *testing.T) {
	down := errors.New("database unavailable")
	w := NewBrandWizard(NewMemorySessionStore(time.Hour), &scriptedGenerator{}, failingCreator{err: down}, zap.NewNop(), nil)
	t.Cleanup(w.Close)
	ctx := context.Background()

	s := runToPhase5(t, w)
	_, _, err := w.Save(ctx, alice, s.ID)
	assert.ErrorIs(t, err, down)

	s, err = w.Get(ctx, alice, s.ID)
	require.NoError(t, err)
	assert.Equal(t, Phase5, s.Phase())
	assert.Nil(t, s.BrandID)
}

func TestStrategyBrandInput(t *testing.T) {
	st, err := StrategyFromPayload(json.RawMessage(`{"strategy":{
		"name":" North ","tagline":"","mission":"Keep people warm","values":["warmth"," ",""],
		"positioning":{"statement":"s","price_positioning":"ultra"},
		"personality":{"archetype":"The Explorer"}
	}}`))
	require.NoError(t, err)

	projectID := int64(7)
	in := st.BrandInput(&projectID)
	assert.Equal(t, "North", in.Name)
	assert.Nil(t, in.Tagline)
	assert.Equal(t, "Keep people warm", *in.Mission)
	assert.Equal(t, []string{"warmth"}, in.Values)
	assert.Empty(t, in.Positioning.PricePositioning, "unknown price position is dropped")
	assert.Equal(t, "The Explorer", in.Personality.Archetype)
	assert.Equal(t, &projectID, in.ProjectID)

	_, err = StrategyFromPayload(json.RawMessage(`{"options":[]}`))
	assert.Error(t, err)
}

type fakeTreeGenerator struct {
	got  ai.CategoryTreeRequest
	tree []domain.CategoryNode
}

func (f *fakeTreeGenerator) GenerateCategoryTree(_ context.Context, req ai.CategoryTreeRequest) ([]domain.CategoryNode, error) {
	f.got = req
	return f.tree, nil
}

func TestCatalogWizard(t *testing.T) {
	ctx := context.Background()
	svc := catalog.NewService(store.NewMemoryStore(zap.NewNop()), zap.NewNop(), nil)
	brand, err := svc.CreateBrand(ctx, alice, catalog.BrandInput{Name: "Acme", Tagline: domain.Ptr("Gear that lasts")})
	require.NoError(t, err)
	cat, err := svc.CreateCatalog(ctx, alice, brand.ID, catalog.CatalogInput{Name: "Main"})
	require.NoError(t, err)

	gen := &fakeTreeGenerator{tree: []domain.CategoryNode{
		{Name: "Tops", Subcategories: []domain.CategoryNode{{Name: "Tees"}, {Name: "Hoodies"}}},
		{Name: "Bottoms"},
	}}
	w := NewCatalogWizard(svc, gen, zap.NewNop(), nil)

	tree, err := w.Generate(ctx, alice, brand.ID, TreeRequest{})
	require.NoError(t, err)
	assert.Len(t, tree, 2)
	assert.Equal(t, 5, gen.got.ParentCategoryCount)
	assert.Equal(t, 3, gen.got.SubcategoryCount)
	assert.Equal(t, "Acme", gen.got.BrandName)
	assert.Contains(t, gen.got.BrandContext, "Gear that lasts")

	_, err = w.Generate(ctx, bob, brand.ID, TreeRequest{})
	assert.ErrorIs(t, err, ownership.ErrNotFound)
	_, err = w.Generate(ctx, alice, brand.ID, TreeRequest{ParentCategoryCount: 50})
	assert.True(t, catalog.IsValidation(err))

	created, err := w.Save(ctx, alice, cat.ID, tree)
	require.NoError(t, err)
	require.Len(t, created, 4)

	byName := map[string]domain.Category{}
	for _, c := range created {
		byName[c.Name] = c
	}
	require.NotNil(t, byName["Tees"].ParentCategoryID)
	assert.Equal(t, byName["Tops"].ID, *byName["Tees"].ParentCategoryID)
	assert.Nil(t, byName["Bottoms"].ParentCategoryID)

	_, err = w.Save(ctx, bob, cat.ID, tree)
	assert.ErrorIs(t, err, ownership.ErrNotFound)
}
