package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"brand-catalog-service/internal/ai"
	"brand-catalog-service/internal/auth"
	"brand-catalog-service/internal/catalog"
	"brand-catalog-service/internal/domain"
	"brand-catalog-service/internal/metrics"
	"brand-catalog-service/internal/ownership"
	"brand-catalog-service/internal/slug"
	"brand-catalog-service/internal/store"
)

// PhaseGenerator produces the payload of one brand wizard phase.
type PhaseGenerator interface {
	GenerateBrandPhase(ctx context.Context, phase int, transcript []ai.Message) (json.RawMessage, error)
}

// BrandCreator persists the finished strategy.
type BrandCreator interface {
	CreateBrand(ctx context.Context, user auth.User, in catalog.BrandInput) (*domain.Brand, error)
}

// BrandWizard drives brand wizard sessions. Generations run in the background;
// their results are applied to the session as PayloadReceived events.
type BrandWizard struct {
	sessions SessionStore
	gen      PhaseGenerator
	brands   BrandCreator
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	// mu serializes load-transition-store cycles.
	mu sync.Mutex

	genMu    sync.Mutex
	inflight map[string]*generation
	ctx      context.Context
	stop     context.CancelFunc
	wg       sync.WaitGroup
}

type generation struct {
	phase  Phase
	cancel context.CancelFunc
}

// NewBrandWizard creates a BrandWizard. Call Close to stop in-flight generations.
func NewBrandWizard(sessions SessionStore, gen PhaseGenerator, brands BrandCreator, logger *zap.Logger, m *metrics.Metrics) *BrandWizard {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, stop := context.WithCancel(context.Background())
	return &BrandWizard{
		sessions: sessions,
		gen:      gen,
		brands:   brands,
		logger:   logger.Named("brand_wizard"),
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
		inflight: map[string]*generation{},
		ctx:      ctx,
		stop:     stop,
	}
}

// Close cancels every in-flight generation and waits for them to return.
func (w *BrandWizard) Close() {
	w.stop()
	w.wg.Wait()
}

// Wait blocks until the generations started so far have finished.
func (w *BrandWizard) Wait() { w.wg.Wait() }

// Create starts an empty session for user. projectID is carried to the saved brand.
func (w *BrandWizard) Create(ctx context.Context, user auth.User, projectID *int64) (*Session, error) {
	if user.ID == "" {
		return nil, ownership.ErrUnauthenticated
	}
	now := w.now()
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ProjectID: projectID,
		State:     NewState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := w.sessions.Put(ctx, s); err != nil {
		return nil, err
	}
	w.logger.Info("session created", zap.String("session_id", s.ID), zap.String("user_id", user.ID))
	return s, nil
}

// Get returns the caller's session.
func (w *BrandWizard) Get(ctx context.Context, user auth.User, id string) (*Session, error) {
	return w.load(ctx, user, id)
}

// Generating reports whether a generation for the session is in flight.
func (w *BrandWizard) Generating(id string) bool {
	w.genMu.Lock()
	defer w.genMu.Unlock()
	_, ok := w.inflight[id]
	return ok
}

func (w *BrandWizard) load(ctx context.Context, user auth.User, id string) (*Session, error) {
	if user.ID == "" {
		return nil, ownership.ErrUnauthenticated
	}
	s, err := w.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.UserID != user.ID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (w *BrandWizard) apply(ctx context.Context, user auth.User, id string, e Event) (*Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.load(ctx, user, id)
	if err != nil {
		return nil, err
	}
	next, err := Transition(s.State, e)
	w.metrics.ObserveWizardEvent(EventName(e), err)
	if err != nil {
		return nil, err
	}
	s.State = next
	s.UpdatedAt = w.now()
	switch e.(type) {
	case Start, Select, Discard:
		s.GenerationError = ""
	}
	if err := w.sessions.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Start submits the brief and kicks off phase 1.
func (w *BrandWizard) Start(ctx context.Context, user auth.User, id, prompt string) (*Session, error) {
	s, err := w.apply(ctx, user, id, Start{Prompt: prompt})
	if err != nil {
		return nil, err
	}
	w.launch(s)
	return s, nil
}

// Select picks a proposal of the current phase and kicks off the next phase.
func (w *BrandWizard) Select(ctx context.Context, user auth.User, id string, phase Phase, index int) (*Session, error) {
	s, err := w.apply(ctx, user, id, Select{Phase: phase, Index: index})
	if err != nil {
		return nil, err
	}
	w.launch(s)
	return s, nil
}

// Advance moves the session to target.
func (w *BrandWizard) Advance(ctx context.Context, user auth.User, id string, target Phase) (*Session, error) {
	return w.apply(ctx, user, id, Advance{Target: target})
}

// Retry restarts the generation of the awaited phase after a failure.
func (w *BrandWizard) Retry(ctx context.Context, user auth.User, id string) (*Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.load(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if s.State.Awaiting == "" {
		return nil, fmt.Errorf("%w: nothing to regenerate", ErrInvalidTransition)
	}
	if w.Generating(id) {
		return nil, fmt.Errorf("%w: generation already running", ErrInvalidTransition)
	}
	s.GenerationError = ""
	s.UpdatedAt = w.now()
	if err := w.sessions.Put(ctx, s); err != nil {
		return nil, err
	}
	w.launch(s)
	return s, nil
}

// Discard cancels any in-flight generation and resets the session. Results of
// earlier generations are rejected afterwards because the epoch moves on.
func (w *BrandWizard) Discard(ctx context.Context, user auth.User, id string) (*Session, error) {
	if _, err := w.load(ctx, user, id); err != nil {
		return nil, err
	}
	w.cancelGeneration(id)
	s, err := w.apply(ctx, user, id, Discard{})
	if err != nil {
		return nil, err
	}
	w.logger.Info("session discarded", zap.String("session_id", id), zap.Int("epoch", s.State.Epoch))
	return s, nil
}

// Save persists the phase 5 strategy as a brand and completes the session.
func (w *BrandWizard) Save(ctx context.Context, user auth.User, id string) (*Session, *domain.Brand, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.load(ctx, user, id)
	if err != nil {
		return nil, nil, err
	}
	next, err := Transition(s.State, Save{})
	if err != nil {
		w.metrics.ObserveWizardEvent("save", err)
		return nil, nil, err
	}
	strategy, err := StrategyFromPayload(s.State.Payloads[Phase5])
	if err != nil {
		w.metrics.ObserveWizardEvent("save", err)
		return nil, nil, err
	}
	brand, err := w.createBrand(ctx, user, strategy.BrandInput(s.ProjectID))
	w.metrics.ObserveWizardEvent("save", err)
	if err != nil {
		return nil, nil, err
	}

	s.State = next
	s.BrandID = &brand.ID
	s.UpdatedAt = w.now()
	if err := w.sessions.Put(ctx, s); err != nil {
		return nil, nil, err
	}
	w.logger.Info("brand saved from wizard",
		zap.String("session_id", id),
		zap.Int64("brand_id", brand.ID),
		zap.String("brand_slug", brand.Slug),
	)
	return s, brand, nil
}

// maxSlugSuffix bounds the numeric suffixes tried when the strategy's slug is taken.
const maxSlugSuffix = 20

// createBrand creates the brand, appending -2, -3, ... to the slug while the
// caller already owns a brand with it.
func (w *BrandWizard) createBrand(ctx context.Context, user auth.User, in catalog.BrandInput) (*domain.Brand, error) {
	base := slug.Make(in.Name)
	for n := 2; ; n++ {
		brand, err := w.brands.CreateBrand(ctx, user, in)
		if !errors.Is(err, store.ErrBrandSlugExists) || base == "" || n > maxSlugSuffix {
			return brand, err
		}
		in.Slug = fmt.Sprintf("%s-%d", base, n)
	}
}

// launch generates the awaited phase of s in the background.
func (w *BrandWizard) launch(s *Session) {
	phase := s.State.Awaiting
	if phase == "" {
		return
	}
	ctx, cancel := context.WithCancel(w.ctx)
	g := &generation{phase: phase, cancel: cancel}

	w.genMu.Lock()
	if old, ok := w.inflight[s.ID]; ok {
		old.cancel()
	}
	w.inflight[s.ID] = g
	w.genMu.Unlock()

	id := s.ID
	user := auth.User{ID: s.UserID}
	epoch := s.State.Epoch
	transcript := slices.Clone(s.State.Messages)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.finish(id, g)

		payload, err := w.gen.GenerateBrandPhase(ctx, phase.Index(), transcript)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Debug("generation cancelled", zap.String("session_id", id), zap.String("phase", string(phase)))
				return
			}
			w.recordFailure(user, id, phase, epoch, err)
			return
		}
		_, err = w.apply(ctx, user, id, PayloadReceived{Phase: phase, Payload: payload, Epoch: epoch})
		switch {
		case errors.Is(err, ErrStalePayload):
			w.logger.Info("late payload dropped", zap.String("session_id", id), zap.String("phase", string(phase)))
		case err != nil:
			w.recordFailure(user, id, phase, epoch, err)
		}
	}()
}

func (w *BrandWizard) finish(id string, g *generation) {
	w.genMu.Lock()
	if w.inflight[id] == g {
		delete(w.inflight, id)
	}
	w.genMu.Unlock()
	g.cancel()
}

func (w *BrandWizard) cancelGeneration(id string) {
	w.genMu.Lock()
	g, ok := w.inflight[id]
	delete(w.inflight, id)
	w.genMu.Unlock()
	if ok {
		g.cancel()
	}
}

func (w *BrandWizard) recordFailure(user auth.User, id string, phase Phase, epoch int, cause error) {
	w.metrics.ObserveWizardEvent("generate", cause)
	w.logger.Error("generation failed", zap.String("session_id", id), zap.String("phase", string(phase)), zap.Error(cause))

	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.load(w.ctx, user, id)
	if err != nil || s.State.Epoch != epoch || s.State.Awaiting != phase {
		return
	}
	s.GenerationError = cause.Error()
	s.UpdatedAt = w.now()
	if err := w.sessions.Put(w.ctx, s); err != nil {
		w.logger.Error("store generation failure", zap.String("session_id", id), zap.Error(err))
	}
}
