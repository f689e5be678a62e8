// Package workflow implements the brand wizard state machine, its session
// orchestration and the one-shot catalog wizard.
package workflow

import (
	"encoding/json"
	"errors"
	"fmt"

	"brand-catalog-service/internal/ai"
)

// Phase is a step of the brand wizard.
type Phase string

const (
	PhaseInitial  Phase = "initial"
	Phase1        Phase = "phase1"
	Phase2        Phase = "phase2"
	Phase3        Phase = "phase3"
	Phase4        Phase = "phase4"
	Phase5        Phase = "phase5"
	PhaseComplete Phase = "complete"
)

var phaseOrder = []Phase{PhaseInitial, Phase1, Phase2, Phase3, Phase4, Phase5, PhaseComplete}

// Index is the position of p in the wizard, initial being 0. Unknown phases return -1.
func (p Phase) Index() int {
	for i, q := range phaseOrder {
		if q == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is one of the enumerated phases.
func (p Phase) Valid() bool { return p.Index() >= 0 }

// selectable reports whether the phase holds proposals the user picks from.
func (p Phase) selectable() bool {
	i := p.Index()
	return i >= 1 && i <= 4
}

func (p Phase) next() Phase {
	i := p.Index()
	if i < 0 || i+1 >= len(phaseOrder) {
		return ""
	}
	return phaseOrder[i+1]
}

func (p Phase) prev() Phase {
	i := p.Index()
	if i <= 0 {
		return ""
	}
	return phaseOrder[i-1]
}

// PhaseNumber maps 1-5 to phase1..phase5.
func PhaseNumber(n int) (Phase, bool) {
	if n < 1 || n > 5 {
		return "", false
	}
	return phaseOrder[n], true
}

var (
	// ErrInvalidTransition is returned for any event the current state does not accept.
	ErrInvalidTransition = errors.New("workflow: invalid transition")
	// ErrPhaseLocked is returned when advancing before the previous phase is complete.
	ErrPhaseLocked = errors.New("workflow: phase is locked")
	// ErrPayloadPending is returned when the target phase's proposals have not arrived yet.
	ErrPayloadPending = errors.New("workflow: phase payload not received yet")
	// ErrStalePayload is returned for a generation result from before a discard.
	ErrStalePayload = errors.New("workflow: stale payload")
	// ErrInvalidSelection is returned for an option index outside the proposals.
	ErrInvalidSelection = errors.New("workflow: invalid selection")
)

// State is the full brand wizard state. It is plain data so sessions can be
// stored as JSON.
type State struct {
	Phase      Phase                     `json:"phase"`
	Awaiting   Phase                     `json:"awaiting,omitempty"`
	Payloads   map[Phase]json.RawMessage `json:"payloads,omitempty"`
	Selections map[Phase]int             `json:"selections,omitempty"`
	Completed  map[Phase]bool            `json:"completed,omitempty"`
	Messages   []ai.Message              `json:"messages,omitempty"`
	Epoch      int                       `json:"epoch"`
}

// NewState returns the initial state.
func NewState() State {
	return State{Phase: PhaseInitial}
}

// CanAdvanceToPhase reports whether the phase before target has its payload
// and has been marked complete. The initial phase has no payload and counts as
// complete once the wizard has been started.
func (s State) CanAdvanceToPhase(target Phase) bool {
	prev := target.prev()
	if prev == "" || target == PhaseComplete {
		return false
	}
	if prev == PhaseInitial {
		return s.Completed[PhaseInitial]
	}
	return s.Payloads[prev] != nil && s.Completed[prev]
}

// Options returns the proposals of a selectable phase.
func (s State) Options(p Phase) ([]json.RawMessage, error) {
	raw := s.Payloads[p]
	if raw == nil {
		return nil, fmt.Errorf("%w: no payload for %s", ErrPayloadPending, p)
	}
	var body struct {
		Options []json.RawMessage `json:"options"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("workflow: decode %s payload: %w", p, err)
	}
	return body.Options, nil
}

// Event is an input to Transition.
type Event interface {
	eventName() string
}

// Start submits the founder's brief and requests the phase 1 proposals.
type Start struct{ Prompt string }

// PayloadReceived delivers a generated payload for the awaited phase. Epoch
// must match the state epoch at the time the generation was requested.
type PayloadReceived struct {
	Phase   Phase
	Payload json.RawMessage
	Epoch   int
}

// Select picks one proposal of the current phase and requests the next phase.
type Select struct {
	Phase Phase
	Index int
}

// Advance moves to the next phase.
type Advance struct{ Target Phase }

// Save finishes the wizard after the phase 5 strategy was persisted.
type Save struct{}

// Discard resets the wizard.
type Discard struct{}

func (Start) eventName() string           { return "start" }
func (PayloadReceived) eventName() string { return "payload" }
func (Select) eventName() string          { return "select" }
func (Advance) eventName() string         { return "advance" }
func (Save) eventName() string            { return "save" }
func (Discard) eventName() string         { return "discard" }

// EventName returns the metric label of an event.
func EventName(e Event) string { return e.eventName() }

// Transition applies e to s. It never mutates s; the returned state shares no
// maps or slices with it.
func Transition(s State, e Event) (State, error) {
	if _, ok := e.(Discard); ok {
		next := NewState()
		next.Epoch = s.Epoch + 1
		return next, nil
	}
	if s.Phase == PhaseComplete {
		return s, fmt.Errorf("%w: wizard is complete", ErrInvalidTransition)
	}

	switch ev := e.(type) {
	case Start:
		if s.Phase != PhaseInitial || s.Completed[PhaseInitial] {
			return s, fmt.Errorf("%w: wizard already started", ErrInvalidTransition)
		}
		if ev.Prompt == "" {
			return s, fmt.Errorf("%w: prompt is required", ErrInvalidTransition)
		}
		next := s.clone()
		next.Completed[PhaseInitial] = true
		next.Messages = append(next.Messages, ai.Message{Role: ai.RoleUser, Content: ev.Prompt})
		next.Awaiting = Phase1
		return next, nil

	case PayloadReceived:
		if ev.Epoch != s.Epoch {
			return s, fmt.Errorf("%w: epoch %d, session at %d", ErrStalePayload, ev.Epoch, s.Epoch)
		}
		if s.Awaiting == "" || ev.Phase != s.Awaiting {
			return s, fmt.Errorf("%w: unexpected payload for %s", ErrInvalidTransition, ev.Phase)
		}
		if !json.Valid(ev.Payload) {
			return s, fmt.Errorf("%w: payload for %s is not JSON", ErrInvalidTransition, ev.Phase)
		}
		next := s.clone()
		next.Payloads[ev.Phase] = append(json.RawMessage(nil), ev.Payload...)
		next.Messages = append(next.Messages, ai.Message{Role: ai.RoleAssistant, Content: string(ev.Payload)})
		next.Awaiting = ""
		if ev.Phase.selectable() {
			if opts, err := next.Options(ev.Phase); err != nil || len(opts) == 0 {
				return s, fmt.Errorf("%w: payload for %s has no options", ErrInvalidTransition, ev.Phase)
			}
		}
		return next, nil

	case Select:
		if !ev.Phase.selectable() || ev.Phase != s.Phase {
			return s, fmt.Errorf("%w: cannot select in %s while at %s", ErrInvalidTransition, ev.Phase, s.Phase)
		}
		if s.Completed[ev.Phase] {
			return s, fmt.Errorf("%w: %s already submitted", ErrInvalidTransition, ev.Phase)
		}
		opts, err := s.Options(ev.Phase)
		if err != nil {
			return s, err
		}
		if ev.Index < 0 || ev.Index >= len(opts) {
			return s, fmt.Errorf("%w: option %d of %d", ErrInvalidSelection, ev.Index, len(opts))
		}
		msg, err := json.Marshal(struct {
			Phase          int             `json:"phase"`
			SelectedOption json.RawMessage `json:"selectedOption"`
		}{ev.Phase.Index(), opts[ev.Index]})
		if err != nil {
			return s, fmt.Errorf("workflow: encode selection: %w", err)
		}
		next := s.clone()
		next.Selections[ev.Phase] = ev.Index
		next.Completed[ev.Phase] = true
		next.Messages = append(next.Messages, ai.Message{Role: ai.RoleUser, Content: string(msg)})
		next.Awaiting = ev.Phase.next()
		return next, nil

	case Advance:
		if ev.Target != s.Phase.next() || ev.Target == PhaseComplete {
			return s, fmt.Errorf("%w: cannot advance from %s to %s", ErrInvalidTransition, s.Phase, ev.Target)
		}
		if !s.CanAdvanceToPhase(ev.Target) {
			return s, fmt.Errorf("%w: %s", ErrPhaseLocked, ev.Target)
		}
		if s.Payloads[ev.Target] == nil {
			return s, fmt.Errorf("%w: %s", ErrPayloadPending, ev.Target)
		}
		next := s.clone()
		next.Phase = ev.Target
		return next, nil

	case Save:
		if s.Phase != Phase5 || s.Payloads[Phase5] == nil {
			return s, fmt.Errorf("%w: only the phase 5 strategy can be saved", ErrInvalidTransition)
		}
		next := s.clone()
		next.Completed[Phase5] = true
		next.Phase = PhaseComplete
		return next, nil
	}
	return s, fmt.Errorf("%w: unknown event %T", ErrInvalidTransition, e)
}

func (s State) clone() State {
	out := s
	out.Payloads = make(map[Phase]json.RawMessage, len(s.Payloads)+1)
	for k, v := range s.Payloads {
		out.Payloads[k] = v
	}
	out.Selections = make(map[Phase]int, len(s.Selections)+1)
	for k, v := range s.Selections {
		out.Selections[k] = v
	}
	out.Completed = make(map[Phase]bool, len(s.Completed)+1)
	for k, v := range s.Completed {
		out.Completed[k] = v
	}
	out.Messages = append([]ai.Message(nil), s.Messages...)
	return out
}
