package attest

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Invariant names a structural check the registrar enforces on transitions.
type Invariant string

const (
	// InvariantUniqueState rejects a transition whose new state id is empty
	// or already registered.
	InvariantUniqueState Invariant = "unique-state"

	// InvariantLinkedFrom rejects a transition whose `from` is not the
	// current head of its lineage. This is what makes a lineage a chain
	// instead of a tree.
	InvariantLinkedFrom Invariant = "linked-from"

	// InvariantSingleRoot rejects a second root for a lineage and a
	// root flag that disagrees with the `from` pointer.
	InvariantSingleRoot Invariant = "single-root"
)

// AllInvariants returns every defined invariant.
func AllInvariants() []Invariant {
	return []Invariant{InvariantUniqueState, InvariantLinkedFrom, InvariantSingleRoot}
}

// MemoryRegistrar is the reference append-only registrar. States are kept
// in registration order so snapshots of structurally identical registrars
// are byte-identical apart from the snapshot timestamp.
type MemoryRegistrar struct {
	mu         sync.Mutex
	states     map[string]RegisteredState
	order      []string
	heads      map[string]string
	invariants map[Invariant]bool
}

// NewRegistrar creates an empty registrar enforcing all invariants.
func NewRegistrar() *MemoryRegistrar {
	return newRegistrarWith(AllInvariants())
}

func newRegistrarWith(invariants []Invariant) *MemoryRegistrar {
	m := make(map[Invariant]bool, len(invariants))
	for _, inv := range invariants {
		m[inv] = true
	}
	return &MemoryRegistrar{
		states:     make(map[string]RegisteredState),
		heads:      make(map[string]string),
		invariants: m,
	}
}

// Register checks the transition against the enforced invariants and
// appends it when clean. Invariant violations are a rejected result, not
// an error: the contract worked, the transition was invalid.
func (r *MemoryRegistrar) Register(_ context.Context, t Transition) (*RegistrationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var violations []Violation
	add := func(format string, args ...any) {
		violations = append(violations, Violation{Message: fmt.Sprintf(format, args...)})
	}

	if t.Lineage == "" {
		add("transition is missing a lineage key")
	}

	if r.invariants[InvariantUniqueState] {
		if t.To.ID == "" {
			add("new state has no id")
		} else if _, dup := r.states[t.To.ID]; dup {
			add("state %s is already registered", t.To.ID)
		}
	}

	head, hasHead := r.heads[t.Lineage]

	if r.invariants[InvariantSingleRoot] {
		if t.From == "" && hasHead {
			add("lineage %s already has a root: state %s cannot be a second one", t.Lineage, t.To.ID)
		}
		if t.To.IsRoot != (t.From == "") {
			add("root flag disagrees with from pointer on state %s", t.To.ID)
		}
	}

	if r.invariants[InvariantLinkedFrom] {
		if t.From != "" && !hasHead {
			add("lineage %s has no states to transition from", t.Lineage)
		}
		if t.From != "" && hasHead && t.From != head {
			add("transition forks lineage %s: from %s but head is %s", t.Lineage, t.From, head)
		}
	}

	if len(violations) > 0 {
		return &RegistrationResult{Kind: ResultRejected, Violations: violations}, nil
	}

	r.states[t.To.ID] = RegisteredState{Lineage: t.Lineage, From: t.From, State: t.To}
	r.order = append(r.order, t.To.ID)
	r.heads[t.Lineage] = t.To.ID

	return &RegistrationResult{Kind: ResultAccepted, StateID: t.To.ID}, nil
}

// Head returns the current head state id of a lineage.
func (r *MemoryRegistrar) Head(lineage string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	head, ok := r.heads[lineage]
	return head, ok
}

// State returns a registered state by id.
func (r *MemoryRegistrar) State(id string) (RegisteredState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[id]
	return s, ok
}

// Snapshot exports the registrar state losslessly.
func (r *MemoryRegistrar) Snapshot() (*RegistrarSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make([]RegisteredState, 0, len(r.order))
	for _, id := range r.order {
		states = append(states, r.states[id])
	}
	lineages := make(map[string]string, len(r.heads))
	for k, v := range r.heads {
		lineages[k] = v
	}

	return &RegistrarSnapshot{
		CreatedAt: time.Now().UTC(),
		States:    states,
		Lineages:  lineages,
	}, nil
}

// RestoreMode selects how much a restore re-verifies.
type RestoreMode string

const (
	// RestoreStrict replays every recorded transition through the normal
	// registration path, re-checking the selected invariants.
	RestoreStrict RestoreMode = "strict"

	// RestoreFast installs the snapshot as-is, trusting it.
	RestoreFast RestoreMode = "fast"
)

// RestoreOptions controls RegistrarFromSnapshot. An empty Invariants list
// means all of them.
type RestoreOptions struct {
	Mode       RestoreMode
	Invariants []Invariant
}

// RegistrarFromSnapshot reconstructs a registrar purely from a snapshot.
//
// In strict mode a snapshot whose transitions would not re-register cleanly
// is a contract violation and fails; this is what the replay verifier
// relies on to prove the persistence format is lossless.
func RegistrarFromSnapshot(snap *RegistrarSnapshot, opts RestoreOptions) (*MemoryRegistrar, error) {
	if snap == nil {
		return nil, fmt.Errorf("registrar: nil snapshot")
	}

	invariants := opts.Invariants
	if len(invariants) == 0 {
		invariants = AllInvariants()
	}
	r := newRegistrarWith(invariants)

	switch opts.Mode {
	case RestoreFast:
		for _, rs := range snap.States {
			r.states[rs.State.ID] = rs
			r.order = append(r.order, rs.State.ID)
		}
		for k, v := range snap.Lineages {
			r.heads[k] = v
		}
		return r, nil

	case RestoreStrict, "":
		for _, rs := range snap.States {
			result, err := r.Register(context.Background(), Transition{
				Lineage: rs.Lineage,
				From:    rs.From,
				To:      rs.State,
			})
			if err != nil {
				return nil, fmt.Errorf("registrar restore: %w", err)
			}
			if result.Kind == ResultRejected {
				return nil, fmt.Errorf("registrar restore: snapshot replay rejected state %s: %s",
					rs.State.ID, result.Violations[0].Message)
			}
		}
		// The replayed heads must agree with the recorded ones.
		for lineage, head := range snap.Lineages {
			if r.heads[lineage] != head {
				return nil, fmt.Errorf("registrar restore: lineage %s head %s does not match snapshot head %s",
					lineage, r.heads[lineage], head)
			}
		}
		return r, nil

	default:
		return nil, fmt.Errorf("registrar restore: unknown mode %q", opts.Mode)
	}
}
