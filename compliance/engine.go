// Package compliance holds the hiring-hall compliance state machine.
//
// Everything in this package is pure: no storage, no clock, no logging.
// The run executor (workflow package) owns sequencing and persistence and
// calls in here for every state transition.
package compliance

import "strings"

type Code string

const (
	CodeCompliant    Code = "C"
	CodeNoncompliant Code = "N"
)

type Flag string

const (
	FlagYes Flag = "Y"
	FlagNo  Flag = "N"
)

const (
	StatusCompliant    = "Compliant"
	StatusNoncompliant = "Noncompliant"

	// HireTypeDispatch is the only hire type that pays down dispatch debt.
	// Every other string, dirty import data included, counts as a direct
	// hire; the engine never rejects input.
	HireTypeDispatch = "dispatch"
	HireTypeDirect   = "direct"
)

// State is the per-contractor working value threaded through one run's
// hire replay. NextHireDispatch is derived from the two counters after
// every mutation and is never taken from storage as authoritative.
type State struct {
	Compliance       Code `json:"compliance"`
	DirectCount      int  `json:"direct_count"`
	DispatchNeeded   int  `json:"dispatch_needed"`
	NextHireDispatch Flag `json:"next_hire_dispatch"`
}

// Seed carries the prior run's report values for a contractor entering a
// new run. Status may be any free-form string; counts default to zero.
type Seed struct {
	Status         string
	DirectCount    int
	DispatchNeeded int
}

// Summary is the read-only projection used by reporting and review flows.
type Summary struct {
	Status           string `json:"status"`
	Code             Code   `json:"code"`
	DirectCount      int    `json:"direct_count"`
	DispatchNeeded   int    `json:"dispatch_needed"`
	NextHireDispatch Flag   `json:"next_hire_dispatch"`
}

// StatusToCode maps a free-form status string to a compliance code.
// Case-insensitive; any string starting with "non" is noncompliant,
// everything else (empty included) is compliant.
func StatusToCode(status string) Code {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(status)), "non") {
		return CodeNoncompliant
	}
	return CodeCompliant
}

// CodeToStatus is the display-side inverse of StatusToCode for the default
// case only; many inputs map to compliant.
func CodeToStatus(code Code) string {
	if code == CodeNoncompliant {
		return StatusNoncompliant
	}
	return StatusCompliant
}

// IsDispatchHire normalizes a raw hire-type string.
func IsDispatchHire(hireType string) bool {
	return strings.EqualFold(strings.TrimSpace(hireType), HireTypeDispatch)
}

// NewState builds the initial state for a contractor entering a run.
// A nil seed means the contractor has no prior report row and starts
// compliant with a clean slate. The dispatch flag is always recomputed,
// guarding against stale or inconsistent seed data.
func NewState(seed *Seed, allowedDirect int) *State {
	state := &State{Compliance: CodeCompliant}
	if seed != nil {
		state.Compliance = StatusToCode(seed.Status)
		if seed.DirectCount > 0 {
			state.DirectCount = seed.DirectCount
		}
		if seed.DispatchNeeded > 0 {
			state.DispatchNeeded = seed.DispatchNeeded
		}
	}
	state.recomputeNextHireDispatch(allowedDirect)
	return state
}

// ApplyHire folds one hire event into the state and returns the same
// state for chaining. It is total: unknown hire types are direct hires.
func (s *State) ApplyHire(hireType string, allowedDirect int) *State {
	if IsDispatchHire(hireType) {
		if s.Compliance == CodeCompliant || s.DispatchNeeded == 1 {
			// A single dispatch hire, when at most one is owed, wipes the
			// slate clean rather than leaving a fractional debt.
			s.DispatchNeeded = 0
			s.DirectCount = 0
			s.Compliance = CodeCompliant
		} else {
			// Partial repayment; the contractor stays noncompliant.
			s.DispatchNeeded = decrementFloorZero(s.DispatchNeeded)
			s.DirectCount = decrementFloorZero(s.DirectCount)
		}
	} else {
		s.DirectCount++
		if s.Compliance == CodeCompliant && s.DirectCount == allowedDirect+1 {
			// Crossing the quota by exactly one triggers the first
			// dispatch obligation.
			s.Compliance = CodeNoncompliant
			s.DispatchNeeded = 1
		} else if s.DirectCount > allowedDirect+1 {
			// Already past the tipping point: each further direct hire
			// adds one more owed dispatch.
			s.DispatchNeeded++
		}
	}
	s.recomputeNextHireDispatch(allowedDirect)
	return s
}

// Summary projects the state for reporting.
func (s *State) Summary() Summary {
	return Summary{
		Status:           CodeToStatus(s.Compliance),
		Code:             s.Compliance,
		DirectCount:      s.DirectCount,
		DispatchNeeded:   s.DispatchNeeded,
		NextHireDispatch: s.NextHireDispatch,
	}
}

func (s *State) recomputeNextHireDispatch(allowedDirect int) {
	if s.DispatchNeeded > 0 || s.DirectCount >= allowedDirect {
		s.NextHireDispatch = FlagYes
	} else {
		s.NextHireDispatch = FlagNo
	}
}

func decrementFloorZero(n int) int {
	if n <= 0 {
		return 0
	}
	return n - 1
}
