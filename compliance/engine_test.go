package compliance

import (
	"math/rand"
	"testing"
)

func TestStatusToCode(t *testing.T) {
	cases := []struct {
		status string
		want   Code
	}{
		{"Compliant", CodeCompliant},
		{"compliant", CodeCompliant},
		{"Noncompliant", CodeNoncompliant},
		{"NONCOMPLIANT", CodeNoncompliant},
		{"  non-compliant ", CodeNoncompliant},
		{"Non Compliant", CodeNoncompliant},
		{"", CodeCompliant},
		{"anything else", CodeCompliant},
	}
	for _, c := range cases {
		if got := StatusToCode(c.status); got != c.want {
			t.Errorf("StatusToCode(%q) = %q, want %q", c.status, got, c.want)
		}
	}
}

func TestCodeToStatus(t *testing.T) {
	if got := CodeToStatus(CodeNoncompliant); got != StatusNoncompliant {
		t.Errorf("CodeToStatus(N) = %q", got)
	}
	if got := CodeToStatus(CodeCompliant); got != StatusCompliant {
		t.Errorf("CodeToStatus(C) = %q", got)
	}
	// Anything that isn't N reads as compliant.
	if got := CodeToStatus(Code("X")); got != StatusCompliant {
		t.Errorf("CodeToStatus(X) = %q", got)
	}
}

func TestNewState_DefaultSeed(t *testing.T) {
	state := NewState(nil, 2)
	want := State{Compliance: CodeCompliant, DirectCount: 0, DispatchNeeded: 0, NextHireDispatch: FlagNo}
	if *state != want {
		t.Errorf("NewState(nil, 2) = %+v, want %+v", *state, want)
	}
}

func TestNewState_SeedCarriesPriorRun(t *testing.T) {
	state := NewState(&Seed{Status: "Noncompliant", DirectCount: 3, DispatchNeeded: 1}, 2)
	if state.Compliance != CodeNoncompliant || state.DirectCount != 3 || state.DispatchNeeded != 1 {
		t.Fatalf("seeded state = %+v", *state)
	}
	if state.NextHireDispatch != FlagYes {
		t.Errorf("NextHireDispatch = %q, want Y", state.NextHireDispatch)
	}
}

func TestNewState_FlagAlwaysRecomputed(t *testing.T) {
	// A seed claiming a clean slate but sitting at the quota must still get
	// the dispatch flag set: the flag is derived, never trusted.
	state := NewState(&Seed{Status: "Compliant", DirectCount: 2}, 2)
	if state.NextHireDispatch != FlagYes {
		t.Errorf("NextHireDispatch = %q, want Y (directCount at quota)", state.NextHireDispatch)
	}
}

func TestApplyHire_QuotaCrossing(t *testing.T) {
	state := NewState(nil, 2)
	state.ApplyHire("Direct", 2)
	state.ApplyHire("Direct", 2)
	if state.Compliance != CodeCompliant || state.DirectCount != 2 || state.DispatchNeeded != 0 {
		t.Fatalf("after 2 direct hires: %+v", *state)
	}
	if state.NextHireDispatch != FlagYes {
		t.Errorf("at quota, NextHireDispatch = %q, want Y", state.NextHireDispatch)
	}

	state.ApplyHire("Direct", 2)
	want := State{Compliance: CodeNoncompliant, DirectCount: 3, DispatchNeeded: 1, NextHireDispatch: FlagYes}
	if *state != want {
		t.Errorf("after 3rd direct hire: %+v, want %+v", *state, want)
	}
}

func TestApplyHire_OverQuotaAccumulation(t *testing.T) {
	state := NewState(nil, 2)
	for i := 0; i < 4; i++ {
		state.ApplyHire("direct", 2)
	}
	want := State{Compliance: CodeNoncompliant, DirectCount: 4, DispatchNeeded: 2, NextHireDispatch: FlagYes}
	if *state != want {
		t.Errorf("after 4 direct hires: %+v, want %+v", *state, want)
	}
}

func TestApplyHire_SingleDispatchClearsExactDebt(t *testing.T) {
	state := &State{Compliance: CodeNoncompliant, DirectCount: 3, DispatchNeeded: 1}
	state.ApplyHire("Dispatch", 2)
	want := State{Compliance: CodeCompliant, DirectCount: 0, DispatchNeeded: 0, NextHireDispatch: FlagNo}
	if *state != want {
		t.Errorf("after clearing dispatch: %+v, want %+v", *state, want)
	}
}

func TestApplyHire_PartialDispatchRepayment(t *testing.T) {
	state := &State{Compliance: CodeNoncompliant, DirectCount: 4, DispatchNeeded: 2}
	state.ApplyHire("dispatch", 2)
	if state.Compliance != CodeNoncompliant {
		t.Errorf("partial repayment should stay noncompliant, got %q", state.Compliance)
	}
	if state.DirectCount != 3 || state.DispatchNeeded != 1 {
		t.Errorf("counts after partial repayment: directCount=%d dispatchNeeded=%d, want 3/1",
			state.DirectCount, state.DispatchNeeded)
	}
	if state.NextHireDispatch != FlagYes {
		t.Errorf("NextHireDispatch = %q, want Y", state.NextHireDispatch)
	}
}

func TestApplyHire_DispatchWhileCompliantResetsCounter(t *testing.T) {
	state := NewState(nil, 2)
	state.ApplyHire("direct", 2)
	state.ApplyHire("dispatch", 2)
	want := State{Compliance: CodeCompliant, DirectCount: 0, DispatchNeeded: 0, NextHireDispatch: FlagNo}
	if *state != want {
		t.Errorf("dispatch while compliant: %+v, want %+v", *state, want)
	}
}

func TestApplyHire_UnknownTypesAreDirect(t *testing.T) {
	for _, hireType := range []string{"", "rehire", "DIRECT", "  direct  ", "foreman"} {
		state := NewState(nil, 2)
		state.ApplyHire(hireType, 2)
		if state.DirectCount != 1 {
			t.Errorf("ApplyHire(%q) directCount = %d, want 1", hireType, state.DirectCount)
		}
	}
	// "dispatch" with whitespace and mixed case is still a dispatch hire.
	state := &State{Compliance: CodeNoncompliant, DirectCount: 3, DispatchNeeded: 1}
	state.ApplyHire("  DisPatch ", 2)
	if state.Compliance != CodeCompliant {
		t.Errorf("normalized dispatch not recognized: %+v", *state)
	}
}

func TestApplyHire_ThreeToOneMode(t *testing.T) {
	state := NewState(nil, 3)
	for i := 0; i < 3; i++ {
		state.ApplyHire("direct", 3)
	}
	if state.Compliance != CodeCompliant || state.DispatchNeeded != 0 {
		t.Fatalf("3 direct hires under 3-to-1 should stay compliant: %+v", *state)
	}
	state.ApplyHire("direct", 3)
	if state.Compliance != CodeNoncompliant || state.DirectCount != 4 || state.DispatchNeeded != 1 {
		t.Errorf("4th direct hire under 3-to-1: %+v", *state)
	}
}

// The dispatch flag must hold as a pure function of the counters after
// every transition, for any hire sequence.
func TestApplyHire_Property_FlagAlwaysDerived(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	hireTypes := []string{"direct", "dispatch", "Direct", "Dispatch", "", "rehire"}

	for run := 0; run < 200; run++ {
		allowedDirect := 2 + rng.Intn(2) // 2 or 3
		state := NewState(nil, allowedDirect)
		for i := 0; i < 50; i++ {
			hireType := hireTypes[rng.Intn(len(hireTypes))]
			state.ApplyHire(hireType, allowedDirect)

			wantFlag := FlagNo
			if state.DispatchNeeded > 0 || state.DirectCount >= allowedDirect {
				wantFlag = FlagYes
			}
			if state.NextHireDispatch != wantFlag {
				t.Fatalf("run=%d step=%d hire=%q state=%+v: flag %q, want %q",
					run, i, hireType, *state, state.NextHireDispatch, wantFlag)
			}
			if state.DirectCount < 0 || state.DispatchNeeded < 0 {
				t.Fatalf("run=%d step=%d: negative counter %+v", run, i, *state)
			}
			if state.Compliance != CodeCompliant && state.Compliance != CodeNoncompliant {
				t.Fatalf("run=%d step=%d: invalid code %+v", run, i, *state)
			}
		}
	}
}

func TestSummary(t *testing.T) {
	state := &State{Compliance: CodeNoncompliant, DirectCount: 4, DispatchNeeded: 2, NextHireDispatch: FlagYes}
	got := state.Summary()
	want := Summary{
		Status:           StatusNoncompliant,
		Code:             CodeNoncompliant,
		DirectCount:      4,
		DispatchNeeded:   2,
		NextHireDispatch: FlagYes,
	}
	if got != want {
		t.Errorf("Summary() = %+v, want %+v", got, want)
	}
}
