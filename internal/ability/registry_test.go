package ability

import (
	"context"
	"errors"
	"testing"

	"github.com/merchkit/abilityd/internal/domain"
)

// stubAbility scripts validate/execute outcomes and records call order.
type stubAbility struct {
	name    string
	version string

	validateOK  bool
	validateErr error
	executeOut  any
	executeErr  error

	validateCalled bool
	executeCalled  bool
}

func (s *stubAbility) Name() string    { return s.name }
func (s *stubAbility) Version() string { return s.version }

func (s *stubAbility) Validate(_ context.Context, _ Context) (bool, error) {
	s.validateCalled = true
	return s.validateOK, s.validateErr
}

func (s *stubAbility) Execute(_ context.Context, _ Context) (any, error) {
	s.executeCalled = true
	return s.executeOut, s.executeErr
}

func TestDispatch_UnknownName(t *testing.T) {
	r := NewRegistry()
	stub := &stubAbility{name: "known", version: "1.0.0", validateOK: true}
	r.Register(stub)

	_, err := r.Dispatch(context.Background(), "missing", Context{})
	if !errors.Is(err, domain.ErrAbilityNotFound) {
		t.Fatalf("expected ErrAbilityNotFound, got %v", err)
	}
	if stub.validateCalled || stub.executeCalled {
		t.Error("validate/execute must not run for an unknown name")
	}
}

func TestDispatch_ValidateFalse_BlocksExecute(t *testing.T) {
	r := NewRegistry()
	stub := &stubAbility{name: "a", version: "1.0.0", validateOK: false}
	r.Register(stub)

	_, err := r.Dispatch(context.Background(), "a", Context{})
	if !errors.Is(err, domain.ErrInvalidContext) {
		t.Fatalf("expected ErrInvalidContext, got %v", err)
	}
	if !stub.validateCalled {
		t.Error("expected Validate to be called")
	}
	if stub.executeCalled {
		t.Error("Execute must not run after failed validation")
	}
}

func TestDispatch_ValidateError_PropagatesUnchanged(t *testing.T) {
	r := NewRegistry()
	validateErr := errors.New("missing required field url")
	stub := &stubAbility{name: "a", version: "1.0.0", validateErr: validateErr}
	r.Register(stub)

	_, err := r.Dispatch(context.Background(), "a", Context{})
	if !errors.Is(err, validateErr) {
		t.Fatalf("expected validation error to propagate, got %v", err)
	}
	if errors.Is(err, domain.ErrInvalidContext) {
		t.Error("ability errors must not be rewrapped as ErrInvalidContext")
	}
	if stub.executeCalled {
		t.Error("Execute must not run after a validation error")
	}
}

func TestDispatch_ReturnsExecuteResult(t *testing.T) {
	r := NewRegistry()
	stub := &stubAbility{name: "a", version: "1.0.0", validateOK: true, executeOut: map[string]int{"n": 7}}
	r.Register(stub)

	out, err := r.Dispatch(context.Background(), "a", Context{"k": "v"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := out.(map[string]int)
	if !ok || m["n"] != 7 {
		t.Errorf("expected execute result unchanged, got %#v", out)
	}
	if !stub.validateCalled || !stub.executeCalled {
		t.Error("expected validate then execute")
	}
}

func TestDispatch_ExecuteError_Propagates(t *testing.T) {
	r := NewRegistry()
	execErr := errors.New("boom")
	stub := &stubAbility{name: "a", version: "1.0.0", validateOK: true, executeErr: execErr}
	r.Register(stub)

	_, err := r.Dispatch(context.Background(), "a", Context{})
	if !errors.Is(err, execErr) {
		t.Fatalf("expected execute error to propagate, got %v", err)
	}
}

func TestRegister_LastRegistrationWins(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubAbility{name: "dup", version: "1.0.0", validateOK: true, executeOut: "first"})
	second := &stubAbility{name: "dup", version: "2.0.0", validateOK: true, executeOut: "second"}
	r.Register(second)

	out, err := r.Dispatch(context.Background(), "dup", Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "second" {
		t.Errorf("expected the second registration to win, got %v", out)
	}

	list := r.List()
	if len(list) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(list))
	}
	if list["dup"] != "2.0.0" {
		t.Errorf("List() must reflect the latest version, got %q", list["dup"])
	}
}

func TestList_Snapshot(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubAbility{name: "a", version: "1.0.0"})
	r.Register(&stubAbility{name: "b", version: "1.1.0"})

	list := r.List()
	if len(list) != 2 || list["a"] != "1.0.0" || list["b"] != "1.1.0" {
		t.Errorf("unexpected listing: %#v", list)
	}

	// Mutating the snapshot must not touch the registry.
	delete(list, "a")
	if _, err := r.Get("a"); err != nil {
		t.Error("snapshot mutation leaked into the registry")
	}
}
