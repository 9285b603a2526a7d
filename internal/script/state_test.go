package script

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"
)

func newTestState(t *testing.T, opts ...StateOption) *State {
	t.Helper()
	state, err := NewState(opts...)
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	t.Cleanup(func() { _ = state.Close() })
	return state
}

func TestNewState(t *testing.T) {
	state := newTestState(t)

	if state.IsClosed() {
		t.Error("NewState() returned closed state")
	}
	if state.GetGlobal(ModuleName) == lua.LNil {
		t.Errorf("global %s not installed", ModuleName)
	}
	if state.GetGlobal(AliasName).Type() != lua.LTFunction {
		t.Errorf("global %s is not a function", AliasName)
	}
}

func TestStateDoString(t *testing.T) {
	state := newTestState(t)

	if err := state.DoString(`x = 1 + 1`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	num, ok := state.GetGlobal("x").(lua.LNumber)
	if !ok || float64(num) != 2 {
		t.Errorf("x = %v, want 2", state.GetGlobal("x"))
	}
}

func TestStateDoStringSyntaxError(t *testing.T) {
	state := newTestState(t)

	err := state.DoString(`invalid lua code !!!`)
	if err == nil {
		t.Fatal("DoString() should fail on syntax error")
	}
	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) {
		t.Errorf("error = %T, want it to wrap *lua.ApiError", err)
	}
}

func TestStateRuntimeError(t *testing.T) {
	state := newTestState(t)

	err := state.DoString(`error("boom")`)
	var scriptErr *Error
	if !errors.As(err, &scriptErr) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if !strings.Contains(scriptErr.Message, "boom") {
		t.Errorf("Message = %q, want it to contain boom", scriptErr.Message)
	}
	if scriptErr.Kind != nil {
		t.Errorf("Kind = %v, want nil", scriptErr.Kind)
	}
}

func TestStateCall(t *testing.T) {
	state := newTestState(t)

	if err := state.DoString(`function add(a, b) return a + b, "done" end`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	results, err := state.Call("add", lua.LNumber(2), lua.LNumber(3))
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Call() returned %d values, want 2", len(results))
	}
	if results[0].(lua.LNumber) != 5 {
		t.Errorf("results[0] = %v, want 5", results[0])
	}

	if _, err := state.Call("missing"); err == nil {
		t.Error("Call(missing) should fail")
	}

	state.SetGlobal("notfn", lua.LNumber(1))
	if _, err := state.Call("notfn"); err == nil {
		t.Error("Call(notfn) should fail")
	}
}

func TestStateCallError(t *testing.T) {
	state := newTestState(t)

	if err := state.DoString(`function fail() error("nope") end`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	top := state.L.GetTop()
	if _, err := state.Call("fail"); err == nil {
		t.Fatal("Call(fail) should fail")
	}
	if state.L.GetTop() != top {
		t.Errorf("stack top = %d after failed call, want %d", state.L.GetTop(), top)
	}
}

func TestStateExecutionTimeout(t *testing.T) {
	state := newTestState(t, WithExecutionTimeout(50*time.Millisecond))

	err := state.DoString(`while true do end`)
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Fatalf("DoString() error = %v, want ErrExecutionTimeout", err)
	}

	// The state stays usable after a timeout
	if err := state.DoString(`y = 1`); err != nil {
		t.Errorf("DoString() after timeout error = %v", err)
	}
}

func TestStateCancel(t *testing.T) {
	state := newTestState(t, WithExecutionTimeout(0))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := state.DoStringContext(ctx, `while true do end`)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("DoStringContext() error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrExecutionTimeout) {
		t.Error("cancellation should not be reported as a timeout")
	}
}

func TestStatePrint(t *testing.T) {
	var buf bytes.Buffer
	state := newTestState(t, WithOutput(&buf))

	if err := state.DoString(`print("a", 1, true, privatise({}))`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if got := buf.String(); !strings.HasPrefix(got, "a\t1\ttrue\tprivatised object") {
		t.Errorf("output = %q", got)
	}
}

func TestStateClose(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}

	if err := state.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !state.IsClosed() {
		t.Error("IsClosed() = false after Close()")
	}
	if err := state.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if err := state.DoString(`x = 1`); !errors.Is(err, ErrStateClosed) {
		t.Errorf("DoString() error = %v, want ErrStateClosed", err)
	}
	if err := state.DoFile("x.lua"); !errors.Is(err, ErrStateClosed) {
		t.Errorf("DoFile() error = %v, want ErrStateClosed", err)
	}
	if _, err := state.Call("f"); !errors.Is(err, ErrStateClosed) {
		t.Errorf("Call() error = %v, want ErrStateClosed", err)
	}
	if v := state.GetGlobal("x"); v != lua.LNil {
		t.Errorf("GetGlobal() = %v, want nil", v)
	}
}
