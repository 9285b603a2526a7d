package script

import (
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestSandboxRemovesLoaders(t *testing.T) {
	state := newTestState(t)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "io", "os", "debug"} {
		t.Run(name, func(t *testing.T) {
			if v := state.GetGlobal(name); v != lua.LNil {
				t.Errorf("global %s = %v, want nil", name, v)
			}
		})
	}
}

func TestSandboxRequire(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr string
	}{
		{"string", `local s = require("string"); assert(s.upper("a") == "A")`, ""},
		{"privacy", `local p = require("privacy"); assert(p == privacy); assert(p.wrap == privatise)`, ""},
		{"os", `require("os")`, "not available"},
		{"io", `require("io")`, "not available"},
		{"file module", `require("secret")`, "not available"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := newTestState(t)
			err := state.DoString(tt.code)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("DoString() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("DoString() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestSandboxAllow(t *testing.T) {
	state := newTestState(t)

	if state.Sandbox().Allowed("extra") {
		t.Fatal("extra should not be allowed by default")
	}
	state.L.PreloadModule("extra", func(L *lua.LState) int {
		L.Push(lua.LString("loaded"))
		return 1
	})
	state.Sandbox().Allow("extra")

	if err := state.DoString(`assert(require("extra") == "loaded")`); err != nil {
		t.Errorf("DoString() error = %v", err)
	}
}
