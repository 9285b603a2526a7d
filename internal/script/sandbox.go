package script

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
	lua "github.com/yuin/gopher-lua"
)

// Sandbox restricts Lua execution to safe operations.
type Sandbox struct {
	L *lua.LState

	out    io.Writer
	logger *log.Logger

	// modules that require may load
	allowed map[string]bool
}

// Modules a sandboxed script may require unless more are allowed.
var defaultModules = []string{"string", "table", "math"}

// NewSandbox creates a new sandbox for the Lua state. print writes to out.
func NewSandbox(L *lua.LState, out io.Writer, logger *log.Logger) *Sandbox {
	s := &Sandbox{
		L:       L,
		out:     out,
		logger:  logger,
		allowed: make(map[string]bool),
	}
	for _, name := range defaultModules {
		s.allowed[name] = true
	}
	return s
}

// Install sets up the sandbox restrictions.
func (s *Sandbox) Install() {
	// Remove functions that load code from disk or strings
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.installPrint()
	s.installSafeRequire()
}

// Allow adds name to the modules require may load. The module itself must
// be preloaded with PreloadModule.
func (s *Sandbox) Allow(name string) {
	s.allowed[name] = true
}

// Allowed reports whether require may load name.
func (s *Sandbox) Allowed(name string) bool {
	return s.allowed[name]
}

// installPrint replaces print with a version writing to the sandbox output.
func (s *Sandbox) installPrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		_, _ = io.WriteString(s.out, strings.Join(parts, "\t")+"\n")
		return 0
	}))
}

// installSafeRequire replaces require with a version that only loads
// whitelisted modules.
//
// package.path and package.cpath are cleared so nothing is loaded from disk,
// and package.loaded is reduced to the built-in modules.
func (s *Sandbox) installSafeRequire() {
	if pkgTable, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkgTable, "path", lua.LString(""))
		s.L.SetField(pkgTable, "cpath", lua.LString(""))

		safeLoaded := map[string]bool{
			"_G": true, "string": true, "table": true, "math": true, "package": true,
		}
		if loadedTbl, ok := s.L.GetField(pkgTable, "loaded").(*lua.LTable); ok {
			var keysToRemove []string
			loadedTbl.ForEach(func(k, _ lua.LValue) {
				if ks, ok := k.(lua.LString); ok && !safeLoaded[string(ks)] {
					keysToRemove = append(keysToRemove, string(ks))
				}
			})
			for _, key := range keysToRemove {
				loadedTbl.RawSetString(key, lua.LNil)
			}
		}
	}

	originalRequire := s.L.GetGlobal("require")

	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		modName := L.CheckString(1)
		if !s.allowed[modName] {
			s.logger.Debug("require denied", "module", modName)
			L.RaiseError("module %q is not available", modName)
			return 0
		}
		L.Push(originalRequire)
		L.Push(lua.LString(modName))
		L.Call(1, 1)
		return 1
	}))
}
