package script

import (
	"errors"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/tidwall/pretty"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/privatise/internal/object"
	"github.com/dshills/privatise/internal/privacy"
)

// ModuleName is the name scripts require the module by. The module is
// also installed as a global of the same name.
const ModuleName = "privacy"

// AliasName is a global alias for the module's wrap function.
const AliasName = "privatise"

// Module is the Lua-side privacy module.
//
// wrap applies the same policy as privacy.Wrap to Lua values:
//
//   - a table with a function field new is a class; its statics are
//     guarded and new returns guarded instances
//   - any other table is guarded as an object
//   - a function is a constructor; table results are guarded
//   - a bridged Go receiver is guarded with privacy.Wrap
//
// Methods read through a guard run with a receiver that may read private
// fields, so a public method can delegate to a private one.
type Module struct {
	bridge *Bridge
	logger *log.Logger
	table  *lua.LTable
}

// NewModule creates the module for the bridge's state.
func NewModule(bridge *Bridge, logger *log.Logger) *Module {
	return &Module{
		bridge: bridge,
		logger: logger,
	}
}

// Install registers the guard metatable, preloads the module, and sets
// the privacy and privatise globals.
func (m *Module) Install() error {
	L := m.bridge.L

	pkg, ok := L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return errors.New("package library is not open")
	}
	if _, ok := L.GetField(pkg, "preload").(*lua.LTable); !ok {
		return errors.New("package.preload is not a table")
	}

	m.registerGuardType(L)

	m.table = L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"wrap":       m.luaWrap,
		"keys":       m.luaKeys,
		"assign":     m.luaAssign,
		"json":       m.luaJSON,
		"instanceof": m.luaInstanceOf,
		"is_private": m.luaIsPrivate,
	})
	L.SetField(m.table, "PREFIX", lua.LString(privacy.PrivatePrefix))
	L.SetField(m.table, "ERROR", lua.LString(privacy.PrivateAccessMessage))

	L.PreloadModule(ModuleName, m.loader)
	L.SetGlobal(ModuleName, m.table)
	L.SetGlobal(AliasName, L.GetField(m.table, "wrap"))
	return nil
}

func (m *Module) loader(L *lua.LState) int {
	L.Push(m.table)
	return 1
}

// Wrap guards lv and returns the guarded value, or nil when lv cannot be
// guarded.
func (m *Module) Wrap(L *lua.LState, lv lua.LValue) lua.LValue {
	switch v := lv.(type) {
	case *lua.LTable:
		_, class := v.RawGetString(newKey).(*lua.LFunction)
		return m.newGuard(L, v, class).external
	case *lua.LFunction:
		return m.wrapFunction(L, v)
	case *lua.LUserData:
		if f, ok := v.Value.(*luaFacet); ok {
			return f.guard.external
		}
		if r, ok := v.Value.(object.Receiver); ok {
			if w := privacy.Wrap(r); w != nil {
				return m.bridge.ToLuaValue(w)
			}
		}
	}
	return lua.LNil
}

// wrapFunction guards a constructor function.
func (m *Module) wrapFunction(L *lua.LState, fn *lua.LFunction) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		top := L.GetTop()
		L.Push(fn)
		for i := 1; i <= top; i++ {
			L.Push(L.Get(i))
		}
		L.Call(top, lua.MultRet)
		return m.wrapResults(L, top)
	})
}

// Keys returns the names a script may enumerate on lv: the public own
// fields of a guarded table, the enumerable keys of a Go receiver, or the
// string keys of a plain table. Table keys are sorted.
func (m *Module) Keys(L *lua.LState, lv lua.LValue) []string {
	if r, ok := receiverFrom(lv); ok {
		return object.Keys(r)
	}

	var t *lua.LTable
	public := false
	if f, ok := facetFrom(lv); ok {
		t, public = f.guard.target, true
	} else if tbl, ok := lv.(*lua.LTable); ok {
		t = tbl
	} else {
		return nil
	}

	var keys []string
	t.ForEach(func(k, _ lua.LValue) {
		name, ok := k.(lua.LString)
		if !ok || (public && privacy.IsPrivate(string(name))) {
			return
		}
		keys = append(keys, string(name))
	})
	sort.Strings(keys)
	return keys
}

// InstanceOf reports whether v was made by class: for Lua values, whether
// class appears on the metatable chain of v; for Go receivers, whether
// object.InstanceOf holds.
func (m *Module) InstanceOf(L *lua.LState, v, class lua.LValue) bool {
	if r, ok := receiverFrom(v); ok {
		c, ok := receiverFrom(class)
		if !ok {
			return false
		}
		ctor, ok := c.(object.Constructor)
		return ok && object.InstanceOf(r, ctor)
	}

	raw, cls := rawTable(v), rawTable(class)
	if raw == nil || cls == nil {
		return false
	}

	var cur lua.LValue = raw
	for depth := maxForwardDepth; depth > 0; depth-- {
		t, ok := cur.(*lua.LTable)
		if !ok {
			return false
		}
		mt, ok := L.GetMetatable(t).(*lua.LTable)
		if !ok {
			return false
		}
		if mt == cls {
			return true
		}
		cur = mt.RawGetString("__index")
		if idx, ok := cur.(*lua.LTable); ok && idx == cls {
			return true
		}
	}
	return false
}

// rawTable returns the table behind a guard or the table itself.
func rawTable(lv lua.LValue) *lua.LTable {
	if f, ok := facetFrom(lv); ok {
		return f.guard.target
	}
	t, _ := lv.(*lua.LTable)
	return t
}

func (m *Module) luaWrap(L *lua.LState) int {
	L.Push(m.Wrap(L, L.Get(1)))
	return 1
}

func (m *Module) luaKeys(L *lua.LState) int {
	out := L.NewTable()
	for i, k := range m.Keys(L, L.Get(1)) {
		out.RawSetInt(i+1, lua.LString(k))
	}
	L.Push(out)
	return 1
}

func (m *Module) luaAssign(L *lua.LState) int {
	dst := L.CheckAny(1)
	for i := 2; i <= L.GetTop(); i++ {
		src := L.Get(i)
		if src == lua.LNil {
			continue
		}
		for _, k := range m.Keys(L, src) {
			L.SetField(dst, k, L.GetField(src, k))
		}
	}
	L.Push(dst)
	return 1
}

func (m *Module) luaJSON(L *lua.LState) int {
	raw, err := m.Marshal(L, L.CheckAny(1))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	if L.OptBool(2, false) {
		raw = pretty.Pretty(raw)
	}
	L.Push(lua.LString(raw))
	return 1
}

func (m *Module) luaInstanceOf(L *lua.LState) int {
	L.Push(lua.LBool(m.InstanceOf(L, L.Get(1), L.Get(2))))
	return 1
}

func (m *Module) luaIsPrivate(L *lua.LState) int {
	L.Push(lua.LBool(privacy.IsPrivate(L.CheckString(1))))
	return 1
}
