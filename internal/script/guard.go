package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/privatise/internal/privacy"
)

// guardTypeName names the metatable of guarded Lua values.
const guardTypeName = "privatise.guard"

const (
	toJSONKey = "toJSON"
	newKey    = "new"
)

// maxForwardDepth bounds the __index chain followed when matching a
// receiver to a guard.
const maxForwardDepth = 16

// access selects which private reads a facet permits.
type access int

const (
	accessExternal  access = iota // private get and set raise
	accessInsider                 // private get succeeds
	accessSerialize               // private get yields nil
)

// luaGuard guards a Lua table. Each facet is a userdata over the same
// guard; only the external one is ever handed to scripts directly.
type luaGuard struct {
	target *lua.LTable
	class  bool

	// assigned holds keys whose function value was written through a
	// facet. Those functions are never handed an insider facet.
	assigned map[string]bool

	external   *lua.LUserData
	insider    *lua.LUserData
	serializer *lua.LUserData
}

// luaFacet is the userdata value of a guard facet.
type luaFacet struct {
	guard  *luaGuard
	access access
}

func (g *luaGuard) facet(a access) *lua.LUserData {
	switch a {
	case accessInsider:
		return g.insider
	case accessSerialize:
		return g.serializer
	default:
		return g.external
	}
}

// facetFrom returns the facet held by lv, if any.
func facetFrom(lv lua.LValue) (*luaFacet, bool) {
	ud, ok := lv.(*lua.LUserData)
	if !ok {
		return nil, false
	}
	f, ok := ud.Value.(*luaFacet)
	return f, ok
}

// newGuard wraps t. A class guard treats the new field as a constructor.
func (m *Module) newGuard(L *lua.LState, t *lua.LTable, class bool) *luaGuard {
	g := &luaGuard{target: t, class: class, assigned: make(map[string]bool)}
	mt := L.GetTypeMetatable(guardTypeName)
	for _, a := range []access{accessExternal, accessInsider, accessSerialize} {
		ud := L.NewUserData()
		ud.Value = &luaFacet{guard: g, access: a}
		L.SetMetatable(ud, mt)
		switch a {
		case accessExternal:
			g.external = ud
		case accessInsider:
			g.insider = ud
		case accessSerialize:
			g.serializer = ud
		}
	}
	return g
}

// registerGuardType creates the metatable shared by guard facets.
func (m *Module) registerGuardType(L *lua.LState) {
	mt := L.NewTypeMetatable(guardTypeName)
	L.SetFuncs(mt, map[string]lua.LGFunction{
		"__index":    m.guardIndex,
		"__newindex": m.guardNewIndex,
		"__len":      m.guardLen,
		"__tostring": m.guardToString,
	})
	L.SetField(mt, "__metatable", lua.LString(guardTypeName))
}

func checkFacet(L *lua.LState, n int) *luaFacet {
	f, ok := facetFrom(L.Get(n))
	if !ok {
		L.ArgError(n, "privatised value expected")
		return nil
	}
	return f
}

func (m *Module) guardIndex(L *lua.LState) int {
	f := checkFacet(L, 1)
	key := L.Get(2)

	name, ok := key.(lua.LString)
	if !ok {
		L.Push(L.GetTable(f.guard.target, key))
		return 1
	}
	L.Push(m.get(L, f, string(name)))
	return 1
}

func (m *Module) guardNewIndex(L *lua.LState) int {
	f := checkFacet(L, 1)
	key := L.Get(2)
	value := external(L.Get(3))

	name, isName := key.(lua.LString)
	if isName && privacy.IsPrivate(string(name)) {
		m.deny(L, privacy.OpSet, string(name))
		return 0
	}
	L.SetTable(f.guard.target, key, value)
	if isName {
		if _, ok := value.(*lua.LFunction); ok {
			f.guard.assigned[string(name)] = true
		} else {
			delete(f.guard.assigned, string(name))
		}
	}
	return 0
}

func (m *Module) guardLen(L *lua.LState) int {
	f := checkFacet(L, 1)
	L.Push(lua.LNumber(L.ObjLen(f.guard.target)))
	return 1
}

func (m *Module) guardToString(L *lua.LState) int {
	f := checkFacet(L, 1)
	kind := "object"
	if f.guard.class {
		kind = "class"
	}
	L.Push(lua.LString(fmt.Sprintf("privatised %s: %p", kind, f.guard.target)))
	return 1
}

// get reads key through facet f.
func (m *Module) get(L *lua.LState, f *luaFacet, key string) lua.LValue {
	g := f.guard
	if privacy.IsPrivate(key) {
		switch f.access {
		case accessExternal:
			m.deny(L, privacy.OpGet, key)
			return lua.LNil
		case accessSerialize:
			return lua.LNil
		}
	}

	if g.class && key == newKey {
		return m.constructor(L, g)
	}
	if key == toJSONKey && f.access != accessInsider {
		return m.toJSON(L, g)
	}

	v := L.GetField(g.target, key)
	if fn, ok := v.(*lua.LFunction); ok {
		bound := accessInsider
		switch {
		case g.assigned[key]:
			bound = accessExternal
		case f.access == accessSerialize:
			bound = accessSerialize
		}
		return m.bind(L, g, fn, bound)
	}
	return v
}

// deny logs and raises a private access error.
func (m *Module) deny(L *lua.LState, op privacy.Operation, key string) {
	m.logger.Debug("private access denied", "op", op, "key", key)
	L.RaiseError("%s", (&privacy.PrivateAccessError{Op: op, Key: key}).Error())
}

// toJSON returns the target's own toJSON bound to the serializer facet, or
// a function returning a copy of the public fields at call time.
func (m *Module) toJSON(L *lua.LState, g *luaGuard) lua.LValue {
	if fn, ok := L.GetField(g.target, toJSONKey).(*lua.LFunction); ok {
		return m.bind(L, g, fn, accessSerialize)
	}
	return L.NewFunction(func(L *lua.LState) int {
		L.Push(m.publicFields(L, g))
		return 1
	})
}

// publicFields copies every public own field of the target.
func (m *Module) publicFields(L *lua.LState, g *luaGuard) *lua.LTable {
	out := L.NewTable()
	g.target.ForEach(func(k, v lua.LValue) {
		if name, ok := k.(lua.LString); ok && privacy.IsPrivate(string(name)) {
			return
		}
		out.RawSet(k, v)
	})
	return out
}

// bind returns fn with its receiver fixed to the facet of g selected by a.
//
// The receiver is replaced only when the first argument is a facet of g, or
// a table whose __index chain reaches one; other calls pass through. Any
// non-external facet among the results is replaced by its guard's external
// facet.
func (m *Module) bind(L *lua.LState, g *luaGuard, fn *lua.LFunction, a access) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		top := L.GetTop()
		L.Push(fn)
		for i := 1; i <= top; i++ {
			arg := L.Get(i)
			if i == 1 && reaches(L, arg, g, maxForwardDepth) {
				arg = g.facet(a)
			}
			L.Push(arg)
		}
		L.Call(top, lua.MultRet)
		return sealResults(L, top)
	})
}

// constructor returns the new function of a guarded class. The original
// new runs with the raw class as its receiver; table results are wrapped.
func (m *Module) constructor(L *lua.LState, g *luaGuard) lua.LValue {
	raw, ok := L.GetField(g.target, newKey).(*lua.LFunction)
	if !ok {
		return lua.LNil
	}
	return L.NewFunction(func(L *lua.LState) int {
		top := L.GetTop()
		L.Push(raw)
		for i := 1; i <= top; i++ {
			arg := L.Get(i)
			if i == 1 && reaches(L, arg, g, maxForwardDepth) {
				arg = g.target
			}
			L.Push(arg)
		}
		L.Call(top, lua.MultRet)
		return m.wrapResults(L, top)
	})
}

// wrapResults replaces every plain table among the values above base with
// a guarded object and returns the number of results.
func (m *Module) wrapResults(L *lua.LState, base int) int {
	for i := base + 1; i <= L.GetTop(); i++ {
		if t, ok := L.Get(i).(*lua.LTable); ok {
			L.Replace(i, m.newGuard(L, t, false).external)
		}
	}
	return sealResults(L, base)
}

// sealResults replaces non-external facets above base and returns the
// number of results.
func sealResults(L *lua.LState, base int) int {
	for i := base + 1; i <= L.GetTop(); i++ {
		if v := external(L.Get(i)); v != L.Get(i) {
			L.Replace(i, v)
		}
	}
	return L.GetTop() - base
}

// external maps a facet to its guard's external facet and returns other
// values unchanged.
func external(lv lua.LValue) lua.LValue {
	if f, ok := facetFrom(lv); ok && f.access != accessExternal {
		return f.guard.external
	}
	return lv
}

// reaches reports whether lv is a facet of g or a table whose __index
// chain leads to one within depth steps.
func reaches(L *lua.LState, lv lua.LValue, g *luaGuard, depth int) bool {
	for ; depth > 0; depth-- {
		if f, ok := facetFrom(lv); ok {
			return f.guard == g
		}
		t, ok := lv.(*lua.LTable)
		if !ok {
			return false
		}
		mt, ok := L.GetMetatable(t).(*lua.LTable)
		if !ok {
			return false
		}
		lv = mt.RawGetString("__index")
	}
	return false
}
