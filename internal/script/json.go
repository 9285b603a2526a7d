package script

import (
	"sort"
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/privatise/internal/object"
)

// Marshal serializes a Lua value as JSON with the same rules as
// object.Marshal. Table fields are written in sorted key order; a table
// whose keys are exactly 1..n is an array. Guarded tables serialize through
// their toJSON, so only public fields appear unless a custom toJSON says
// otherwise.
func (m *Module) Marshal(L *lua.LState, lv lua.LValue) ([]byte, error) {
	e := &jsonEncoder{m: m, L: L}
	v, err := e.value("", lv)
	if err != nil {
		return nil, err
	}
	return object.Marshal(v)
}

// jsonEncoder converts Lua values into the object model, calling toJSON
// hooks on the way.
type jsonEncoder struct {
	m     *Module
	L     *lua.LState
	stack []lua.LValue
}

func (e *jsonEncoder) value(key string, lv lua.LValue) (object.Value, error) {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v), nil
	case lua.LNumber:
		return float64(v), nil
	case lua.LString:
		return string(v), nil
	case *lua.LFunction:
		return object.Function(nil), nil
	case *lua.LTable:
		return e.table(key, v)
	case *lua.LUserData:
		if f, ok := v.Value.(*luaFacet); ok {
			return e.guarded(key, f.guard)
		}
		if r, ok := v.Value.(object.Receiver); ok {
			return r, nil
		}
	}
	return nil, nil
}

func (e *jsonEncoder) guarded(key string, g *luaGuard) (object.Value, error) {
	if err := e.push(key, g.external); err != nil {
		return nil, err
	}
	defer e.pop()

	out := e.call(e.m.toJSON(e.L, g), g.external, key)
	if f, ok := facetFrom(out); ok && f.guard == g {
		return e.fields(e.m.publicFields(e.L, g))
	}
	return e.result(key, out)
}

func (e *jsonEncoder) table(key string, t *lua.LTable) (object.Value, error) {
	if err := e.push(key, t); err != nil {
		return nil, err
	}
	defer e.pop()

	hook, ok := e.L.GetField(t, toJSONKey).(*lua.LFunction)
	if !ok {
		return e.fields(t)
	}
	out := e.call(hook, t, key)
	if out == lua.LValue(t) {
		return e.fields(t)
	}
	return e.result(key, out)
}

// result converts the value a toJSON hook returned. Its own hook is not
// consulted again.
func (e *jsonEncoder) result(key string, out lua.LValue) (object.Value, error) {
	t, ok := out.(*lua.LTable)
	if !ok {
		return e.value(key, out)
	}
	if err := e.push(key, t); err != nil {
		return nil, err
	}
	defer e.pop()
	return e.fields(t)
}

// fields converts the raw contents of t.
func (e *jsonEncoder) fields(t *lua.LTable) (object.Value, error) {
	if n, ok := arrayLength(t); ok {
		arr := make([]object.Value, n)
		for i := 1; i <= n; i++ {
			v, err := e.value(strconv.Itoa(i-1), t.RawGetInt(i))
			if err != nil {
				return nil, err
			}
			arr[i-1] = v
		}
		return arr, nil
	}

	values := make(map[string]lua.LValue)
	keys := make([]string, 0)
	t.ForEach(func(k, v lua.LValue) {
		name := tableKey(k)
		values[name] = v
		keys = append(keys, name)
	})
	sort.Strings(keys)

	o := object.New(nil)
	for _, k := range keys {
		v, err := e.value(k, values[k])
		if err != nil {
			return nil, err
		}
		if _, isFn := v.(object.Function); isFn {
			continue
		}
		if err := o.Set(k, v); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// call invokes a toJSON hook with the receiver and key.
func (e *jsonEncoder) call(fn lua.LValue, this lua.LValue, key string) lua.LValue {
	e.L.Push(fn)
	e.L.Push(this)
	e.L.Push(lua.LString(key))
	e.L.Call(2, 1)
	out := e.L.Get(-1)
	e.L.Pop(1)
	return out
}

func (e *jsonEncoder) push(key string, lv lua.LValue) error {
	for _, seen := range e.stack {
		if seen == lv {
			return &object.TypeError{Op: "json", Key: key, Err: object.ErrCyclic}
		}
	}
	e.stack = append(e.stack, lv)
	return nil
}

func (e *jsonEncoder) pop() {
	e.stack = e.stack[:len(e.stack)-1]
}
