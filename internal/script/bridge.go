package script

import (
	"fmt"
	"reflect"
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/privatise/internal/object"
)

// receiverTypeName names the metatable of userdata wrapping a Go receiver.
// A receiver that is an object.Constructor without a new static gets one
// that calls Construct.
const receiverTypeName = "privatise.receiver"

// Bridge provides utilities for Go-Lua interoperability.
//
// Values implementing object.Receiver cross into Lua as userdata whose
// __index and __newindex go through the receiver, so a guarded receiver
// keeps its policy inside scripts.
type Bridge struct {
	L *lua.LState
}

// NewBridge creates a new Bridge for the given Lua state.
func NewBridge(L *lua.LState) *Bridge {
	b := &Bridge{L: L}
	b.registerReceiverType()
	return b
}

// ToGoValue converts a Lua value to a Go value.
func (b *Bridge) ToGoValue(lv lua.LValue) any {
	return b.toGoValueWithVisited(lv, make(map[*lua.LTable]bool))
}

// toGoValueWithVisited converts a Lua value to a Go value, tracking visited tables.
func (b *Bridge) toGoValueWithVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	if lv == nil {
		return nil
	}

	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil // Break circular reference
		}
		visited[v] = true
		return b.tableToGoWithVisited(v, visited)
	case *lua.LFunction:
		return b.luaFunction(v)
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

// tableToGoWithVisited converts a Lua table to a []any when its keys are
// exactly 1..n and to a map[string]any otherwise.
func (b *Bridge) tableToGoWithVisited(t *lua.LTable, visited map[*lua.LTable]bool) any {
	if n, ok := arrayLength(t); ok {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = b.toGoValueWithVisited(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		m[tableKey(k)] = b.toGoValueWithVisited(v, visited)
	})
	return m
}

// arrayLength reports whether t is a non-empty sequence with keys 1..n.
func arrayLength(t *lua.LTable) (int, bool) {
	maxN, count := 0, 0
	isArray := true
	t.ForEach(func(k, _ lua.LValue) {
		count++
		if kn, ok := k.(lua.LNumber); ok {
			n := int(kn)
			if float64(n) == float64(kn) && n > 0 {
				if n > maxN {
					maxN = n
				}
				return
			}
		}
		isArray = false
	})
	if !isArray || maxN == 0 || count != maxN {
		return 0, false
	}
	return maxN, true
}

// tableKey renders a table key as a property name.
func tableKey(k lua.LValue) string {
	switch kv := k.(type) {
	case lua.LString:
		return string(kv)
	case lua.LNumber:
		return strconv.FormatFloat(float64(kv), 'f', -1, 64)
	default:
		return k.String()
	}
}

// luaFunction exposes a Lua function as an object.Function. The receiver
// is passed as the first Lua argument.
func (b *Bridge) luaFunction(fn *lua.LFunction) object.Function {
	return func(this object.Receiver, args ...object.Value) (object.Value, error) {
		callArgs := make([]any, 0, len(args)+1)
		callArgs = append(callArgs, this)
		callArgs = append(callArgs, args...)
		results, err := b.CallFunc(fn, callArgs...)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, nil
		}
		return results[0], nil
	}
}

// ToLuaValue converts a Go value to a Lua value.
func (b *Bridge) ToLuaValue(v any) lua.LValue {
	if v == nil {
		return lua.LNil
	}

	switch val := v.(type) {
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case object.Receiver:
		return b.receiverToLua(val)
	case object.Function:
		if val == nil {
			return lua.LNil
		}
		return b.functionToLua(nil, val)
	case []any:
		return b.sliceToTable(val)
	case []string:
		t := b.L.NewTable()
		for i, s := range val {
			t.RawSetInt(i+1, lua.LString(s))
		}
		return t
	case map[string]any:
		return b.mapToTable(val)
	case lua.LValue:
		return val
	default:
		return b.reflectToLua(v)
	}
}

// sliceToTable converts a Go slice to a Lua table (array).
func (b *Bridge) sliceToTable(s []any) *lua.LTable {
	t := b.L.NewTable()
	for i, v := range s {
		t.RawSetInt(i+1, b.ToLuaValue(v))
	}
	return t
}

// mapToTable converts a Go map to a Lua table.
func (b *Bridge) mapToTable(m map[string]any) *lua.LTable {
	t := b.L.NewTable()
	for k, v := range m {
		t.RawSetString(k, b.ToLuaValue(v))
	}
	return t
}

// reflectToLua uses reflection to convert arbitrary Go values.
func (b *Bridge) reflectToLua(v any) lua.LValue {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return lua.LNil
	}

	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return lua.LNil
		}
		return b.reflectToLua(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		t := b.L.NewTable()
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, b.ToLuaValue(rv.Index(i).Interface()))
		}
		return t
	case reflect.Map:
		t := b.L.NewTable()
		for _, key := range rv.MapKeys() {
			t.RawSet(b.ToLuaValue(key.Interface()), b.ToLuaValue(rv.MapIndex(key).Interface()))
		}
		return t
	default:
		// Unsupported types travel as opaque userdata
		ud := b.L.NewUserData()
		ud.Value = v
		return ud
	}
}

// registerReceiverType creates the metatable shared by receiver userdata.
func (b *Bridge) registerReceiverType() {
	mt := b.L.NewTypeMetatable(receiverTypeName)
	b.L.SetFuncs(mt, map[string]lua.LGFunction{
		"__index":    b.receiverIndex,
		"__newindex": b.receiverNewIndex,
		"__tostring": b.receiverToString,
	})
	b.L.SetField(mt, "__metatable", lua.LString(receiverTypeName))
}

// receiverToLua wraps r in userdata.
func (b *Bridge) receiverToLua(r object.Receiver) *lua.LUserData {
	ud := b.L.NewUserData()
	ud.Value = r
	b.L.SetMetatable(ud, b.L.GetTypeMetatable(receiverTypeName))
	return ud
}

// checkReceiver returns the receiver held by the userdata at index n.
func checkReceiver(L *lua.LState, n int) object.Receiver {
	ud := L.CheckUserData(n)
	r, ok := ud.Value.(object.Receiver)
	if !ok {
		L.ArgError(n, "object expected")
		return nil
	}
	return r
}

// receiverFrom returns the receiver held by lv, if any.
func receiverFrom(lv lua.LValue) (object.Receiver, bool) {
	ud, ok := lv.(*lua.LUserData)
	if !ok {
		return nil, false
	}
	r, ok := ud.Value.(object.Receiver)
	return r, ok
}

func (b *Bridge) receiverIndex(L *lua.LState) int {
	r := checkReceiver(L, 1)
	key := tableKey(L.Get(2))

	v, err := r.Get(key)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	if fn, ok := v.(object.Function); ok && fn != nil {
		L.Push(b.functionToLua(r, fn))
		return 1
	}
	if ctor, ok := r.(object.Constructor); ok && v == nil && key == newKey {
		L.Push(b.functionToLua(r, func(_ object.Receiver, args ...object.Value) (object.Value, error) {
			return ctor.Construct(args...)
		}))
		return 1
	}
	L.Push(b.ToLuaValue(v))
	return 1
}

func (b *Bridge) receiverNewIndex(L *lua.LState) int {
	r := checkReceiver(L, 1)
	key := tableKey(L.Get(2))

	if err := r.Set(key, b.ToGoValue(L.Get(3))); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (b *Bridge) receiverToString(L *lua.LState) int {
	r := checkReceiver(L, 1)
	L.Push(lua.LString(fmt.Sprintf("object: %T", r)))
	return 1
}

// functionToLua exposes fn to Lua. When this is non-nil it is the
// receiver fn runs against, and a leading argument holding the same
// receiver (a colon call) is dropped.
func (b *Bridge) functionToLua(this object.Receiver, fn object.Function) *lua.LFunction {
	return b.L.NewFunction(func(L *lua.LState) int {
		start := 1
		if this != nil {
			if r, ok := receiverFrom(L.Get(1)); ok && sameReceiver(r, this) {
				start = 2
			}
		}

		top := L.GetTop()
		args := make([]object.Value, 0, top)
		for i := start; i <= top; i++ {
			args = append(args, b.ToGoValue(L.Get(i)))
		}

		out, err := fn(this, args...)
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		L.Push(b.ToLuaValue(out))
		return 1
	})
}

// sameReceiver compares receivers without panicking on uncomparable types.
func sameReceiver(a, b object.Receiver) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// CallFunc calls a Lua function with Go arguments and returns Go values.
func (b *Bridge) CallFunc(fn *lua.LFunction, args ...any) ([]any, error) {
	stackTop := b.L.GetTop()

	b.L.Push(fn)
	for _, arg := range args {
		b.L.Push(b.ToLuaValue(arg))
	}

	if err := b.L.PCall(len(args), lua.MultRet, nil); err != nil {
		return nil, err
	}

	nRet := b.L.GetTop() - stackTop
	if nRet <= 0 {
		return nil, nil
	}
	results := make([]any, nRet)
	for i := 0; i < nRet; i++ {
		results[i] = b.ToGoValue(b.L.Get(stackTop + i + 1))
	}
	b.L.Pop(nRet)

	return results, nil
}

// WrapGoFunc wraps a Go function for use in Lua.
func (b *Bridge) WrapGoFunc(fn func(args []any) (any, error)) lua.LGFunction {
	return func(L *lua.LState) int {
		nArgs := L.GetTop()
		args := make([]any, nArgs)
		for i := 1; i <= nArgs; i++ {
			args[i-1] = b.ToGoValue(L.Get(i))
		}

		result, err := fn(args)
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		if result == nil {
			return 0
		}
		L.Push(b.ToLuaValue(result))
		return 1
	}
}
