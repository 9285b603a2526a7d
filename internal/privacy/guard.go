package privacy

import (
	"github.com/dshills/privatise/internal/object"
)

// toJSONKey is always answered by the guard, never passed through blindly.
const toJSONKey = "toJSON"

// view selects which private accesses a facet permits.
type view int

const (
	viewExternal  view = iota // private get and set fail
	viewInsider               // private get succeeds
	viewSerialize             // private get yields nil
)

// Guard intercepts property access on a target receiver.
type Guard struct {
	target     object.Receiver
	insider    sealed
	serializer sealed

	// assigned holds keys whose function value was written through the
	// guard or a facet. Those functions never receive a facet.
	assigned map[string]bool
}

// WrapObject returns a guard over target.
func WrapObject(target object.Receiver) *Guard {
	g := &Guard{target: target, assigned: make(map[string]bool)}
	g.insider = &facet{guard: g, view: viewInsider}
	g.serializer = &facet{guard: g, view: viewSerialize}
	return g
}

// Get implements object.Receiver.
func (g *Guard) Get(key string) (object.Value, error) {
	return g.get(viewExternal, key)
}

// Set implements object.Receiver. Private keys are refused unconditionally.
// A facet stored as a value is replaced by its guard.
func (g *Guard) Set(key string, value object.Value) error {
	if IsPrivate(key) {
		return &PrivateAccessError{Op: OpSet, Key: key}
	}
	value = unseal(value)
	if err := g.target.Set(key, value); err != nil {
		return err
	}
	if fn, ok := value.(object.Function); ok && fn != nil {
		g.assigned[key] = true
	} else {
		delete(g.assigned, key)
	}
	return nil
}

// OwnKeys implements object.Receiver.
func (g *Guard) OwnKeys() []string {
	return g.target.OwnKeys()
}

// GetOwnPropertyDescriptor implements object.Receiver. Private keys are
// always reported as non-enumerable, and their value is withheld.
func (g *Guard) GetOwnPropertyDescriptor(key string) (object.Descriptor, bool) {
	return g.describe(viewExternal, key)
}

// Proto implements object.Receiver.
func (g *Guard) Proto() *object.Object {
	return g.target.Proto()
}

// EnumerableKey implements object.KeyFilter so that private keys inherited
// through the prototype chain stay hidden too.
func (g *Guard) EnumerableKey(key string) bool {
	return !IsPrivate(key)
}

// PublicKeys returns the public own enumerable keys of the target.
func (g *Guard) PublicKeys() []string {
	return object.OwnEnumerableKeys(g)
}

// PublicFields returns a plain object holding the current values of the
// public own enumerable properties of the target.
func (g *Guard) PublicFields() (*object.Object, error) {
	out := object.New(nil)
	for _, k := range g.PublicKeys() {
		v, err := g.target.Get(k)
		if err != nil {
			return nil, err
		}
		if err := out.Set(k, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MarshalJSON implements json.Marshaler.
func (g *Guard) MarshalJSON() ([]byte, error) {
	return object.Marshal(g)
}

func (g *Guard) get(v view, key string) (object.Value, error) {
	if IsPrivate(key) {
		switch v {
		case viewExternal:
			return nil, &PrivateAccessError{Op: OpGet, Key: key}
		case viewSerialize:
			return nil, nil
		}
	}

	if key == toJSONKey && v != viewInsider {
		return g.toJSON()
	}

	val, err := g.target.Get(key)
	if err != nil {
		return nil, err
	}
	if fn, ok := val.(object.Function); ok && fn != nil {
		if g.assigned[key] {
			return g.bind(fn, g), nil
		}
		return g.bind(fn, g.facetFor(v)), nil
	}
	return val, nil
}

func (g *Guard) describe(v view, key string) (object.Descriptor, bool) {
	d, ok := g.target.GetOwnPropertyDescriptor(key)
	if !ok || !IsPrivate(key) {
		return d, ok
	}
	d.Enumerable = false
	if v != viewInsider {
		d.Value = nil
	}
	return d, true
}

// toJSON returns the target's own toJSON bound to the serializer facet, or a
// synthesized one that copies public fields when it is called.
func (g *Guard) toJSON() (object.Value, error) {
	custom, err := g.target.Get(toJSONKey)
	if err != nil {
		return nil, err
	}
	if fn, ok := custom.(object.Function); ok && fn != nil {
		return g.bind(fn, g.serializer), nil
	}
	return object.Function(func(object.Receiver, ...object.Value) (object.Value, error) {
		return g.PublicFields()
	}), nil
}

func (g *Guard) facetFor(v view) object.Receiver {
	if v == viewSerialize {
		return g.serializer
	}
	return g.insider
}

// bind fixes the receiver of fn to this. A facet returned by the call is
// replaced by its guard so the capability does not escape.
func (g *Guard) bind(fn object.Function, this object.Receiver) object.Function {
	return func(_ object.Receiver, args ...object.Value) (object.Value, error) {
		out, err := fn(this, args...)
		return unseal(out), err
	}
}

// sealed is implemented by facets. owner is the wrapper the facet belongs
// to, as the outside sees it.
type sealed interface {
	object.Receiver
	owner() object.Receiver
}

// unseal maps a facet to its guard and returns other values unchanged.
func unseal(v object.Value) object.Value {
	if s, ok := v.(sealed); ok {
		return s.owner()
	}
	return v
}

// facet is a view of a guarded target handed only to functions invoked
// through the guard.
type facet struct {
	guard *Guard
	view  view
}

func (f *facet) owner() object.Receiver {
	return f.guard
}

func (f *facet) Get(key string) (object.Value, error) {
	return f.guard.get(f.view, key)
}

func (f *facet) Set(key string, value object.Value) error {
	return f.guard.Set(key, value)
}

func (f *facet) OwnKeys() []string {
	return f.guard.OwnKeys()
}

func (f *facet) GetOwnPropertyDescriptor(key string) (object.Descriptor, bool) {
	return f.guard.describe(f.view, key)
}

func (f *facet) Proto() *object.Object {
	return f.guard.Proto()
}

func (f *facet) EnumerableKey(key string) bool {
	return f.guard.EnumerableKey(key)
}
