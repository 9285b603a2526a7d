package object

// Value is any value stored in a property slot.
type Value = any

// Function is a callable property value. The receiver is the object the
// function was fetched from, or whatever the fetching layer substitutes.
type Function func(this Receiver, args ...Value) (Value, error)

// Descriptor describes a property slot.
type Descriptor struct {
	Value        Value
	Writable     bool
	Enumerable   bool
	Configurable bool
}

// DataDescriptor returns the descriptor of an ordinary assigned property.
func DataDescriptor(v Value) Descriptor {
	return Descriptor{
		Value:        v,
		Writable:     true,
		Enumerable:   true,
		Configurable: true,
	}
}

// Receiver is the set of operations every object-like value supports.
// Wrappers implement it to intercept access to an underlying target.
type Receiver interface {
	// Get returns the value of key, searching the prototype chain.
	// Missing keys yield nil without error.
	Get(key string) (Value, error)

	// Set assigns value to an own property.
	Set(key string, value Value) error

	// OwnKeys returns every own key in insertion order, enumerable or not.
	OwnKeys() []string

	// GetOwnPropertyDescriptor returns the descriptor of an own property.
	GetOwnPropertyDescriptor(key string) (Descriptor, bool)

	// Proto returns the prototype, or nil at the end of the chain.
	Proto() *Object
}

// Object is an insertion-ordered collection of property slots with a
// prototype link.
type Object struct {
	proto *Object
	keys  []string
	props map[string]*Descriptor
}

// New creates an empty object with the given prototype.
func New(proto *Object) *Object {
	return &Object{
		proto: proto,
		props: make(map[string]*Descriptor),
	}
}

// FromPairs creates a prototype-less object holding the given key/value
// pairs in order. Odd trailing elements are ignored.
func FromPairs(kv ...Value) *Object {
	o := New(nil)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		o.define(key, DataDescriptor(kv[i+1]))
	}
	return o
}

// Get implements Receiver.
func (o *Object) Get(key string) (Value, error) {
	for cur := o; cur != nil; cur = cur.proto {
		if d, ok := cur.props[key]; ok {
			return d.Value, nil
		}
	}
	return nil, nil
}

// Set implements Receiver.
func (o *Object) Set(key string, value Value) error {
	if d, ok := o.props[key]; ok {
		if !d.Writable {
			return &TypeError{Op: "set", Key: key, Err: ErrReadOnly}
		}
		d.Value = value
		return nil
	}
	o.define(key, DataDescriptor(value))
	return nil
}

// DefineProperty creates or replaces an own property with the given
// descriptor. Replacing keeps the key's original position.
func (o *Object) DefineProperty(key string, d Descriptor) {
	o.define(key, d)
}

func (o *Object) define(key string, d Descriptor) {
	if existing, ok := o.props[key]; ok {
		*existing = d
		return
	}
	o.keys = append(o.keys, key)
	o.props[key] = &d
}

// Delete removes an own property. It reports false for a missing or
// non-configurable property.
func (o *Object) Delete(key string) bool {
	d, ok := o.props[key]
	if !ok || !d.Configurable {
		return false
	}
	delete(o.props, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Has reports whether key is present on the object or its prototype chain.
func (o *Object) Has(key string) bool {
	for cur := o; cur != nil; cur = cur.proto {
		if _, ok := cur.props[key]; ok {
			return true
		}
	}
	return false
}

// OwnKeys implements Receiver.
func (o *Object) OwnKeys() []string {
	keys := make([]string, len(o.keys))
	copy(keys, o.keys)
	return keys
}

// GetOwnPropertyDescriptor implements Receiver.
func (o *Object) GetOwnPropertyDescriptor(key string) (Descriptor, bool) {
	d, ok := o.props[key]
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

// Proto implements Receiver.
func (o *Object) Proto() *Object {
	return o.proto
}

// SetProto replaces the prototype. It reports false if the change would
// create a cycle.
func (o *Object) SetProto(proto *Object) bool {
	for p := proto; p != nil; p = p.proto {
		if p == o {
			return false
		}
	}
	o.proto = proto
	return true
}

// Len returns the number of own properties.
func (o *Object) Len() int {
	return len(o.keys)
}

// MarshalJSON implements json.Marshaler.
func (o *Object) MarshalJSON() ([]byte, error) {
	return Marshal(o)
}
