package object

// KeyFilter is implemented by receivers that hide some inherited keys from
// enumeration. Own keys are filtered through their descriptors instead.
type KeyFilter interface {
	EnumerableKey(key string) bool
}

// Keys returns the keys a for-in loop would visit: own enumerable keys in
// insertion order, then enumerable keys inherited through the prototype
// chain. A key shadowed closer to the receiver is never repeated, even when
// the shadowing property is not enumerable.
func Keys(r Receiver) []string {
	seen := make(map[string]bool)
	var keys []string

	filter, _ := r.(KeyFilter)
	collect := func(src Receiver, inherited bool) {
		for _, k := range src.OwnKeys() {
			if seen[k] {
				continue
			}
			seen[k] = true
			if inherited && filter != nil && !filter.EnumerableKey(k) {
				continue
			}
			if d, ok := src.GetOwnPropertyDescriptor(k); ok && d.Enumerable {
				keys = append(keys, k)
			}
		}
	}

	collect(r, false)
	for p := r.Proto(); p != nil; p = p.Proto() {
		collect(p, true)
	}
	return keys
}

// OwnEnumerableKeys returns the own enumerable keys in insertion order.
func OwnEnumerableKeys(r Receiver) []string {
	var keys []string
	for _, k := range r.OwnKeys() {
		if d, ok := r.GetOwnPropertyDescriptor(k); ok && d.Enumerable {
			keys = append(keys, k)
		}
	}
	return keys
}

// Assign copies every own enumerable property of each source onto dst,
// reading through the source's Get. It stops at the first error.
func Assign(dst Receiver, srcs ...Receiver) error {
	for _, src := range srcs {
		if src == nil {
			continue
		}
		for _, k := range OwnEnumerableKeys(src) {
			v, err := src.Get(k)
			if err != nil {
				return err
			}
			if err := dst.Set(k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Call fetches name from r and invokes it with r as the receiver.
func Call(r Receiver, name string, args ...Value) (Value, error) {
	v, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	fn, ok := v.(Function)
	if !ok || fn == nil {
		return nil, &TypeError{Op: "call", Key: name, Err: ErrNotCallable}
	}
	return fn(r, args...)
}

// InstanceOf reports whether c's instance prototype appears on r's
// prototype chain.
func InstanceOf(r Receiver, c Constructor) bool {
	if r == nil || c == nil {
		return false
	}
	target := c.InstancePrototype()
	for p := r.Proto(); p != nil; p = p.Proto() {
		if p == target {
			return true
		}
	}
	return false
}
