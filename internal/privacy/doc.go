// Package privacy wraps dynamic objects and classes so that properties whose
// names begin with an underscore behave as private.
//
// A wrapped object rejects external reads and writes of private properties
// with a PrivateAccessError, reports them as non-enumerable so that Keys,
// Assign and Marshal skip them, and serializes through a synthesized toJSON
// that copies only public own properties:
//
//	g := privacy.WrapObject(instance)
//
//	_, err := g.Get("_secret")          // errors.Is(err, privacy.ErrPrivateAccess)
//	raw, _ := object.Marshal(g)         // {"pub":2}
//	object.Keys(g)                      // [pub]
//
// Methods fetched through a wrapper are bound to an insider facet of it. The
// facet is a capability: reads of private properties succeed through it, so a
// method may read its own private state and call other private methods on
// its receiver. A custom toJSON is bound to a serializer facet instead, where
// private reads yield nil rather than failing. Private writes fail through
// every facet; constructors set private state on the raw instance before it
// is wrapped. A function stored through the wrapper is not a method of the
// object: it is called with the wrapper itself as its receiver, and a facet
// stored as a value is replaced by its wrapper.
//
// Wrapping a class with WrapClass yields a constructor whose instances are
// all wrapped, whose private statics are guarded the same way, and whose
// instances still satisfy object.InstanceOf against the original class.
//
// The guard is a convention, not a security boundary: whoever holds the raw
// target can still read it.
package privacy
