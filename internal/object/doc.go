// Package object provides a small dynamic object model: insertion-ordered
// property slots with descriptors, prototype chains, classes with
// constructors and statics, and the generic operations that work over any
// Receiver.
//
// # Objects
//
// An Object holds named slots and a link to its prototype:
//
//	proto := object.New(nil)
//	proto.DefineProperty("greet", object.Descriptor{Value: object.Function(greet)})
//
//	o := object.New(proto)
//	_ = o.Set("name", "world")
//
//	out, err := object.Call(o, "greet")
//
// Get walks the prototype chain and returns nil for missing keys. Set always
// writes an own slot.
//
// # Classes
//
// A Class pairs an instance prototype with an initializer:
//
//	point := object.NewClass("Point", nil, func(this *object.Object, args ...object.Value) error {
//	    _ = this.Set("x", args[0])
//	    _ = this.Set("y", args[1])
//	    return nil
//	})
//	point.Method("sum", sum)
//
//	p, err := point.Construct(1, 2)
//	object.InstanceOf(p, point) // true
//
// A subclass calls its parent's Init from its own initializer, the way a
// constructor calls super().
//
// # Enumeration and serialization
//
// Keys mirrors a for-in loop, OwnEnumerableKeys mirrors Object.keys and
// Assign mirrors Object.assign. All three consult descriptors through the
// Receiver interface, so a wrapper that reports a key as non-enumerable hides
// it from every one of them. Marshal serializes with JSON.stringify rules,
// including the toJSON hook.
//
// Objects are not safe for concurrent mutation.
package object
