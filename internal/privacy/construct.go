package privacy

import (
	"github.com/dshills/privatise/internal/object"
)

// GuardedClass is a constructor whose instances are wrapped with a Guard.
// Its statics are guarded by the embedded Guard.
type GuardedClass struct {
	*Guard
	class object.Constructor
}

// WrapClass returns a guarded constructor over class. Static methods called
// through it receive an insider facet that can also construct, so a static
// factory may build instances from its receiver.
func WrapClass(class object.Constructor) *GuardedClass {
	c := &GuardedClass{
		Guard: WrapObject(class),
		class: class,
	}
	c.insider = &classFacet{
		facet: &facet{guard: c.Guard, view: viewInsider},
		class: c,
	}
	return c
}

// Construct implements object.Constructor. The original constructor runs on
// the raw instance; the caller only ever sees the wrapped one.
func (c *GuardedClass) Construct(args ...object.Value) (object.Receiver, error) {
	return c.New(args...)
}

// New is Construct with a concrete result type.
func (c *GuardedClass) New(args ...object.Value) (*Guard, error) {
	inst, err := c.class.Construct(args...)
	if err != nil {
		return nil, err
	}
	return WrapObject(inst), nil
}

// Init implements object.Constructor so the guarded class can be extended.
func (c *GuardedClass) Init(this *object.Object, args ...object.Value) error {
	return c.class.Init(this, args...)
}

// InstancePrototype implements object.Constructor. It is the original
// class's prototype, so instances match both the guarded and raw class.
func (c *GuardedClass) InstancePrototype() *object.Object {
	return c.class.InstancePrototype()
}

// classFacet is the insider facet of a guarded class. Instances it
// constructs are guarded like those of the class itself.
type classFacet struct {
	*facet
	class *GuardedClass
}

func (f *classFacet) owner() object.Receiver {
	return f.class
}

func (f *classFacet) Construct(args ...object.Value) (object.Receiver, error) {
	return f.class.Construct(args...)
}

func (f *classFacet) Init(this *object.Object, args ...object.Value) error {
	return f.class.Init(this, args...)
}

func (f *classFacet) InstancePrototype() *object.Object {
	return f.class.InstancePrototype()
}
