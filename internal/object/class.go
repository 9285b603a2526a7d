package object

// Initializer is a constructor body. It runs against the raw instance before
// any wrapper sees it, so it may set any property.
type Initializer func(this *Object, args ...Value) error

// Constructor is anything that produces instances. A Constructor is itself a
// Receiver over its static members.
type Constructor interface {
	Receiver

	// Construct allocates an instance and runs the constructor body on it.
	Construct(args ...Value) (Receiver, error)

	// Init runs the constructor body on an already allocated instance.
	// Subclass initializers call it on their parent, like super().
	Init(this *Object, args ...Value) error

	// InstancePrototype returns the prototype shared by all instances.
	InstancePrototype() *Object
}

// Class is a named constructor with an instance prototype and statics.
type Class struct {
	name      string
	parent    Constructor
	prototype *Object
	statics   *Object
	init      Initializer
}

// NewClass creates a class. parent may be nil. A nil init delegates to the
// parent's Init with the same arguments.
func NewClass(name string, parent Constructor, init Initializer) *Class {
	var proto, staticProto *Object
	if parent != nil {
		proto = parent.InstancePrototype()
		if pc, ok := parent.(*Class); ok {
			staticProto = pc.statics
		}
	}

	c := &Class{
		name:      name,
		parent:    parent,
		prototype: New(proto),
		statics:   New(staticProto),
		init:      init,
	}
	c.prototype.DefineProperty("constructor", Descriptor{Value: c, Writable: true, Configurable: true})
	c.statics.DefineProperty("name", Descriptor{Value: name, Configurable: true})
	c.statics.DefineProperty("prototype", Descriptor{Value: c.prototype})
	return c
}

// Name returns the class name.
func (c *Class) Name() string {
	return c.name
}

// Parent returns the parent constructor, or nil.
func (c *Class) Parent() Constructor {
	return c.parent
}

// Method defines a non-enumerable instance method.
func (c *Class) Method(name string, fn Function) *Class {
	c.prototype.DefineProperty(name, Descriptor{Value: fn, Writable: true, Configurable: true})
	return c
}

// StaticMethod defines a non-enumerable static method.
func (c *Class) StaticMethod(name string, fn Function) *Class {
	c.statics.DefineProperty(name, Descriptor{Value: fn, Writable: true, Configurable: true})
	return c
}

// Static defines an enumerable static field.
func (c *Class) Static(name string, v Value) *Class {
	c.statics.DefineProperty(name, DataDescriptor(v))
	return c
}

// Init implements Constructor.
func (c *Class) Init(this *Object, args ...Value) error {
	if c.init == nil {
		if c.parent != nil {
			return c.parent.Init(this, args...)
		}
		return nil
	}
	return c.init(this, args...)
}

// Construct implements Constructor.
func (c *Class) Construct(args ...Value) (Receiver, error) {
	return c.New(args...)
}

// New is Construct with a concrete result type.
func (c *Class) New(args ...Value) (*Object, error) {
	o := New(c.prototype)
	if err := c.Init(o, args...); err != nil {
		return nil, err
	}
	return o, nil
}

// InstancePrototype implements Constructor.
func (c *Class) InstancePrototype() *Object {
	return c.prototype
}

// Get implements Receiver over the statics.
func (c *Class) Get(key string) (Value, error) {
	return c.statics.Get(key)
}

// Set implements Receiver over the statics.
func (c *Class) Set(key string, value Value) error {
	return c.statics.Set(key, value)
}

// OwnKeys implements Receiver over the statics.
func (c *Class) OwnKeys() []string {
	return c.statics.OwnKeys()
}

// GetOwnPropertyDescriptor implements Receiver over the statics.
func (c *Class) GetOwnPropertyDescriptor(key string) (Descriptor, bool) {
	return c.statics.GetOwnPropertyDescriptor(key)
}

// Proto implements Receiver over the statics.
func (c *Class) Proto() *Object {
	return c.statics.Proto()
}
