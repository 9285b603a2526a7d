package object

// Passthrough forwards every operation to its target unchanged. It is the
// equivalent of a proxy with no traps and is useful for checking that a
// wrapper's policy survives being wrapped again.
type Passthrough struct {
	target Receiver
}

// NewPassthrough creates a forwarding layer over target.
func NewPassthrough(target Receiver) *Passthrough {
	return &Passthrough{target: target}
}

// Get implements Receiver.
func (p *Passthrough) Get(key string) (Value, error) {
	return p.target.Get(key)
}

// Set implements Receiver.
func (p *Passthrough) Set(key string, value Value) error {
	return p.target.Set(key, value)
}

// OwnKeys implements Receiver.
func (p *Passthrough) OwnKeys() []string {
	return p.target.OwnKeys()
}

// GetOwnPropertyDescriptor implements Receiver.
func (p *Passthrough) GetOwnPropertyDescriptor(key string) (Descriptor, bool) {
	return p.target.GetOwnPropertyDescriptor(key)
}

// Proto implements Receiver.
func (p *Passthrough) Proto() *Object {
	return p.target.Proto()
}

// MarshalJSON implements json.Marshaler.
func (p *Passthrough) MarshalJSON() ([]byte, error) {
	return Marshal(p)
}
