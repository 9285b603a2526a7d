package privacy

import (
	"github.com/dshills/privatise/internal/object"
)

// Wrap guards target according to its shape: a constructor becomes a
// *GuardedClass, any other receiver becomes a *Guard. Other values return
// nil.
func Wrap(target any) any {
	switch t := target.(type) {
	case object.Constructor:
		return WrapClass(t)
	case object.Receiver:
		return WrapObject(t)
	default:
		return nil
	}
}
