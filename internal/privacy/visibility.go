package privacy

import "strings"

// PrivatePrefix marks a property name as private.
const PrivatePrefix = "_"

// Visibility classifies a property name.
type Visibility int

const (
	// Public properties are visible through every interception point.
	Public Visibility = iota
	// Private properties are hidden from external access, enumeration and
	// serialization.
	Private
)

// String returns the visibility name.
func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Private:
		return "private"
	default:
		return "unknown"
	}
}

// Classify returns the visibility of a property name.
func Classify(name string) Visibility {
	if IsPrivate(name) {
		return Private
	}
	return Public
}

// IsPrivate reports whether name begins with the private prefix.
func IsPrivate(name string) bool {
	return strings.HasPrefix(name, PrivatePrefix)
}
