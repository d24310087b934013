package identity

import "strings"

// Identity is an opaque principal used as a set and map key. It carries no
// ordering or arithmetic semantics beyond equality.
type Identity string

// Parse trims surrounding whitespace and returns the identity. An empty
// result means no identity was supplied.
func Parse(raw string) Identity {
	return Identity(strings.TrimSpace(raw))
}

func (id Identity) IsZero() bool {
	return id == ""
}

func (id Identity) String() string {
	return string(id)
}
