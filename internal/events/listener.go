// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package events

import (
	"errors"
	"fmt"
	"strings"
)

// Wildcard matches every kind in a listener spec.
const Wildcard = "*"

// ErrInvalidSpec is returned for listener specs naming no known kind.
var ErrInvalidSpec = errors.New("invalid listener spec")

// Spec is a parsed listener registration of the form name[.namespace],
// where name is a Kind or "*".
type Spec struct {
	Name      string
	Namespace string
}

// ParseSpec parses name[.namespace]. When remove is set an empty name is
// accepted, so ".ns" addresses every listener in ns.
func ParseSpec(raw string, remove bool) (Spec, error) {
	name, ns, _ := strings.Cut(strings.TrimSpace(raw), ".")
	s := Spec{Name: name, Namespace: ns}
	switch {
	case name == Wildcard:
	case name == "" && remove && ns != "":
	default:
		if _, ok := ParseKind(name); !ok {
			return Spec{}, fmt.Errorf("%w: %q", ErrInvalidSpec, raw)
		}
	}
	return s, nil
}

func (s Spec) String() string {
	if s.Namespace == "" {
		return s.Name
	}
	return s.Name + "." + s.Namespace
}

func (s Spec) matchesKind(k Kind) bool {
	return s.Name == Wildcard || s.Name == string(k)
}

// covers reports whether removal spec s addresses listener spec l. A "*"
// or empty name addresses every name.
func (s Spec) covers(l Spec) bool {
	if s.Name != "" && s.Name != Wildcard && s.Name != l.Name {
		return false
	}
	return s.Namespace == "" || s.Namespace == l.Namespace
}
