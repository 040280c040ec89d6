package domain

import (
	"fmt"
	"sync/atomic"
)

// SuriKey is the comparable identity of an upload.
type SuriKey struct {
	Source      string
	Destination string
}

func (k SuriKey) String() string {
	return k.Source + " -> " + k.Destination
}

// Suri names one upload: where the bytes come from and where they go. Once
// the upload succeeds it is annotated with the resulting location. The
// location does not take part in the identity.
type Suri struct {
	Source      string
	Destination string
	location    atomic.Pointer[string]
}

func NewSuri(source, destination string) *Suri {
	return &Suri{Source: source, Destination: destination}
}

func (s *Suri) Key() SuriKey {
	return SuriKey{Source: s.Source, Destination: s.Destination}
}

// SetLocation stores the resulting location. It is write-once: it returns
// false and keeps the first value if a location was already set.
func (s *Suri) SetLocation(location string) bool {
	return s.location.CompareAndSwap(nil, &location)
}

func (s *Suri) Location() (string, bool) {
	loc := s.location.Load()
	if loc == nil {
		return "", false
	}
	return *loc, true
}

func (s *Suri) String() string {
	if loc, ok := s.Location(); ok {
		return fmt.Sprintf("%s -> %s (%s)", s.Source, s.Destination, loc)
	}
	return s.Key().String()
}

// Keys indexes the identities of the given suris.
func Keys(suris []*Suri) map[SuriKey]struct{} {
	keys := make(map[SuriKey]struct{}, len(suris))
	for _, s := range suris {
		keys[s.Key()] = struct{}{}
	}
	return keys
}
