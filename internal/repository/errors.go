// Package repository defines the storage contracts for accounts and
// areas together with their MongoDB and MySQL implementations. The
// sentinel values below are shared by both backends so that services
// can distinguish failure scenarios without knowing which store is in
// use. Infrastructure failures are wrapped with an oops code and stay
// comparable with errors.Is.
package repository

import "errors"

// ErrNotFound is returned when a lookup, update or delete matched no
// record.
var ErrNotFound = errors.New("not found")

// ErrAmbiguous is returned by identity lookups that matched more than
// one record. Callers expecting a single account treat it like a miss.
var ErrAmbiguous = errors.New("more than one record matched")

// ErrDuplicateContact is returned when an insert collides with the
// unique index on contact.
var ErrDuplicateContact = errors.New("contact already exists")
