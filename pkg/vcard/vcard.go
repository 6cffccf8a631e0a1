// Package vcard parses vCard contact data (RFC 2425 / RFC 6350) into
// structured card records.
//
// Input is an arbitrary blob of text holding one or more concatenated
// BEGIN:VCARD..END:VCARD blocks. Parse unfolds physical lines into logical
// property lines, decodes values (base64, quoted-printable, alternate
// charsets), resolves RFC 6350 backslash escapes and dispatches each
// property into a sparse Card record. The result is an ordered, read-only
// collection: callers obtain the raw text themselves (file, CardDAV
// download) and consume the cards afterwards.
package vcard

import (
	"errors"
	"fmt"
	"time"
)

// Errors reported by Parse and the AddressBook accessors. Parse errors wrap
// ErrMalformed or ErrInvalidDate, so callers can test them with errors.Is.
var (
	ErrMalformed   = errors.New("vcard: malformed input")
	ErrInvalidDate = errors.New("vcard: invalid date")
	ErrOutOfRange  = errors.New("vcard: card index out of range")
)

// Default type-tag keys used for multi-valued properties that carry no
// parameters.
const (
	DefaultAddressKey = "WORK;POSTAL"
	DefaultKey        = "default"
)

// Address is the structured ADR property, split into its seven components.
// A nil component was not supplied in the source, which is distinct from a
// component supplied as an empty string.
type Address struct {
	Name     *string `json:"name,omitempty"`
	Extended *string `json:"extended,omitempty"`
	Street   *string `json:"street,omitempty"`
	City     *string `json:"city,omitempty"`
	Region   *string `json:"region,omitempty"`
	Zip      *string `json:"zip,omitempty"`
	Country  *string `json:"country,omitempty"`
}

// Binary holds a PHOTO, LOGO, SOUND or KEY value. Data and Params are set
// when the source value was base64-encoded: Data is the decoded payload and
// Params records the property's remaining parameter string. Ref holds the
// verbatim value (usually a URI) when the source was not inline binary.
type Binary struct {
	Data   []byte `json:"data,omitempty"`
	Params string `json:"params,omitempty"`
	Ref    string `json:"ref,omitempty"`
}

// Card is a single parsed contact. Fields are sparse: a zero value means the
// corresponding property was absent from the source. Repeated scalar
// properties overwrite, list-valued properties accumulate in source order.
//
// The five structured name components come from the N property and sit
// directly on the card; like Address components they are nil when the source
// omitted them.
type Card struct {
	FormattedName string  `json:"fn,omitempty"`
	LastName      *string `json:"lastname,omitempty"`
	FirstName     *string `json:"firstname,omitempty"`
	Additional    *string `json:"additional,omitempty"`
	Prefix        *string `json:"prefix,omitempty"`
	Suffix        *string `json:"suffix,omitempty"`

	Nickname     string     `json:"nickname,omitempty"`
	Birthday     *time.Time `json:"birthday,omitempty"`
	Organization string     `json:"organization,omitempty"`
	Title        string     `json:"title,omitempty"`
	Revision     string     `json:"revision,omitempty"`
	Version      string     `json:"version,omitempty"`
	Note         string     `json:"note,omitempty"`
	Categories   []string   `json:"categories,omitempty"`
	UID          string     `json:"uid,omitempty"`

	// Multi-valued properties, keyed by the joined parameter list of each
	// occurrence (or the property default). Values within a key keep source
	// order; the key set itself is unordered.
	Addresses map[string][]Address `json:"addresses,omitempty"`
	Phones    map[string][]string  `json:"phones,omitempty"`
	Emails    map[string][]string  `json:"emails,omitempty"`
	URLs      map[string][]string  `json:"urls,omitempty"`

	Photo *Binary `json:"photo,omitempty"`
	Logo  *Binary `json:"logo,omitempty"`
	Sound *Binary `json:"sound,omitempty"`
	Key   *Binary `json:"key,omitempty"`

	// Address-book-server group extension.
	Kind    string   `json:"kind,omitempty"`
	Members []string `json:"members,omitempty"`

	// FRITZ!Box extensions.
	QuickDial string `json:"quickdial,omitempty"`
	Vanity    string `json:"vanity,omitempty"`
}

// AddressBook is the ordered collection of cards produced by Parse. It is
// immutable after construction; accessors return copies.
type AddressBook struct {
	cards []Card
}

// Len returns the number of parsed cards.
func (b *AddressBook) Len() int {
	return len(b.cards)
}

// Cards returns all parsed cards in source order.
func (b *AddressBook) Cards() []Card {
	out := make([]Card, len(b.cards))
	copy(out, b.cards)
	return out
}

// Card returns the card at the given zero-based position. The error wraps
// ErrOutOfRange when no such card exists.
func (b *AddressBook) Card(i int) (Card, error) {
	if i < 0 || i >= len(b.cards) {
		return Card{}, fmt.Errorf("%w: %d (have %d)", ErrOutOfRange, i, len(b.cards))
	}
	return b.cards[i], nil
}
