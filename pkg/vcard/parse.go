package vcard

import (
	"fmt"
	"strings"
)

const (
	beginMarker = "BEGIN:VCARD"
	endMarker   = "END:VCARD"
)

// Parse eagerly converts a blob of vCard text into an AddressBook. The
// whole input is processed in one sequential pass; a fatal error (date that
// does not parse, property line outside a card, unmatched or nested
// BEGIN/END) aborts the parse instead of returning a truncated collection.
//
// Parsing is deterministic: the same input always yields a deep-equal
// result, and concurrent calls on separate inputs are safe.
func Parse(text string) (*AddressBook, error) {
	var cards []Card
	var cur *Card

	for _, line := range logicalLines(text) {
		switch {
		case strings.EqualFold(line, beginMarker):
			if cur != nil {
				return nil, fmt.Errorf("%w: BEGIN:VCARD while a card is still open", ErrMalformed)
			}
			cur = &Card{}
		case strings.EqualFold(line, endMarker):
			if cur == nil {
				return nil, fmt.Errorf("%w: END:VCARD without a matching BEGIN:VCARD", ErrMalformed)
			}
			cards = append(cards, *cur)
			cur = nil
		default:
			if cur == nil {
				return nil, fmt.Errorf("%w: property line %q outside of a card", ErrMalformed, line)
			}
			if err := cur.assign(splitLine(line)); err != nil {
				return nil, err
			}
		}
	}
	if cur != nil {
		return nil, fmt.Errorf("%w: unterminated card at end of input", ErrMalformed)
	}
	return &AddressBook{cards: cards}, nil
}
