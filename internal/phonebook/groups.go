package phonebook

import (
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/churchy16/carddav2fb/pkg/vcard"
)

// Dissolve resolves address-book-server group cards: every member UID is
// looked up among the remaining cards and the group's name is appended to
// that card's categories, then the group container itself is removed from
// the collection. Members that reference no known card are skipped.
func Dissolve(cards []vcard.Card, logger zerolog.Logger) []vcard.Card {
	byUID := make(map[string]int, len(cards))
	for i, c := range cards {
		if c.UID != "" && !isGroup(c) {
			byUID[normalizeUID(c.UID)] = i
		}
	}

	for _, c := range cards {
		if !isGroup(c) {
			continue
		}
		name := RealName(c)
		for _, member := range c.Members {
			i, ok := byUID[normalizeUID(member)]
			if !ok {
				logger.Debug().Str("group", name).Str("member", member).Msg("unresolvable group member")
				continue
			}
			cards[i].Categories = append(cards[i].Categories, name)
		}
	}

	out := make([]vcard.Card, 0, len(cards))
	for _, c := range cards {
		if !isGroup(c) {
			out = append(out, c)
		}
	}
	return out
}

func isGroup(c vcard.Card) bool {
	return strings.EqualFold(c.Kind, "group")
}

// normalizeUID canonicalizes UIDs that are UUIDs (case, stray urn prefix)
// so that group member references match regardless of formatting. Other
// identifiers are compared verbatim.
func normalizeUID(s string) string {
	s = strings.TrimPrefix(s, "urn:uuid:")
	if u, err := uuid.Parse(s); err == nil {
		return u.String()
	}
	return s
}
