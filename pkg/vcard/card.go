package vcard

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date layouts accepted for BDAY.
var dateLayouts = []string{
	"2006-01-02",
	"20060102",
	"2006-01-02T15:04:05Z07:00",
	"20060102T150405Z",
}

// assign routes one tokenized property into the card. Properties outside
// the fixed table are ignored, which keeps the parser forward compatible
// with vendor extensions it does not know about.
func (c *Card) assign(p property) error {
	value, params, raw := transform(p.value, p.params)

	switch p.name {
	case "FN":
		c.FormattedName = value
	case "N":
		c.setName(value)
	case "NICKNAME":
		c.Nickname = value
	case "BDAY":
		t, err := parseDate(value)
		if err != nil {
			return err
		}
		c.Birthday = &t
	case "ADR":
		if c.Addresses == nil {
			c.Addresses = make(map[string][]Address)
		}
		key := joinKey(params, DefaultAddressKey)
		c.Addresses[key] = append(c.Addresses[key], parseAddress(value))
	case "TEL":
		c.Phones = appendKeyed(c.Phones, params, value)
	case "EMAIL":
		c.Emails = appendKeyed(c.Emails, params, value)
	case "URL":
		c.URLs = appendKeyed(c.URLs, params, value)
	case "REV":
		c.Revision = value
	case "VERSION":
		c.Version = value
	case "ORG":
		c.Organization = strings.TrimSuffix(value, ";")
	case "TITLE":
		c.Title = value
	case "PHOTO":
		c.Photo = binaryField(value, params, raw)
	case "LOGO":
		c.Logo = binaryField(value, params, raw)
	case "SOUND":
		c.Sound = binaryField(value, params, raw)
	case "KEY":
		c.Key = binaryField(value, params, raw)
	case "NOTE":
		c.Note = strings.ReplaceAll(value, `\n`, "\n")
	case "CATEGORIES":
		for _, cat := range strings.Split(value, ",") {
			c.Categories = append(c.Categories, strings.TrimSpace(cat))
		}
	case "UID":
		c.UID = value
	case "X-ADDRESSBOOKSERVER-KIND":
		c.Kind = value
	case "X-ADDRESSBOOKSERVER-MEMBER":
		c.Members = append(c.Members, strings.TrimPrefix(value, "urn:uuid:"))
	case "X-FB-QUICKDIAL":
		if n, err := strconv.Atoi(value); err == nil && n >= 0 && n <= 99 {
			c.QuickDial = strconv.Itoa(n)
		}
	case "X-FB-VANITY":
		if v := vanityCode(value); v != "" {
			c.Vanity = v
		}
	}
	return nil
}

// setName decomposes the N property into its five fixed-order components.
// Trailing components missing from the source stay nil.
func (c *Card) setName(value string) {
	slots := []**string{&c.LastName, &c.FirstName, &c.Additional, &c.Prefix, &c.Suffix}
	for i, part := range strings.Split(value, ";") {
		if i >= len(slots) {
			break
		}
		v := part
		*slots[i] = &v
	}
}

// parseAddress decomposes the ADR property into its seven fixed-order
// components, with the same trailing-absence rule as setName. A semicolon
// inside a component is indistinguishable from a separator; that ambiguity
// is inherent to the source format.
func parseAddress(value string) Address {
	var a Address
	slots := []**string{&a.Name, &a.Extended, &a.Street, &a.City, &a.Region, &a.Zip, &a.Country}
	for i, part := range strings.Split(value, ";") {
		if i >= len(slots) {
			break
		}
		v := part
		*slots[i] = &v
	}
	return a
}

func appendKeyed(m map[string][]string, params []string, value string) map[string][]string {
	if m == nil {
		m = make(map[string][]string)
	}
	key := joinKey(params, DefaultKey)
	m[key] = append(m[key], value)
	return m
}

func binaryField(value string, params []string, raw bool) *Binary {
	if raw {
		return &Binary{Data: []byte(value), Params: strings.Join(params, ";")}
	}
	return &Binary{Ref: value}
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
}

// vanityCode validates an X-FB-VANITY value: pure ASCII letters, stored
// upper-cased and truncated to eight characters. Anything else yields "".
func vanityCode(value string) string {
	if value == "" {
		return ""
	}
	for i := 0; i < len(value); i++ {
		b := value[i]
		if (b < 'a' || b > 'z') && (b < 'A' || b > 'Z') {
			return ""
		}
	}
	v := strings.ToUpper(value)
	if len(v) > 8 {
		v = v[:8]
	}
	return v
}
