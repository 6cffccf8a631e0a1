// Package phonebook turns parsed vCard records into FRITZ!Box phonebook
// output: group dissolution, JSON serialization and the phonebook XML
// format the box imports.
package phonebook

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/churchy16/carddav2fb/pkg/vcard"
)

// FRITZ!Box phonebook XML shapes.
type Phonebooks struct {
	XMLName   xml.Name  `xml:"phonebooks"`
	Phonebook Phonebook `xml:"phonebook"`
}

type Phonebook struct {
	Name     string    `xml:"name,attr"`
	Contacts []Contact `xml:"contact"`
}

type Contact struct {
	Category  int        `xml:"category"`
	Person    Person     `xml:"person"`
	Telephony *Telephony `xml:"telephony,omitempty"`
	Services  *Services  `xml:"services,omitempty"`
}

type Person struct {
	RealName string `xml:"realName"`
}

type Telephony struct {
	Numbers []Number `xml:"number"`
}

type Number struct {
	Type      string `xml:"type,attr"`
	QuickDial string `xml:"quickdial,attr,omitempty"`
	Vanity    string `xml:"vanity,attr,omitempty"`
	Value     string `xml:",chardata"`
}

type Services struct {
	Emails []Email `xml:"email"`
}

type Email struct {
	Value string `xml:",chardata"`
}

// Convert builds a FRITZ!Box phonebook from the card collection. Cards
// without a display name or phone number still appear (the box tolerates
// them), but group container cards should be dissolved first. Cards in one
// of the vip categories get the important-contact flag.
func Convert(cards []vcard.Card, name string, vips []string) *Phonebooks {
	vipSet := make(map[string]struct{}, len(vips))
	for _, v := range vips {
		vipSet[strings.ToLower(v)] = struct{}{}
	}

	pb := Phonebook{Name: name}
	for _, c := range cards {
		pb.Contacts = append(pb.Contacts, contactFrom(c, vipSet))
	}
	return &Phonebooks{Phonebook: pb}
}

func contactFrom(c vcard.Card, vipSet map[string]struct{}) Contact {
	contact := Contact{Person: Person{RealName: RealName(c)}}
	for _, cat := range c.Categories {
		if _, ok := vipSet[strings.ToLower(cat)]; ok {
			contact.Category = 1
			break
		}
	}

	var numbers []Number
	for _, key := range sortedKeys(c.Phones) {
		for _, value := range c.Phones[key] {
			numbers = append(numbers, Number{
				Type:      numberType(key),
				QuickDial: c.QuickDial,
				Vanity:    c.Vanity,
				Value:     value,
			})
		}
	}
	if len(numbers) > 0 {
		contact.Telephony = &Telephony{Numbers: numbers}
	}

	var emails []Email
	for _, key := range sortedKeys(c.Emails) {
		for _, value := range c.Emails[key] {
			emails = append(emails, Email{Value: value})
		}
	}
	if len(emails) > 0 {
		contact.Services = &Services{Emails: emails}
	}
	return contact
}

// sortedKeys gives map iteration a stable order, so repeated conversions of
// the same collection produce identical output.
func sortedKeys[V any](m map[string][]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RealName is the display name of a card: FN when present, otherwise
// assembled from the structured name components.
func RealName(c vcard.Card) string {
	if c.FormattedName != "" {
		return c.FormattedName
	}
	var parts []string
	for _, p := range []*string{c.Prefix, c.FirstName, c.Additional, c.LastName, c.Suffix} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	return strings.Join(parts, " ")
}

// numberType maps a vCard type-tag key onto the FRITZ!Box number types
// (home, work, mobile, fax_work).
func numberType(key string) string {
	k := strings.ToUpper(key)
	switch {
	case strings.Contains(k, "CELL"), strings.Contains(k, "MOBILE"):
		return "mobile"
	case strings.Contains(k, "FAX"):
		return "fax_work"
	case strings.Contains(k, "WORK"):
		return "work"
	default:
		return "home"
	}
}

// WriteJSON serializes the card collection as indented JSON.
func WriteJSON(w io.Writer, cards []vcard.Card) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cards)
}

// WriteXML serializes a phonebook with an XML header, the shape the
// FRITZ!Box restore dialog accepts.
func WriteXML(w io.Writer, pb *Phonebooks) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(pb); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}
