package carddav

import (
	"encoding/xml"
	"strings"
)

// Minimal WebDAV Multi-Status shapes (RFC 4918 §13, CardDAV props from
// RFC 6352). Elements are matched by local name, which tolerates the
// namespace prefix zoo different servers produce.
type multistatus struct {
	XMLName   xml.Name   `xml:"multistatus"`
	Responses []response `xml:"response"`
}

type response struct {
	Href     string     `xml:"href"`
	Propstat []propstat `xml:"propstat"`
}

type propstat struct {
	Status string `xml:"status"`
	Prop   prop   `xml:"prop"`
}

type prop struct {
	DisplayName          string       `xml:"displayname"`
	ResourceType         resourcetype `xml:"resourcetype"`
	CurrentUserPrincipal davHref      `xml:"current-user-principal"`
	AddressbookHomeSet   davHref      `xml:"addressbook-home-set"`
	ETag                 string       `xml:"getetag"`
	AddressData          string       `xml:"address-data"`
}

type resourcetype struct {
	Addressbook *struct{} `xml:"addressbook"`
}

type davHref struct {
	Href string `xml:"href"`
}

func statusOK(s string) bool {
	// Typical format: "HTTP/1.1 200 OK". An empty status inside a propstat
	// is treated as success; some servers omit it on the 200 branch.
	return s == "" || strings.Contains(s, " 200 ")
}

// okProp returns the prop of the first successful propstat of a response.
func (r response) okProp() (prop, bool) {
	for _, ps := range r.Propstat {
		if statusOK(ps.Status) {
			return ps.Prop, true
		}
	}
	return prop{}, false
}

const propfindPrincipal = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:">
  <d:prop><d:current-user-principal/></d:prop>
</d:propfind>`

const propfindHomeSet = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:" xmlns:card="urn:ietf:params:xml:ns:carddav">
  <d:prop><card:addressbook-home-set/></d:prop>
</d:propfind>`

const propfindAddressbooks = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:">
  <d:prop><d:resourcetype/><d:displayname/></d:prop>
</d:propfind>`

const reportETags = `<?xml version="1.0" encoding="utf-8"?>
<card:addressbook-query xmlns:d="DAV:" xmlns:card="urn:ietf:params:xml:ns:carddav">
  <d:prop><d:getetag/></d:prop>
</card:addressbook-query>`

func reportMultiget(hrefs []string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	sb.WriteString(`<card:addressbook-multiget xmlns:d="DAV:" xmlns:card="urn:ietf:params:xml:ns:carddav">` + "\n")
	sb.WriteString("  <d:prop><d:getetag/><card:address-data/></d:prop>\n")
	for _, h := range hrefs {
		sb.WriteString("  <d:href>")
		_ = xml.EscapeText(&sb, []byte(h))
		sb.WriteString("</d:href>\n")
	}
	sb.WriteString("</card:addressbook-multiget>")
	return sb.String()
}
