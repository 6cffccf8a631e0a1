package carddav

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/churchy16/carddav2fb/internal/config"
)

const principalResponse = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>/</d:href>
    <d:propstat>
      <d:status>HTTP/1.1 200 OK</d:status>
      <d:prop>
        <d:current-user-principal><d:href>/principals/forrest/</d:href></d:current-user-principal>
      </d:prop>
    </d:propstat>
  </d:response>
</d:multistatus>`

const homeSetResponse = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:card="urn:ietf:params:xml:ns:carddav">
  <d:response>
    <d:href>/principals/forrest/</d:href>
    <d:propstat>
      <d:status>HTTP/1.1 200 OK</d:status>
      <d:prop>
        <card:addressbook-home-set><d:href>/addressbooks/forrest/</d:href></card:addressbook-home-set>
      </d:prop>
    </d:propstat>
  </d:response>
</d:multistatus>`

const listingResponse = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:card="urn:ietf:params:xml:ns:carddav">
  <d:response>
    <d:href>/addressbooks/forrest/</d:href>
    <d:propstat>
      <d:status>HTTP/1.1 200 OK</d:status>
      <d:prop><d:resourcetype><d:collection/></d:resourcetype></d:prop>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/addressbooks/forrest/contacts/</d:href>
    <d:propstat>
      <d:status>HTTP/1.1 200 OK</d:status>
      <d:prop>
        <d:resourcetype><d:collection/><card:addressbook/></d:resourcetype>
        <d:displayname>Contacts</d:displayname>
      </d:prop>
    </d:propstat>
  </d:response>
</d:multistatus>`

const etagsResponse = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>/addressbooks/forrest/contacts/a.vcf</d:href>
    <d:propstat>
      <d:status>HTTP/1.1 200 OK</d:status>
      <d:prop><d:getetag>"etag-a"</d:getetag></d:prop>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/addressbooks/forrest/contacts/b.vcf</d:href>
    <d:propstat>
      <d:status>HTTP/1.1 200 OK</d:status>
      <d:prop><d:getetag>"etag-b"</d:getetag></d:prop>
    </d:propstat>
  </d:response>
</d:multistatus>`

const multigetResponse = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:card="urn:ietf:params:xml:ns:carddav">
  <d:response>
    <d:href>/addressbooks/forrest/contacts/a.vcf</d:href>
    <d:propstat>
      <d:status>HTTP/1.1 200 OK</d:status>
      <d:prop>
        <d:getetag>"etag-a"</d:getetag>
        <card:address-data>BEGIN:VCARD
FN:Forrest Gump
END:VCARD</card:address-data>
      </d:prop>
    </d:propstat>
  </d:response>
</d:multistatus>`

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.WriteHeader(http.StatusMultiStatus)

		switch {
		case r.Method == "PROPFIND" && r.URL.Path == "/":
			io.WriteString(w, principalResponse)
		case r.Method == "PROPFIND" && r.URL.Path == "/principals/forrest/":
			io.WriteString(w, homeSetResponse)
		case r.Method == "PROPFIND" && r.URL.Path == "/addressbooks/forrest/":
			io.WriteString(w, listingResponse)
		case r.Method == "REPORT" && strings.Contains(string(body), "addressbook-multiget"):
			io.WriteString(w, multigetResponse)
		case r.Method == "REPORT":
			io.WriteString(w, etagsResponse)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(config.Account{Name: "test", URL: url, Username: "forrest", Password: "x"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestDiscovery(t *testing.T) {
	srv := testServer(t)
	c := testClient(t, srv.URL+"/")

	books, err := c.Addressbooks(context.Background())
	if err != nil {
		t.Fatalf("Addressbooks: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("books = %+v", books)
	}
	if books[0].Path != "/addressbooks/forrest/contacts/" || books[0].Name != "Contacts" {
		t.Errorf("book = %+v", books[0])
	}
}

func TestConfiguredAddressbooksSkipDiscovery(t *testing.T) {
	c, err := New(config.Account{
		Name:         "pinned",
		URL:          "https://example.com/dav/",
		Addressbooks: []string{"/dav/books/one/"},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	books, err := c.Addressbooks(context.Background())
	if err != nil {
		t.Fatalf("Addressbooks: %v", err)
	}
	if len(books) != 1 || books[0].Path != "/dav/books/one/" {
		t.Errorf("books = %+v", books)
	}
}

func TestETags(t *testing.T) {
	srv := testServer(t)
	c := testClient(t, srv.URL+"/")

	resources, err := c.ETags(context.Background(), "/addressbooks/forrest/contacts/")
	if err != nil {
		t.Fatalf("ETags: %v", err)
	}
	if len(resources) != 2 {
		t.Fatalf("resources = %+v", resources)
	}
	if resources[0].Href != "/addressbooks/forrest/contacts/a.vcf" || resources[0].ETag != "etag-a" {
		t.Errorf("resource = %+v", resources[0])
	}
	if resources[0].Data != "" {
		t.Errorf("etag listing should carry no data, got %q", resources[0].Data)
	}
}

func TestMultiget(t *testing.T) {
	srv := testServer(t)
	c := testClient(t, srv.URL+"/")

	resources, err := c.Multiget(context.Background(), "/addressbooks/forrest/contacts/",
		[]string{"/addressbooks/forrest/contacts/a.vcf"})
	if err != nil {
		t.Fatalf("Multiget: %v", err)
	}
	if len(resources) != 1 {
		t.Fatalf("resources = %+v", resources)
	}
	if !strings.Contains(resources[0].Data, "FN:Forrest Gump") {
		t.Errorf("data = %q", resources[0].Data)
	}
	if resources[0].ETag != "etag-a" {
		t.Errorf("etag = %q", resources[0].ETag)
	}
}

func TestMultigetEmpty(t *testing.T) {
	c := testClient(t, "https://example.com/")
	resources, err := c.Multiget(context.Background(), "/book/", nil)
	if err != nil || resources != nil {
		t.Errorf("Multiget(nil) = %v, %v", resources, err)
	}
}

func TestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	c := testClient(t, srv.URL+"/")
	if _, err := c.ETags(context.Background(), "/book/"); err == nil {
		t.Fatal("want error on 403")
	}
}

func TestRejectsUnsupportedScheme(t *testing.T) {
	if _, err := New(config.Account{Name: "x", URL: "ldap://example.com"}, zerolog.Nop()); err == nil {
		t.Fatal("want error for non-http url")
	}
}
