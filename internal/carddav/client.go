// Package carddav implements the read-only CardDAV client side used to pull
// addressbook contents: principal and addressbook discovery via PROPFIND
// and bulk download via REPORT. Address data is returned as raw vCard text;
// decoding it is the job of pkg/vcard.
//
// The emersion go-webdav client was deliberately not used here: it hands
// back cards already decoded by its own vCard codec, while this tool's
// parser needs the untouched text.
package carddav

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/churchy16/carddav2fb/internal/cache"
	"github.com/churchy16/carddav2fb/internal/config"
)

// Addressbook is one discovered collection.
type Addressbook struct {
	Path string
	Name string
}

// Resource is one addressbook member. Data is empty for etag-only listings.
type Resource struct {
	Href string
	ETag string
	Data string
}

type Client struct {
	base    *url.URL
	account config.Account
	hc      *http.Client
	logger  zerolog.Logger
	books   *cache.Cache[string, []Addressbook]
}

func New(account config.Account, logger zerolog.Logger) (*Client, error) {
	base, err := url.Parse(account.URL)
	if err != nil {
		return nil, fmt.Errorf("account %q: %w", account.Name, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("account %q: unsupported scheme %q", account.Name, base.Scheme)
	}

	transport := http.DefaultTransport
	if account.Insecure {
		transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}
	return &Client{
		base:    base,
		account: account,
		hc:      &http.Client{Timeout: 60 * time.Second, Transport: transport},
		logger:  logger.With().Str("account", account.Name).Logger(),
		books:   cache.New[string, []Addressbook](5 * time.Minute),
	}, nil
}

// Addressbooks returns the addressbooks for this account: the configured
// paths when the account pins them, discovered ones otherwise. Discovery
// results are cached for a few minutes since fetch runs hit this once per
// addressbook.
func (c *Client) Addressbooks(ctx context.Context) ([]Addressbook, error) {
	if len(c.account.Addressbooks) > 0 {
		books := make([]Addressbook, 0, len(c.account.Addressbooks))
		for _, p := range c.account.Addressbooks {
			books = append(books, Addressbook{Path: p, Name: p})
		}
		return books, nil
	}

	if books, ok := c.books.Get("all"); ok {
		return books, nil
	}
	books, err := c.discover(ctx)
	if err != nil {
		return nil, err
	}
	c.books.Set("all", books)
	return books, nil
}

func (c *Client) discover(ctx context.Context) ([]Addressbook, error) {
	principal, err := c.propfindHref(ctx, c.base.Path, propfindPrincipal,
		func(p prop) string { return p.CurrentUserPrincipal.Href })
	if err != nil {
		return nil, fmt.Errorf("principal discovery: %w", err)
	}

	home, err := c.propfindHref(ctx, principal, propfindHomeSet,
		func(p prop) string { return p.AddressbookHomeSet.Href })
	if err != nil {
		return nil, fmt.Errorf("home set discovery: %w", err)
	}

	ms, err := c.request(ctx, "PROPFIND", home, "1", propfindAddressbooks)
	if err != nil {
		return nil, fmt.Errorf("addressbook listing: %w", err)
	}
	var books []Addressbook
	for _, r := range ms.Responses {
		p, ok := r.okProp()
		if !ok || p.ResourceType.Addressbook == nil {
			continue
		}
		name := p.DisplayName
		if name == "" {
			name = r.Href
		}
		books = append(books, Addressbook{Path: r.Href, Name: name})
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Path < books[j].Path })
	c.logger.Debug().Int("count", len(books)).Msg("discovered addressbooks")
	return books, nil
}

// ETags lists an addressbook's members without address data.
func (c *Client) ETags(ctx context.Context, bookPath string) ([]Resource, error) {
	ms, err := c.request(ctx, "REPORT", bookPath, "1", reportETags)
	if err != nil {
		return nil, fmt.Errorf("etag listing %s: %w", bookPath, err)
	}
	return resourcesFrom(ms, false), nil
}

// Multiget downloads the raw vCard text of the given member hrefs.
func (c *Client) Multiget(ctx context.Context, bookPath string, hrefs []string) ([]Resource, error) {
	if len(hrefs) == 0 {
		return nil, nil
	}
	ms, err := c.request(ctx, "REPORT", bookPath, "1", reportMultiget(hrefs))
	if err != nil {
		return nil, fmt.Errorf("multiget %s: %w", bookPath, err)
	}
	return resourcesFrom(ms, true), nil
}

func resourcesFrom(ms *multistatus, wantData bool) []Resource {
	var out []Resource
	for _, r := range ms.Responses {
		p, ok := r.okProp()
		if !ok {
			continue
		}
		if wantData && p.AddressData == "" {
			continue
		}
		out = append(out, Resource{
			Href: r.Href,
			ETag: strings.Trim(p.ETag, `"`),
			Data: p.AddressData,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Href < out[j].Href })
	return out
}

// propfindHref runs a Depth 0 PROPFIND and extracts one href-valued
// property from the first successful response.
func (c *Client) propfindHref(ctx context.Context, path, body string, pick func(prop) string) (string, error) {
	ms, err := c.request(ctx, "PROPFIND", path, "0", body)
	if err != nil {
		return "", err
	}
	for _, r := range ms.Responses {
		if p, ok := r.okProp(); ok {
			if href := pick(p); href != "" {
				return href, nil
			}
		}
	}
	return "", fmt.Errorf("no usable response for %s", path)
}

func (c *Client) request(ctx context.Context, method, path, depth, body string) (*multistatus, error) {
	u := *c.base
	if path != "" {
		ref, err := url.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		u = *c.base.ResolveReference(ref)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")
	if depth != "" {
		req.Header.Set("Depth", depth)
	}
	if c.account.Username != "" {
		req.SetBasicAuth(c.account.Username, c.account.Password)
	}

	c.logger.Debug().Str("method", method).Str("url", u.String()).Msg("request")
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s %s: %s", method, u.Path, resp.Status)
	}

	var ms multistatus
	if err := xml.NewDecoder(resp.Body).Decode(&ms); err != nil {
		return nil, fmt.Errorf("%s %s: decode multistatus: %w", method, u.Path, err)
	}
	return &ms, nil
}
