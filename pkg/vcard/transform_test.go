package vcard

import (
	"reflect"
	"testing"
)

func TestTransformSelection(t *testing.T) {
	cases := []struct {
		name     string
		value    string
		params   []string
		want     string
		residual []string
		raw      bool
	}{
		{
			name:   "no parameters",
			value:  "plain",
			params: nil,
			want:   "plain",
		},
		{
			name:     "unrelated parameters pass through",
			value:    "12345",
			params:   []string{"WORK", "VOICE"},
			want:     "12345",
			residual: []string{"WORK", "VOICE"},
		},
		{
			name:   "base64",
			value:  "aGVsbG8=",
			params: []string{"BASE64"},
			want:   "hello",
			raw:    true,
		},
		{
			name:   "base64 case insensitive substring",
			value:  "aGVsbG8=",
			params: []string{"encoding=Base64"},
			want:   "hello",
			raw:    true,
		},
		{
			name:   "encoding=b",
			value:  "aGVsbG8=",
			params: []string{"ENCODING=B"},
			want:   "hello",
			raw:    true,
		},
		{
			name:   "quoted-printable",
			value:  "h=C3=A9llo",
			params: []string{"ENCODING=QUOTED-PRINTABLE"},
			want:   "héllo",
			raw:    true,
		},
		{
			name:   "charset conversion",
			value:  "K\xe4se",
			params: []string{"CHARSET=ISO-8859-1"},
			want:   "Käse",
		},
		{
			name:   "unknown charset swallowed, parameter still consumed",
			value:  "K\xe4se",
			params: []string{"CHARSET=X-NO-SUCH-SET"},
			want:   "K\xe4se",
		},
		{
			name:     "only the first matching parameter applies",
			value:    "aGVsbG8=",
			params:   []string{"BASE64", "CHARSET=ISO-8859-1"},
			want:     "hello",
			residual: []string{"CHARSET=ISO-8859-1"},
			raw:      true,
		},
		{
			name:     "parameters before the match are kept",
			value:    "aGVsbG8=",
			params:   []string{"JPEG", "BASE64"},
			want:     "hello",
			residual: []string{"JPEG"},
			raw:      true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, residual, raw := transform(tc.value, tc.params)
			if got != tc.want {
				t.Errorf("value = %q, want %q", got, tc.want)
			}
			if !reflect.DeepEqual(residual, tc.residual) {
				t.Errorf("residual = %v, want %v", residual, tc.residual)
			}
			if raw != tc.raw {
				t.Errorf("raw = %v, want %v", raw, tc.raw)
			}
		})
	}
}

func TestTransformBinarySkipsUnescaping(t *testing.T) {
	// YVwsYg== decodes to `a\,b`; the escape sequence must survive.
	got, _, raw := transform("YVwsYg==", []string{"BASE64"})
	if !raw {
		t.Fatal("value not marked raw")
	}
	if got != `a\,b` {
		t.Errorf("value = %q, want %q", got, `a\,b`)
	}
}

func TestTransformInvalidBase64LeftAsIs(t *testing.T) {
	got, _, raw := transform("%%%not-base64%%%", []string{"BASE64"})
	if !raw {
		t.Error("value should still be marked raw")
	}
	if got != "%%%not-base64%%%" {
		t.Errorf("value = %q, want input unchanged", got)
	}
}

func TestUnescapeOrder(t *testing.T) {
	cases := []struct{ in, want string }{
		{`a\,b\;c\\d`, `a,b;c\d`},
		{`\\`, `\`},
		{`\\,`, `\,`},
		{`no escapes`, `no escapes`},
		{``, ``},
	}
	for _, tc := range cases {
		if got := unescape(tc.in); got != tc.want {
			t.Errorf("unescape(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLogicalLines(t *testing.T) {
	in := "A:1\r\nB:2\rC:3\n D continued\nD:4\n\n  \n"
	want := []string{"A:1", "B:2", "C:3D continued", "D:4"}
	if got := logicalLines(in); !reflect.DeepEqual(got, want) {
		t.Errorf("logicalLines = %v, want %v", got, want)
	}
}

func TestSplitLine(t *testing.T) {
	cases := []struct {
		in   string
		want property
	}{
		{"FN:Forrest Gump", property{name: "FN", value: "Forrest Gump"}},
		{"tel;type=cell:123", property{name: "TEL", params: []string{"cell"}, value: "123"}},
		{"item2.URL;HOME:http://example.com", property{name: "URL", params: []string{"HOME"}, value: "http://example.com"}},
		{"X-NO-VALUE", property{name: "X-NO-VALUE"}},
		{"EMAIL:user:pass@example.com", property{name: "EMAIL", value: "user:pass@example.com"}},
	}
	for _, tc := range cases {
		if got := splitLine(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitLine(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}
