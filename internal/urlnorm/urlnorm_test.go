package urlnorm

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase scheme and host", "HTTPS://Example.TEST/path", "https://example.test/path"},
		{"trailing slash stripped", "https://example.test/path/", "https://example.test/path"},
		{"root path kept", "https://example.test/", "https://example.test/"},
		{"fragment removed", "https://example.test/path#section", "https://example.test/path"},
		{"tracking params stripped", "https://ex.test/?utm_source=x&page=2", "https://ex.test/?page=2"},
		{"param order preserved", "https://ex.test/?page=2&utm_source=x&sort=asc", "https://ex.test/?page=2&sort=asc"},
		{"fbclid stripped", "https://ex.test/?fbclid=abc&id=1", "https://ex.test/?id=1"},
		{"malformed url returned unchanged", "http://[::1]:namedport/bad", "http://[::1]:namedport/bad"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"https://ex.test/?utm_source=x&page=2",
		"HTTPS://Example.TEST/a/b/",
		"https://ex.test/path#frag",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeTrackingParamDedup(t *testing.T) {
	a := Normalize("https://ex.test/?utm_source=x&page=2")
	b := Normalize("https://ex.test/?page=2")
	if a != b {
		t.Errorf("expected tracking-stripped URL to dedup with bare equivalent: %q != %q", a, b)
	}
}
