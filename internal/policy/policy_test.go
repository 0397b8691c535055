package policy

import "testing"

func TestDomainPolicyInScope(t *testing.T) {
	p := NewDomainPolicy("https://ex.test/", nil)

	cases := []struct {
		url  string
		want bool
	}{
		{"https://ex.test/a", true},
		{"https://sub.ex.test/a", true},
		{"https://other.test/a", false},
		{"https://notex.test/a", false},
		{"not a url", false},
	}
	for _, tc := range cases {
		if got := p.InScope(tc.url); got != tc.want {
			t.Errorf("InScope(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestDomainPolicyAllowListOverrides(t *testing.T) {
	p := NewDomainPolicy("https://ex.test/", []string{"other.test"})

	if p.InScope("https://ex.test/a") {
		t.Error("expected base host to be out-of-scope once an allow-list is set")
	}
	if !p.InScope("https://other.test/a") {
		t.Error("expected allow-listed host to be in-scope")
	}
}

func TestIsDangerousText(t *testing.T) {
	for _, text := range []string{"Log Out", "DELETE account", "Unsubscribe now", "sign out"} {
		if !IsDangerousText(text) {
			t.Errorf("expected %q to be flagged as dangerous", text)
		}
	}
	if IsDangerousText("Continue") {
		t.Error("did not expect 'Continue' to be flagged as dangerous")
	}
}

func TestIsDangerousHref(t *testing.T) {
	for _, href := range []string{"mailto:a@b.test", "tel:+1234", "javascript:void(0)", "#", "/file.pdf", "/report.XLSX"} {
		if !IsDangerousHref(href) {
			t.Errorf("expected %q to be flagged as dangerous", href)
		}
	}
	for _, href := range []string{"/about", "https://ex.test/contact"} {
		if IsDangerousHref(href) {
			t.Errorf("did not expect %q to be flagged as dangerous", href)
		}
	}
}

func TestAllowed(t *testing.T) {
	if Allowed("Log Out", "/logout") {
		t.Error("destructive element should not be allowed")
	}
	if Allowed("Docs", "/manual.pdf") {
		t.Error("binary document href should not be allowed")
	}
	if !Allowed("Home", "/") {
		t.Error("ordinary link should be allowed")
	}
}
