package policy

import "strings"

// destructiveVerbs identifies element text that may permanently remove
// state. Matched case-insensitively as a substring.
var destructiveVerbs = []string{
	"logout", "log out", "sign out", "signout", "exit",
	"delete", "remove", "destroy", "erase", "purge",
	"cancel subscription", "deactivate", "close account",
	"unsubscribe", "revoke", "terminate",
}

// dangerousHrefPrefixes are rejected regardless of element text.
var dangerousHrefPrefixes = []string{
	"mailto:", "tel:", "javascript:void",
}

// binaryDocExtensions identify non-page resources that should never become
// a queued child.
var binaryDocExtensions = []string{
	".pdf", ".zip", ".exe", ".dmg",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".csv",
}

// IsDangerousText reports whether text contains a destructive verb,
// case-insensitively.
func IsDangerousText(text string) bool {
	lower := strings.ToLower(text)
	for _, verb := range destructiveVerbs {
		if strings.Contains(lower, verb) {
			return true
		}
	}
	return false
}

// IsDangerousHref reports whether href is a non-page resource or an
// unsafe scheme: mailto:, tel:, javascript:void, a bare "#", or a binary
// document extension.
func IsDangerousHref(href string) bool {
	trimmed := strings.TrimSpace(href)
	if trimmed == "#" {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, prefix := range dangerousHrefPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	for _, ext := range binaryDocExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Allowed reports whether an element with the given visible text and href
// (href may be empty for non-link elements) passes the Danger Filter.
func Allowed(text, href string) bool {
	if IsDangerousText(text) {
		return false
	}
	if href != "" && IsDangerousHref(href) {
		return false
	}
	return true
}
