package httptransport

import (
	"github.com/mssola/useragent"
)

// ParseUserAgent renders a submitter's user agent as "Browser on OS"
// for the mint audit line. Submissions come from admin tooling and
// scripts as often as browsers, so every branch falls back to a
// readable label instead of an empty string.
func ParseUserAgent(raw string) string {
	if raw == "" {
		return "Unknown Device"
	}

	ua := useragent.New(raw)

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}

	os := ua.OSInfo().Name
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}

	return browser + " on " + os
}
