// Package device turns raw User-Agent strings into the short display names
// shown on the sessions screen.
package device

import (
	"fmt"

	"github.com/mssola/useragent"
)

// ParseUserAgent produces a "Browser on Platform" display name. Unparsable
// input degrades to generic labels rather than leaking the raw header.
func ParseUserAgent(raw string) string {
	if raw == "" {
		return "Unknown Device"
	}

	ua := useragent.New(raw)

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}

	platform := ua.OSInfo().Name
	if ua.Mobile() && ua.Platform() != "" {
		platform = ua.Platform()
	}
	if platform == "" {
		platform = "Unknown OS"
	}

	return fmt.Sprintf("%s on %s", browser, platform)
}
