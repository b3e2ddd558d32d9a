// Package botdetection recognizes link scanners and scripted clients that
// follow URLs in emails without a person behind them.
package botdetection

import "strings"

// scannerPatterns are lowercase user agent fragments of crawlers, mail
// security gateways that prefetch links, and HTTP libraries.
var scannerPatterns = []string{
	// crawlers and headless browsers
	"bot", "crawler", "spider", "headlesschrome", "phantomjs", "selenium",
	// mail gateways rewriting or prefetching links
	"safelinks", "proofpoint", "mimecast", "barracuda", "forcepoint",
	"cisco ironport", "symantec", "trend micro", "sophos", "fireeye",
	"urldefense", "linkprotect", "linkcheck", "urlscan", "emailsecurity",
	// scripted clients
	"python-requests", "curl", "wget", "java/", "go-http-client", "postman",
}

// IsAutomated reports whether userAgent looks like a scanner rather than a
// person's browser. An empty user agent counts as automated.
func IsAutomated(userAgent string) bool {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return true
	}
	for _, p := range scannerPatterns {
		if strings.Contains(ua, p) {
			return true
		}
	}
	return false
}
