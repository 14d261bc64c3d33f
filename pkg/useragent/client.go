package useragent

import (
	"net"
	"net/http"
	"strings"
)

var browsers = []struct {
	marker string
	name   string
	skip   string
}{
	{"Edg/", "Edge", ""},
	{"Firefox/", "Firefox", ""},
	{"Chrome/", "Chrome", "Edg"},
	{"Safari/", "Safari", "Chrome"},
}

var platforms = []struct {
	marker string
	name   string
}{
	{"Android", "Android"},
	{"iPhone", "iOS"},
	{"iPad", "iOS"},
	{"Windows", "Windows"},
	{"Mac OS X", "macOS"},
	{"Linux", "Linux"},
}

// ExtractDeviceInfo condenses the User-Agent header into "Browser on OS".
func ExtractDeviceInfo(r *http.Request) string {
	ua := r.Header.Get("User-Agent")
	if ua == "" {
		return "Unknown Device"
	}

	browser := "Unknown Browser"
	for _, b := range browsers {
		if strings.Contains(ua, b.marker) && (b.skip == "" || !strings.Contains(ua, b.skip)) {
			browser = b.name
			break
		}
	}

	os := "Unknown OS"
	for _, p := range platforms {
		if strings.Contains(ua, p.marker) {
			os = p.name
			break
		}
	}

	return browser + " on " + os
}

// ExtractIPAddress gets the client address, honouring proxy headers
func ExtractIPAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
