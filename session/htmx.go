package session

import (
	"net/http"
	"net/url"
)

const (
	hxRequestHeader    = "HX-Request"
	hxRedirectHeader   = "HX-Redirect"
	hxCurrentURLHeader = "HX-Current-URL"
)

// IsHTMXRequest checks if the request was initiated by HTMX
func IsHTMXRequest(r *http.Request) bool {
	return r.Header.Get(hxRequestHeader) == "true"
}

// Redirect is an htmx-aware redirect: HTMX requests get an HX-Redirect instruction so the
// browser performs a full navigation instead of swapping the response into the page.
func Redirect(w http.ResponseWriter, r *http.Request, path string) {
	if IsHTMXRequest(r) {
		w.Header().Set(hxRedirectHeader, path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// OriginalURL is where the user was heading. For HTMX requests that is the page they are
// on (HX-Current-URL), not the fragment endpoint that was called.
func OriginalURL(r *http.Request) string {
	if IsHTMXRequest(r) {
		if current := r.Header.Get(hxCurrentURLHeader); current != "" {
			if u, err := url.Parse(current); err == nil && (u.Host == "" || u.Host == r.Host) {
				if dest := SafeNext(u.RequestURI(), ""); dest != "" {
					return dest
				}
			}
		}
	}
	return r.URL.RequestURI()
}
