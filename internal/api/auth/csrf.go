package auth

import (
	"crypto/subtle"
	"net/http"
)

// CSRFHeader carries the anti-forgery token on state-changing requests.
const CSRFHeader = "X-CSRF-Token"

// ValidCSRF compares the submitted token against the session's token in
// constant time.
func ValidCSRF(sess *Session, submitted string) bool {
	token := sess.CSRFToken()
	if token == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(submitted)) == 1
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
