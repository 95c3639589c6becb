package auth

import (
	"fmt"
	"strings"

	"valauth/internal/autherr"
)

// sessionCookieName is the provider's anonymous session cookie.
const sessionCookieName = "asid"

// Session holds the short-lived session identifier issued by the handshake.
// It is needed only until the entitlement exchange.
type Session struct {
	ID string
}

// Cookie renders the session as a Cookie header value.
func (s Session) Cookie() string {
	return sessionCookieName + "=" + s.ID
}

// ExtractSessionID picks the asid cookie out of Set-Cookie header values and
// returns its value, i.e. the text after "=" up to the first ";". Other
// cookies are ignored.
func ExtractSessionID(setCookies []string) (string, error) {
	for _, raw := range setCookies {
		pair, _, _ := strings.Cut(raw, ";")
		name, value, hasValue := strings.Cut(pair, "=")
		if strings.TrimSpace(name) != sessionCookieName {
			continue
		}

		value = strings.TrimSpace(value)
		if !hasValue || value == "" {
			return "", autherr.New(autherr.MalformedCookie, opHandshake,
				fmt.Errorf("%s cookie has no value", sessionCookieName))
		}
		return value, nil
	}

	return "", autherr.New(autherr.SessionNotFound, opHandshake,
		fmt.Errorf("no %s cookie among %d Set-Cookie headers", sessionCookieName, len(setCookies)))
}
