package auth

import (
	"context"
	"fmt"

	http "github.com/bogdanfinn/fhttp"
)

// handshakeRequest opens an anonymous authorization session. Every field is
// fixed by the impersonated client.
type handshakeRequest struct {
	ClientID     string `json:"client_id"`
	Nonce        string `json:"nonce"`
	RedirectURI  string `json:"redirect_uri"`
	ResponseType string `json:"response_type"`
	Scope        string `json:"scope"`
}

var defaultHandshakeRequest = handshakeRequest{
	ClientID:     "play-valorant-web-prod",
	Nonce:        "1",
	RedirectURI:  "https://playvalorant.com/opt_in",
	ResponseType: "token id_token",
	Scope:        "account openid",
}

// Handshake starts an anonymous authorization and returns the session
// identifier the provider sets as a cookie.
func (a *Authenticator) Handshake(ctx context.Context) (Session, error) {
	resp, err := a.sender.Send(ctx, http.MethodPost, a.endpoints.Authorization, nil, defaultHandshakeRequest)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", opHandshake, err)
	}

	id, err := ExtractSessionID(resp.Header.Values("Set-Cookie"))
	if err != nil {
		return Session{}, err
	}
	return Session{ID: id}, nil
}
