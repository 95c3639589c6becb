package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	http "github.com/bogdanfinn/fhttp"

	"valauth/internal/autherr"
)

// LoginResult holds the tokens carried by the post-login redirect.
type LoginResult struct {
	AccessToken string
	// ExpiresIn is the access token lifetime in seconds as sent by the provider.
	ExpiresIn int
	IDToken   string
}

type loginRequest struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the credential submission reply. A successful login
// carries response.parameters.uri; a rejected one carries error instead.
type loginResponse struct {
	Type     string `json:"type"`
	Error    string `json:"error"`
	Response *struct {
		Mode       string `json:"mode"`
		Parameters *struct {
			URI *string `json:"uri"`
		} `json:"parameters"`
	} `json:"response"`
}

func (r loginResponse) redirectURI() (string, bool) {
	if r.Response == nil || r.Response.Parameters == nil || r.Response.Parameters.URI == nil {
		return "", false
	}
	return *r.Response.Parameters.URI, true
}

// Login submits the account credentials within session and extracts the
// tokens from the redirect the provider answers with.
func (a *Authenticator) Login(ctx context.Context, session Session, username, password string) (LoginResult, error) {
	header := http.Header{"Cookie": {session.Cookie()}}
	body := loginRequest{Type: "auth", Username: username, Password: password}

	resp, err := a.sender.Send(ctx, http.MethodPut, a.endpoints.Authorization, header, body)
	if err != nil {
		return LoginResult{}, fmt.Errorf("%s: %w", opLogin, err)
	}

	var lr loginResponse
	if err := json.Unmarshal(resp.Body, &lr); err != nil {
		return LoginResult{}, autherr.New(autherr.ProtocolParseError, opLogin,
			fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err))
	}

	uri, ok := lr.redirectURI()
	if !ok {
		return LoginResult{}, autherr.New(autherr.InvalidCredentials, opLogin,
			fmt.Errorf("no redirect in response (status %d, type %q, error %q)", resp.StatusCode, lr.Type, lr.Error))
	}

	result, err := ParseRedirectURI(uri)
	if err != nil {
		return LoginResult{}, autherr.New(autherr.ProtocolParseError, opLogin, err)
	}
	return result, nil
}

// ParseRedirectURI reads the tokens out of a post-login redirect such as
//
//	https://playvalorant.com/opt_in#access_token=AT&scope=...&id_token=IT&token_type=Bearer&expires_in=3600
//
// The provider puts the parameters in the fragment. The first '#' is
// rewritten to '?' so they parse as an ordinary query; if the URI already has
// a query, the fragment is appended to it instead.
func ParseRedirectURI(uri string) (LoginResult, error) {
	if uri == "" {
		return LoginResult{}, errors.New("empty redirect uri")
	}

	rewritten := uri
	if before, fragment, found := strings.Cut(uri, "#"); found {
		if strings.Contains(before, "?") {
			rewritten = before + "&" + fragment
		} else {
			rewritten = before + "?" + fragment
		}
	}

	u, err := url.Parse(rewritten)
	if err != nil {
		return LoginResult{}, errors.New("redirect uri is not a valid url")
	}
	if !u.IsAbs() || u.Host == "" {
		return LoginResult{}, errors.New("redirect uri is not absolute")
	}

	// Malformed pairs are skipped; only the three token parameters matter.
	query, _ := url.ParseQuery(u.RawQuery)

	accessToken := query.Get("access_token")
	if accessToken == "" {
		return LoginResult{}, errors.New("redirect uri has no access_token")
	}
	idToken := query.Get("id_token")
	if idToken == "" {
		return LoginResult{}, errors.New("redirect uri has no id_token")
	}

	raw := query.Get("expires_in")
	if raw == "" {
		return LoginResult{}, errors.New("redirect uri has no expires_in")
	}
	expiresIn, err := strconv.Atoi(raw)
	if err != nil || expiresIn < 0 {
		return LoginResult{}, fmt.Errorf("expires_in %q is not a non-negative integer", raw)
	}

	return LoginResult{
		AccessToken: accessToken,
		ExpiresIn:   expiresIn,
		IDToken:     idToken,
	}, nil
}
