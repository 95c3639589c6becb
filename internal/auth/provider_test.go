package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	http "github.com/bogdanfinn/fhttp"

	"valauth/internal/autherr"
	"valauth/internal/transport"
)

const testPassword = "hunter2"

func jsonResponse(status int, body string, setCookies ...string) *transport.Response {
	h := http.Header{}
	for _, c := range setCookies {
		h.Add("Set-Cookie", c)
	}
	return &transport.Response{StatusCode: status, Header: h, Body: []byte(body)}
}

// fakeProvider answers the four handshake calls in memory. Tokens are derived
// from the username so concurrent handshakes can be told apart, and every
// call checks that the session cookie belongs to the caller.
type fakeProvider struct {
	mu       sync.Mutex
	next     int
	sessions map[string]string
	calls    []string
	bodies   map[string]any
	override map[string]*transport.Response
	fail     map[string]error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		sessions: make(map[string]string),
		bodies:   make(map[string]any),
		override: make(map[string]*transport.Response),
		fail:     make(map[string]error),
	}
}

func (p *fakeProvider) Send(ctx context.Context, method, url string, header http.Header, body any) (*transport.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherr.New(autherr.NetworkError, "transport", err)
	}

	key := method + " " + url
	p.mu.Lock()
	p.calls = append(p.calls, key)
	p.bodies[key] = body
	resp, overridden := p.override[key]
	err := p.fail[key]
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if overridden {
		return resp, nil
	}

	switch key {
	case http.MethodPost + " " + DefaultAuthorizationURL:
		return p.handshake(), nil
	case http.MethodPut + " " + DefaultAuthorizationURL:
		return p.login(header, body), nil
	case http.MethodPost + " " + DefaultEntitlementsURL:
		return p.entitlements(header), nil
	case http.MethodGet + " " + DefaultUserInfoURL:
		return p.userinfo(header), nil
	}
	return jsonResponse(http.StatusNotFound, `{}`), nil
}

func (p *fakeProvider) called(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.calls {
		if c == key {
			return true
		}
	}
	return false
}

func (p *fakeProvider) handshake() *transport.Response {
	p.mu.Lock()
	p.next++
	id := fmt.Sprintf("SESSION%d", p.next)
	p.sessions[id] = ""
	p.mu.Unlock()

	return jsonResponse(http.StatusOK, `{"type":"auth","country":"usa"}`,
		"tdid=abc; Path=/; Secure",
		"asid="+id+"; Path=/; HttpOnly; Secure",
	)
}

func (p *fakeProvider) sessionUser(header http.Header) (string, bool) {
	id, ok := strings.CutPrefix(header.Get("Cookie"), sessionCookieName+"=")
	if !ok {
		return "", false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.sessions[id]
	return user, ok
}

func (p *fakeProvider) login(header http.Header, body any) *transport.Response {
	req, ok := body.(loginRequest)
	if !ok || req.Type != "auth" {
		return jsonResponse(http.StatusBadRequest, `{"error":"invalid_request"}`)
	}
	if _, ok := p.sessionUser(header); !ok {
		return jsonResponse(http.StatusOK, `{"type":"auth","error":"invalid_session_id"}`)
	}
	if req.Password != testPassword {
		return jsonResponse(http.StatusOK, `{"type":"auth","error":"auth_failure","country":"usa"}`)
	}

	id := strings.TrimPrefix(header.Get("Cookie"), sessionCookieName+"=")
	p.mu.Lock()
	p.sessions[id] = req.Username
	p.mu.Unlock()

	uri := fmt.Sprintf("https://playvalorant.com/opt_in#access_token=AT-%[1]s&scope=account+openid"+
		"&iss=https%%3A%%2F%%2Fauth.riotgames.com&id_token=IT-%[1]s&token_type=Bearer&session_state=xyz&expires_in=3600",
		req.Username)
	return jsonResponse(http.StatusOK, fmt.Sprintf(
		`{"type":"response","response":{"mode":"fragment","parameters":{"uri":%q}},"country":"usa"}`, uri))
}

func (p *fakeProvider) entitlements(header http.Header) *transport.Response {
	user, ok := p.sessionUser(header)
	if !ok || user == "" || header.Get("Authorization") != "Bearer AT-"+user {
		return jsonResponse(http.StatusUnauthorized, `{"errorCode":"CREDENTIALS_INVALID"}`)
	}
	return jsonResponse(http.StatusOK, fmt.Sprintf(`{"entitlements_token":"ET-%s"}`, user))
}

func (p *fakeProvider) userinfo(header http.Header) *transport.Response {
	user, ok := strings.CutPrefix(header.Get("Authorization"), "Bearer AT-")
	if !ok || user == "" {
		return jsonResponse(http.StatusUnauthorized, ``)
	}
	return jsonResponse(http.StatusOK, fmt.Sprintf(
		`{"country":"usa","sub":"puuid-%[1]s","email_verified":true,"acct":{"type":0,"state":"ENABLED","game_name":"%[1]s","tag_line":"NA1","created_at":1600000000000}}`,
		user))
}
