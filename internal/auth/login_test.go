package auth

import (
	"context"
	"testing"

	http "github.com/bogdanfinn/fhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valauth/internal/autherr"
)

func TestParseRedirectURI(t *testing.T) {
	got, err := ParseRedirectURI("https://x/#access_token=AT1&expires_in=600&id_token=IT1")
	require.NoError(t, err)
	assert.Equal(t, LoginResult{AccessToken: "AT1", ExpiresIn: 600, IDToken: "IT1"}, got)
}

func TestParseRedirectURI_Variants(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want LoginResult
	}{
		{
			name: "provider shape",
			uri:  "https://playvalorant.com/opt_in#access_token=eyJ.a.b&scope=account+openid&iss=https%3A%2F%2Fauth.riotgames.com&id_token=eyJ.c.d&token_type=Bearer&session_state=s&expires_in=3600",
			want: LoginResult{AccessToken: "eyJ.a.b", ExpiresIn: 3600, IDToken: "eyJ.c.d"},
		},
		{
			name: "zero expiry",
			uri:  "https://x/cb#access_token=A&id_token=I&expires_in=0",
			want: LoginResult{AccessToken: "A", ExpiresIn: 0, IDToken: "I"},
		},
		{
			name: "existing query",
			uri:  "https://x/cb?state=1#access_token=A&id_token=I&expires_in=60",
			want: LoginResult{AccessToken: "A", ExpiresIn: 60, IDToken: "I"},
		},
		{
			name: "only first hash rewritten",
			uri:  "https://x/cb#access_token=A&id_token=I&expires_in=60#tail",
			want: LoginResult{AccessToken: "A", ExpiresIn: 60, IDToken: "I"},
		},
		{
			name: "malformed unrelated pair",
			uri:  "https://x/cb#access_token=A&scope=account;openid&id_token=I&expires_in=60",
			want: LoginResult{AccessToken: "A", ExpiresIn: 60, IDToken: "I"},
		},
		{
			name: "plain query",
			uri:  "https://x/cb?access_token=A&id_token=I&expires_in=60",
			want: LoginResult{AccessToken: "A", ExpiresIn: 60, IDToken: "I"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRedirectURI(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRedirectURI_Invalid(t *testing.T) {
	for name, uri := range map[string]string{
		"empty":            "",
		"relative":         "/opt_in#access_token=A&id_token=I&expires_in=60",
		"no access token":  "https://x/#id_token=I&expires_in=60",
		"no id token":      "https://x/#access_token=A&expires_in=60",
		"no expiry":        "https://x/#access_token=AT1&id_token=IT1",
		"negative expiry":  "https://x/#access_token=A&id_token=I&expires_in=-5",
		"textual expiry":   "https://x/#access_token=A&id_token=I&expires_in=soon",
		"bad escape":       "https://x/#access_token=%zz&id_token=I&expires_in=60",
		"control char url": "https://x/\x7f#access_token=A&id_token=I&expires_in=60",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRedirectURI(uri)
			assert.Error(t, err)
		})
	}
}

func TestParseRedirectURI_Idempotent(t *testing.T) {
	const uri = "https://x/#access_token=AT1&expires_in=600&id_token=IT1"
	first, err := ParseRedirectURI(uri)
	require.NoError(t, err)
	second, err := ParseRedirectURI(uri)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLogin(t *testing.T) {
	provider := newFakeProvider()
	a := New(provider)
	ctx := context.Background()

	session, err := a.Handshake(ctx)
	require.NoError(t, err)

	result, err := a.Login(ctx, session, "alice", testPassword)
	require.NoError(t, err)
	assert.Equal(t, LoginResult{AccessToken: "AT-alice", ExpiresIn: 3600, IDToken: "IT-alice"}, result)

	body, ok := provider.bodies[http.MethodPut+" "+DefaultAuthorizationURL].(loginRequest)
	require.True(t, ok)
	assert.Equal(t, loginRequest{Type: "auth", Username: "alice", Password: testPassword}, body)
}

func TestLogin_Rejected(t *testing.T) {
	a := New(newFakeProvider())
	ctx := context.Background()

	session, err := a.Handshake(ctx)
	require.NoError(t, err)

	_, err = a.Login(ctx, session, "alice", "wrong-password")
	require.Error(t, err)
	assert.ErrorIs(t, err, autherr.ErrInvalidCredentials)
	assert.NotContains(t, err.Error(), "wrong-password")
	assert.NotContains(t, err.Error(), "alice")
}

func TestLogin_ResponseShapes(t *testing.T) {
	putKey := http.MethodPut + " " + DefaultAuthorizationURL
	tests := []struct {
		name string
		body string
		want autherr.Kind
	}{
		{"auth failure", `{"type":"auth","error":"auth_failure"}`, autherr.InvalidCredentials},
		{"multifactor", `{"type":"multifactor","multifactor":{"method":"email"}}`, autherr.InvalidCredentials},
		{"null uri", `{"type":"response","response":{"parameters":{"uri":null}}}`, autherr.InvalidCredentials},
		{"no parameters", `{"type":"response","response":{"mode":"fragment"}}`, autherr.InvalidCredentials},
		{"not json", `<html>blocked</html>`, autherr.ProtocolParseError},
		{"empty body", ``, autherr.ProtocolParseError},
		{"uri not a string", `{"type":"response","response":{"parameters":{"uri":42}}}`, autherr.ProtocolParseError},
		{"missing expiry", `{"type":"response","response":{"parameters":{"uri":"https://x/#access_token=AT1&id_token=IT1"}}}`, autherr.ProtocolParseError},
		{"empty uri", `{"type":"response","response":{"parameters":{"uri":""}}}`, autherr.ProtocolParseError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newFakeProvider()
			provider.override[putKey] = jsonResponse(http.StatusOK, tt.body)
			a := New(provider)

			_, err := a.Login(context.Background(), Session{ID: "SESSION1"}, "alice", testPassword)
			require.Error(t, err)
			assert.Equal(t, tt.want, autherr.KindOf(err))
			assert.NotContains(t, err.Error(), testPassword)
		})
	}
}

func TestLogin_NetworkError(t *testing.T) {
	provider := newFakeProvider()
	provider.fail[http.MethodPut+" "+DefaultAuthorizationURL] =
		autherr.New(autherr.NetworkError, "transport", context.DeadlineExceeded)
	a := New(provider)

	_, err := a.Login(context.Background(), Session{ID: "SESSION1"}, "alice", testPassword)
	require.Error(t, err)
	assert.ErrorIs(t, err, autherr.ErrNetwork)
	assert.True(t, autherr.IsTimeout(err))
}

func TestLogin_RepeatedOnSameSession(t *testing.T) {
	a := New(newFakeProvider())
	ctx := context.Background()

	session, err := a.Handshake(ctx)
	require.NoError(t, err)

	first, err := a.Login(ctx, session, "alice", testPassword)
	require.NoError(t, err)
	second, err := a.Login(ctx, session, "alice", testPassword)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	first.AccessToken = "mutated"
	assert.Equal(t, "AT-alice", second.AccessToken)
}
