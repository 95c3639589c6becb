// Package auth runs the Riot login handshake: an anonymous authorization
// request, credential submission, entitlement exchange and profile
// resolution, aggregated into one Record.
package auth

import (
	"context"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"valauth/internal/autherr"
	"valauth/internal/logging"
	"valauth/internal/transport"
)

const (
	DefaultAuthorizationURL = "https://auth.riotgames.com/api/v1/authorization"
	DefaultEntitlementsURL  = "https://entitlements.auth.riotgames.com/api/token/v1"
	DefaultUserInfoURL      = "https://auth.riotgames.com/userinfo"
)

const (
	opHandshake    = "handshake"
	opLogin        = "login"
	opEntitlements = "entitlements"
	opUserInfo     = "userinfo"
)

// Sender is the transport capability the handshake needs.
// *transport.Client implements it.
type Sender interface {
	Send(ctx context.Context, method, url string, header http.Header, body any) (*transport.Response, error)
}

// Endpoints are the provider resources the handshake talks to.
type Endpoints struct {
	Authorization string
	Entitlements  string
	UserInfo      string
}

// DefaultEndpoints returns the production provider endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Authorization: DefaultAuthorizationURL,
		Entitlements:  DefaultEntitlementsURL,
		UserInfo:      DefaultUserInfoURL,
	}
}

// Authenticator is immutable after construction and safe for concurrent
// use; every Authenticate call owns its own intermediate state.
type Authenticator struct {
	sender    Sender
	endpoints Endpoints
}

type Option func(*Authenticator)

// WithEndpoints overrides individual endpoints. Empty fields keep the default.
func WithEndpoints(e Endpoints) Option {
	return func(a *Authenticator) {
		if e.Authorization != "" {
			a.endpoints.Authorization = e.Authorization
		}
		if e.Entitlements != "" {
			a.endpoints.Entitlements = e.Entitlements
		}
		if e.UserInfo != "" {
			a.endpoints.UserInfo = e.UserInfo
		}
	}
}

func New(sender Sender, opts ...Option) *Authenticator {
	a := &Authenticator{
		sender:    sender,
		endpoints: DefaultEndpoints(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate runs the full handshake for one account. On failure it
// returns the failing step's error unchanged and no record.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (Record, error) {
	logger := logging.FromContext(ctx).With("handshake_id", newHandshakeID())
	ctx = logging.WithContext(ctx, logger)
	start := time.Now()

	session, err := a.Handshake(ctx)
	if err != nil {
		logger.WarnContext(ctx, "handshake failed", "step", opHandshake, "kind", autherr.KindOf(err).String())
		return Record{}, err
	}

	login, err := a.Login(ctx, session, username, password)
	if err != nil {
		logger.WarnContext(ctx, "handshake failed", "step", opLogin, "kind", autherr.KindOf(err).String())
		return Record{}, err
	}

	// The entitlement exchange and profile resolution only need the access
	// token, so they run side by side.
	var (
		entitlementsToken string
		identity          Identity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		token, err := a.Entitlements(gctx, session, login.AccessToken)
		if err != nil {
			return err
		}
		entitlementsToken = token
		return nil
	})
	g.Go(func() error {
		id, err := a.UserInfo(gctx, login.AccessToken)
		if err != nil {
			return err
		}
		identity = id
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.WarnContext(ctx, "handshake failed", "step", "exchange", "kind", autherr.KindOf(err).String())
		return Record{}, err
	}

	record := Record{
		AccessToken:       login.AccessToken,
		ExpiresIn:         login.ExpiresIn,
		IDToken:           login.IDToken,
		EntitlementsToken: entitlementsToken,
		UserID:            identity.Subject,
		GameName:          identity.GameName,
		TagLine:           identity.TagLine,
	}
	logger.InfoContext(ctx, "handshake complete", "record", record, "duration_ms", time.Since(start).Milliseconds())
	return record, nil
}

func newHandshakeID() string {
	return uuid.New().String()[:8]
}

func bearer(accessToken string) string {
	return "Bearer " + accessToken
}
