package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	http "github.com/bogdanfinn/fhttp"

	"valauth/internal/autherr"
)

type entitlementsResponse struct {
	EntitlementsToken string `json:"entitlements_token"`
}

// Entitlements exchanges the access token for the entitlements token game
// services require alongside it.
func (a *Authenticator) Entitlements(ctx context.Context, session Session, accessToken string) (string, error) {
	header := http.Header{
		"Authorization": {bearer(accessToken)},
		"Cookie":        {session.Cookie()},
	}

	resp, err := a.sender.Send(ctx, http.MethodPost, a.endpoints.Entitlements, header, struct{}{})
	if err != nil {
		return "", fmt.Errorf("%s: %w", opEntitlements, err)
	}

	var er entitlementsResponse
	if err := json.Unmarshal(resp.Body, &er); err != nil {
		return "", autherr.New(autherr.ProtocolParseError, opEntitlements,
			fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err))
	}
	if er.EntitlementsToken == "" {
		return "", autherr.New(autherr.ProtocolParseError, opEntitlements,
			errors.New("response has no entitlements_token"))
	}
	return er.EntitlementsToken, nil
}
