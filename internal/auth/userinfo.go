package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	http "github.com/bogdanfinn/fhttp"

	"valauth/internal/autherr"
)

// Identity is the account's stable subject and its mutable display pair.
type Identity struct {
	Subject  string
	GameName string
	TagLine  string
}

type accountClaim struct {
	GameName string `json:"game_name"`
	TagLine  string `json:"tag_line"`
}

// userInfoResponse holds the claims we read. The provider names the account
// claim "acct"; "account" is accepted too.
type userInfoResponse struct {
	Sub     string        `json:"sub"`
	Acct    *accountClaim `json:"acct"`
	Account *accountClaim `json:"account"`
}

func (r userInfoResponse) account() *accountClaim {
	if r.Acct != nil {
		return r.Acct
	}
	return r.Account
}

// UserInfo resolves the identity behind accessToken.
func (a *Authenticator) UserInfo(ctx context.Context, accessToken string) (Identity, error) {
	header := http.Header{"Authorization": {bearer(accessToken)}}

	resp, err := a.sender.Send(ctx, http.MethodGet, a.endpoints.UserInfo, header, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w", opUserInfo, err)
	}

	var ur userInfoResponse
	if err := json.Unmarshal(resp.Body, &ur); err != nil {
		return Identity{}, autherr.New(autherr.ProtocolParseError, opUserInfo,
			fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err))
	}
	return ur.identity()
}

func (r userInfoResponse) identity() (Identity, error) {
	if r.Sub == "" {
		return Identity{}, autherr.New(autherr.ProtocolParseError, opUserInfo, errors.New("claims have no sub"))
	}
	acct := r.account()
	if acct == nil {
		return Identity{}, autherr.New(autherr.ProtocolParseError, opUserInfo, errors.New("claims have no account"))
	}
	if acct.GameName == "" || acct.TagLine == "" {
		return Identity{}, autherr.New(autherr.ProtocolParseError, opUserInfo,
			errors.New("account claim has no game_name or tag_line"))
	}
	return Identity{
		Subject:  r.Sub,
		GameName: acct.GameName,
		TagLine:  acct.TagLine,
	}, nil
}
