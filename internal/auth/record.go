package auth

import (
	"log/slog"

	http "github.com/bogdanfinn/fhttp"
)

// Record is the outcome of a successful handshake. It is either fully
// populated or not returned at all.
type Record struct {
	AccessToken       string `json:"access_token"`
	ExpiresIn         int    `json:"expires_in"`
	IDToken           string `json:"id_token"`
	EntitlementsToken string `json:"entitlements_token"`
	UserID            string `json:"user_id"`
	GameName          string `json:"game_name"`
	TagLine           string `json:"tag_line"`
}

// Headers returns the headers authenticated game-service calls need.
func (r Record) Headers() http.Header {
	h := http.Header{}
	h.Set("Authorization", bearer(r.AccessToken))
	h.Set("X-Riot-Entitlements-JWT", r.EntitlementsToken)
	return h
}

// LogValue keeps tokens out of logs.
func (r Record) LogValue() slog.Value {
	return slog.GroupValue(slog.String("user_id", r.UserID))
}
