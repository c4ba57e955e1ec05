package remote

import "net/http"

// TokenSigner attaches the account's bearer token to outgoing web API
// requests.
type TokenSigner struct {
	Token string
}

func (s *TokenSigner) SignRequest(req *http.Request) error {
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	return nil
}
