// Package oauth implements the Google authorization-code exchange used for
// external sign-in.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

var (
	ErrInvalidRequest = errors.New("invalid oauth request")
	ErrExchangeFailed = errors.New("oauth code exchange failed")
)

// Profile is the provider-supplied identity used to look up or synthesize
// an account.
type Profile struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

type GoogleClient struct {
	http         *resty.Client
	clientID     string
	clientSecret string
	redirectURL  string
}

func NewGoogleClient(clientID, clientSecret, redirectURL string) *GoogleClient {
	return &GoogleClient{
		http:         resty.New().SetTimeout(15 * time.Second),
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
	}
}

// AuthCodeURL builds the consent-screen redirect for the given CSRF state.
func (g *GoogleClient) AuthCodeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", g.clientID)
	q.Set("redirect_uri", g.redirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	return googleAuthURL + "?" + q.Encode()
}

// Exchange trades an authorization code for the provider profile.
func (g *GoogleClient) Exchange(ctx context.Context, code string) (*Profile, error) {
	if code == "" {
		return nil, ErrInvalidRequest
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	resp, err := g.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     g.clientID,
			"client_secret": g.clientSecret,
			"code":          code,
			"grant_type":    "authorization_code",
			"redirect_uri":  g.redirectURL,
		}).
		SetResult(&token).
		Post(googleTokenURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	if resp.IsError() || token.AccessToken == "" {
		return nil, fmt.Errorf("%w: status %d", ErrExchangeFailed, resp.StatusCode())
	}

	var profile Profile
	resp, err = g.http.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetResult(&profile).
		Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	if resp.IsError() || profile.Email == "" {
		return nil, fmt.Errorf("%w: empty profile", ErrExchangeFailed)
	}

	return &profile, nil
}
