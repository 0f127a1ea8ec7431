package dropbox

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

const (
	tokenEndpoint    = "https://api.dropboxapi.com/oauth2/token"
	authorizeBaseURL = "https://www.dropbox.com/oauth2/authorize"
)

func oauthConfig(tokenURL, appKey, appSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     appKey,
		ClientSecret: appSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   authorizeBaseURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthorizationURL builds the Dropbox OAuth2 authorization URL for the given app key.
// The user opens this URL in a browser, authorizes the app, and receives an authorization code.
func AuthorizationURL(appKey string) string {
	return oauthConfig(tokenEndpoint, appKey, "").
		AuthCodeURL("", oauth2.SetAuthURLParam("token_access_type", "offline"))
}

// ExchangeAuthorizationCode exchanges an authorization code for a refresh token and access token.
func ExchangeAuthorizationCode(ctx context.Context, appKey, appSecret, code string) (refreshToken, accessToken string, err error) {
	return exchangeAuthorizationCode(ctx, tokenEndpoint, appKey, appSecret, code)
}

func exchangeAuthorizationCode(ctx context.Context, endpoint, appKey, appSecret, code string) (string, string, error) {
	tok, err := oauthConfig(endpoint, appKey, appSecret).Exchange(ctx, code)
	if err != nil {
		return "", "", tokenError("code exchange", err)
	}

	if tok.RefreshToken == "" {
		return "", "", fmt.Errorf("empty refresh token in code exchange response")
	}

	return tok.RefreshToken, tok.AccessToken, nil
}

// RefreshAccessToken exchanges a refresh token for a new short-lived access token.
func RefreshAccessToken(ctx context.Context, appKey, appSecret, refreshToken string) (string, error) {
	return refreshAccessToken(ctx, tokenEndpoint, appKey, appSecret, refreshToken)
}

func refreshAccessToken(ctx context.Context, endpoint, appKey, appSecret, refreshToken string) (string, error) {
	tok, err := NewTokenSource(ctx, endpoint, appKey, appSecret, refreshToken).Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// NewTokenSource returns a token source that refreshes short-lived access
// tokens from refreshToken and reuses each one until it expires. An empty
// endpoint selects the Dropbox token endpoint.
func NewTokenSource(ctx context.Context, endpoint, appKey, appSecret, refreshToken string) oauth2.TokenSource {
	if endpoint == "" {
		endpoint = tokenEndpoint
	}
	src := oauthConfig(endpoint, appKey, appSecret).TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return &refreshingSource{src: src}
}

type refreshingSource struct {
	src oauth2.TokenSource
}

func (s *refreshingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, tokenError("token refresh", err)
	}
	return tok, nil
}

func tokenError(op string, err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) && rErr.Response != nil {
		return fmt.Errorf("%s failed (HTTP %d): %s. Check your app key, app secret, and token",
			op, rErr.Response.StatusCode, string(rErr.Body))
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

// AuthTokenRevoke disables the access token used to authenticate the call.
func (c *Client) AuthTokenRevoke(ctx context.Context) error {
	_, err := rpcCall[Tagged, struct{}](ctx, c, "auth/token/revoke", nil)
	if err != nil {
		return err
	}
	c.logger.Info().Msg("access token revoked")
	return nil
}
