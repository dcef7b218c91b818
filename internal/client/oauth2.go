package client

import (
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"oidcconfig/internal/core"
	"oidcconfig/pkg/errors"
)

// OAuth2Config derives the oauth2 client settings of the view. Endpoints that
// are not configured are left empty.
func (v *View) OAuth2Config(redirectURL string) (*oauth2.Config, error) {
	clientID, err := v.ClientID()
	if err != nil {
		return nil, err
	}
	secret, err := v.Secret()
	if err != nil {
		return nil, err
	}
	scope, err := v.Scope()
	if err != nil {
		return nil, err
	}
	style, err := v.TokenEndpointAuthMethod()
	if err != nil {
		return nil, err
	}
	authorization, err := v.AuthorizationEndpoint()
	if err != nil {
		return nil, err
	}
	token, err := v.TokenEndpoint()
	if err != nil {
		return nil, err
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: secret,
		RedirectURL:  redirectURL,
		Scopes:       scope,
		Endpoint: oauth2.Endpoint{
			AuthURL:   endpointURL(authorization),
			TokenURL:  endpointURL(token),
			AuthStyle: style,
		},
	}, nil
}

func endpointURL(e *core.Endpoint) string {
	if e == nil {
		return ""
	}
	return e.URI().String()
}

// ParseIDToken extracts the claims of a raw ID token without verifying its
// signature. Verification belongs to the handshake, the claims are only
// kept in the session.
func ParseIDToken(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, errors.NewError(errors.ErrorTypeBadRequest, "malformed ID token").WithCause(err)
	}
	return claims, nil
}
