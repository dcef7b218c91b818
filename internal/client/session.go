package client

import (
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"oidcconfig/internal/resolver"
)

// Session only state. Setters do nothing when the view has no session.

// SessionState is the OAuth state of the running handshake
func (v *View) SessionState() (string, error) {
	state, _, err := resolver.SessionValue[string](v.r, resolver.PropState)
	return state, err
}

// SetSessionState stores the OAuth state of a new handshake
func (v *View) SetSessionState(state string) {
	v.set(resolver.PropState, state)
}

// AccessToken returns nil when no token is stored
func (v *View) AccessToken() (*oauth2.Token, error) {
	token, _, err := resolver.SessionValue[*oauth2.Token](v.r, resolver.SessionAccessToken)
	return token, err
}

// SetAccessToken stores the access token obtained from the provider
func (v *View) SetAccessToken(token *oauth2.Token) {
	v.set(resolver.SessionAccessToken, token)
}

// IDToken returns the claims of the stored ID token, nil when there is none
func (v *View) IDToken() (jwt.MapClaims, error) {
	claims, _, err := resolver.SessionValue[jwt.MapClaims](v.r, resolver.SessionIDToken)
	return claims, err
}

// SetIDToken stores the claims of the ID token obtained from the provider
func (v *View) SetIDToken(claims jwt.MapClaims) {
	v.set(resolver.SessionIDToken, claims)
}

// SuccessRedirectURI is where the user goes once authenticated, nil when unset
func (v *View) SuccessRedirectURI() (*url.URL, error) {
	u, _, err := resolver.SessionValue[*url.URL](v.r, resolver.SessionInitialRequest)
	return u, err
}

// SetSuccessRedirectURI remembers the page that started the handshake
func (v *View) SetSuccessRedirectURI(u *url.URL) {
	v.set(resolver.SessionInitialRequest, u)
}

// RemoveSuccessRedirectURI reads the redirect URI once
func (v *View) RemoveSuccessRedirectURI() (*url.URL, error) {
	u, _, err := remove[*url.URL](v, resolver.SessionInitialRequest)
	return u, err
}

// RemoveUserInfoExpirationDate reads the user info expiration date once.
// The zero time means no date was set.
func (v *View) RemoveUserInfoExpirationDate() (time.Time, error) {
	t, _, err := remove[time.Time](v, resolver.SessionUserInfoExpirationDate)
	return t, err
}

// SetUserInfoExpirationDate stores when the cached user info expires
func (v *View) SetUserInfoExpirationDate(t time.Time) {
	v.set(resolver.SessionUserInfoExpirationDate, t)
}

// ResetUserInfoExpirationDate sets the expiration date one refresh period from now
func (v *View) ResetUserInfoExpirationDate() error {
	rate, err := v.UserInfoRefreshRate()
	if err != nil {
		return err
	}
	v.SetUserInfoExpirationDate(v.config.deps.Now().Add(time.Duration(rate) * time.Millisecond))
	return nil
}

func (v *View) set(name string, value any) {
	if s := v.r.Session(); s != nil {
		s.Set(name, value)
	}
}

// remove deletes the attribute even when it does not hold a T
func remove[T any](v *View, name string) (T, bool, error) {
	value, ok, err := resolver.SessionValue[T](v.r, name)
	if s := v.r.Session(); s != nil {
		s.Remove(name)
	}
	return value, ok, err
}
