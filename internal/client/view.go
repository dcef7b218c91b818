package client

import (
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/oauth2"

	"oidcconfig/internal/core"
	"oidcconfig/internal/resolver"
	"oidcconfig/pkg/errors"
)

// View answers configuration questions for one request. Every accessor
// resolves through the request, then the session, then the configuration
// store.
type View struct {
	config *Configuration
	r      *resolver.Resolver
}

// Configuration returns the configuration the view was created from
func (v *View) Configuration() *Configuration {
	return v.config
}

// GroupClaim is the claim carrying the user's groups
func (v *View) GroupClaim() (string, error) {
	return resolver.Get(v.r, resolver.PropGroupsClaim, resolver.DefaultGroupsClaim)
}

// SubjectFormatter is the template of the subject stored for a user
func (v *View) SubjectFormatter() (string, error) {
	return resolver.Get(v.r, resolver.PropSubjectFormater, resolver.DefaultSubjectFormater)
}

// UserNameFormatter is the template of local user names
func (v *View) UserNameFormatter() (string, error) {
	return resolver.Get(v.r, resolver.PropUserNameFormater, resolver.DefaultUserNameFormater)
}

// UserMapping maps local user properties to claims, nil when not configured
func (v *View) UserMapping() (*orderedmap.OrderedMap[string, string], error) {
	return resolver.Map(v.r, resolver.PropUserMapping)
}

// Provider is the base URL of a provider exposing the standard endpoints
// under it, nil when not configured.
func (v *View) Provider() (*url.URL, error) {
	return resolver.Get[*url.URL](v.r, resolver.PropProvider, nil)
}

// AuthorizationEndpoint returns nil when the endpoint is not configured
func (v *View) AuthorizationEndpoint() (*core.Endpoint, error) {
	return resolver.Endpoint(v.r, resolver.HintAuthorization)
}

// TokenEndpoint returns nil when the endpoint is not configured
func (v *View) TokenEndpoint() (*core.Endpoint, error) {
	return resolver.Endpoint(v.r, resolver.HintToken)
}

// UserInfoEndpoint returns nil when the endpoint is not configured
func (v *View) UserInfoEndpoint() (*core.Endpoint, error) {
	return resolver.Endpoint(v.r, resolver.HintUserInfo)
}

// LogoutEndpoint returns nil when the endpoint is not configured
func (v *View) LogoutEndpoint() (*core.Endpoint, error) {
	return resolver.Endpoint(v.r, resolver.HintLogout)
}

// ClientID falls back on the instance identity when not configured
func (v *View) ClientID() (string, error) {
	id, ok, err := resolver.Lookup[string](v.r, resolver.PropClientID)
	if err != nil {
		return "", err
	}
	if ok {
		return id, nil
	}
	if v.config.deps.Identity == nil {
		return "", nil
	}
	return v.config.deps.Identity.ID(), nil
}

// Secret returns an empty string when no secret is configured
func (v *View) Secret() (string, error) {
	secret, err := resolver.Get(v.r, resolver.PropSecret, "")
	if err != nil || strings.TrimSpace(secret) == "" {
		return "", err
	}
	return secret, nil
}

// TokenEndpointAuthMethod is how the client authenticates to the token
// endpoint: in the form body for client_secret_post, with basic auth otherwise.
func (v *View) TokenEndpointAuthMethod() (oauth2.AuthStyle, error) {
	method, err := resolver.Get(v.r, resolver.PropEndpointTokenAuthMethod, "")
	if err != nil {
		return oauth2.AuthStyleInHeader, err
	}
	if strings.EqualFold(method, "client_secret_post") {
		return oauth2.AuthStyleInParams, nil
	}
	return oauth2.AuthStyleInHeader, nil
}

// UserInfoEndpointMethod defaults to GET
func (v *View) UserInfoEndpointMethod() (string, error) {
	return v.method(resolver.PropEndpointUserInfoMethod)
}

// LogoutEndpointMethod defaults to GET
func (v *View) LogoutEndpointMethod() (string, error) {
	return v.method(resolver.PropEndpointLogoutMethod)
}

func (v *View) method(key string) (string, error) {
	raw, err := resolver.Get(v.r, key, http.MethodGet)
	if err != nil {
		return http.MethodGet, err
	}
	switch m := strings.ToUpper(strings.TrimSpace(raw)); m {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		return m, nil
	}
	return http.MethodGet, errors.NewCoercionError("http method", raw).WithDetail("key", key)
}

// Skipped reports whether authentication is skipped
func (v *View) Skipped() (bool, error) {
	return resolver.Get(v.r, resolver.PropSkipped, false)
}

// Scope is the authorization scope. An empty configured list means the default.
func (v *View) Scope() ([]string, error) {
	scope, err := resolver.Get[[]string](v.r, resolver.PropScope, nil)
	if err != nil {
		return nil, err
	}
	if len(scope) == 0 {
		return slices.Clone(resolver.DefaultScope), nil
	}
	return scope, nil
}

// IDTokenClaims are the claims requested in the ID token
func (v *View) IDTokenClaims() ([]string, error) {
	return resolver.Get(v.r, resolver.PropIDTokenClaims, slices.Clone(resolver.DefaultIDTokenClaims))
}

// UserInfoClaims are the claims requested from the user info endpoint
func (v *View) UserInfoClaims() ([]string, error) {
	return resolver.Get(v.r, resolver.PropUserInfoClaims, slices.Clone(resolver.DefaultUserInfoClaims))
}

// ClaimsRequest returns the JSON value of the OIDC claims request parameter
func (v *View) ClaimsRequest() (json.RawMessage, error) {
	idToken, err := v.IDTokenClaims()
	if err != nil {
		return nil, err
	}
	userInfo, err := v.UserInfoClaims()
	if err != nil {
		return nil, err
	}

	request := orderedmap.New[string, *orderedmap.OrderedMap[string, any]]()
	if len(idToken) > 0 {
		request.Set("id_token", claimSet(idToken))
	}
	if len(userInfo) > 0 {
		request.Set("userinfo", claimSet(userInfo))
	}

	data, err := json.Marshal(request)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode claims request")
	}
	return data, nil
}

// claimSet requests each claim as a voluntary claim
func claimSet(claims []string) *orderedmap.OrderedMap[string, any] {
	set := orderedmap.New[string, any](len(claims))
	for _, c := range claims {
		set.Set(c, nil)
	}
	return set
}

// UserInfoRefreshRate is in milliseconds
func (v *View) UserInfoRefreshRate() (int, error) {
	return resolver.Get(v.r, resolver.PropUserInfoRefreshRate, resolver.DefaultUserInfoRefreshRate)
}

// GroupMapping returns nil when no mapping is configured
func (v *View) GroupMapping() (*core.GroupMapping, error) {
	return resolver.GroupMapping(v.r)
}

// AllowedGroups returns nil when not configured or empty
func (v *View) AllowedGroups() ([]string, error) {
	return v.groups(resolver.PropGroupsAllowed)
}

// ForbiddenGroups returns nil when not configured or empty
func (v *View) ForbiddenGroups() ([]string, error) {
	return v.groups(resolver.PropGroupsForbidden)
}

func (v *View) groups(key string) ([]string, error) {
	groups, err := resolver.Get[[]string](v.r, key, nil)
	if err != nil || len(groups) == 0 {
		return nil, err
	}
	return groups, nil
}

// GroupPrefix filters provider groups, empty when not configured
func (v *View) GroupPrefix() (string, error) {
	return resolver.Get(v.r, resolver.PropGroupsPrefix, "")
}

// GroupSeparator splits a group claim given as a single string
func (v *View) GroupSeparator() (string, error) {
	return resolver.Get(v.r, resolver.PropGroupsSeparator, "")
}

// IsGroupSync reports whether groups are synchronized from the user info claims
func (v *View) IsGroupSync() (bool, error) {
	return resolver.IsGroupSync(v.r)
}
