package client

import (
	"encoding/json"
	"maps"
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/oauth2"

	"oidcconfig/internal/core"
	"oidcconfig/internal/resolver"
)

// Redacted replaces secret values in a Snapshot
const Redacted = "[redacted]"

// EndpointSnapshot is the resolved form of one endpoint
type EndpointSnapshot struct {
	URI     string              `json:"uri"`
	Headers map[string][]string `json:"headers,omitempty"`
}

// Snapshot is every configuration value resolved for one request, with the
// client secret redacted.
type Snapshot struct {
	Hint                    string                                 `json:"hint"`
	Source                  string                                 `json:"source"`
	Provider                string                                 `json:"provider,omitempty"`
	ClientID                string                                 `json:"clientId"`
	Secret                  string                                 `json:"secret,omitempty"`
	Skipped                 bool                                   `json:"skipped"`
	Scope                   []string                               `json:"scope"`
	TokenEndpointAuthMethod string                                 `json:"tokenEndpointAuthMethod"`
	UserInfoEndpointMethod  string                                 `json:"userInfoEndpointMethod"`
	LogoutEndpointMethod    string                                 `json:"logoutEndpointMethod"`
	Endpoints               map[string]*EndpointSnapshot           `json:"endpoints,omitempty"`
	SubjectFormatter        string                                 `json:"subjectFormatter"`
	UserNameFormatter       string                                 `json:"userNameFormatter"`
	UserMapping             *orderedmap.OrderedMap[string, string] `json:"userMapping,omitempty"`
	IDTokenClaims           []string                               `json:"idTokenClaims"`
	UserInfoClaims          []string                               `json:"userInfoClaims"`
	ClaimsRequest           json.RawMessage                        `json:"claimsRequest"`
	UserInfoRefreshRate     int                                    `json:"userInfoRefreshRate"`
	GroupClaim              string                                 `json:"groupClaim"`
	GroupSync               bool                                   `json:"groupSync"`
	GroupMapping            map[string][]string                    `json:"groupMapping,omitempty"`
	AllowedGroups           []string                               `json:"allowedGroups,omitempty"`
	ForbiddenGroups         []string                               `json:"forbiddenGroups,omitempty"`
	GroupPrefix             string                                 `json:"groupPrefix,omitempty"`
	GroupSeparator          string                                 `json:"groupSeparator,omitempty"`
}

// Snapshot resolves every value of the view and stops at the first error
func (v *View) Snapshot() (*Snapshot, error) {
	s := &Snapshot{
		Hint:      v.config.Hint(),
		Source:    v.config.Source(),
		Endpoints: make(map[string]*EndpointSnapshot),
	}

	provider, err := v.Provider()
	if err != nil {
		return nil, err
	}
	if provider != nil {
		s.Provider = provider.String()
	}
	if s.ClientID, err = v.ClientID(); err != nil {
		return nil, err
	}
	secret, err := v.Secret()
	if err != nil {
		return nil, err
	}
	if secret != "" {
		s.Secret = Redacted
	}
	if s.Skipped, err = v.Skipped(); err != nil {
		return nil, err
	}
	if s.Scope, err = v.Scope(); err != nil {
		return nil, err
	}
	style, err := v.TokenEndpointAuthMethod()
	if err != nil {
		return nil, err
	}
	s.TokenEndpointAuthMethod = authMethodName(style)
	if s.UserInfoEndpointMethod, err = v.UserInfoEndpointMethod(); err != nil {
		return nil, err
	}
	if s.LogoutEndpointMethod, err = v.LogoutEndpointMethod(); err != nil {
		return nil, err
	}

	for _, hint := range []string{resolver.HintAuthorization, resolver.HintToken, resolver.HintUserInfo, resolver.HintLogout} {
		e, err := resolver.Endpoint(v.r, hint)
		if err != nil {
			return nil, err
		}
		if e != nil {
			s.Endpoints[hint] = snapshotEndpoint(e)
		}
	}

	if s.SubjectFormatter, err = v.SubjectFormatter(); err != nil {
		return nil, err
	}
	if s.UserNameFormatter, err = v.UserNameFormatter(); err != nil {
		return nil, err
	}
	if s.UserMapping, err = v.UserMapping(); err != nil {
		return nil, err
	}
	if s.IDTokenClaims, err = v.IDTokenClaims(); err != nil {
		return nil, err
	}
	if s.UserInfoClaims, err = v.UserInfoClaims(); err != nil {
		return nil, err
	}
	if s.ClaimsRequest, err = v.ClaimsRequest(); err != nil {
		return nil, err
	}
	if s.UserInfoRefreshRate, err = v.UserInfoRefreshRate(); err != nil {
		return nil, err
	}
	if s.GroupClaim, err = v.GroupClaim(); err != nil {
		return nil, err
	}
	if s.GroupSync, err = v.IsGroupSync(); err != nil {
		return nil, err
	}

	groups, err := v.GroupMapping()
	if err != nil {
		return nil, err
	}
	if groups != nil {
		s.GroupMapping = make(map[string][]string, len(groups.LocalMapping()))
		for local, providers := range groups.LocalMapping() {
			s.GroupMapping[local] = slices.Sorted(maps.Keys(providers))
		}
	}

	if s.AllowedGroups, err = v.AllowedGroups(); err != nil {
		return nil, err
	}
	if s.ForbiddenGroups, err = v.ForbiddenGroups(); err != nil {
		return nil, err
	}
	if s.GroupPrefix, err = v.GroupPrefix(); err != nil {
		return nil, err
	}
	if s.GroupSeparator, err = v.GroupSeparator(); err != nil {
		return nil, err
	}
	return s, nil
}

func snapshotEndpoint(e *core.Endpoint) *EndpointSnapshot {
	out := &EndpointSnapshot{URI: e.URI().String()}
	if headers := e.Headers(); len(headers) > 0 {
		out.Headers = headers
	}
	return out
}

func authMethodName(style oauth2.AuthStyle) string {
	if style == oauth2.AuthStyleInParams {
		return "client_secret_post"
	}
	return "client_secret_basic"
}
