package resolver

import (
	"slices"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"oidcconfig/internal/core"
)

// Map resolves key as a list of key=value entries. It returns nil when the
// list is absent or empty so callers can tell "not configured" apart from a
// list whose entries were all dropped.
func Map(r *Resolver, key string) (*orderedmap.OrderedMap[string, string], error) {
	list, ok, err := Lookup[[]string](r, key)
	if err != nil || !ok || len(list) == 0 {
		return nil, err
	}
	return ParseMap(list), nil
}

// ParseMap splits every entry at its first '='. Entries without one are
// dropped, later duplicates overwrite earlier ones.
func ParseMap(list []string) *orderedmap.OrderedMap[string, string] {
	m := orderedmap.New[string, string](len(list))
	for _, entry := range list {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		m.Set(k, v)
	}
	return m
}

// GroupMapping resolves oidc.groups.mapping. It returns nil when no mapping
// is configured.
func GroupMapping(r *Resolver) (*core.GroupMapping, error) {
	list, ok, err := Lookup[[]string](r, PropGroupsMapping)
	if err != nil || !ok || len(list) == 0 {
		return nil, err
	}
	return ParseGroupMapping(list), nil
}

// ParseGroupMapping reads local=provider entries. Local names are namespaced
// with core.GroupPrefix, entries without '=' are skipped.
func ParseGroupMapping(list []string) *core.GroupMapping {
	g := core.NewGroupMapping(len(list))
	for _, entry := range list {
		local, provider, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		g.Add(core.LocalGroup(local), provider)
	}
	return g
}

// IsGroupSync reports whether the group claim is among the requested user
// info claims.
func IsGroupSync(r *Resolver) (bool, error) {
	claim, err := Get(r, PropGroupsClaim, DefaultGroupsClaim)
	if err != nil {
		return false, err
	}
	claims, err := Get(r, PropUserInfoClaims, DefaultUserInfoClaims)
	if err != nil {
		return false, err
	}
	return slices.Contains(claims, claim), nil
}
