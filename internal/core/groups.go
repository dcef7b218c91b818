package core

import (
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

// GroupPrefix is the namespace of local group names
const GroupPrefix = "XWiki."

// LocalGroup returns group in its canonical namespaced form
func LocalGroup(group string) string {
	if strings.HasPrefix(group, GroupPrefix) {
		return group
	}
	return GroupPrefix + group
}

// GroupMapping associates local groups with provider groups in both directions
type GroupMapping struct {
	local    map[string]sets.Set[string]
	provider map[string]sets.Set[string]
}

// NewGroupMapping creates an empty mapping sized for n entries
func NewGroupMapping(n int) *GroupMapping {
	return &GroupMapping{
		local:    make(map[string]sets.Set[string], n),
		provider: make(map[string]sets.Set[string], n),
	}
}

// Add records that local and provider are associated. local must already be
// in canonical form.
func (g *GroupMapping) Add(local, provider string) {
	if _, ok := g.local[local]; !ok {
		g.local[local] = sets.New[string]()
	}
	g.local[local].Insert(provider)

	if _, ok := g.provider[provider]; !ok {
		g.provider[provider] = sets.New[string]()
	}
	g.provider[provider].Insert(local)
}

// FromLocal returns the provider groups mapped to a local group
func (g *GroupMapping) FromLocal(group string) sets.Set[string] {
	return g.local[group]
}

// FromProvider returns the local groups mapped to a provider group
func (g *GroupMapping) FromProvider(group string) sets.Set[string] {
	return g.provider[group]
}

// LocalMapping returns the local → provider view
func (g *GroupMapping) LocalMapping() map[string]sets.Set[string] {
	return g.local
}

// ProviderMapping returns the provider → local view
func (g *GroupMapping) ProviderMapping() map[string]sets.Set[string] {
	return g.provider
}
