package resolver

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"k8s.io/apimachinery/pkg/util/sets"

	"oidcconfig/internal/core"
	"oidcconfig/internal/property"
	"oidcconfig/pkg/errors"
)

type mockSession map[string]any

func (m mockSession) Get(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

func (m mockSession) Set(name string, value any) { m[name] = value }

func (m mockSession) Remove(name string) (any, bool) {
	v, ok := m[name]
	delete(m, name)
	return v, ok
}

func store(values map[string]any) core.PropertyStore {
	return property.NewSettings(values).WithEnv(nil)
}

func TestLookupPrecedence(t *testing.T) {
	const key = PropClientID

	tests := []struct {
		name    string
		params  core.Params
		session mockSession
		store   map[string]any
		want    string
		wantOK  bool
	}{
		{
			name:    "request wins",
			params:  core.Params{key: "from-request"},
			session: mockSession{key: "from-session"},
			store:   map[string]any{key: "from-store"},
			want:    "from-request",
			wantOK:  true,
		},
		{
			name:    "empty request value still wins",
			params:  core.Params{key: ""},
			session: mockSession{key: "from-session"},
			store:   map[string]any{key: "from-store"},
			want:    "",
			wantOK:  true,
		},
		{
			name:    "session before store",
			params:  core.Params{},
			session: mockSession{key: "from-session"},
			store:   map[string]any{key: "from-store"},
			want:    "from-session",
			wantOK:  true,
		},
		{
			name:    "nil session value falls through",
			params:  core.Params{},
			session: mockSession{key: nil},
			store:   map[string]any{key: "from-store"},
			want:    "from-store",
			wantOK:  true,
		},
		{
			name:    "store last",
			params:  core.Params{},
			session: mockSession{},
			store:   map[string]any{key: "from-store"},
			want:    "from-store",
			wantOK:  true,
		},
		{
			name:    "absent everywhere",
			params:  core.Params{},
			session: mockSession{},
			store:   map[string]any{},
			want:    "",
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.params, tt.session, store(tt.store))
			got, ok, err := Lookup[string](r, key)
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Lookup() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLookupWithoutRequestOrSession(t *testing.T) {
	r := New(nil, nil, store(map[string]any{PropSkipped: "true"}))

	got, err := Get(r, PropSkipped, false)
	if err != nil || !got {
		t.Errorf("Get() = (%v, %v), want (true, nil)", got, err)
	}
}

func TestRequestValueIsCoerced(t *testing.T) {
	r := New(core.Params{PropUserInfoRefreshRate: "1000"}, mockSession{}, store(nil))

	got, err := Get(r, PropUserInfoRefreshRate, DefaultUserInfoRefreshRate)
	if err != nil || got != 1000 {
		t.Errorf("Get() = (%v, %v), want (1000, nil)", got, err)
	}
}

func TestRequestCoercionFailureDoesNotFallThrough(t *testing.T) {
	r := New(
		core.Params{PropUserInfoRefreshRate: "soon"},
		mockSession{PropUserInfoRefreshRate: 5},
		store(map[string]any{PropUserInfoRefreshRate: 10}),
	)

	got, err := Get(r, PropUserInfoRefreshRate, DefaultUserInfoRefreshRate)
	if !errors.IsCoercion(err) {
		t.Fatalf("Get() error = %v, want coercion error", err)
	}
	if got != DefaultUserInfoRefreshRate {
		t.Errorf("Get() = %v, want default on error", got)
	}

	var e *errors.Error
	if !errors.As(err, &e) || e.Details["key"] != PropUserInfoRefreshRate {
		t.Errorf("error details = %v, want the failing key", e)
	}
}

func TestSessionValueIsNotCoerced(t *testing.T) {
	u, _ := url.Parse("https://wiki.example.com/start")
	session := mockSession{
		SessionInitialRequest: u,
		PropState:             42,
	}
	r := New(core.Params{}, session, store(nil))

	got, ok, err := Lookup[*url.URL](r, SessionInitialRequest)
	if err != nil || !ok || got != u {
		t.Errorf("Lookup() = (%v, %v, %v), want the stored pointer", got, ok, err)
	}

	if _, _, err := Lookup[string](r, PropState); !errors.IsCoercion(err) {
		t.Errorf("Lookup() of mistyped session value error = %v, want coercion error", err)
	}
}

func TestLookupNeverMutatesStores(t *testing.T) {
	params := core.Params{PropScope: "openid"}
	session := mockSession{PropSecret: "s"}
	r := New(params, session, store(map[string]any{PropClientID: "c"}))

	for range 3 {
		_, _ = Get(r, PropScope, DefaultScope)
		_, _ = Get(r, PropSecret, "")
		_, _ = Get(r, PropClientID, "")
	}

	if len(session) != 1 || len(params) != 1 {
		t.Errorf("stores were mutated: session=%v params=%v", session, params)
	}
}

func TestSessionValue(t *testing.T) {
	r := New(core.Params{PropState: "from-request"}, mockSession{PropState: "from-session"}, nil)

	got, ok, err := SessionValue[string](r, PropState)
	if err != nil || !ok || got != "from-session" {
		t.Errorf("SessionValue() = (%q, %v, %v), want the session value", got, ok, err)
	}

	r = New(nil, nil, nil)
	if _, ok, err := SessionValue[string](r, PropState); ok || err != nil {
		t.Errorf("SessionValue() without session = (%v, %v)", ok, err)
	}
}

func TestMap(t *testing.T) {
	r := New(nil, mockSession{}, store(map[string]any{
		PropUserMapping: []string{"a=1", "b=2", "bad", "=", "c=x=y"},
	}))

	m, err := Map(r, PropUserMapping)
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}

	type kv struct{ K, V string }
	var got []kv
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		got = append(got, kv{pair.Key, pair.Value})
	}

	// "=" splits into an empty key and an empty value and is kept.
	want := []kv{{"a", "1"}, {"b", "2"}, {"", ""}, {"c", "x=y"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Map() mismatch (-want +got):\n%s", diff)
	}
}

func TestMapNotConfigured(t *testing.T) {
	tests := []struct {
		name  string
		store map[string]any
	}{
		{name: "absent", store: map[string]any{}},
		{name: "empty list", store: map[string]any{PropUserMapping: []string{}}},
		{name: "empty string", store: map[string]any{PropUserMapping: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Map(New(nil, nil, store(tt.store)), PropUserMapping)
			if err != nil {
				t.Fatalf("Map() error = %v", err)
			}
			if m != nil {
				t.Errorf("Map() = %v, want nil", m)
			}
		})
	}

	m, _ := Map(New(nil, nil, store(map[string]any{PropUserMapping: []string{"bad"}})), PropUserMapping)
	if m == nil || m.Len() != 0 {
		t.Errorf("Map() of malformed entries = %v, want configured but empty", m)
	}
}

func TestGroupMapping(t *testing.T) {
	r := New(nil, nil, store(map[string]any{
		PropGroupsMapping: []string{"Group1=Remote1", "Group1=Remote2", "Remote1=NotAGroup", "skipped"},
	}))

	g, err := GroupMapping(r)
	if err != nil {
		t.Fatalf("GroupMapping() error = %v", err)
	}

	wantLocal := map[string]sets.Set[string]{
		"XWiki.Group1":  sets.New("Remote1", "Remote2"),
		"XWiki.Remote1": sets.New("NotAGroup"),
	}
	wantProvider := map[string]sets.Set[string]{
		"Remote1":   sets.New("XWiki.Group1"),
		"Remote2":   sets.New("XWiki.Group1"),
		"NotAGroup": sets.New("XWiki.Remote1"),
	}
	if diff := cmp.Diff(wantLocal, g.LocalMapping()); diff != "" {
		t.Errorf("LocalMapping() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantProvider, g.ProviderMapping()); diff != "" {
		t.Errorf("ProviderMapping() mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupMappingNotConfigured(t *testing.T) {
	g, err := GroupMapping(New(nil, nil, store(nil)))
	if err != nil || g != nil {
		t.Errorf("GroupMapping() = (%v, %v), want (nil, nil)", g, err)
	}
}

func TestGroupMappingKeepsPrefixedNames(t *testing.T) {
	g := ParseGroupMapping([]string{"XWiki.Admins=admins"})
	if !g.FromLocal("XWiki.Admins").Has("admins") {
		t.Errorf("FromLocal() = %v", g.FromLocal("XWiki.Admins"))
	}
	if g.FromLocal("XWiki.XWiki.Admins") != nil {
		t.Error("prefixed names should not be prefixed twice")
	}
}

func TestIsGroupSync(t *testing.T) {
	tests := []struct {
		name  string
		store map[string]any
		want  bool
	}{
		{name: "defaults", store: map[string]any{}, want: false},
		{
			name:  "default claim requested",
			store: map[string]any{PropUserInfoClaims: []string{"email", "xwiki_groups"}},
			want:  true,
		},
		{
			name: "custom claim requested",
			store: map[string]any{
				PropGroupsClaim:    "roles",
				PropUserInfoClaims: "email,roles",
			},
			want: true,
		},
		{
			name: "custom claim not requested",
			store: map[string]any{
				PropGroupsClaim:    "roles",
				PropUserInfoClaims: []string{"xwiki_groups"},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsGroupSync(New(nil, nil, store(tt.store)))
			if err != nil {
				t.Fatalf("IsGroupSync() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsGroupSync() = %v, want %v", got, tt.want)
			}
		})
	}
}
