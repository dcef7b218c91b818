package core

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"k8s.io/apimachinery/pkg/util/sets"
)

func TestRequestParameter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?oidc.clientid=abc&oidc.secret=&multi=1&multi=2", nil)
	params := NewRequest(req)

	tests := []struct {
		name   string
		param  string
		want   string
		wantOK bool
	}{
		{name: "present", param: "oidc.clientid", want: "abc", wantOK: true},
		{name: "empty value is present", param: "oidc.secret", want: "", wantOK: true},
		{name: "first of many", param: "multi", want: "1", wantOK: true},
		{name: "absent", param: "oidc.scope", want: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := params.Parameter(tt.param)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Parameter(%q) = (%q, %v), want (%q, %v)", tt.param, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRequestFormPost(t *testing.T) {
	body := strings.NewReader(url.Values{"oidc.skipped": {"true"}}.Encode())
	req := httptest.NewRequest(http.MethodPost, "/?oidc.skipped=false", body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	params := NewRequest(req)
	got, ok := params.Parameter("oidc.skipped")
	if !ok || got != "false" {
		t.Errorf("query value should win over body, got (%q, %v)", got, ok)
	}
}

func TestRequestCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "oidcClientConfiguration", Value: "tenantA"})
	r := NewRequest(req)

	c, ok := r.Cookie("oidcClientConfiguration")
	if !ok || c.Value != "tenantA" {
		t.Errorf("Cookie() = (%v, %v), want tenantA", c, ok)
	}
	if _, ok := r.Cookie("missing"); ok {
		t.Error("Cookie() should report missing cookies")
	}
}

func TestEndpoint(t *testing.T) {
	uri, _ := url.Parse("https://idp.example.com/userinfo")
	headers := orderedmap.New[string, []string]()
	headers.Set("key2", []string{"value2"})
	headers.Set("key1", []string{"value11", "value12"})

	e := NewEndpoint(uri, headers)

	if diff := cmp.Diff([]string{"key2", "key1"}, e.HeaderNames()); diff != "" {
		t.Errorf("HeaderNames() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"value11", "value12"}, e.Header("key1")); diff != "" {
		t.Errorf("Header() mismatch (-want +got):\n%s", diff)
	}

	// mutating inputs and outputs must not leak into the endpoint
	uri.Host = "evil.example.com"
	headers.Set("key3", []string{"x"})
	e.URI().Path = "/changed"
	e.Header("key1")[0] = "changed"

	if got := e.URI().String(); got != "https://idp.example.com/userinfo" {
		t.Errorf("URI() = %s", got)
	}
	if len(e.HeaderNames()) != 2 || e.Header("key1")[0] != "value11" {
		t.Error("endpoint should be immutable")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	e.Apply(req)
	if diff := cmp.Diff([]string{"value11", "value12"}, req.Header.Values("key1")); diff != "" {
		t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
	}
}

func TestEndpointWithoutHeaders(t *testing.T) {
	uri, _ := url.Parse("/endpoint")
	e := NewEndpoint(uri, nil)

	if len(e.Headers()) != 0 {
		t.Errorf("Headers() = %v, want empty", e.Headers())
	}
}

func TestLocalGroup(t *testing.T) {
	tests := map[string]string{
		"Group1":       "XWiki.Group1",
		"XWiki.Group1": "XWiki.Group1",
		"":             "XWiki.",
	}
	for in, want := range tests {
		if got := LocalGroup(in); got != want {
			t.Errorf("LocalGroup(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGroupMappingAdd(t *testing.T) {
	g := NewGroupMapping(2)
	g.Add("XWiki.Group1", "Remote1")
	g.Add("XWiki.Group1", "Remote1")
	g.Add("XWiki.Group2", "Remote1")

	if !g.FromLocal("XWiki.Group1").Equal(sets.New("Remote1")) {
		t.Errorf("FromLocal() = %v", sets.List(g.FromLocal("XWiki.Group1")))
	}
	if !g.FromProvider("Remote1").Equal(sets.New("XWiki.Group1", "XWiki.Group2")) {
		t.Errorf("FromProvider() = %v", sets.List(g.FromProvider("Remote1")))
	}
	if g.FromLocal("XWiki.Unknown") != nil {
		t.Error("FromLocal() of an unknown group should be nil")
	}
}
