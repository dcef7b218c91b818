package resolver

// Prefix is the namespace of every configuration key
const Prefix = "oidc."

// Configuration keys, read through all tiers.
const (
	PropProvider         = Prefix + "xwikiprovider"
	PropUserNameFormater = Prefix + "user.nameFormater"
	PropSubjectFormater  = Prefix + "user.subjectFormater"
	PropUserMapping      = Prefix + "user.mapping"

	PropEndpointPrefix        = Prefix + "endpoint."
	PropEndpointAuthorization = PropEndpointPrefix + HintAuthorization
	PropEndpointToken         = PropEndpointPrefix + HintToken
	PropEndpointUserInfo      = PropEndpointPrefix + HintUserInfo
	PropEndpointLogout        = PropEndpointPrefix + HintLogout

	PropEndpointTokenAuthMethod = PropEndpointToken + ".auth_method"
	PropEndpointUserInfoMethod  = PropEndpointUserInfo + ".method"
	PropEndpointUserInfoHeaders = PropEndpointUserInfo + HeadersSuffix
	PropEndpointLogoutMethod    = PropEndpointLogout + ".method"

	PropClientID            = Prefix + "clientid"
	PropSecret              = Prefix + "secret"
	PropSkipped             = Prefix + "skipped"
	PropUserInfoRefreshRate = Prefix + "userinforefreshrate"
	PropScope               = Prefix + "scope"
	PropUserInfoClaims      = Prefix + "userinfoclaims"
	PropIDTokenClaims       = Prefix + "idtokenclaims"

	PropGroupsClaim     = Prefix + "groups.claim"
	PropGroupsMapping   = Prefix + "groups.mapping"
	PropGroupsAllowed   = Prefix + "groups.allowed"
	PropGroupsForbidden = Prefix + "groups.forbidden"
	PropGroupsPrefix    = Prefix + "groups.prefix"
	PropGroupsSeparator = Prefix + "groups.separator"

	PropState = Prefix + "state"
)

// Session only keys, never read from a PropertyStore.
const (
	SessionInitialRequest         = "xwiki.initialRequest"
	SessionAccessToken            = Prefix + "accesstoken"
	SessionIDToken                = Prefix + "idtoken"
	SessionUserInfoExpirationDate = Prefix + "session.userinfoexpirationdate"
)

// HeadersSuffix is appended to an endpoint key to configure its custom headers
const HeadersSuffix = ".headers"

// Endpoint hints
const (
	HintAuthorization = "authorization"
	HintToken         = "token"
	HintUserInfo      = "userinfo"
	HintLogout        = "logout"
)

// Defaults
const (
	DefaultGroupsClaim         = "xwiki_groups"
	DefaultSubjectFormater     = "${oidc.user.subject}"
	DefaultUserNameFormater    = "${oidc.issuer.host._clean}-${oidc.user.preferredUsername._clean}"
	DefaultUserInfoRefreshRate = 600000
)

// DefaultUserInfoClaims are requested from the user info endpoint when nothing is configured
var DefaultUserInfoClaims = []string{
	"xwiki_user_accessibility",
	"xwiki_user_company",
	"xwiki_user_displayHiddenDocuments",
	"xwiki_user_editor",
	"xwiki_user_usertype",
}

// DefaultIDTokenClaims are requested in the ID token when nothing is configured
var DefaultIDTokenClaims = []string{"xwiki_instance_id"}

// DefaultScope is the authorization scope when nothing is configured
var DefaultScope = []string{"openid", "profile", "email", "address", "phone"}
