package resolver

// Credentials is the request-scoped bag of credential material the HTTP
// layer extracts. BearerToken carries a service token (scheme A);
// IdentityToken carries a federated provider JWT (scheme B). Either or both
// may be empty.
type Credentials struct {
	BearerToken   string
	IdentityToken string
}

// Scheme is the closed set of ways a request can be authenticated. One
// variant is selected per request by selectScheme, a pure function of the
// credential material and the configured verifiers; no later branching
// re-examines the credentials.
type Scheme string

const (
	SchemeServiceToken Scheme = "service_token"
	SchemeFederated    Scheme = "federated"

	// SchemeUnverifiable means credential material was presented but no
	// configured verifier can check it. Fails as invalid credentials, never
	// as the development fallback.
	SchemeUnverifiable Scheme = "unverifiable"

	// SchemeDevFallback means no credential material at all was presented.
	// Whether it yields the development identity or a fail-closed rejection
	// depends on the environment signals.
	SchemeDevFallback Scheme = "dev_fallback"
)

// selectScheme picks the variant for a request. Service tokens take priority
// when both schemes are configured and both kinds of material are present.
func selectScheme(creds Credentials, serviceEnabled, federatedEnabled bool) Scheme {
	switch {
	case creds.BearerToken != "" && serviceEnabled:
		return SchemeServiceToken
	case creds.IdentityToken != "" && federatedEnabled:
		return SchemeFederated
	case creds.BearerToken != "" || creds.IdentityToken != "":
		return SchemeUnverifiable
	default:
		return SchemeDevFallback
	}
}
