package tokengate

// Provider tags the external identity issuer a verified subject arrived
// from. Mapping is by exact canonical issuer identifier; an unrecognized
// issuer is ProviderUnknown, never a substring guess.
type Provider int

const (
	// ProviderUnknown is any issuer not in the canonical table.
	ProviderUnknown Provider = iota
	// ProviderGoogle is https://accounts.google.com.
	ProviderGoogle
	// ProviderApple is https://appleid.apple.com.
	ProviderApple
	// ProviderGitHub is https://github.com/login/oauth.
	ProviderGitHub
	// ProviderMicrosoft is https://login.microsoftonline.com.
	ProviderMicrosoft
)

var providerByIssuer = map[string]Provider{
	"https://accounts.google.com":       ProviderGoogle,
	"https://appleid.apple.com":         ProviderApple,
	"https://github.com/login/oauth":    ProviderGitHub,
	"https://login.microsoftonline.com": ProviderMicrosoft,
}

// ProviderForIssuer resolves a canonical issuer identifier to its
// [Provider] tag by exact match.
func ProviderForIssuer(issuer string) Provider {
	if p, ok := providerByIssuer[issuer]; ok {
		return p
	}
	return ProviderUnknown
}

func (p Provider) String() string {
	switch p {
	case ProviderGoogle:
		return "google"
	case ProviderApple:
		return "apple"
	case ProviderGitHub:
		return "github"
	case ProviderMicrosoft:
		return "microsoft"
	default:
		return "unknown"
	}
}
