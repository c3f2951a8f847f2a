package schema

// EndpointName names a route below the configured prefix.
type EndpointName string

const (
	// EndpointStatus is the liveness probe.
	EndpointStatus EndpointName = "status"
	// EndpointVersion reports component versions.
	EndpointVersion EndpointName = "version"
	// EndpointSettings reports the server-side configuration.
	EndpointSettings EndpointName = "config"
	// EndpointSubmit accepts feature code.
	EndpointSubmit EndpointName = "submit"
	// EndpointAuthorize starts the GitHub OAuth flow.
	EndpointAuthorize EndpointName = "auth/authorize"
	// EndpointToken exchanges the OAuth grant for a token server-side.
	EndpointToken EndpointName = "auth/token"
	// EndpointAuthenticated reports whether the server holds a usable token.
	EndpointAuthenticated EndpointName = "auth/authenticated"
	// EndpointCallback is the mock server's stand-in for the GitHub consent page.
	EndpointCallback EndpointName = "auth/callback"
)

// EndpointConfig locates the remote assemble endpoints. Every request URL is
// BaseURL/RoutePrefix/<endpoint>.
type EndpointConfig struct {
	BaseURL     string
	RoutePrefix string
	// Token is the notebook server token, sent as "Authorization: token <t>".
	Token string
}

// AuthStatus reports whether the user completed the external OAuth flow.
type AuthStatus bool

// AuthState is a state of the auth poller.
type AuthState int

const (
	// AuthIdle is the initial state; the affordance offers to authenticate.
	AuthIdle AuthState = iota
	// AuthPolling means the authorize page was opened and status is being polled.
	AuthPolling
	// AuthAuthenticated is terminal for the session.
	AuthAuthenticated
	// AuthExpired means a poll session hit its time bound without success.
	AuthExpired
)

func (s AuthState) String() string {
	switch s {
	case AuthIdle:
		return "idle"
	case AuthPolling:
		return "polling"
	case AuthAuthenticated:
		return "authenticated"
	case AuthExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// VersionInfo reports component versions; missing components are nil.
type VersionInfo struct {
	Assemble *string `json:"assemble"`
	Ballet   *string `json:"ballet"`
	Project  *string `json:"project"`
}

// RemoteConfig is the server-side configuration as reported by GET config.
type RemoteConfig map[string]any
