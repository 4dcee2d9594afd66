package config

import "time"

const (
	supabaseURLVar         = "SUPABASE_URL"
	supabaseKeyVar         = "SUPABASE_KEY"
	supabaseJWTSecretVar   = "SUPABASE_JWT_SECRET"
	supabaseJWTAudienceVar = "SUPABASE_JWT_AUDIENCE"
	identityTimeoutVar     = "IDENTITY_TIMEOUT"
	supabaseTimeoutVar     = "SUPABASE_TIMEOUT"
)

type SupabaseConfig interface {
	GetSupabaseURL() string
	GetSupabaseKey() string
	GetJWTSecret() string
	GetJWTAudience() string
	GetIdentityTimeout() time.Duration
	GetSupabaseTimeout() time.Duration
}

type Supabase struct{}

var _ SupabaseConfig = Supabase{}

func (Supabase) GetSupabaseURL() string {
	return GetEnv(supabaseURLVar, "")
}

// GetSupabaseKey returns the project's anon key, sent as the apikey header on every call.
func (Supabase) GetSupabaseKey() string {
	return GetEnv(supabaseKeyVar, "")
}

// GetJWTSecret returns the HMAC secret used to classify access tokens locally. It is never
// sent to the identity provider.
func (Supabase) GetJWTSecret() string {
	return GetEnv(supabaseJWTSecretVar, "")
}

// GetJWTAudience returns the expected "aud" claim. Empty disables the audience check.
func (Supabase) GetJWTAudience() string {
	return GetEnv(supabaseJWTAudienceVar, "")
}

// GetIdentityTimeout bounds every call to the identity provider.
func (Supabase) GetIdentityTimeout() time.Duration {
	return GetDuration(identityTimeoutVar, 5*time.Second)
}

// GetSupabaseTimeout is the ceiling for any single request on the shared Supabase client,
// including PostgREST queries and storage uploads. Identity calls are held to the shorter
// GetIdentityTimeout through their context.
func (Supabase) GetSupabaseTimeout() time.Duration {
	return GetDuration(supabaseTimeoutVar, 30*time.Second)
}
