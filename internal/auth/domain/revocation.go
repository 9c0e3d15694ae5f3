package domain

import "time"

// Revocation reason codes. Stable, stored with the entry.
const (
	ReasonLogout         = "logout"
	ReasonGuardianForced = "guardian_forced"
	ReasonSecurityEvent  = "security_event"
)

// RevocationEntry marks a token as permanently invalid before its natural
// expiry. Entries are write-once; once the underlying token has expired the
// entry is dead weight and may be pruned, since an expired token is rejected
// without any blacklist lookup.
type RevocationEntry struct {
	TokenID   string
	Reason    string
	RevokedAt time.Time

	// TokenExpiresAt is the token's own expiry, recorded so pruning knows
	// when the entry stops mattering.
	TokenExpiresAt time.Time
}

// DependentSession is a best-effort index row recording a dependent token
// issued under a guardian. It exists only so forced mass-logout can
// enumerate candidates; it is advisory, never a source of truth, and stale
// or missing rows are tolerated because expiry is the backstop.
type DependentSession struct {
	TokenID     string
	GuardianID  string
	DependentID string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}
