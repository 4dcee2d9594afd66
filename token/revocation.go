package token

import (
	"sync"
	"time"
)

// RevocationList remembers signed out token IDs (the jti claim) until the token would
// have expired anyway.
type RevocationList struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

func NewRevocationList() *RevocationList {
	return &RevocationList{
		revoked: make(map[string]time.Time),
	}
}

func (l *RevocationList) Revoke(jti string, exp time.Time) {
	if jti == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[jti] = exp
}

func (l *RevocationList) IsRevoked(jti string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, exists := l.revoked[jti]
	return exists
}

// Prune drops entries whose token has expired by now and returns how many were removed.
func (l *RevocationList) Prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for jti, exp := range l.revoked {
		if now.After(exp) {
			delete(l.revoked, jti)
			removed++
		}
	}
	return removed
}

func (l *RevocationList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.revoked)
}
