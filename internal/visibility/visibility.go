// Package visibility decides which tier a viewer may see for a target username.
package visibility

import (
	"strings"

	"github.com/janwilmake/flaredream.dash/internal/domain"
)

// Resolution is the outcome of resolving a viewer against a target username
type Resolution struct {
	Tier    domain.Tier
	IsOwner bool
	// UseCredential is true only for the owner holding a non-empty credential.
	UseCredential bool
	Credential    string
}

// Resolve returns the private tier iff the viewer is present and their login
// matches target (GitHub logins compare case-insensitively). It has no side effects.
func Resolve(viewer *domain.Viewer, target string) Resolution {
	if viewer == nil || viewer.Login == "" {
		return Resolution{Tier: domain.TierPublic}
	}
	if !strings.EqualFold(strings.TrimSpace(viewer.Login), strings.TrimSpace(target)) {
		return Resolution{Tier: domain.TierPublic}
	}

	res := Resolution{Tier: domain.TierPrivate, IsOwner: true}
	if viewer.Credential != "" {
		res.UseCredential = true
		res.Credential = viewer.Credential
	}
	return res
}

// ReadTier is the tier the read path should look up. An owner without a
// credential can never have a private artifact generated, so they read public.
func (r Resolution) ReadTier() domain.Tier {
	if r.Tier == domain.TierPrivate && r.UseCredential {
		return domain.TierPrivate
	}
	return domain.TierPublic
}
