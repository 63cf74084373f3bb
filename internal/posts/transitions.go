// Package posts runs the two-phase creation workflow for company posts.
//
// Valid status graph:
//
//	PENDING ──► ACTIVE
//	   │
//	   └──────► FAILED
//
// ACTIVE and FAILED are terminal states. A post leaves PENDING exactly once,
// through the media callback, a dispatch failure, or the stale-post reaper.
package posts

import (
	"fmt"

	"jobmate/profile-service/internal/model"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[model.PostStatus][]model.PostStatus{
	model.PostPending: {model.PostActive, model.PostFailed},
}

// ParseStatus converts a raw string to a PostStatus.
func ParseStatus(s string) (model.PostStatus, error) {
	st := model.PostStatus(s)
	switch st {
	case model.PostPending, model.PostActive, model.PostFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown post status %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted.
func IsTransitionAllowed(from, to model.PostStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
