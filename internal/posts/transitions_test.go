package posts_test

import (
	"testing"

	"jobmate/profile-service/internal/model"
	"jobmate/profile-service/internal/posts"
)

var allStatuses = []model.PostStatus{model.PostPending, model.PostActive, model.PostFailed}

// ── ParseStatus ────────────────────────────────────────────────────────────

func TestParseStatus_ValidValues(t *testing.T) {
	for _, s := range []string{"PENDING", "ACTIVE", "FAILED"} {
		got, err := posts.ParseStatus(s)
		if err != nil {
			t.Errorf("ParseStatus(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseStatus(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseStatus_InvalidValues(t *testing.T) {
	for _, s := range []string{"", "pending", "ROLLED_BACK", "DELETED"} {
		if _, err := posts.ParseStatus(s); err == nil {
			t.Errorf("ParseStatus(%q) expected error, got nil", s)
		}
	}
}

// ── IsTransitionAllowed ────────────────────────────────────────────────────

func TestIsTransitionAllowed_FromPending(t *testing.T) {
	for _, to := range []model.PostStatus{model.PostActive, model.PostFailed} {
		if !posts.IsTransitionAllowed(model.PostPending, to) {
			t.Errorf("PENDING → %s should be allowed", to)
		}
	}
	if posts.IsTransitionAllowed(model.PostPending, model.PostPending) {
		t.Error("PENDING → PENDING should not be allowed")
	}
}

// ── Terminal states ────────────────────────────────────────────────────────

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, from := range []model.PostStatus{model.PostActive, model.PostFailed} {
		for _, to := range allStatuses {
			if posts.IsTransitionAllowed(from, to) {
				t.Errorf("%s → %s should not be allowed (terminal state)", from, to)
			}
		}
	}
}

func TestUnknownStatusHasNoExits(t *testing.T) {
	for _, to := range allStatuses {
		if posts.IsTransitionAllowed("UNKNOWN", to) {
			t.Errorf("UNKNOWN → %s should not be allowed", to)
		}
	}
}
