package envelope

import (
	"encoding/json"

	"jobmate/profile-service/internal/model"
)

// ─── Inbound ─────────────────────────────────────────────────────────────────

type AccountCreated struct {
	UserID        string `json:"userId"`
	Email         string `json:"email"`
	CompanyName   string `json:"companyName"`
	Country       string `json:"country"`
	City          string `json:"city"`
	StreetAddress string `json:"streetAddress"`
	PhoneNumber   string `json:"phoneNumber"`
	AvatarURL     string `json:"avatarUrl"`
	AuthProvider  string `json:"authProvider"`
	CreatedAt     Time   `json:"createdAt"`
}

type AccountDeleted struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Reason    string `json:"reason"`
	DeletedBy string `json:"deletedBy"`
	DeletedAt Time   `json:"deletedAt"`
}

type PaymentCompleted struct {
	UserID   string `json:"userId"`
	PlanType string `json:"planType"`
	PaidAt   Time   `json:"paidAt"`
}

// SubscriptionCancelled identifies the account by whichever of the three id
// fields the producer filled in.
type SubscriptionCancelled struct {
	UserID           string `json:"userId"`
	CompanyID        string `json:"companyId"`
	ApplicantID      string `json:"applicantId"`
	PreviousPlanType string `json:"previousPlanType"`
	CancelledAt      Time   `json:"cancelledAt"`
}

// AccountKey returns the first non-empty id field.
func (e SubscriptionCancelled) AccountKey() string {
	for _, k := range []string{e.UserID, e.CompanyID, e.ApplicantID} {
		if k != "" {
			return k
		}
	}
	return ""
}

// Notification event types.
const (
	NotificationEndingSoon = "ENDING_SOON"
	NotificationEnded      = "ENDED"
)

type SubscriptionNotification struct {
	EventType  string `json:"eventType"`
	UserID     string `json:"userId"`
	PlanType   string `json:"planType"`
	EndDate    Time   `json:"endDate"`
	DaysLeft   *int   `json:"daysLeft"`
	OccurredAt Time   `json:"occurredAt"`
}

// MediaUploadCompleted is the media collaborator's callback. Older producers
// send the post id as eventId.
type MediaUploadCompleted struct {
	PostID        string   `json:"postId"`
	EventID       string   `json:"eventId"`
	CompanyID     string   `json:"companyId"`
	Success       bool     `json:"success"`
	ErrorMessage  string   `json:"errorMessage"`
	CoverImageURL string   `json:"coverImageUrl"`
	CoverImageKey string   `json:"coverImageKey"`
	ImageURLs     []string `json:"imageUrls"`
	ImageKeys     []string `json:"imageKeys"`
	VideoURL      string   `json:"videoUrl"`
	VideoKey      string   `json:"videoKey"`
}

// Key returns the post id, whichever field carried it.
func (e MediaUploadCompleted) Key() string {
	if e.PostID != "" {
		return e.PostID
	}
	return e.EventID
}

// AvatarUploadCompleted is the media collaborator's callback for a profile
// avatar. A failed upload leaves the current avatar in place.
type AvatarUploadCompleted struct {
	UserID       string `json:"userId"`
	AvatarURL    string `json:"avatarUrl"`
	AvatarKey    string `json:"avatarKey"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage"`
}

// PremiumStatusRequest and CompanyNameRequest keep RequestID raw so the
// response echoes the caller's token byte-for-byte.
type PremiumStatusRequest struct {
	RequestID json.RawMessage `json:"requestId"`
	CompanyID string          `json:"companyId"`
}

type CompanyNameRequest struct {
	RequestID json.RawMessage `json:"requestId"`
	CompanyID string          `json:"companyId"`
}

// ─── Outbound ────────────────────────────────────────────────────────────────

type MediaFile struct {
	Base64      string `json:"base64"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type MediaUploadRequest struct {
	PostID                string      `json:"postId"`
	CompanyID             string      `json:"companyId"`
	CoverImageBase64      string      `json:"coverImageBase64"`
	CoverImageFilename    string      `json:"coverImageFilename"`
	CoverImageContentType string      `json:"coverImageContentType"`
	AdditionalImages      []MediaFile `json:"additionalImages,omitempty"`
	VideoBase64           string      `json:"videoBase64,omitempty"`
	VideoFilename         string      `json:"videoFilename,omitempty"`
	VideoContentType      string      `json:"videoContentType,omitempty"`
}

type SubscriptionChanged struct {
	CompanyID        string `json:"companyId"`
	IsPremium        bool   `json:"isPremium"`
	SubscriptionType string `json:"subscriptionType"`
	ChangedAt        Time   `json:"changedAt"`
}

// Migration statuses. RolledBack is reserved and never emitted.
const (
	MigrationInitiated  = "INITIATED"
	MigrationInProgress = "IN_PROGRESS"
	MigrationCompleted  = "COMPLETED"
	MigrationFailed     = "FAILED"
	MigrationRolledBack = "ROLLED_BACK"
)

// ShardMigrationEventType tags every migration audit event.
const ShardMigrationEventType = "SHARD_MIGRATION"

type ShardMigration struct {
	EventType       string `json:"eventType"`
	UserID          string `json:"userId"`
	ProfileID       string `json:"profileId"`
	Email           string `json:"email,omitempty"`
	CompanyName     string `json:"companyName,omitempty"`
	PreviousCountry string `json:"previousCountry,omitempty"`
	NewCountry      string `json:"newCountry,omitempty"`
	SourceRegion    string `json:"sourceRegion"`
	TargetRegion    string `json:"targetRegion"`
	Status          string `json:"status"`
	ErrorMessage    string `json:"errorMessage,omitempty"`
	InitiatedAt     Time   `json:"initiatedAt"`
	CompletedAt     Time   `json:"completedAt"`
	DurationMs      int64  `json:"durationMs,omitempty"`
}

type PremiumStatusResponse struct {
	RequestID json.RawMessage `json:"requestId"`
	CompanyID string          `json:"companyId"`
	IsPremium bool            `json:"isPremium"`
}

type CompanyNameResponse struct {
	RequestID   json.RawMessage `json:"requestId"`
	CompanyID   string          `json:"companyId"`
	CompanyName *string         `json:"companyName"`
}

// ProfileSummary is the public projection cached by downstream services.
type ProfileSummary struct {
	CompanyID     string  `json:"companyId"`
	CompanyName   *string `json:"companyName"`
	AvatarURL     *string `json:"avatarUrl"`
	LogoURL       *string `json:"logoUrl"`
	Country       *string `json:"country"`
	City          *string `json:"city"`
	StreetAddress *string `json:"streetAddress"`
	PhoneNumber   *string `json:"phoneNumber"`
}

// NewProfileSummary projects p onto its public fields.
func NewProfileSummary(p *model.Profile) ProfileSummary {
	return ProfileSummary{
		CompanyID:     p.UserID,
		CompanyName:   p.CompanyName,
		AvatarURL:     p.AvatarURL,
		LogoURL:       p.LogoURL,
		Country:       p.Country,
		City:          p.City,
		StreetAddress: p.StreetAddress,
		PhoneNumber:   p.PhoneNumber,
	}
}
