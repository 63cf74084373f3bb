// Package model defines the aggregates owned by the profile service and the
// error kinds shared by every layer above storage.
package model

import (
	"math"
	"time"
)

// Meta is embedded by every aggregate. Version is compared and incremented on
// each write; a mismatch surfaces as ErrVersionConflict.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int64     `json:"version"`
}

// SubscriptionType mirrors the subscription_type column.
type SubscriptionType string

const (
	SubscriptionFree    SubscriptionType = "FREE"
	SubscriptionPremium SubscriptionType = "PREMIUM"
)

// DefaultAvatarURL is assigned to profiles created without an avatar.
const DefaultAvatarURL = "default"

// SubscriptionPeriod is the length of one paid PREMIUM period.
const SubscriptionPeriod = 30 * 24 * time.Hour

// Profile is the company profile of record, one per account.
// Nil pointer fields are unset.
type Profile struct {
	Meta

	UserID string  `json:"userId"`
	Email  *string `json:"email"`

	CompanyName        *string `json:"companyName"`
	AvatarURL          *string `json:"avatarUrl"`
	LogoURL            *string `json:"logoUrl"`
	AboutUs            *string `json:"aboutUs"`
	WhoWeAreLookingFor *string `json:"whoWeAreLookingFor"`

	// Country is the shard key. Changes go through shard.Orchestrator.
	Country       *string `json:"country"`
	City          *string `json:"city"`
	StreetAddress *string `json:"streetAddress"`
	PhoneNumber   *string `json:"phoneNumber"`
	AuthProvider  *string `json:"authProvider"`

	SubscriptionType        SubscriptionType `json:"subscriptionType"`
	SubscriptionStartDate   *time.Time       `json:"subscriptionStartDate"`
	SubscriptionEndDate     *time.Time       `json:"subscriptionEndDate"`
	ExpiryNotificationSent  bool             `json:"expiryNotificationSent"`
	ExpiredNotificationSent bool             `json:"expiredNotificationSent"`

	ApplicantSearchProfile *ApplicantSearchProfile `json:"applicantSearchProfile"`
}

// IsSubscriptionActive is true for PREMIUM profiles whose end date is unset or
// still in the future.
func (p *Profile) IsSubscriptionActive(now time.Time) bool {
	if p.SubscriptionType != SubscriptionPremium {
		return false
	}
	if p.SubscriptionEndDate == nil {
		return true
	}
	return now.Before(*p.SubscriptionEndDate)
}

// IsPremiumSubscriber gates premium-only features.
func (p *Profile) IsPremiumSubscriber(now time.Time) bool {
	return p.SubscriptionType == SubscriptionPremium && p.IsSubscriptionActive(now)
}

// DaysRemaining returns whole days until the subscription ends, floored at 0.
// It is nil for FREE profiles and for PREMIUM profiles without an end date.
func (p *Profile) DaysRemaining(now time.Time) *int64 {
	if p.SubscriptionType != SubscriptionPremium || p.SubscriptionEndDate == nil {
		return nil
	}
	days := int64(math.Floor(p.SubscriptionEndDate.Sub(now).Hours() / 24))
	if days < 0 {
		days = 0
	}
	return &days
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Email = cloneString(p.Email)
	c.CompanyName = cloneString(p.CompanyName)
	c.AvatarURL = cloneString(p.AvatarURL)
	c.LogoURL = cloneString(p.LogoURL)
	c.AboutUs = cloneString(p.AboutUs)
	c.WhoWeAreLookingFor = cloneString(p.WhoWeAreLookingFor)
	c.Country = cloneString(p.Country)
	c.City = cloneString(p.City)
	c.StreetAddress = cloneString(p.StreetAddress)
	c.PhoneNumber = cloneString(p.PhoneNumber)
	c.AuthProvider = cloneString(p.AuthProvider)
	c.SubscriptionStartDate = cloneTime(p.SubscriptionStartDate)
	c.SubscriptionEndDate = cloneTime(p.SubscriptionEndDate)
	c.ApplicantSearchProfile = p.ApplicantSearchProfile.Clone()
	return &c
}

// EmploymentStatus values accepted in an applicant search profile.
type EmploymentStatus string

const (
	EmploymentFullTime   EmploymentStatus = "FULL_TIME"
	EmploymentPartTime   EmploymentStatus = "PART_TIME"
	EmploymentContract   EmploymentStatus = "CONTRACT"
	EmploymentFreelance  EmploymentStatus = "FREELANCE"
	EmploymentInternship EmploymentStatus = "INTERNSHIP"
	EmploymentRemote     EmploymentStatus = "REMOTE"
	EmploymentOnSite     EmploymentStatus = "ON_SITE"
	EmploymentHybrid     EmploymentStatus = "HYBRID"
)

// EducationDegree is the minimum education required by a search profile.
type EducationDegree string

const (
	EducationHighSchool    EducationDegree = "HIGH_SCHOOL"
	EducationAssociate     EducationDegree = "ASSOCIATE"
	EducationBachelor      EducationDegree = "BACHELOR"
	EducationMaster        EducationDegree = "MASTER"
	EducationDoctorate     EducationDegree = "DOCTORATE"
	EducationProfessional  EducationDegree = "PROFESSIONAL"
	EducationNoRequirement EducationDegree = "NO_REQUIREMENT"
)

// DefaultSalaryCurrency applies when a search profile omits the currency.
const DefaultSalaryCurrency = "USD"

// ApplicantSearchProfile is the premium-only applicant search criteria.
type ApplicantSearchProfile struct {
	DesiredTechnicalSkills  []string           `json:"desiredTechnicalSkills"`
	DesiredEmploymentStatus []EmploymentStatus `json:"desiredEmploymentStatus"`
	DesiredCountry          *string            `json:"desiredCountry"`
	DesiredSalaryMin        *float64           `json:"desiredSalaryMin"`
	DesiredSalaryMax        *float64           `json:"desiredSalaryMax"`
	SalaryCurrency          string             `json:"salaryCurrency"`
	DesiredEducationDegree  *EducationDegree   `json:"desiredEducationDegree"`
}

// Clone returns a deep copy of the search profile.
func (a *ApplicantSearchProfile) Clone() *ApplicantSearchProfile {
	if a == nil {
		return nil
	}
	c := *a
	if a.DesiredTechnicalSkills != nil {
		c.DesiredTechnicalSkills = append([]string(nil), a.DesiredTechnicalSkills...)
	}
	if a.DesiredEmploymentStatus != nil {
		c.DesiredEmploymentStatus = append([]EmploymentStatus(nil), a.DesiredEmploymentStatus...)
	}
	c.DesiredCountry = cloneString(a.DesiredCountry)
	if a.DesiredSalaryMin != nil {
		v := *a.DesiredSalaryMin
		c.DesiredSalaryMin = &v
	}
	if a.DesiredSalaryMax != nil {
		v := *a.DesiredSalaryMax
		c.DesiredSalaryMax = &v
	}
	if a.DesiredEducationDegree != nil {
		v := *a.DesiredEducationDegree
		c.DesiredEducationDegree = &v
	}
	return &c
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
