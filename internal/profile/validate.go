package profile

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"jobmate/profile-service/internal/model"
)

const (
	maxCompanyName        = 255
	maxURL                = 500
	maxAboutUs            = 5000
	maxWhoWeAreLookingFor = 3000
	maxCountry            = 100
	maxCity               = 100
	maxStreetAddress      = 255
	maxEmail              = 255
	maxUserID             = 100

	maxSkills             = 50
	maxEmploymentStatuses = 10
	maxCurrency           = 10
)

// phonePattern accepts an empty value or E.164 style numbers.
var phonePattern = regexp.MustCompile(`^$|^\+[1-9]\d{0,2}\d{1,12}$`)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var employmentStatuses = map[model.EmploymentStatus]bool{
	model.EmploymentFullTime:   true,
	model.EmploymentPartTime:   true,
	model.EmploymentContract:   true,
	model.EmploymentFreelance:  true,
	model.EmploymentInternship: true,
	model.EmploymentRemote:     true,
	model.EmploymentOnSite:     true,
	model.EmploymentHybrid:     true,
}

var educationDegrees = map[model.EducationDegree]bool{
	model.EducationHighSchool:    true,
	model.EducationAssociate:     true,
	model.EducationBachelor:      true,
	model.EducationMaster:        true,
	model.EducationDoctorate:     true,
	model.EducationProfessional:  true,
	model.EducationNoRequirement: true,
}

func maxLen(field string, v *string, max int) error {
	if v != nil && utf8.RuneCountInString(*v) > max {
		return model.Invalid(field, "max_length", fmt.Sprintf("must be at most %d characters", max))
	}
	return nil
}

// Validate checks every supplied field. Nothing is mutated.
func (p Patch) Validate() error {
	checks := []struct {
		field string
		v     *string
		max   int
	}{
		{"companyName", p.CompanyName, maxCompanyName},
		{"avatarUrl", p.AvatarURL, maxURL},
		{"logoUrl", p.LogoURL, maxURL},
		{"aboutUs", p.AboutUs, maxAboutUs},
		{"whoWeAreLookingFor", p.WhoWeAreLookingFor, maxWhoWeAreLookingFor},
		{"country", p.Country, maxCountry},
		{"city", p.City, maxCity},
		{"streetAddress", p.StreetAddress, maxStreetAddress},
	}
	for _, c := range checks {
		if err := maxLen(c.field, c.v, c.max); err != nil {
			return err
		}
	}
	if p.PhoneNumber != nil && !phonePattern.MatchString(*p.PhoneNumber) {
		return model.Invalid("phoneNumber", "pattern", "must be in international format, e.g. +84901234567")
	}
	if p.ApplicantSearchProfile != nil {
		if p.ClearApplicantSearchProfile {
			return model.Invalid("applicantSearchProfile", "conflict", "cannot set and clear in the same update")
		}
		return validateSearchProfile(p.ApplicantSearchProfile)
	}
	return nil
}

func validateSearchProfile(a *model.ApplicantSearchProfile) error {
	const prefix = "applicantSearchProfile."
	if len(a.DesiredTechnicalSkills) > maxSkills {
		return model.Invalid(prefix+"desiredTechnicalSkills", "max_items", fmt.Sprintf("at most %d skills", maxSkills))
	}
	for _, s := range a.DesiredTechnicalSkills {
		if strings.TrimSpace(s) == "" {
			return model.Invalid(prefix+"desiredTechnicalSkills", "not_blank", "skills must not be blank")
		}
	}
	if len(a.DesiredEmploymentStatus) > maxEmploymentStatuses {
		return model.Invalid(prefix+"desiredEmploymentStatus", "max_items", fmt.Sprintf("at most %d statuses", maxEmploymentStatuses))
	}
	for _, s := range a.DesiredEmploymentStatus {
		if !employmentStatuses[s] {
			return model.Invalid(prefix+"desiredEmploymentStatus", "enum", fmt.Sprintf("unknown employment status %q", s))
		}
	}
	if err := maxLen(prefix+"desiredCountry", a.DesiredCountry, maxCountry); err != nil {
		return err
	}
	if a.DesiredSalaryMin != nil && *a.DesiredSalaryMin < 0 {
		return model.Invalid(prefix+"desiredSalaryMin", "min", "must not be negative")
	}
	if a.DesiredSalaryMax != nil && *a.DesiredSalaryMax < 0 {
		return model.Invalid(prefix+"desiredSalaryMax", "min", "must not be negative")
	}
	if a.DesiredSalaryMin != nil && a.DesiredSalaryMax != nil && *a.DesiredSalaryMin > *a.DesiredSalaryMax {
		return model.Invalid(prefix+"desiredSalaryMin", "range", "must not exceed desiredSalaryMax")
	}
	if utf8.RuneCountInString(a.SalaryCurrency) > maxCurrency {
		return model.Invalid(prefix+"salaryCurrency", "max_length", fmt.Sprintf("must be at most %d characters", maxCurrency))
	}
	if a.DesiredEducationDegree != nil && !educationDegrees[*a.DesiredEducationDegree] {
		return model.Invalid(prefix+"desiredEducationDegree", "enum", fmt.Sprintf("unknown education degree %q", *a.DesiredEducationDegree))
	}
	return nil
}

// Validate requires userId and a well-formed email, then applies the patch
// rules to the remaining fields.
func (in CreateInput) Validate() error {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return model.Invalid("userId", "required", "userId is required")
	}
	if err := maxLen("userId", &userID, maxUserID); err != nil {
		return err
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return model.Invalid("email", "required", "email is required")
	}
	if err := maxLen("email", &email, maxEmail); err != nil {
		return err
	}
	if !emailPattern.MatchString(email) {
		return model.Invalid("email", "email", "invalid email format")
	}
	phone := strings.TrimSpace(in.PhoneNumber)
	return Patch{
		CompanyName:   &in.CompanyName,
		Country:       &in.Country,
		City:          &in.City,
		StreetAddress: &in.StreetAddress,
		PhoneNumber:   &phone,
	}.Validate()
}
