package wizard

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"jobportal-bot/internal/api/portal"
	"jobportal-bot/internal/models"
)

const (
	StepCompany     StepName = "company"
	StepLogo        StepName = "logo"
	StepProfileDone StepName = "profile_done"
)

type ProfileSaver interface {
	SaveEmployerProfile(ctx context.Context, profile models.EmployerProfile, logo *portal.Upload) (*models.EmployerProfile, error)
}

// CompanyStep collects the company details of an employer profile.
type CompanyStep struct {
	Profile models.EmployerProfile
}

func NewEmployerProfile() CompanyStep {
	return CompanyStep{}
}

func (s CompanyStep) Submit() (*LogoStep, error) {
	p := s.Profile
	p.CompanyName = strings.TrimSpace(p.CompanyName)
	p.Website = strings.TrimSpace(p.Website)

	v := &ValidationError{}
	if p.CompanyName == "" {
		v.Add("company_name", "Company name is required.")
	}
	if p.Website != "" {
		u, err := url.Parse(p.Website)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			v.Add("website", "Enter a full URL starting with http:// or https://.")
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	return &LogoStep{Profile: p}, nil
}

// LogoStep uploads an optional company logo and saves the profile.
type LogoStep struct {
	Profile models.EmployerProfile
}

func (s *LogoStep) Back() CompanyStep {
	return CompanyStep{Profile: s.Profile}
}

// Upload validates the logo client-side before anything is sent.
func (s *LogoStep) Upload(ctx context.Context, api ProfileSaver, logo portal.Upload) (*ProfileDoneStep, error) {
	if err := portal.ValidateLogo(logo); err != nil {
		return nil, &ValidationError{Fields: map[string]string{"logo": logoMessage(err)}}
	}
	return s.save(ctx, api, &logo)
}

func (s *LogoStep) Skip(ctx context.Context, api ProfileSaver) (*ProfileDoneStep, error) {
	return s.save(ctx, api, nil)
}

func (s *LogoStep) save(ctx context.Context, api ProfileSaver, logo *portal.Upload) (*ProfileDoneStep, error) {
	saved, err := api.SaveEmployerProfile(ctx, s.Profile, logo)
	if err != nil {
		return nil, fieldErrors(err)
	}
	return &ProfileDoneStep{Profile: *saved}, nil
}

func logoMessage(err error) string {
	switch {
	case errors.Is(err, portal.ErrFileTooLarge):
		return "Logo must be 2 MB or smaller."
	case errors.Is(err, portal.ErrFileType):
		return "Logo must be a JPEG or PNG image."
	default:
		return "Logo file is empty."
	}
}

type ProfileDoneStep struct {
	Profile models.EmployerProfile
}

// EmployerSnapshot is the persisted form of an employer profile wizard.
type EmployerSnapshot struct {
	Step    StepName               `json:"step"`
	Profile models.EmployerProfile `json:"profile"`
}

func (s CompanyStep) Snapshot() EmployerSnapshot {
	return EmployerSnapshot{Step: StepCompany, Profile: s.Profile}
}

func (s *LogoStep) Snapshot() EmployerSnapshot {
	return EmployerSnapshot{Step: StepLogo, Profile: s.Profile}
}

func (s EmployerSnapshot) Company() (CompanyStep, bool) {
	if s.Step != StepCompany {
		return CompanyStep{}, false
	}
	return CompanyStep{Profile: s.Profile}, true
}

func (s EmployerSnapshot) Logo() (*LogoStep, bool) {
	if s.Step != StepLogo {
		return nil, false
	}
	return &LogoStep{Profile: s.Profile}, true
}
