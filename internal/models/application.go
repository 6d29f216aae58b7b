package models

import "time"

type ApplicationStatus string

const (
	ApplicationApplied     ApplicationStatus = "APPLIED"
	ApplicationUnderReview ApplicationStatus = "UNDER_REVIEW"
	ApplicationShortlisted ApplicationStatus = "SHORTLISTED"
	ApplicationRejected    ApplicationStatus = "REJECTED"
	ApplicationAccepted    ApplicationStatus = "ACCEPTED"
)

type Application struct {
	ID           int64             `json:"id"`
	ListingID    int64             `json:"listing_id"`
	ListingKind  ListingKind       `json:"listing_kind"`
	ListingTitle string            `json:"listing_title"`
	CompanyName  string            `json:"company_name"`
	Status       ApplicationStatus `json:"status"`
	AppliedAt    *time.Time        `json:"applied_at"`
}

// ApplyRequest is the optional body of an apply call.
type ApplyRequest struct {
	CoverLetter string `json:"cover_letter,omitempty"`
}

type Course struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Provider   string     `json:"provider"`
	Progress   float64    `json:"progress"`
	Completed  bool       `json:"completed"`
	EnrolledAt *time.Time `json:"enrolled_at"`
}
