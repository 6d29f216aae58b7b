package models

import "time"

type ListingKind string

const (
	KindJob        ListingKind = "job"
	KindInternship ListingKind = "internship"
)

// Path returns the REST collection segment of the kind.
func (k ListingKind) Path() string {
	if k == KindInternship {
		return "internships"
	}
	return "jobs"
}

func (k ListingKind) Valid() bool {
	return k == KindJob || k == KindInternship
}

const (
	StatusActive = "active"
	StatusClosed = "closed"
	StatusDraft  = "draft"
)

type Company struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Listing is a job or internship posting as returned by the portal API.
type Listing struct {
	ID             int64       `json:"id"`
	Kind           ListingKind `json:"kind"`
	Title          string      `json:"title"`
	Company        Company     `json:"company"`
	SalaryMin      *float64    `json:"salary_min"`
	SalaryMax      *float64    `json:"salary_max"`
	Currency       string      `json:"currency"`
	JobType        string      `json:"job_type"`
	WorkMode       string      `json:"work_mode"`
	Skills         []string    `json:"skills"`
	Location       string      `json:"location"`
	IsPaid         bool        `json:"is_paid"`
	DurationMonths *int        `json:"duration_months"`
	Description    string      `json:"description,omitempty"`
	CreatedAt      *time.Time  `json:"created_at"`
	Status         string      `json:"status"`
}

// Salary returns the number a range filter compares against: the lower
// bound when present, otherwise the upper one.
func (l Listing) Salary() (float64, bool) {
	switch {
	case l.SalaryMin != nil:
		return *l.SalaryMin, true
	case l.SalaryMax != nil:
		return *l.SalaryMax, true
	default:
		return 0, false
	}
}

func (l Listing) Duration() (float64, bool) {
	if l.DurationMonths == nil {
		return 0, false
	}
	return float64(*l.DurationMonths), true
}

// ListingStatusPatch is the body of an employer status update.
type ListingStatusPatch struct {
	Status string `json:"status"`
}

func IsValidListingStatus(s string) bool {
	switch s {
	case StatusActive, StatusClosed, StatusDraft:
		return true
	}
	return false
}
