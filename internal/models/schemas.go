package models

import (
	"strings"

	"jobportal-bot/internal/listing"
)

// Page identifiers, also used as storage keys for saved view state.
const (
	PageJobs                = "jobs"
	PageInternships         = "internships"
	PageApplications        = "applications"
	PageCourses             = "courses"
	PageEmployerJobs        = "employer_jobs"
	PageEmployerInternships = "employer_internships"
)

const (
	FieldSearch    = "search"
	FieldJobType   = "job_type"
	FieldWorkMode  = "work_mode"
	FieldLocation  = "location"
	FieldSalary    = "salary"
	FieldSkill     = "skill"
	FieldPaid      = "paid"
	FieldStipend   = "stipend"
	FieldDuration  = "duration"
	FieldStatus    = "status"
	FieldKind      = "kind"
	FieldCompleted = "completed"
)

const (
	SortCreated  = "created"
	SortSalary   = "salary"
	SortTitle    = "title"
	SortApplied  = "applied"
	SortStatus   = "status"
	SortEnrolled = "enrolled"
	SortProgress = "progress"
)

func listingTitle(l Listing) string    { return l.Title }
func listingCompany(l Listing) string  { return l.Company.Name }
func listingLocation(l Listing) string { return l.Location }
func listingSkills(l Listing) string   { return strings.Join(l.Skills, " ") }
func listingCreated(l Listing) any     { return l.CreatedAt }

func JobsSchema(pageSize int) *listing.Schema[Listing] {
	return &listing.Schema[Listing]{
		Name: PageJobs,
		Fields: []listing.Field[Listing]{
			{
				Key:     FieldSearch,
				Label:   "Search",
				Kind:    listing.KindText,
				Strings: []func(Listing) string{listingTitle, listingCompany, listingSkills},
				Param:   "search",
			},
			{
				Key:     FieldJobType,
				Label:   "Job type",
				Kind:    listing.KindExact,
				Exact:   func(l Listing) string { return l.JobType },
				Param:   "job_type",
				Options: JobTypeOptions(),
			},
			{
				Key:     FieldWorkMode,
				Label:   "Work mode",
				Kind:    listing.KindExact,
				Exact:   func(l Listing) string { return l.WorkMode },
				Param:   "work_mode",
				Options: WorkModeOptions(),
			},
			{
				Key:     FieldLocation,
				Label:   "Location",
				Kind:    listing.KindText,
				Strings: []func(Listing) string{listingLocation},
				Param:   "location",
			},
			{
				Key:    FieldSalary,
				Label:  "Salary",
				Kind:   listing.KindRange,
				Number: Listing.Salary,
				Param:  "salary",
			},
			{
				// narrows the loaded page only
				Key:     FieldSkill,
				Label:   "Skill",
				Kind:    listing.KindText,
				Strings: []func(Listing) string{listingSkills},
			},
		},
		Sorts: []listing.SortKey[Listing]{
			{Key: SortCreated, Label: "Newest", Value: listingCreated, Param: "created_at"},
			{Key: SortSalary, Label: "Salary", Value: func(l Listing) any { return l.SalaryMin }, Param: "salary_min"},
			{Key: SortTitle, Label: "Title", Value: func(l Listing) any { return l.Title }},
		},
		DefaultSort: listing.SortState{Key: SortCreated, Direction: listing.Desc},
		PageSize:    pageSize,
	}
}

func InternshipsSchema(pageSize int) *listing.Schema[Listing] {
	return &listing.Schema[Listing]{
		Name: PageInternships,
		Fields: []listing.Field[Listing]{
			{
				Key:     FieldSearch,
				Label:   "Search",
				Kind:    listing.KindText,
				Strings: []func(Listing) string{listingTitle, listingCompany, listingSkills},
				Param:   "search",
			},
			{
				Key:     FieldWorkMode,
				Label:   "Work mode",
				Kind:    listing.KindExact,
				Exact:   func(l Listing) string { return l.WorkMode },
				Param:   "work_mode",
				Options: WorkModeOptions(),
			},
			{
				Key:     FieldLocation,
				Label:   "Location",
				Kind:    listing.KindText,
				Strings: []func(Listing) string{listingLocation},
				Param:   "location",
			},
			{
				Key:   FieldPaid,
				Label: "Paid only",
				Kind:  listing.KindBool,
				Bool:  func(l Listing) bool { return l.IsPaid },
				Param: "is_paid",
			},
			{
				Key:    FieldStipend,
				Label:  "Stipend",
				Kind:   listing.KindRange,
				Number: Listing.Salary,
				Param:  "stipend",
			},
			{
				Key:    FieldDuration,
				Label:  "Duration (months)",
				Kind:   listing.KindRange,
				Number: Listing.Duration,
			},
		},
		Sorts: []listing.SortKey[Listing]{
			{Key: SortCreated, Label: "Newest", Value: listingCreated, Param: "created_at"},
			{Key: SortSalary, Label: "Stipend", Value: func(l Listing) any { return l.SalaryMin }, Param: "stipend_min"},
			{Key: SortTitle, Label: "Title", Value: func(l Listing) any { return l.Title }},
		},
		DefaultSort: listing.SortState{Key: SortCreated, Direction: listing.Desc},
		PageSize:    pageSize,
	}
}

func ApplicationsSchema(pageSize int) *listing.Schema[Application] {
	return &listing.Schema[Application]{
		Name: PageApplications,
		Fields: []listing.Field[Application]{
			{
				Key:   FieldSearch,
				Label: "Search",
				Kind:  listing.KindText,
				Strings: []func(Application) string{
					func(a Application) string { return a.ListingTitle },
					func(a Application) string { return a.CompanyName },
				},
			},
			{
				Key:     FieldStatus,
				Label:   "Status",
				Kind:    listing.KindExact,
				Exact:   func(a Application) string { return string(a.Status) },
				Param:   "status",
				Options: ApplicationStatusOptions(),
			},
			{
				Key:     FieldKind,
				Label:   "Type",
				Kind:    listing.KindExact,
				Exact:   func(a Application) string { return string(a.ListingKind) },
				Options: []string{string(KindJob), string(KindInternship)},
			},
		},
		Sorts: []listing.SortKey[Application]{
			{Key: SortApplied, Label: "Applied", Value: func(a Application) any { return a.AppliedAt }, Param: "applied_at"},
			{Key: SortStatus, Label: "Status", Value: func(a Application) any { return string(a.Status) }},
			{Key: SortTitle, Label: "Title", Value: func(a Application) any { return a.ListingTitle }},
		},
		DefaultSort: listing.SortState{Key: SortApplied, Direction: listing.Desc},
		PageSize:    pageSize,
	}
}

func CoursesSchema(pageSize int) *listing.Schema[Course] {
	return &listing.Schema[Course]{
		Name: PageCourses,
		Fields: []listing.Field[Course]{
			{
				Key:   FieldSearch,
				Label: "Search",
				Kind:  listing.KindText,
				Strings: []func(Course) string{
					func(c Course) string { return c.Title },
					func(c Course) string { return c.Provider },
				},
			},
			{
				Key:   FieldCompleted,
				Label: "Completed only",
				Kind:  listing.KindBool,
				Bool:  func(c Course) bool { return c.Completed },
			},
		},
		Sorts: []listing.SortKey[Course]{
			{Key: SortEnrolled, Label: "Enrolled", Value: func(c Course) any { return c.EnrolledAt }},
			{Key: SortProgress, Label: "Progress", Value: func(c Course) any { return c.Progress }},
			{Key: SortTitle, Label: "Title", Value: func(c Course) any { return c.Title }},
		},
		DefaultSort: listing.SortState{Key: SortEnrolled, Direction: listing.Desc},
		PageSize:    pageSize,
	}
}

// EmployerSchema backs the employer dashboard table of one listing kind.
func EmployerSchema(kind ListingKind, pageSize int) *listing.Schema[Listing] {
	name := PageEmployerJobs
	if kind == KindInternship {
		name = PageEmployerInternships
	}
	return &listing.Schema[Listing]{
		Name: name,
		Fields: []listing.Field[Listing]{
			{
				Key:     FieldSearch,
				Label:   "Search",
				Kind:    listing.KindText,
				Strings: []func(Listing) string{listingTitle, listingLocation},
			},
			{
				Key:     FieldStatus,
				Label:   "Status",
				Kind:    listing.KindExact,
				Exact:   func(l Listing) string { return l.Status },
				Param:   "status",
				Options: ListingStatusOptions(),
			},
		},
		Sorts: []listing.SortKey[Listing]{
			{Key: SortCreated, Label: "Newest", Value: listingCreated, Param: "created_at"},
			{Key: SortTitle, Label: "Title", Value: func(l Listing) any { return l.Title }},
		},
		DefaultSort: listing.SortState{Key: SortCreated, Direction: listing.Desc},
		PageSize:    pageSize,
	}
}
