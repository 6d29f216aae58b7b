package models

type Preferences struct {
	JobTypes  []string `json:"job_types"`
	WorkMode  string   `json:"work_mode"`
	Locations []string `json:"locations"`
}

type CandidateProfile struct {
	FullName    string      `json:"full_name"`
	Bio         string      `json:"bio"`
	Skills      []string    `json:"skills"`
	Preferences Preferences `json:"preferences"`
	ResumeURL   string      `json:"resume_url,omitempty"`
}

// Missing lists the sections a candidate has to fill in before applying.
func (p CandidateProfile) Missing() []string {
	var missing []string
	if p.Bio == "" {
		missing = append(missing, "bio")
	}
	if len(p.Skills) == 0 {
		missing = append(missing, "skills")
	}
	if len(p.Preferences.JobTypes) == 0 && p.Preferences.WorkMode == "" && len(p.Preferences.Locations) == 0 {
		missing = append(missing, "preferences")
	}
	return missing
}

func (p CandidateProfile) Complete() bool {
	return len(p.Missing()) == 0
}

type EmployerProfile struct {
	CompanyName string `json:"company_name"`
	Website     string `json:"website,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Description string `json:"description,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
}

// Tokens is the access/refresh pair issued by the portal.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
}

// Dashboard aggregates the employer's jobs and internships.
type Dashboard struct {
	Jobs             []Listing
	JobsCount        int
	Internships      []Listing
	InternshipsCount int
}
