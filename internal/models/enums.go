package models

var JobTypeDisplayNames = map[string]string{
	"full_time":  "Full time",
	"part_time":  "Part time",
	"contract":   "Contract",
	"internship": "Internship",
}

var WorkModeDisplayNames = map[string]string{
	"onsite": "On-site",
	"remote": "Remote",
	"hybrid": "Hybrid",
}

var ApplicationStatusDisplayNames = map[ApplicationStatus]string{
	ApplicationApplied:     "Applied",
	ApplicationUnderReview: "Under review",
	ApplicationShortlisted: "Shortlisted",
	ApplicationRejected:    "Rejected",
	ApplicationAccepted:    "Accepted",
}

var ListingStatusDisplayNames = map[string]string{
	StatusActive: "Active",
	StatusClosed: "Closed",
	StatusDraft:  "Draft",
}

func JobTypeOptions() []string {
	return []string{"full_time", "part_time", "contract", "internship"}
}

func WorkModeOptions() []string {
	return []string{"onsite", "remote", "hybrid"}
}

func ApplicationStatusOptions() []string {
	return []string{
		string(ApplicationApplied),
		string(ApplicationUnderReview),
		string(ApplicationShortlisted),
		string(ApplicationRejected),
		string(ApplicationAccepted),
	}
}

func ListingStatusOptions() []string {
	return []string{StatusActive, StatusClosed, StatusDraft}
}

func GetJobTypeDisplayName(id string) string {
	if name, ok := JobTypeDisplayNames[id]; ok {
		return name
	}
	return id
}

func GetWorkModeDisplayName(id string) string {
	if name, ok := WorkModeDisplayNames[id]; ok {
		return name
	}
	return id
}

func GetApplicationStatusDisplayName(s ApplicationStatus) string {
	if name, ok := ApplicationStatusDisplayNames[s]; ok {
		return name
	}
	return string(s)
}

func GetListingStatusDisplayName(s string) string {
	if name, ok := ListingStatusDisplayNames[s]; ok {
		return name
	}
	return s
}

// DisplayName resolves the label of an option value of any enum field.
func DisplayName(field, value string) string {
	switch field {
	case FieldJobType:
		return GetJobTypeDisplayName(value)
	case FieldWorkMode:
		return GetWorkModeDisplayName(value)
	case FieldStatus:
		if name, ok := ApplicationStatusDisplayNames[ApplicationStatus(value)]; ok {
			return name
		}
		return GetListingStatusDisplayName(value)
	default:
		return value
	}
}
