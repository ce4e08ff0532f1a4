package scraper

// MaxRawText bounds the raw-text fallback captured from the page body, in
// runes. The normalizer rejects anything longer.
const MaxRawText = 15000

// Source is the literal discriminator the normalization API requires on
// every payload.
const Source = "linkedin"

// Experience is one work-experience entry. All fields are best-effort.
type Experience struct {
	Position       string `json:"position,omitempty"`
	Company        string `json:"company,omitempty"`
	EmploymentType string `json:"employment_type,omitempty"`
	DateRange      string `json:"date_range,omitempty"`
	Location       string `json:"location,omitempty"`
	Description    string `json:"description,omitempty"`
}

// Education is one education entry.
type Education struct {
	School      string `json:"school,omitempty"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field_of_study,omitempty"`
	DateRange   string `json:"date_range,omitempty"`
	Description string `json:"description,omitempty"`
}

// Project is one project entry.
type Project struct {
	Name        string `json:"name,omitempty"`
	DateRange   string `json:"date_range,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Payload is the raw extraction result handed to the normalization API.
// Every list field is always a non-nil slice so consumers never branch on
// presence.
type Payload struct {
	Source         string       `json:"source"`
	ProfileURL     string       `json:"profile_url,omitempty"`
	FirstName      string       `json:"first_name,omitempty"`
	LastName       string       `json:"last_name,omitempty"`
	Headline       string       `json:"headline,omitempty"`
	Location       string       `json:"location,omitempty"`
	About          string       `json:"about,omitempty"`
	ContactLinks   []string     `json:"contact_links"`
	WorkExperience []Experience `json:"work_experience"`
	Education      []Education  `json:"education"`
	Projects       []Project    `json:"projects"`
	Skills         []string     `json:"skills"`
	RawText        string       `json:"raw_text"`
}

// NewPayload returns a payload with every list initialized empty.
func NewPayload() *Payload {
	return &Payload{
		Source:         Source,
		ContactLinks:   []string{},
		WorkExperience: []Experience{},
		Education:      []Education{},
		Projects:       []Project{},
		Skills:         []string{},
	}
}
