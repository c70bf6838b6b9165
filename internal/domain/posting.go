package domain

import "time"

// Posting is a normalized job posting from any source. The loader maps
// these fields onto the warehouse columns.
type Posting struct {
	ExternalID  string     `json:"external_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Company     string     `json:"company"`
	Location    Location   `json:"location"`
	ContractRaw string     `json:"contract_type_raw"`
	ContractStd Contract   `json:"contract_type_std"`
	Salary      Salary     `json:"salary"`
	Experience  Experience `json:"experience"`
	Keywords    []string   `json:"keywords"`
	Flags       TechFlags  `json:"flags"`
	Source      string     `json:"source"`
	URL         string     `json:"url,omitempty"`

	// Source timestamps
	CreatedAt time.Time `json:"date_creation"`      // When the posting was published on the source
	UpdatedAt time.Time `json:"date_actualisation"` // When the posting was last refreshed on the source

	CollectedAt time.Time `json:"collected_at"` // Timestamp of this pipeline run
}

// Location is the structured form of a raw free-text or nested location
// field. Label keeps the flat display form the source provided.
type Location struct {
	Label      string `json:"label,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Department string `json:"department,omitempty"`
	Region     string `json:"region,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Salary is a parsed compensation range. Zero Min/Max means the bound was
// not stated; the loader persists zero bounds as NULL.
type Salary struct {
	Min      float64      `json:"min,omitempty"`
	Max      float64      `json:"max,omitempty"`
	Currency string       `json:"currency,omitempty"`
	Period   SalaryPeriod `json:"period,omitempty"`
}

// Experience is a parsed experience requirement. Zero years means the bound
// was not stated.
type Experience struct {
	MinYears int             `json:"min_years,omitempty"`
	MaxYears int             `json:"max_years,omitempty"`
	Level    ExperienceLevel `json:"level"`
}

// TechFlags marks the presence of a fixed set of high-interest technologies,
// derived from the keyword set.
type TechFlags struct {
	Python          bool `json:"has_python"`
	Java            bool `json:"has_java"`
	JavaScript      bool `json:"has_javascript"`
	SQL             bool `json:"has_sql"`
	AWS             bool `json:"has_aws"`
	MachineLearning bool `json:"has_machine_learning"`
}

// Contract is the standardized contract type.
type Contract string

const (
	ContractCDI            Contract = "CDI"
	ContractCDD            Contract = "CDD"
	ContractInternship     Contract = "INTERNSHIP"
	ContractApprenticeship Contract = "APPRENTICESHIP"
	ContractFreelance      Contract = "FREELANCE"
	ContractInterim        Contract = "INTERIM"
	ContractFullTime       Contract = "FULL_TIME"
	ContractPartTime       Contract = "PART_TIME"
	ContractOther          Contract = "OTHER"
)

// SalaryPeriod is the periodicity a salary range refers to.
type SalaryPeriod string

const (
	PeriodHourly     SalaryPeriod = "HOURLY"
	PeriodDaily      SalaryPeriod = "DAILY"
	PeriodWeekly     SalaryPeriod = "WEEKLY"
	PeriodMonthly    SalaryPeriod = "MONTHLY"
	PeriodYearly     SalaryPeriod = "YEARLY"
	PeriodNegotiable SalaryPeriod = "NEGOTIABLE"
)

// ExperienceLevel is the standardized experience band.
type ExperienceLevel string

const (
	LevelEntry        ExperienceLevel = "ENTRY"
	LevelMid          ExperienceLevel = "MID"
	LevelSenior       ExperienceLevel = "SENIOR"
	LevelExpert       ExperienceLevel = "EXPERT"
	LevelNotSpecified ExperienceLevel = "NOT_SPECIFIED"
)

// Source identifies a job posting source.
type Source string

const (
	SourceFranceTravail Source = "france_travail"
	SourceWelcomeJungle Source = "welcome_jungle"
)
