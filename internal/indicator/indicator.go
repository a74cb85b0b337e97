package indicator

import "time"

// Indicator is a tenant-authored saved query template. FormulaSQL may contain
// the engine's placeholder tokens and must pass the read-only screen both
// when saved and when run.
type Indicator struct {
	ID                 int64     `json:"id"`
	OrganizationID     int64     `json:"organizationId"`
	Key                string    `json:"key"`
	Name               string    `json:"name"`
	Dataset            string    `json:"dataset,omitempty"`
	FormulaSQL         string    `json:"formulaSql"`
	DefaultFiltersJSON string    `json:"defaultFiltersJson,omitempty"`
	Fmt                string    `json:"fmt,omitempty"`
	Category           string    `json:"category,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}
