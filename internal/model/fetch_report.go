package model

// FetchReport summarizes one fetch-range run. Successful plus Failed
// counts the attempted tasks; a run cut short by context cancellation
// returns with fewer attempts than TotalFiles.
type FetchReport struct {
	ID         string   `json:"id"`
	TotalFiles int      `json:"total_files"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

// DateRange is an inclusive span of YYYY-MM-DD date strings.
type DateRange struct {
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
}

// Availability reports local versus remote snapshot presence for a source.
type Availability struct {
	LocalCount   int       `json:"local_count"`
	RemoteCount  int       `json:"remote_count"`
	LocalRange   DateRange `json:"local_date_range"`
	RemoteRange  DateRange `json:"remote_date_range"`
	MissingDates []string  `json:"missing_dates"`
}
