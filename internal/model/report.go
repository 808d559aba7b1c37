package model

// DayCount is one row of the per-day prescription report.
type DayCount struct {
	Day   Date  `db:"day"`
	Count int64 `db:"prescription_count"`
}

type DayWiseCountResponse struct {
	Day               string `json:"day"`
	PrescriptionCount int64  `json:"prescriptionCount"`
}
