package dto

// ReportFilterRequest selects the registration date range of a report.
// Dates use the YYYY-MM-DD format of HTML date inputs.
type ReportFilterRequest struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Format    string `form:"format"`
}

// HasRange reports whether both bounds were supplied.
func (r ReportFilterRequest) HasRange() bool {
	return r.StartDate != "" && r.EndDate != ""
}
