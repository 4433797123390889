package models

import "time"

// LabRecord is one lab check-in/check-out entry registered at the front desk.
type LabRecord struct {
	ID               string    `db:"id" json:"id"`
	RegisteredAt     time.Time `db:"registered_at" json:"registered_at"`
	LabID            string    `db:"lab_id" json:"lab_id"`
	InstructorName   string    `db:"instructor_name" json:"instructor_name"`
	Email            string    `db:"email" json:"email"`
	Program          string    `db:"program" json:"program"`
	CheckIn          string    `db:"check_in" json:"check_in"`
	CheckOut         string    `db:"check_out" json:"check_out"`
	Observation      string    `db:"observation" json:"observation"`
	IncidentResponse *string   `db:"incident_response" json:"incident_response,omitempty"`
}

// Response returns the incident response or an empty string when unset.
func (r LabRecord) Response() string {
	if r.IncidentResponse == nil {
		return ""
	}
	return *r.IncidentResponse
}

// DateRange bounds registered_at as From <= t < To.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// RecordFilter captures criteria for listing lab records.
type RecordFilter struct {
	Range       *DateRange
	NewestFirst bool
}
