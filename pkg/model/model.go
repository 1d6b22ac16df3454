package model

import "time"

// Report is a complaint document in the reports collection. Only the fields
// the dashboard reads are modeled; everything else on the document is ignored.
type Report struct {
	ID        string    `json:"id,omitempty" firestore:"-" bson:"-"`
	Status    string    `json:"status,omitempty" firestore:"status,omitempty" bson:"status,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty" firestore:"createdAt,omitempty" bson:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// SatisfactionRating is a resident's 1-5 rating of how a complaint was handled.
// A complaint may be rated more than once; only the first rating counts.
type SatisfactionRating struct {
	ID          string    `json:"id,omitempty" firestore:"-" bson:"-"`
	ComplaintID string    `json:"complaintId,omitempty" firestore:"complaintId,omitempty" bson:"complaintId,omitempty"`
	Rating      int       `json:"rating,omitempty" firestore:"rating,omitempty" bson:"rating,omitempty"`
	Comment     string    `json:"comment,omitempty" firestore:"comment,omitempty" bson:"comment,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty" firestore:"createdAt,omitempty" bson:"createdAt,omitempty"`
}

// StatsSnapshot is the dashboard payload. Nil pointers serialize as null.
type StatsSnapshot struct {
	InProgress      int        `json:"inProgress"`
	Completed       int        `json:"completed"`
	CompletedChange *int       `json:"completedChange"`
	Satisfaction    *int       `json:"satisfaction"`
	LatestUpdate    *time.Time `json:"latestUpdate"`
}

// ErrorResponse is the body returned when a request cannot be served.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
