package models

import (
	"time"

	"github.com/lib/pq"
)

// College is read-mostly reference data describing an institution.
type College struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Location    string         `db:"location" json:"location"`
	Departments pq.StringArray `db:"departments" json:"departments"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// CollegeFilter constrains college listing queries.
type CollegeFilter struct {
	Search   string
	Location string
}
