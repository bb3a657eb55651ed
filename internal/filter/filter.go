// Package filter implements the pure resource filter engine shared by the
// public browse listing and the admin review queue.
package filter

import (
	"strings"

	"github.com/studyhub/studyhub-api/internal/models"
)

// Constraints narrows a resource collection. A zero-value field matches
// everything; all present constraints are ANDed together.
type Constraints struct {
	Year       string
	Department string
	Type       string
	Text       string
}

// IsZero reports whether no constraint is set.
func (c Constraints) IsZero() bool {
	return c.Year == "" && c.Department == "" && c.Type == "" && c.Text == ""
}

// Apply returns the resources matching the constraints, preserving the input
// order. Equality constraints compare exactly against canonical stored
// values; the text constraint matches case-insensitively against title OR
// description.
func Apply(resources []models.Resource, c Constraints) []models.Resource {
	if c.IsZero() {
		return resources
	}
	text := strings.ToLower(c.Text)
	out := make([]models.Resource, 0, len(resources))
	for _, r := range resources {
		if !matches(r, c, text) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matches(r models.Resource, c Constraints, loweredText string) bool {
	if c.Year != "" && r.Year != c.Year {
		return false
	}
	if c.Department != "" && r.Department != c.Department {
		return false
	}
	if c.Type != "" && r.Type != c.Type {
		return false
	}
	if loweredText != "" {
		title := strings.ToLower(r.Title)
		description := strings.ToLower(r.Description)
		if !strings.Contains(title, loweredText) && !strings.Contains(description, loweredText) {
			return false
		}
	}
	return true
}
