package task

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusOpen      Status = "Open"
	StatusAccepted  Status = "Accepted"
	StatusCompleted Status = "Completed"
)

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusAccepted, StatusCompleted:
		return true
	}
	return false
}

// Category groups tasks for browsing.
type Category string

const (
	CategoryCleaning Category = "Cleaning"
	CategoryErrands  Category = "Errands"
	CategoryAssembly Category = "Assembly"
	CategoryYardwork Category = "Yardwork"
	CategoryTechHelp Category = "Tech Help"
	CategoryOther    Category = "Other"

	// CategoryAll is accepted by listing filters and means "any category".
	CategoryAll Category = "All"
)

// Categories lists the selectable categories in display order.
var Categories = []Category{
	CategoryCleaning,
	CategoryErrands,
	CategoryAssembly,
	CategoryYardwork,
	CategoryTechHelp,
	CategoryOther,
}

// ParseCategory matches s case-insensitively against the catalogue.
// An empty string maps to CategoryOther.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CategoryOther, nil
	}
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

// Task is a job posted by a poster and accepted by at most one helper.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Price       string    `json:"price,omitempty"`
	Zip         string    `json:"zip"`
	Status      Status    `json:"status"`
	PostedBy    string    `json:"posted_by"`
	AcceptedBy  string    `json:"accepted_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTask holds the poster-supplied fields of a task.
type NewTask struct {
	Title       string
	Description string
	Category    string
	Price       string
	Zip         string
}

// ListFilter narrows a task listing. Zero-valued fields do not filter.
type ListFilter struct {
	Status     Status
	Zip        string
	Category   Category
	PostedBy   string
	AcceptedBy string
}

// Matches reports whether t satisfies every set field of f.
func (f ListFilter) Matches(t Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Zip != "" && t.Zip != f.Zip {
		return false
	}
	if f.Category != "" && f.Category != CategoryAll && t.Category != f.Category {
		return false
	}
	if f.PostedBy != "" && t.PostedBy != f.PostedBy {
		return false
	}
	if f.AcceptedBy != "" && t.AcceptedBy != f.AcceptedBy {
		return false
	}
	return true
}

// Newer orders tasks newest first, falling back to id for equal timestamps.
func Newer(a, b Task) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
