package models

import (
	"fmt"
	"strings"
	"time"
)

// Status is the workflow state of an issue
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusClosed     Status = "CLOSED"
)

// Priority expresses how soon an issue should be handled
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Severity expresses the impact of an issue
type Severity string

const (
	SeverityMinor    Severity = "MINOR"
	SeverityMajor    Severity = "MAJOR"
	SeverityCritical Severity = "CRITICAL"
)

var (
	Statuses   = []Status{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}
	Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
	Severities = []Severity{SeverityMinor, SeverityMajor, SeverityCritical}
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
)

// Issue represents a tracked work item
type Issue struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey"`
	Title       string    `json:"title" gorm:"size:200;not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Status      Status    `json:"status" gorm:"type:varchar(20);not null;default:OPEN;index"`
	Priority    Priority  `json:"priority" gorm:"type:varchar(20);not null;default:MEDIUM;index"`
	Severity    Severity  `json:"severity" gorm:"type:varchar(20);not null;default:MAJOR"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time `json:"updatedAt"`
	UserID      string    `json:"userId" gorm:"type:uuid;not null;index"`
	User        *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// ParseStatus accepts a status in any case. Empty input and "all" yield "" with no error.
func ParseStatus(s string) (Status, error) {
	v := normalizeEnum(s)
	if v == "" {
		return "", nil
	}
	for _, st := range Statuses {
		if Status(v) == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid status %q", s)
}

// ParsePriority accepts a priority in any case. Empty input and "all" yield "" with no error.
func ParsePriority(s string) (Priority, error) {
	v := normalizeEnum(s)
	if v == "" {
		return "", nil
	}
	for _, p := range Priorities {
		if Priority(v) == p {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid priority %q", s)
}

// ParseSeverity accepts a severity in any case. Empty input and "all" yield "" with no error.
func ParseSeverity(s string) (Severity, error) {
	v := normalizeEnum(s)
	if v == "" {
		return "", nil
	}
	for _, sv := range Severities {
		if Severity(v) == sv {
			return sv, nil
		}
	}
	return "", fmt.Errorf("invalid severity %q", s)
}

func normalizeEnum(s string) string {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "ALL" {
		return ""
	}
	return v
}

// Open reports whether the issue still needs work.
func (i *Issue) Open() bool {
	return i.Status == StatusOpen || i.Status == StatusInProgress
}

// CreateIssueRequest is the JSON body for POST /api/issues.
type CreateIssueRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Severity    string `json:"severity"`
}

// UpdateIssueRequest is the JSON body for PUT /api/issues/{id}. Nil fields are left untouched.
type UpdateIssueRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	Severity    *string `json:"severity"`
}

// IssueFilter narrows an issue listing. Zero values mean "no restriction".
type IssueFilter struct {
	Status   Status
	Priority Priority
	Severity Severity
	Search   string
	UserID   string
	Page     int
	Limit    int
}

// Paginated reports whether the filter asks for a single page.
func (f IssueFilter) Paginated() bool {
	return f.Limit > 0
}

// Offset returns the row offset for the requested page (pages start at 1).
func (f IssueFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// IssueStats holds dashboard counters
type IssueStats struct {
	Total      int64              `json:"total"`
	ByStatus   map[Status]int64   `json:"byStatus"`
	ByPriority map[Priority]int64 `json:"byPriority"`
	BySeverity map[Severity]int64 `json:"bySeverity"`
}

// NewIssueStats returns stats with every known enum value present and zeroed.
func NewIssueStats() *IssueStats {
	s := &IssueStats{
		ByStatus:   make(map[Status]int64, len(Statuses)),
		ByPriority: make(map[Priority]int64, len(Priorities)),
		BySeverity: make(map[Severity]int64, len(Severities)),
	}
	for _, st := range Statuses {
		s.ByStatus[st] = 0
	}
	for _, p := range Priorities {
		s.ByPriority[p] = 0
	}
	for _, sv := range Severities {
		s.BySeverity[sv] = 0
	}
	return s
}
