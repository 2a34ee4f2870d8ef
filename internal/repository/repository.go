package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/issue-tracker/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint would be violated
	ErrDuplicate = errors.New("duplicate record")
)

// Postgres SQLSTATE codes.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Repository provides database operations
type Repository struct {
	db *gorm.DB
}

// NewRepository initializes a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the users and issues tables
func (r *Repository) Migrate() error {
	if err := r.db.AutoMigrate(&models.User{}, &models.Issue{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// FindUserByID retrieves a user by id
func (r *Repository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// CreateIssue inserts a new issue
func (r *Repository) CreateIssue(ctx context.Context, issue *models.Issue) error {
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(issue).Error; err != nil {
		// the owner was deleted between token issue and insert
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to create issue: %w", err)
	}
	return nil
}

// FindIssueByID retrieves an issue with its owner
func (r *Repository) FindIssueByID(ctx context.Context, id string) (*models.Issue, error) {
	if _, err := uuid.Parse(id); err != nil {
		// Postgres rejects malformed uuids with a type error; treat them as absent.
		return nil, ErrNotFound
	}
	var issue models.Issue
	err := r.db.WithContext(ctx).Preload("User", selectOwner).First(&issue, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find issue: %w", err)
	}
	return &issue, nil
}

// ListIssues returns issues matching the filter, newest first, and the total match count
func (r *Repository) ListIssues(ctx context.Context, f models.IssueFilter) ([]models.Issue, int64, error) {
	q := applyFilter(r.db.WithContext(ctx).Model(&models.Issue{}), f).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count issues: %w", err)
	}

	issues := make([]models.Issue, 0)
	if err := pageQuery(q.Preload("User", selectOwner), f).Find(&issues).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list issues: %w", err)
	}
	return issues, total, nil
}

// UpdateIssue persists the editable columns of an issue
func (r *Repository) UpdateIssue(ctx context.Context, issue *models.Issue) error {
	issue.UpdatedAt = time.Now()
	res := updateQuery(r.db.WithContext(ctx), issue)
	if res.Error != nil {
		return fmt.Errorf("failed to update issue: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteIssue removes an issue by id
func (r *Repository) DeleteIssue(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Issue{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete issue: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type groupCount struct {
	Key   string
	Count int64
}

// IssueStats counts issues by status, priority and severity. An empty userID counts all issues.
func (r *Repository) IssueStats(ctx context.Context, userID string) (*models.IssueStats, error) {
	stats := models.NewIssueStats()
	for _, col := range []string{"status", "priority", "severity"} {
		var rows []groupCount
		if err := statsQuery(r.db.WithContext(ctx), col, userID).Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to count issues by %s: %w", col, err)
		}
		for _, row := range rows {
			switch col {
			case "status":
				stats.ByStatus[models.Status(row.Key)] = row.Count
				stats.Total += row.Count
			case "priority":
				stats.ByPriority[models.Priority(row.Key)] = row.Count
			case "severity":
				stats.BySeverity[models.Severity(row.Key)] = row.Count
			}
		}
	}
	return stats, nil
}

// FindStaleIssues returns open or in-progress issues last updated before the cutoff, with owners
func (r *Repository) FindStaleIssues(ctx context.Context, before time.Time) ([]models.Issue, error) {
	var issues []models.Issue
	err := staleQuery(r.db.WithContext(ctx).Preload("User", selectOwner), before).Find(&issues).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find stale issues: %w", err)
	}
	return issues, nil
}

// applyFilter adds the WHERE predicate for an issue listing
func applyFilter(q *gorm.DB, f models.IssueFilter) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.Severity != "" {
		q = q.Where("severity = ?", f.Severity)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		q = q.Where("(title ILIKE ? OR description ILIKE ?)", pattern, pattern)
	}
	return q
}

// pageQuery orders a listing newest first and applies the page window
func pageQuery(q *gorm.DB, f models.IssueFilter) *gorm.DB {
	q = q.Order("created_at DESC")
	if f.Paginated() {
		q = q.Limit(f.Limit).Offset(f.Offset())
	}
	return q
}

// statsQuery counts issues grouped by one column
func statsQuery(db *gorm.DB, col, userID string) *gorm.DB {
	q := db.Model(&models.Issue{})
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	return q.Select(col + " AS key, COUNT(*) AS count").Group(col)
}

// updateQuery writes only the editable columns; owner and creation time never change
func updateQuery(db *gorm.DB, issue *models.Issue) *gorm.DB {
	return db.Model(issue).
		Select("title", "description", "status", "priority", "severity", "updated_at").
		Updates(issue)
}

func staleQuery(q *gorm.DB, before time.Time) *gorm.DB {
	return q.Where("status IN ? AND updated_at < ?", []models.Status{models.StatusOpen, models.StatusInProgress}, before).
		Order("updated_at ASC")
}

// selectOwner keeps the password hash out of preloaded owners
func selectOwner(db *gorm.DB) *gorm.DB {
	return db.Select("id", "email", "name")
}

// escapeLike escapes LIKE metacharacters using Postgres' default backslash escape
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func isUniqueViolation(err error) bool {
	return pqCode(err) == uniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pqCode(err) == foreignKeyViolation
}

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}
