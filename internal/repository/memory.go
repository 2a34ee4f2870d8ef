package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dan9191/issue-tracker/internal/models"
	"github.com/google/uuid"
)

// MemoryStore keeps users and issues in process memory. It backs STORAGE_DRIVER=memory
// for local runs and demos; data is lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]models.User
	issues map[string]models.Issue
	seq    map[string]int64
	next   int64
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]models.User),
		issues: make(map[string]models.Issue),
		seq:    make(map[string]int64),
		now:    time.Now,
	}
}

func (m *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) CreateIssue(_ context.Context, issue *models.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[issue.UserID]; !ok {
		return ErrNotFound
	}
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	now := m.now()
	issue.CreatedAt = now
	issue.UpdatedAt = now
	stored := *issue
	stored.User = nil
	m.issues[issue.ID] = stored
	m.next++
	m.seq[issue.ID] = m.next
	return nil
}

func (m *MemoryStore) FindIssueByID(_ context.Context, id string) (*models.Issue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	issue, ok := m.issues[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := m.withOwner(issue)
	return &out, nil
}

func (m *MemoryStore) ListIssues(_ context.Context, f models.IssueFilter) ([]models.Issue, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	matched := make([]models.Issue, 0, len(m.issues))
	for _, issue := range m.issues {
		if f.Status != "" && issue.Status != f.Status {
			continue
		}
		if f.Priority != "" && issue.Priority != f.Priority {
			continue
		}
		if f.Severity != "" && issue.Severity != f.Severity {
			continue
		}
		if f.UserID != "" && issue.UserID != f.UserID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(issue.Title), search) &&
			!strings.Contains(strings.ToLower(issue.Description), search) {
			continue
		}
		matched = append(matched, m.withOwner(issue))
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return m.seq[a.ID] > m.seq[b.ID]
	})

	total := int64(len(matched))
	if f.Paginated() {
		start := f.Offset()
		if start > len(matched) {
			start = len(matched)
		}
		end := start + f.Limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (m *MemoryStore) UpdateIssue(_ context.Context, issue *models.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.issues[issue.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Title = issue.Title
	stored.Description = issue.Description
	stored.Status = issue.Status
	stored.Priority = issue.Priority
	stored.Severity = issue.Severity
	stored.UpdatedAt = m.now()
	issue.UpdatedAt = stored.UpdatedAt
	m.issues[issue.ID] = stored
	return nil
}

func (m *MemoryStore) DeleteIssue(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.issues[id]; !ok {
		return ErrNotFound
	}
	delete(m.issues, id)
	delete(m.seq, id)
	return nil
}

func (m *MemoryStore) IssueStats(_ context.Context, userID string) (*models.IssueStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := models.NewIssueStats()
	for _, issue := range m.issues {
		if userID != "" && issue.UserID != userID {
			continue
		}
		stats.Total++
		stats.ByStatus[issue.Status]++
		stats.ByPriority[issue.Priority]++
		stats.BySeverity[issue.Severity]++
	}
	return stats, nil
}

func (m *MemoryStore) FindStaleIssues(_ context.Context, before time.Time) ([]models.Issue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stale []models.Issue
	for _, issue := range m.issues {
		if issue.Open() && issue.UpdatedAt.Before(before) {
			stale = append(stale, m.withOwner(issue))
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].UpdatedAt.Before(stale[j].UpdatedAt)
	})
	return stale, nil
}

// withOwner attaches a copy of the owner without the password hash. Caller holds the lock.
func (m *MemoryStore) withOwner(issue models.Issue) models.Issue {
	if u, ok := m.users[issue.UserID]; ok {
		issue.User = &models.User{ID: u.ID, Email: u.Email, Name: u.Name}
	}
	return issue
}
