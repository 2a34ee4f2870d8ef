package service

import (
	"context"
	"errors"
	"time"

	"github.com/Dan9191/issue-tracker/internal/auth"
	"github.com/Dan9191/issue-tracker/internal/integrations/events"
	"github.com/Dan9191/issue-tracker/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrIssueNotFound      = errors.New("issue not found")
	ErrForbidden          = errors.New("only the owner can delete this issue")
)

// ValidationError reports bad client input. Handlers answer it with 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// Store is the persistence the service needs. Implemented by repository.Repository
// and repository.MemoryStore.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	CreateIssue(ctx context.Context, issue *models.Issue) error
	FindIssueByID(ctx context.Context, id string) (*models.Issue, error)
	ListIssues(ctx context.Context, f models.IssueFilter) ([]models.Issue, int64, error)
	UpdateIssue(ctx context.Context, issue *models.Issue) error
	DeleteIssue(ctx context.Context, id string) error
	IssueStats(ctx context.Context, userID string) (*models.IssueStats, error)
	FindStaleIssues(ctx context.Context, before time.Time) ([]models.Issue, error)
}

// Notifier emails issue owners
type Notifier interface {
	NotifyStatusChange(owner *models.User, issue *models.Issue, previous models.Status, actor *models.User) error
	NotifyStaleIssues(owner *models.User, issues []models.Issue) error
}

// Service handles business logic
type Service struct {
	store      Store
	tokens     *auth.TokenManager
	revoked    auth.Blacklist
	events     events.Publisher
	notifier   Notifier
	log        *logrus.Logger
	staleAfter time.Duration
	now        func() time.Time
}

// Option customizes a Service
type Option func(*Service)

// WithEvents publishes issue lifecycle events through p
func WithEvents(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithNotifier enables owner emails
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithStaleAfter sets the age at which an untouched open issue gets a reminder
func WithStaleAfter(d time.Duration) Option {
	return func(s *Service) { s.staleAfter = d }
}

// NewService initializes a new service
func NewService(store Store, tokens *auth.TokenManager, revoked auth.Blacklist, log *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		store:      store,
		tokens:     tokens,
		revoked:    revoked,
		events:     events.NopPublisher{},
		log:        log,
		staleAfter: 7 * 24 * time.Hour,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) publish(ctx context.Context, typ events.Type, actorID string, issue *models.Issue) {
	e := events.Event{
		Type:       typ,
		IssueID:    issue.ID,
		ActorID:    actorID,
		OccurredAt: s.now().UTC(),
		Issue:      issue,
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.WithFields(logrus.Fields{"event": typ, "issue_id": issue.ID}).Errorf("Failed to publish event: %v", err)
	}
}
