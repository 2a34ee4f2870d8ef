package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Dan9191/issue-tracker/internal/integrations/events"
	"github.com/Dan9191/issue-tracker/internal/models"
	"github.com/Dan9191/issue-tracker/internal/repository"
	"github.com/sirupsen/logrus"
)

// CreateIssue creates an issue owned by userID
func (s *Service) CreateIssue(ctx context.Context, userID string, req models.CreateIssueRequest) (*models.Issue, error) {
	issue := &models.Issue{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Status:      models.StatusOpen,
		Priority:    models.PriorityMedium,
		Severity:    models.SeverityMajor,
		UserID:      userID,
	}
	if err := validateText(issue.Title, issue.Description); err != nil {
		return nil, err
	}
	if err := applyEnums(issue, req.Status, req.Priority, req.Severity); err != nil {
		return nil, err
	}

	if err := s.store.CreateIssue(ctx, issue); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	created, err := s.GetIssue(ctx, issue.ID)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"issue_id": created.ID, "user_id": userID}).Info("Issue created")
	s.publish(ctx, events.IssueCreated, userID, created)
	return created, nil
}

// GetIssue returns an issue with its owner
func (s *Service) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	issue, err := s.store.FindIssueByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrIssueNotFound
	}
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// ListIssues returns one page of matching issues and the total match count
func (s *Service) ListIssues(ctx context.Context, f models.IssueFilter) ([]models.Issue, int64, error) {
	issues, total, err := s.store.ListIssues(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	if issues == nil {
		issues = []models.Issue{}
	}
	return issues, total, nil
}

// UpdateIssue applies a partial update. Any signed-in user may edit; the owner is
// emailed when someone else moves the status.
func (s *Service) UpdateIssue(ctx context.Context, actorID, id string, req models.UpdateIssueRequest) (*models.Issue, error) {
	issue, err := s.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := issue.Status

	if req.Title != nil {
		issue.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		issue.Description = strings.TrimSpace(*req.Description)
	}
	if err := validateText(issue.Title, issue.Description); err != nil {
		return nil, err
	}
	if err := applyEnums(issue, deref(req.Status), deref(req.Priority), deref(req.Severity)); err != nil {
		return nil, err
	}

	if err := s.store.UpdateIssue(ctx, issue); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrIssueNotFound
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"issue_id": issue.ID, "user_id": actorID}).Info("Issue updated")
	s.publish(ctx, events.IssueUpdated, actorID, issue)
	if issue.Status != previous && actorID != issue.UserID {
		s.notifyStatusChange(ctx, issue, previous, actorID)
	}
	return issue, nil
}

// DeleteIssue removes an issue. Only its owner may delete it.
func (s *Service) DeleteIssue(ctx context.Context, actorID, id string) error {
	issue, err := s.GetIssue(ctx, id)
	if err != nil {
		return err
	}
	if issue.UserID != actorID {
		s.log.Warnf("User %s tried to delete issue %s owned by %s", actorID, id, issue.UserID)
		return ErrForbidden
	}

	if err := s.store.DeleteIssue(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrIssueNotFound
		}
		return err
	}

	s.log.WithFields(logrus.Fields{"issue_id": id, "user_id": actorID}).Info("Issue deleted")
	s.publish(ctx, events.IssueDeleted, actorID, issue)
	return nil
}

// IssueStats returns dashboard counters. An empty userID covers every issue.
func (s *Service) IssueStats(ctx context.Context, userID string) (*models.IssueStats, error) {
	return s.store.IssueStats(ctx, userID)
}

func (s *Service) notifyStatusChange(ctx context.Context, issue *models.Issue, previous models.Status, actorID string) {
	if s.notifier == nil {
		return
	}
	owner := issue.User
	if owner == nil || owner.Email == "" {
		u, err := s.store.FindUserByID(ctx, issue.UserID)
		if err != nil {
			s.log.Errorf("Failed to load owner of issue %s: %v", issue.ID, err)
			return
		}
		owner = u
	}
	actor, err := s.store.FindUserByID(ctx, actorID)
	if err != nil {
		s.log.Errorf("Failed to load user %s: %v", actorID, err)
		return
	}
	if err := s.notifier.NotifyStatusChange(owner, issue, previous, actor); err != nil {
		s.log.Errorf("Failed to notify owner of issue %s: %v", issue.ID, err)
	}
}

func validateText(title, description string) error {
	if title == "" {
		return invalid("title is required")
	}
	if utf8.RuneCountInString(title) > models.MaxTitleLength {
		return invalid(fmt.Sprintf("title must be at most %d characters", models.MaxTitleLength))
	}
	if description == "" {
		return invalid("description is required")
	}
	if utf8.RuneCountInString(description) > models.MaxDescriptionLength {
		return invalid(fmt.Sprintf("description must be at most %d characters", models.MaxDescriptionLength))
	}
	return nil
}

// applyEnums overwrites the enum fields whose raw value is non-empty
func applyEnums(issue *models.Issue, status, priority, severity string) error {
	if strings.TrimSpace(status) != "" {
		st, err := models.ParseStatus(status)
		if err != nil || st == "" {
			return invalid(fmt.Sprintf("invalid status %q", status))
		}
		issue.Status = st
	}
	if strings.TrimSpace(priority) != "" {
		p, err := models.ParsePriority(priority)
		if err != nil || p == "" {
			return invalid(fmt.Sprintf("invalid priority %q", priority))
		}
		issue.Priority = p
	}
	if strings.TrimSpace(severity) != "" {
		sv, err := models.ParseSeverity(severity)
		if err != nil || sv == "" {
			return invalid(fmt.Sprintf("invalid severity %q", severity))
		}
		issue.Severity = sv
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
