package service

import (
	"context"

	"github.com/Dan9191/issue-tracker/internal/models"
)

// RemindStaleIssues emails each owner a digest of their open issues untouched for
// longer than the stale threshold. It returns how many owners were emailed.
func (s *Service) RemindStaleIssues(ctx context.Context) (int, error) {
	if s.notifier == nil {
		return 0, nil
	}

	stale, err := s.store.FindStaleIssues(ctx, s.now().Add(-s.staleAfter))
	if err != nil {
		return 0, err
	}

	var order []string
	byOwner := make(map[string][]int)
	for i, issue := range stale {
		if _, seen := byOwner[issue.UserID]; !seen {
			order = append(order, issue.UserID)
		}
		byOwner[issue.UserID] = append(byOwner[issue.UserID], i)
	}

	sent := 0
	for _, ownerID := range order {
		idx := byOwner[ownerID]
		owner := stale[idx[0]].User
		if owner == nil || owner.Email == "" {
			s.log.Warnf("Skipping stale reminder: owner %s not loaded", ownerID)
			continue
		}
		issues := make([]models.Issue, 0, len(idx))
		for _, i := range idx {
			issues = append(issues, stale[i])
		}
		if err := s.notifier.NotifyStaleIssues(owner, issues); err != nil {
			s.log.Errorf("Failed to send stale reminder to %s: %v", owner.Email, err)
			continue
		}
		sent++
	}

	s.log.Infof("Stale issue reminders sent: %d owners, %d issues", sent, len(stale))
	return sent, nil
}
