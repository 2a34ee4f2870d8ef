package email

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/Dan9191/issue-tracker/internal/config"
	"github.com/Dan9191/issue-tracker/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	s := &Sender{
		cfg:    cfg,
		logger: logger,
	}
	s.send = s.smtpSend
	return s
}

// NotifyStatusChange tells an issue owner that someone else moved their issue
func (s *Sender) NotifyStatusChange(owner *models.User, issue *models.Issue, previous models.Status, actor *models.User) error {
	return s.deliver(s.statusChangeEmail(owner, issue, previous, actor))
}

// NotifyStaleIssues sends an owner a digest of their issues that have gone quiet
func (s *Sender) NotifyStaleIssues(owner *models.User, issues []models.Issue) error {
	return s.deliver(s.staleIssuesEmail(owner, issues, time.Now()))
}

func (s *Sender) statusChangeEmail(owner *models.User, issue *models.Issue, previous models.Status, actor *models.User) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{owner.Email}
	e.Subject = fmt.Sprintf("[%s] %s is now %s", shortID(issue.ID), issue.Title, humanize(string(issue.Status)))

	body := fmt.Sprintf("Dear %s,\n\n", owner.Name)
	body += fmt.Sprintf(
		"%s changed the status of your issue \"%s\" from %s to %s.\n"+
			"Priority: %s\n"+
			"Severity: %s\n",
		actor.Name, issue.Title, humanize(string(previous)), humanize(string(issue.Status)),
		humanize(string(issue.Priority)), humanize(string(issue.Severity)),
	)
	body += "\nBest regards,\nIssue Tracker"
	e.Text = []byte(body)
	return e
}

func (s *Sender) staleIssuesEmail(owner *models.User, issues []models.Issue, now time.Time) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{owner.Email}
	if len(issues) == 1 {
		e.Subject = "1 issue is waiting for an update"
	} else {
		e.Subject = fmt.Sprintf("%d issues are waiting for an update", len(issues))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", owner.Name)
	b.WriteString("The following issues have not been updated for a while:\n\n")
	for _, issue := range issues {
		days := int(now.Sub(issue.UpdatedAt).Hours() / 24)
		fmt.Fprintf(&b, "  - [%s] %s (%s, %s priority, last updated %d days ago)\n",
			shortID(issue.ID), issue.Title, humanize(string(issue.Status)), humanize(string(issue.Priority)), days)
	}
	b.WriteString("\nPlease update or close them.\n\nBest regards,\nIssue Tracker")
	e.Text = []byte(b.String())
	return e
}

func (s *Sender) deliver(e *email.Email) error {
	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", strings.Join(e.To, ","), err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	s.logger.Infof("Email sent to %s: %s", strings.Join(e.To, ","), e.Subject)
	return nil
}

func (s *Sender) smtpSend(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	return e.Send(addr, auth)
}

// humanize turns IN_PROGRESS into "In progress"
func humanize(v string) string {
	if v == "" {
		return v
	}
	v = strings.ToLower(strings.ReplaceAll(v, "_", " "))
	return strings.ToUpper(v[:1]) + v[1:]
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
