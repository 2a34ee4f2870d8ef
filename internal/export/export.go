package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/issue-tracker/internal/models"
	"github.com/beevik/etree"
)

// Format is an export file format
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXML  Format = "xml"
)

var csvHeader = []string{"ID", "Title", "Description", "Status", "Priority", "Severity", "Created At", "Updated At"}

// ParseFormat accepts json, csv or xml in any case. Empty means json.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatXML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXML:
		return "application/xml; charset=utf-8"
	default:
		return "application/json"
	}
}

// Filename returns the attachment name for the format
func (f Format) Filename() string {
	return "issues." + string(f)
}

// Write renders issues in the given format
func Write(w io.Writer, f Format, issues []models.Issue) error {
	switch f {
	case FormatCSV:
		return CSV(w, issues)
	case FormatXML:
		return XML(w, issues)
	default:
		return JSON(w, issues)
	}
}

// JSON writes issues as an indented array
func JSON(w io.Writer, issues []models.Issue) error {
	if issues == nil {
		issues = []models.Issue{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(issues); err != nil {
		return fmt.Errorf("failed to encode issues: %w", err)
	}
	return nil
}

// CSV writes a header row followed by one row per issue
func CSV(w io.Writer, issues []models.Issue) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, issue := range issues {
		row := []string{
			issue.ID,
			issue.Title,
			issue.Description,
			string(issue.Status),
			string(issue.Priority),
			string(issue.Severity),
			issue.CreatedAt.UTC().Format(time.RFC3339),
			issue.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// XML writes <issues count="n"><issue id="...">...</issue></issues>
func XML(w io.Writer, issues []models.Issue) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("issues")
	root.CreateAttr("count", strconv.Itoa(len(issues)))
	for _, issue := range issues {
		el := root.CreateElement("issue")
		el.CreateAttr("id", issue.ID)
		el.CreateElement("title").SetText(issue.Title)
		el.CreateElement("description").SetText(issue.Description)
		el.CreateElement("status").SetText(string(issue.Status))
		el.CreateElement("priority").SetText(string(issue.Priority))
		el.CreateElement("severity").SetText(string(issue.Severity))
		el.CreateElement("createdAt").SetText(issue.CreatedAt.UTC().Format(time.RFC3339))
		el.CreateElement("updatedAt").SetText(issue.UpdatedAt.UTC().Format(time.RFC3339))

		owner := el.CreateElement("owner")
		owner.CreateAttr("id", issue.UserID)
		if issue.User != nil {
			owner.CreateAttr("email", issue.User.Email)
			owner.SetText(issue.User.Name)
		}
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xml: %w", err)
	}
	return nil
}
