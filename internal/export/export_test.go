package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/Dan9191/issue-tracker/internal/models"
	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIssues() []models.Issue {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return []models.Issue{
		{
			ID:          "a1",
			Title:       `Quote "this", please`,
			Description: "line one\nline two",
			Status:      models.StatusOpen,
			Priority:    models.PriorityHigh,
			Severity:    models.SeverityCritical,
			CreatedAt:   at,
			UpdatedAt:   at.Add(time.Hour),
			UserID:      "u1",
			User:        &models.User{ID: "u1", Email: "owner@example.com", Name: "Owner & Co"},
		},
		{
			ID:          "b2",
			Title:       "Plain",
			Description: "nothing special",
			Status:      models.StatusClosed,
			Priority:    models.PriorityLow,
			Severity:    models.SeverityMinor,
			CreatedAt:   at,
			UpdatedAt:   at,
			UserID:      "u2",
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "CSV": FormatCSV, " xml ": FormatXML, "json": FormatJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)

	assert.Equal(t, "issues.csv", FormatCSV.Filename())
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
	assert.Equal(t, "application/json", FormatJSON.ContentType())
}

func TestCSVQuoting(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, sampleIssues()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{
		"a1", `Quote "this", please`, "line one\nline two", "OPEN", "HIGH", "CRITICAL",
		"2025-01-02T03:04:05Z", "2025-01-02T04:04:05Z",
	}, records[1])
}

func TestJSONShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleIssues()))
	assert.Contains(t, buf.String(), "\n  {\n    \"id\": \"a1\"")

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "HIGH", decoded[0]["priority"])
	assert.Equal(t, "2025-01-02T03:04:05Z", decoded[0]["createdAt"])

	buf.Reset()
	require.NoError(t, JSON(&buf, nil))
	assert.JSONEq(t, "[]", buf.String())
}

func TestXMLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXML, sampleIssues()))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(buf.Bytes()))

	root := doc.SelectElement("issues")
	require.NotNil(t, root)
	assert.Equal(t, "2", root.SelectAttrValue("count", ""))

	items := root.SelectElements("issue")
	require.Len(t, items, 2)
	assert.Equal(t, "a1", items[0].SelectAttrValue("id", ""))
	assert.Equal(t, `Quote "this", please`, items[0].SelectElement("title").Text())
	assert.Equal(t, "CRITICAL", items[0].SelectElement("severity").Text())

	owner := items[0].SelectElement("owner")
	assert.Equal(t, "owner@example.com", owner.SelectAttrValue("email", ""))
	assert.Equal(t, "Owner & Co", owner.Text())

	assert.Equal(t, "u2", items[1].SelectElement("owner").SelectAttrValue("id", ""))
	assert.Len(t, doc.FindElements("//issue[status='CLOSED']"), 1)
}
