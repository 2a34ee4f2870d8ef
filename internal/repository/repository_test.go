package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/issue-tracker/internal/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dryRunDB builds a gorm handle that renders SQL without touching a server.
// sql.Open is lazy, so no connection is attempted.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	sqlDB, err := sql.Open("postgres", "host=127.0.0.1 port=1 sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func TestApplyFilterBuildsPredicate(t *testing.T) {
	db := dryRunDB(t)

	f := models.IssueFilter{
		Status:   models.StatusOpen,
		Priority: models.PriorityHigh,
		UserID:   "0b6f5c1e-1111-4a4a-9c9c-000000000001",
		Search:   "50%_off",
	}
	stmt := applyFilter(db.Model(&models.Issue{}), f).Find(&[]models.Issue{}).Statement
	query := stmt.SQL.String()

	assert.Contains(t, query, `FROM "issues"`)
	assert.Contains(t, query, "status = $")
	assert.Contains(t, query, "priority = $")
	assert.Contains(t, query, "user_id = $")
	assert.Contains(t, query, "title ILIKE $")
	assert.Contains(t, query, "description ILIKE $")
	assert.NotContains(t, query, "severity = $")

	assert.Contains(t, stmt.Vars, models.StatusOpen)
	assert.Contains(t, stmt.Vars, models.PriorityHigh)
	assert.Contains(t, stmt.Vars, `%50\%\_off%`)
}

func TestApplyFilterEmptyHasNoWhere(t *testing.T) {
	db := dryRunDB(t)

	stmt := applyFilter(db.Model(&models.Issue{}), models.IssueFilter{Search: "   "}).Find(&[]models.Issue{}).Statement
	assert.NotContains(t, stmt.SQL.String(), "WHERE")
	assert.Empty(t, stmt.Vars)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "plain", escapeLike("plain"))
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(ErrNotFound))
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, isForeignKeyViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23503"})))
	assert.False(t, isForeignKeyViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isForeignKeyViolation(ErrDuplicate))
}

func TestStatsQueryGroupsByColumn(t *testing.T) {
	db := dryRunDB(t)

	stmt := statsQuery(db, "priority", "0b6f5c1e-1111-4a4a-9c9c-000000000001").Find(&[]groupCount{}).Statement
	query := stmt.SQL.String()

	assert.Contains(t, query, "SELECT priority AS key, COUNT(*) AS count")
	assert.Contains(t, query, `FROM "issues"`)
	assert.Contains(t, query, "user_id = $1")
	assert.Contains(t, query, "GROUP BY")
	assert.Contains(t, query, "priority")
	assert.Equal(t, []any{"0b6f5c1e-1111-4a4a-9c9c-000000000001"}, stmt.Vars)
}

func TestStatsQueryWithoutOwnerCountsAll(t *testing.T) {
	db := dryRunDB(t)

	stmt := statsQuery(db, "status", "").Find(&[]groupCount{}).Statement
	assert.NotContains(t, stmt.SQL.String(), "WHERE")
	assert.Contains(t, stmt.SQL.String(), "GROUP BY")
}

func TestPageQueryOrdersAndPaginates(t *testing.T) {
	db := dryRunDB(t)

	f := models.IssueFilter{Status: models.StatusOpen, Page: 3, Limit: 20}
	stmt := pageQuery(applyFilter(db.Model(&models.Issue{}), f), f).Find(&[]models.Issue{}).Statement
	query := stmt.SQL.String()

	assert.Contains(t, query, "status = $1")
	assert.Contains(t, query, "ORDER BY created_at DESC")
	assert.Contains(t, query, "LIMIT")
	assert.Contains(t, query, "OFFSET")
	// offset is either inlined or bound depending on the gorm version
	assert.True(t, containsVarOrText(stmt, query, 40), "offset 40 missing from %q %v", query, stmt.Vars)
}

func TestPageQueryUnpaginated(t *testing.T) {
	db := dryRunDB(t)

	stmt := pageQuery(db.Model(&models.Issue{}), models.IssueFilter{}).Find(&[]models.Issue{}).Statement
	query := stmt.SQL.String()
	assert.Contains(t, query, "ORDER BY created_at DESC")
	assert.NotContains(t, query, "LIMIT")
	assert.NotContains(t, query, "OFFSET")
}

func TestUpdateQueryTouchesEditableColumnsOnly(t *testing.T) {
	db := dryRunDB(t)

	issue := &models.Issue{
		ID:        "0b6f5c1e-2222-4a4a-9c9c-000000000002",
		Title:     "Renamed",
		Status:    models.StatusResolved,
		Priority:  models.PriorityLow,
		Severity:  models.SeverityMinor,
		UserID:    "0b6f5c1e-1111-4a4a-9c9c-000000000001",
		UpdatedAt: time.Now(),
	}
	res := updateQuery(db, issue)
	require.NoError(t, res.Error)
	query := res.Statement.SQL.String()

	assert.Contains(t, query, `UPDATE "issues" SET`)
	for _, col := range []string{"title", "description", "status", "priority", "severity", "updated_at"} {
		assert.Contains(t, query, `"`+col+`"=`)
	}
	assert.NotContains(t, query, `"user_id"`)
	assert.NotContains(t, query, `"created_at"`)
	assert.Contains(t, query, `"id" = $`)
	assert.Contains(t, res.Statement.Vars, issue.ID)
}

func TestStaleQuerySelectsActiveIssuesBeforeCutoff(t *testing.T) {
	db := dryRunDB(t)

	cutoff := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	stmt := staleQuery(db.Model(&models.Issue{}), cutoff).Find(&[]models.Issue{}).Statement
	query := stmt.SQL.String()

	assert.Contains(t, query, "status IN ($1,$2)")
	assert.Contains(t, query, "updated_at < $3")
	assert.Contains(t, query, "ORDER BY updated_at ASC")
	assert.Contains(t, stmt.Vars, models.StatusOpen)
	assert.Contains(t, stmt.Vars, models.StatusInProgress)
	assert.NotContains(t, stmt.Vars, models.StatusClosed)
}

func containsVarOrText(stmt *gorm.Statement, query string, n int) bool {
	for _, v := range stmt.Vars {
		if fmt.Sprint(v) == fmt.Sprint(n) {
			return true
		}
	}
	return strings.Contains(query, fmt.Sprint(n))
}
