package repository

import (
	"context"
	"errors"
	"fmt"

	"compdash/internal/domain"
	"compdash/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// kindTable maps a submission kind to its table and variant columns
type kindTable struct {
	table         string
	category      string // selected as text
	categoryValue string // insert expression for the category parameter
	justification string
	content       string
}

var kindTables = map[domain.Kind]kindTable{
	domain.KindBug: {
		table:         "bugs",
		category:      "bug_number::text",
		categoryValue: "bug_number",
		justification: "''",
		content:       "screenshot_url",
	},
	domain.KindEnhancement: {
		table:         "enhancements",
		category:      "enhancement_type",
		categoryValue: "enhancement_type",
		justification: "COALESCE(justification, '')",
		content:       "screenshot_url",
	},
	domain.KindProject: {
		table:         "submissions",
		category:      "submission_type",
		categoryValue: "submission_type",
		justification: "''",
		content:       "file_url",
	},
}

func tableFor(kind domain.Kind) (kindTable, error) {
	t, ok := kindTables[kind]
	if !ok {
		return kindTable{}, fmt.Errorf("unknown submission kind %q", kind)
	}
	return t, nil
}

func (t kindTable) selectColumns() string {
	return fmt.Sprintf(`id, "teamName", author, %s, %s, COALESCE(description, ''), %s, timestamp`,
		t.category, t.justification, t.content)
}

type PostgresSubmissionRepository struct {
	db *database.PostgresDB
}

func NewSubmissionRepository(db *database.PostgresDB) *PostgresSubmissionRepository {
	return &PostgresSubmissionRepository{db: db}
}

// Create inserts the record; the database assigns the timestamp
func (r *PostgresSubmissionRepository) Create(ctx context.Context, s *domain.Submission) error {
	t, err := tableFor(s.Kind())
	if err != nil {
		return err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	var (
		query string
		args  []interface{}
	)

	switch d := s.Details.(type) {
	case domain.BugFix:
		query = fmt.Sprintf(`INSERT INTO %s (id, "teamName", author, %s, description, %s)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING timestamp`, t.table, t.categoryValue, t.content)
		args = []interface{}{s.ID, s.TeamName, s.Author, d.Number, s.Description, s.ContentURL}
	case domain.AdvancedEnhancement:
		query = fmt.Sprintf(`INSERT INTO %s (id, "teamName", author, %s, justification, description, %s)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING timestamp`, t.table, t.categoryValue, t.content)
		args = []interface{}{s.ID, s.TeamName, s.Author, d.Category(), d.Justification, s.Description, s.ContentURL}
	default:
		query = fmt.Sprintf(`INSERT INTO %s (id, "teamName", author, %s, description, %s)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6) RETURNING timestamp`, t.table, t.categoryValue, t.content)
		args = []interface{}{s.ID, s.TeamName, s.Author, d.Category(), s.Description, s.ContentURL}
	}

	if err := r.db.Pool.QueryRow(ctx, query, args...).Scan(&s.Timestamp); err != nil {
		return fmt.Errorf("failed to create %s submission: %w", s.Kind(), err)
	}

	return nil
}

// List returns the team's records of kind ordered by timestamp descending
func (r *PostgresSubmissionRepository) List(ctx context.Context, teamName string, kind domain.Kind) ([]*domain.Submission, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE "teamName" = $1 ORDER BY timestamp DESC, id`,
		t.selectColumns(), t.table)

	// Submissions are read from the primary so history reflects the caller's own writes
	rows, err := r.db.Pool.Query(ctx, query, teamName)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s submissions: %w", kind, err)
	}
	defer rows.Close()

	subs := []*domain.Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows, kind)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}

	return subs, rows.Err()
}

// Get returns nil, nil when the record does not exist
func (r *PostgresSubmissionRepository) Get(ctx context.Context, kind domain.Kind, id uuid.UUID) (*domain.Submission, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, t.selectColumns(), t.table)

	s, err := scanSubmission(r.db.Pool.QueryRow(ctx, query, id), kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (r *PostgresSubmissionRepository) Delete(ctx context.Context, kind domain.Kind, id uuid.UUID) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}

	tag, err := r.db.Pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t.table), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s submission: %w", kind, err)
	}

	return tag.RowsAffected() == 1, nil
}

func scanSubmission(row pgx.Row, kind domain.Kind) (*domain.Submission, error) {
	var (
		s                       domain.Submission
		category, justification string
	)

	err := row.Scan(&s.ID, &s.TeamName, &s.Author, &category, &justification, &s.Description, &s.ContentURL, &s.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan %s submission: %w", kind, err)
	}

	details, err := domain.NewDetails(kind, category, justification, s.ContentURL)
	if err != nil {
		return nil, fmt.Errorf("stored %s submission %s has invalid details: %w", kind, s.ID, err)
	}
	s.Details = details

	return &s, nil
}
