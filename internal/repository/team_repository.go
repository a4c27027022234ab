package repository

import (
	"context"
	"errors"
	"fmt"

	"compdash/internal/domain"
	"compdash/pkg/database"

	"github.com/jackc/pgx/v5"
)

type PostgresTeamRepository struct {
	db *database.PostgresDB
}

func NewTeamRepository(db *database.PostgresDB) *PostgresTeamRepository {
	return &PostgresTeamRepository{db: db}
}

const teamColumns = `
	"teamName",
	"teacherName", "teacherEmail",
	"teamMember1Name", "teamMember1ParentEmail",
	"teamMember2Name", "teamMember2ParentEmail",
	"teamMember3Name", "teamMember3ParentEmail",
	COALESCE("schoolName", ''), COALESCE(category, ''), COALESCE("educationLevel", ''),
	COALESCE(state, ''), COALESCE(city, ''), created_at`

// FindByMemberEmail matches email exactly against the four slot email columns
func (r *PostgresTeamRepository) FindByMemberEmail(ctx context.Context, email string) ([]domain.Team, error) {
	if email == "" {
		return nil, nil
	}

	query := `SELECT ` + teamColumns + `
		FROM teams
		WHERE "teacherEmail" = $1
		   OR "teamMember1ParentEmail" = $1
		   OR "teamMember2ParentEmail" = $1
		   OR "teamMember3ParentEmail" = $1
		ORDER BY "teamName"`

	rows, err := r.db.Read().Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	var teams []domain.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, *team)
	}

	return teams, rows.Err()
}

// GetByName returns nil, nil when no team has that name
func (r *PostgresTeamRepository) GetByName(ctx context.Context, name string) (*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE "teamName" = $1`

	team, err := scanTeam(r.db.Read().QueryRow(ctx, query, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return team, nil
}

// Upsert writes the team's slots in priority order; missing slots are stored empty
func (r *PostgresTeamRepository) Upsert(ctx context.Context, team *domain.Team) error {
	slot := func(i int) domain.MemberSlot {
		if i < len(team.Slots) {
			return team.Slots[i]
		}
		return domain.MemberSlot{}
	}

	query := `
		INSERT INTO teams (
			"teamName", "teacherName", "teacherEmail",
			"teamMember1Name", "teamMember1ParentEmail",
			"teamMember2Name", "teamMember2ParentEmail",
			"teamMember3Name", "teamMember3ParentEmail",
			"schoolName", category, "educationLevel", state, city
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9,
			NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''), NULLIF($13, ''), NULLIF($14, ''))
		ON CONFLICT ("teamName") DO UPDATE SET
			"teacherName" = EXCLUDED."teacherName",
			"teacherEmail" = EXCLUDED."teacherEmail",
			"teamMember1Name" = EXCLUDED."teamMember1Name",
			"teamMember1ParentEmail" = EXCLUDED."teamMember1ParentEmail",
			"teamMember2Name" = EXCLUDED."teamMember2Name",
			"teamMember2ParentEmail" = EXCLUDED."teamMember2ParentEmail",
			"teamMember3Name" = EXCLUDED."teamMember3Name",
			"teamMember3ParentEmail" = EXCLUDED."teamMember3ParentEmail",
			"schoolName" = EXCLUDED."schoolName",
			category = EXCLUDED.category,
			"educationLevel" = EXCLUDED."educationLevel",
			state = EXCLUDED.state,
			city = EXCLUDED.city
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		team.Name,
		slot(0).Name, slot(0).Email,
		slot(1).Name, slot(1).Email,
		slot(2).Name, slot(2).Email,
		slot(3).Name, slot(3).Email,
		team.SchoolName, team.Category, team.EducationLevel, team.State, team.City,
	).Scan(&team.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert team %q: %w", team.Name, err)
	}

	return nil
}

// SharedEmails returns every email listed on more than one team, mapped to the
// sorted names of those teams. Such emails cannot sign in to submit.
func (r *PostgresTeamRepository) SharedEmails(ctx context.Context) (map[string][]string, error) {
	rows, err := r.db.Read().Query(ctx, `
		SELECT email, array_agg(DISTINCT "teamName" ORDER BY "teamName")
		FROM team_member_emails
		GROUP BY email
		HAVING count(DISTINCT "teamName") > 1
		ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("failed to query shared emails: %w", err)
	}
	defer rows.Close()

	shared := make(map[string][]string)
	for rows.Next() {
		var email string
		var teams []string
		if err := rows.Scan(&email, &teams); err != nil {
			return nil, fmt.Errorf("failed to scan shared email: %w", err)
		}
		shared[email] = teams
	}
	return shared, rows.Err()
}

func scanTeam(row pgx.Row) (*domain.Team, error) {
	var team domain.Team
	names := make([]string, len(domain.SlotRoles))
	emails := make([]string, len(domain.SlotRoles))

	err := row.Scan(
		&team.Name,
		&names[0], &emails[0],
		&names[1], &emails[1],
		&names[2], &emails[2],
		&names[3], &emails[3],
		&team.SchoolName,
		&team.Category,
		&team.EducationLevel,
		&team.State,
		&team.City,
		&team.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	team.Slots = make([]domain.MemberSlot, len(domain.SlotRoles))
	for i, role := range domain.SlotRoles {
		team.Slots[i] = domain.MemberSlot{Role: role, Name: names[i], Email: emails[i]}
	}

	return &team, nil
}
