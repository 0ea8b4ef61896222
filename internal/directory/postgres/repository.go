// Package postgres provides the PostgreSQL implementation of the
// directory repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rosterhub/roster/internal/directory"
	"github.com/rosterhub/roster/internal/domain"
)

// Repository implements directory.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL directory repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const profileColumns = `
	photo_path, signature_path, military_id, rank, first_name, last_name,
	nickname, corps, position, unit, birth_date, retirement_year,
	phone1, phone2, email, line_id, status, children_male, children_female,
	house_no, soi, road, subdistrict, district, province, zip_code
`

// CreateProfile inserts a profile. The store assigns id and updated_at.
func (r *Repository) CreateProfile(ctx context.Context, p *domain.Profile) error {
	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
		RETURNING id, updated_at
	`
	err := r.db.QueryRow(ctx, query, profileArgs(p)...).Scan(&p.ID, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// UpdateProfile replaces all mutable fields of a profile and refreshes
// updated_at. The whole record is written in one statement.
func (r *Repository) UpdateProfile(ctx context.Context, p *domain.Profile) error {
	query := `
		UPDATE profiles SET
			photo_path = $2, signature_path = $3, military_id = $4, rank = $5,
			first_name = $6, last_name = $7, nickname = $8, corps = $9,
			position = $10, unit = $11, birth_date = $12, retirement_year = $13,
			phone1 = $14, phone2 = $15, email = $16, line_id = $17, status = $18,
			children_male = $19, children_female = $20, house_no = $21, soi = $22,
			road = $23, subdistrict = $24, district = $25, province = $26,
			zip_code = $27, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	args := append([]any{p.ID}, profileArgs(p)...)
	err := r.db.QueryRow(ctx, query, args...).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return directory.ErrProfileNotFound
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// DeleteProfile removes a profile by id.
func (r *Repository) DeleteProfile(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return directory.ErrProfileNotFound
	}
	return nil
}

// ListProfiles returns all profiles ordered by ascending id.
func (r *Repository) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	query := `
		SELECT id, ` + profileColumns + `, updated_at
		FROM profiles
		ORDER BY id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]domain.Profile, 0)
	for rows.Next() {
		var p domain.Profile
		err := rows.Scan(
			&p.ID,
			&p.PhotoPath,
			&p.SignaturePath,
			&p.MilitaryID,
			&p.Rank,
			&p.FirstName,
			&p.LastName,
			&p.Nickname,
			&p.Corps,
			&p.Position,
			&p.Unit,
			&p.BirthDate,
			&p.RetirementYear,
			&p.Phone1,
			&p.Phone2,
			&p.Email,
			&p.LineID,
			&p.Status,
			&p.ChildrenMale,
			&p.ChildrenFemale,
			&p.HouseNo,
			&p.Soi,
			&p.Road,
			&p.Subdistrict,
			&p.District,
			&p.Province,
			&p.ZipCode,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}

	return profiles, nil
}

func profileArgs(p *domain.Profile) []any {
	return []any{
		p.PhotoPath,
		p.SignaturePath,
		p.MilitaryID,
		p.Rank,
		p.FirstName,
		p.LastName,
		p.Nickname,
		p.Corps,
		p.Position,
		p.Unit,
		p.BirthDate,
		p.RetirementYear,
		p.Phone1,
		p.Phone2,
		p.Email,
		p.LineID,
		p.Status,
		p.ChildrenMale,
		p.ChildrenFemale,
		p.HouseNo,
		p.Soi,
		p.Road,
		p.Subdistrict,
		p.District,
		p.Province,
		p.ZipCode,
	}
}
