// README: Vehicle store backed by PostgreSQL.
package fleet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"foodfast/internal/types"
)

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

const vehicleColumns = `
	id, name, model, availability, charge_level, branch_id,
	assigned_order, lat, lng, created_at, updated_at`

func (s *PgStore) Create(ctx context.Context, v *Vehicle) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO vehicles (
			id, name, model, availability, charge_level, branch_id,
			lat, lng, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		string(v.ID), v.Name, v.Model, string(v.Availability), v.ChargeLevel,
		string(v.BranchID), v.Location.Lat, v.Location.Lng, v.CreatedAt, v.UpdatedAt,
	)
	return err
}

func (s *PgStore) Get(ctx context.Context, id types.ID) (*Vehicle, error) {
	row := s.db.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, string(id))
	v, err := scanVehicle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *PgStore) List(ctx context.Context, branchID types.ID) ([]*Vehicle, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+vehicleColumns+`
		FROM vehicles
		WHERE ($1 = '' OR branch_id = $1)
		ORDER BY created_at, id`,
		string(branchID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PgStore) Update(ctx context.Context, id types.ID, p Patch) (*Vehicle, error) {
	var availability *string
	if p.Availability != nil {
		a := string(*p.Availability)
		availability = &a
	}
	var branch *string
	if p.BranchID != nil {
		b := string(*p.BranchID)
		branch = &b
	}
	var lat, lng *float64
	if p.Location != nil {
		lat, lng = &p.Location.Lat, &p.Location.Lng
	}
	row := s.db.QueryRow(ctx, `
		UPDATE vehicles
		SET name = COALESCE($1, name),
		    model = COALESCE($2, model),
		    availability = COALESCE($3, availability),
		    assigned_order = CASE
		        WHEN $3 IS NOT NULL AND $3 != 'delivering' THEN NULL
		        ELSE assigned_order
		    END,
		    charge_level = LEAST(100, GREATEST(0, COALESCE($4, charge_level))),
		    branch_id = COALESCE($5, branch_id),
		    lat = COALESCE($6, lat),
		    lng = COALESCE($7, lng),
		    updated_at = NOW()
		WHERE id = $8
		RETURNING `+vehicleColumns,
		p.Name, p.Model, availability, p.ChargeLevel, branch, lat, lng, string(id),
	)
	v, err := scanVehicle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *PgStore) Delete(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Claim reserves the first qualifying idle vehicle in one statement; SKIP
// LOCKED keeps concurrent dispatches from fighting over the same row.
func (s *PgStore) Claim(ctx context.Context, branchID, orderID types.ID, minCharge int) (*Vehicle, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE vehicles
		SET availability = 'delivering',
		    assigned_order = $1,
		    updated_at = NOW()
		WHERE id = (
			SELECT id FROM vehicles
			WHERE branch_id = $2 AND availability = 'idle' AND charge_level > $3
			ORDER BY created_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+vehicleColumns,
		string(orderID), string(branchID), minCharge,
	)
	v, err := scanVehicle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoVehicleAvailable
	}
	return v, err
}

func (s *PgStore) Release(ctx context.Context, id types.ID, chargeCost int) (*Vehicle, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE vehicles
		SET availability = 'idle',
		    assigned_order = NULL,
		    charge_level = GREATEST(0, charge_level - $1),
		    updated_at = NOW()
		WHERE id = $2
		RETURNING `+vehicleColumns,
		chargeCost, string(id),
	)
	v, err := scanVehicle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row rowScanner) (*Vehicle, error) {
	var v Vehicle
	var assigned sql.NullString
	err := row.Scan(
		&v.ID, &v.Name, &v.Model, &v.Availability, &v.ChargeLevel, &v.BranchID,
		&assigned, &v.Location.Lat, &v.Location.Lng, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if assigned.Valid {
		id := types.ID(assigned.String)
		v.AssignedOrder = &id
	}
	return &v, nil
}
