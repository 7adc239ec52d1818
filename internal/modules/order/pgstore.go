// README: Order store backed by PostgreSQL.
package order

import (
	"context"
	"database/sql"
	"encoding/json"
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

func (s *PgStore) Create(ctx context.Context, o *Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO orders (
			id, user_id, branch_id, items, address, city, phone,
			origin_lat, origin_lng, dest_lat, dest_lng,
			payment_method, note, total_amount, total_currency,
			paid, status, status_version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18, $19, $20
		)`,
		string(o.ID), string(o.UserID), string(o.BranchID), items,
		o.Shipping.Address, o.Shipping.City, o.Shipping.Phone,
		o.Origin.Lat, o.Origin.Lng, o.Destination.Lat, o.Destination.Lng,
		o.PaymentMethod, o.Note, o.TotalPrice.Amount, o.TotalPrice.Currency,
		o.Paid, string(o.Status), o.StatusVersion, o.CreatedAt, o.UpdatedAt,
	)
	return err
}

const orderColumns = `
	id, user_id, branch_id, items, address, city, phone,
	origin_lat, origin_lng, dest_lat, dest_lng,
	payment_method, note, total_amount, total_currency,
	paid, paid_at, status, status_version, vehicle_id,
	delivered_at, created_at, updated_at`

func (s *PgStore) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, string(id))
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return o, err
}

func (s *PgStore) List(ctx context.Context, f Filter) ([]*Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1 = '' OR branch_id = $1)
		  AND ($2 = '' OR user_id = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC`,
		string(f.BranchID), string(f.UserID), string(f.Status),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PgStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, vehicleID *types.ID) (bool, error) {
	var v *string
	if vehicleID != nil {
		s := string(*vehicleID)
		v = &s
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1,
		    status_version = status_version + 1,
		    vehicle_id = COALESCE($2, vehicle_id),
		    updated_at = NOW(),
		    paid = CASE WHEN $1 = 'PAID_WAITING_PROCESS' THEN TRUE ELSE paid END,
		    paid_at = CASE WHEN $1 = 'PAID_WAITING_PROCESS' THEN NOW() ELSE paid_at END,
		    delivered_at = CASE WHEN $1 = 'DELIVERED' THEN NOW() ELSE delivered_at END
		WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(to), v, string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var items []byte
	var vehicleID sql.NullString
	var paidAt, deliveredAt sql.NullTime

	err := row.Scan(
		&o.ID, &o.UserID, &o.BranchID, &items,
		&o.Shipping.Address, &o.Shipping.City, &o.Shipping.Phone,
		&o.Origin.Lat, &o.Origin.Lng, &o.Destination.Lat, &o.Destination.Lng,
		&o.PaymentMethod, &o.Note, &o.TotalPrice.Amount, &o.TotalPrice.Currency,
		&o.Paid, &paidAt, &o.Status, &o.StatusVersion, &vehicleID,
		&deliveredAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, err
		}
	}
	if vehicleID.Valid {
		v := types.ID(vehicleID.String)
		o.VehicleID = &v
	}
	if paidAt.Valid {
		t := paidAt.Time
		o.PaidAt = &t
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		o.DeliveredAt = &t
	}
	return &o, nil
}
