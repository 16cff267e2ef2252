package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"kickride/internal/domain"
	"kickride/internal/repository"
)

const activeRideConstraint = "rides_one_active_per_user"

const rideColumns = `ride_id, user_id, kickboard_code, coupon_id, photo, is_locked, is_lights_on, max_speed, price, properties, created_at, updated_at, ended_at`

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	db *sql.DB
	q  Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{db: db, q: db}
}

var _ repository.RideRepository = (*RideRepository)(nil)

// Create persists a new ride and its first location in one transaction.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride, first *domain.Location) error {
	return r.inTx(ctx, nil, func(q Querier) error {
		props, err := ride.Properties.MarshalProperties()
		if err != nil {
			return err
		}

		_, err = q.ExecContext(ctx, `
			INSERT INTO rides (ride_id, user_id, kickboard_code, coupon_id, is_locked, is_lights_on, max_speed, properties, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		`,
			ride.ID,
			ride.UserID,
			ride.KickboardCode,
			nullString(ride.CouponID),
			ride.IsLocked,
			ride.IsLightsOn,
			nullInt(ride.MaxSpeed),
			props,
			ride.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err, activeRideConstraint) {
				return repository.ErrActiveRideExists
			}
			return err
		}
		ride.UpdatedAt = ride.CreatedAt

		if first == nil {
			return nil
		}
		return insertLocation(ctx, q, first)
	})
}

// Update applies patch to a ride and returns the stored row.
func (r *RideRepository) Update(ctx context.Context, rideID string, patch repository.RidePatch) (*domain.Ride, error) {
	sets := []string{"updated_at = $1"}
	args := []any{time.Now()}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.UserID != nil {
		set("user_id", *patch.UserID)
	}
	if patch.KickboardCode != nil {
		set("kickboard_code", *patch.KickboardCode)
	}
	if patch.SetCoupon {
		set("coupon_id", nullString(patch.CouponID))
	}
	if patch.Photo != nil {
		set("photo", *patch.Photo)
	}
	if patch.IsLocked != nil {
		set("is_locked", *patch.IsLocked)
	}
	if patch.IsLightsOn != nil {
		set("is_lights_on", *patch.IsLightsOn)
	}
	if patch.MaxSpeed != nil {
		set("max_speed", *patch.MaxSpeed)
	}
	if patch.Price != nil {
		set("price", *patch.Price)
	}
	if patch.EndedAt != nil {
		args = append(args, *patch.EndedAt)
		sets = append(sets, fmt.Sprintf("ended_at = COALESCE(ended_at, $%d)", len(args)))
	}

	args = append(args, rideID)
	query := fmt.Sprintf(`
		UPDATE rides SET %s
		WHERE ride_id = $%d AND deleted_at IS NULL
		RETURNING %s
	`, strings.Join(sets, ", "), len(args), rideColumns)

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		if isUniqueViolation(err, activeRideConstraint) {
			return nil, repository.ErrActiveRideExists
		}
		return nil, err
	}
	return ride, nil
}

// GetByID retrieves a ride by ID, optionally restricted to one user.
func (r *RideRepository) GetByID(ctx context.Context, rideID, userID string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE ride_id = $1 AND deleted_at IS NULL`
	args := []any{rideID}
	if userID != "" {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// GetCurrentByUser retrieves the newest unterminated ride of a user.
// Returns nil if no active ride exists.
func (r *RideRepository) GetCurrentByUser(ctx context.Context, userID string) (*domain.Ride, error) {
	query := `
		SELECT ` + rideColumns + ` FROM rides
		WHERE user_id = $1 AND ended_at IS NULL AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ride, nil
}

// GetByRemoteRideID retrieves a ride by its platform ride id.
func (r *RideRepository) GetByRemoteRideID(ctx context.Context, remoteRideID string) (*domain.Ride, error) {
	query := `
		SELECT ` + rideColumns + ` FROM rides
		WHERE properties -> 'openapi' ->> 'rideId' = $1 AND deleted_at IS NULL
	`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, remoteRideID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// List returns a page of rides and the total match count. Both statements
// run in one read-only REPEATABLE READ transaction so they share a snapshot.
func (r *RideRepository) List(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, int, error) {
	var (
		rides []*domain.Ride
		total int
	)

	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	err := r.inTx(ctx, opts, func(q Querier) error {
		where, args := buildRideWhere(filter)

		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM rides WHERE `+where, args...).Scan(&total); err != nil {
			return err
		}
		if filter.Take <= 0 {
			return nil
		}

		args = append(args, filter.Take, filter.Skip)
		query := fmt.Sprintf(`SELECT %s FROM rides WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
			rideColumns, where, orderClause(filter), len(args)-1, len(args))

		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			ride, err := scanRide(rows)
			if err != nil {
				return err
			}
			rides = append(rides, ride)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	if rides == nil {
		rides = []*domain.Ride{}
	}
	return rides, total, nil
}

// Count returns the number of rides matching filter.
func (r *RideRepository) Count(ctx context.Context, filter repository.RideFilter) (int, error) {
	where, args := buildRideWhere(filter)

	var total int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM rides WHERE `+where, args...).Scan(&total)
	return total, err
}

// CreateLocation appends a location sample to a ride.
func (r *RideRepository) CreateLocation(ctx context.Context, loc *domain.Location) error {
	return insertLocation(ctx, r.q, loc)
}

func insertLocation(ctx context.Context, q Querier, loc *domain.Location) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO locations (location_id, ride_id, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, loc.ID, loc.RideID, loc.Latitude, loc.Longitude, loc.CreatedAt)
	return err
}

// inTx runs fn inside a new transaction.
func (r *RideRepository) inTx(ctx context.Context, opts *sql.TxOptions, fn func(q Querier) error) (err error) {
	tx, err := r.db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// buildRideWhere turns a filter into a WHERE clause. Soft-deleted rows are
// always excluded.
func buildRideWhere(f repository.RideFilter) (string, []any) {
	conds := []string{"deleted_at IS NULL"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.CreatedFrom.IsZero() {
		conds = append(conds, "created_at >= "+arg(f.CreatedFrom))
	}
	if !f.CreatedTo.IsZero() {
		conds = append(conds, "created_at <= "+arg(f.CreatedTo))
	}
	if f.Search != "" {
		p := arg("%" + escapeLike(f.Search) + "%")
		conds = append(conds, fmt.Sprintf(
			"(kickboard_code LIKE %[1]s OR ride_id::text LIKE %[1]s OR user_id::text LIKE %[1]s OR coupon_id::text LIKE %[1]s)", p))
	}
	if f.UserID != "" {
		conds = append(conds, "user_id = "+arg(f.UserID))
	}
	if f.CouponID != "" {
		conds = append(conds, "coupon_id = "+arg(f.CouponID))
	}

	return strings.Join(conds, " AND "), args
}

func orderClause(f repository.RideFilter) string {
	column := "created_at"
	switch f.OrderBy {
	case repository.OrderByUpdatedAt:
		column = "updated_at"
	case repository.OrderByEndedAt:
		column = "ended_at"
	}

	dir := "ASC"
	if f.OrderDesc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s, ride_id %s", column, dir, dir)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var (
		ride     domain.Ride
		couponID sql.NullString
		photo    sql.NullString
		maxSpeed sql.NullInt64
		price    sql.NullInt64
		props    []byte
		endedAt  sql.NullTime
	)

	if err := row.Scan(
		&ride.ID,
		&ride.UserID,
		&ride.KickboardCode,
		&couponID,
		&photo,
		&ride.IsLocked,
		&ride.IsLightsOn,
		&maxSpeed,
		&price,
		&props,
		&ride.CreatedAt,
		&ride.UpdatedAt,
		&endedAt,
	); err != nil {
		return nil, err
	}

	if couponID.Valid {
		ride.CouponID = &couponID.String
	}
	if photo.Valid {
		ride.Photo = &photo.String
	}
	if maxSpeed.Valid {
		v := int(maxSpeed.Int64)
		ride.MaxSpeed = &v
	}
	if price.Valid {
		v := int(price.Int64)
		ride.Price = &v
	}
	if endedAt.Valid {
		ride.EndedAt = &endedAt.Time
	}

	properties, err := domain.UnmarshalProperties(props)
	if err != nil {
		return nil, fmt.Errorf("decode ride properties: %w", err)
	}
	ride.Properties = properties

	return &ride, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
