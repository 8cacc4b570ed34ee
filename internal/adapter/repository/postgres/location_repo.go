package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/mapper"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const locationColumns = `id, owner_id, title, description, address, price_per_hour, area,
	images, amenities, rules, latitude, longitude, features, minimum_booking_hours,
	status, is_demo, created_at, updated_at`

// LocationRepository implements domain.LocationRepository on PostgreSQL.
type LocationRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

func NewLocationRepository(db *sql.DB, log *logger.Logger) *LocationRepository {
	return &LocationRepository{db: db, logger: log.Named("PostgresLocationRepository")}
}

func (r *LocationRepository) Create(ctx context.Context, loc *domain.Location) error {
	id := uuid.NewString()
	row := mapper.FromLocation(loc)
	row.ID = id
	features, err := encodeFeatures(row.Features)
	if err != nil {
		return err
	}

	query := `INSERT INTO locations (` + locationColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err = r.db.ExecContext(ctx, query,
		row.ID, row.OwnerID, row.Title, row.Description, row.Address, row.PricePerHour, row.Area,
		pq.Array(row.Images), pq.Array(row.Amenities), pq.Array(row.Rules),
		row.Latitude, row.Longitude, features, row.MinimumBookingHours,
		row.Status, row.IsDemo, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert location", zap.Error(err))
		return remote("insert location", err)
	}
	loc.ID = id
	return nil
}

// Update rewrites every mutable column. owner_id, is_demo and created_at are fixed.
func (r *LocationRepository) Update(ctx context.Context, loc *domain.Location) error {
	if _, err := uuid.Parse(loc.ID); err != nil {
		return domain.ErrNotFound
	}
	row := mapper.FromLocation(loc)
	features, err := encodeFeatures(row.Features)
	if err != nil {
		return err
	}

	query := `UPDATE locations SET
				title=$2, description=$3, address=$4, price_per_hour=$5, area=$6,
				images=$7, amenities=$8, rules=$9, latitude=$10, longitude=$11,
				features=$12, minimum_booking_hours=$13, status=$14, updated_at=$15
			  WHERE id=$1`
	res, err := r.db.ExecContext(ctx, query,
		row.ID, row.Title, row.Description, row.Address, row.PricePerHour, row.Area,
		pq.Array(row.Images), pq.Array(row.Amenities), pq.Array(row.Rules),
		row.Latitude, row.Longitude, features, row.MinimumBookingHours, row.Status, row.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update location", zap.String("location_id", loc.ID), zap.Error(err))
		return remote("update location", err)
	}
	return expectOne(res, domain.ErrNotFound)
}

func (r *LocationRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM locations WHERE id=$1`, id)
	if err != nil {
		r.logger.Error("Failed to delete location", zap.String("location_id", id), zap.Error(err))
		return remote("delete location", err)
	}
	return expectOne(res, domain.ErrNotFound)
}

func (r *LocationRepository) FindByID(ctx context.Context, id string) (*domain.Location, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+locationColumns+` FROM locations WHERE id=$1`, id)
	loc, err := scanLocation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			return nil, err
		}
		r.logger.Error("Failed to get location", zap.String("location_id", id), zap.Error(err))
		return nil, remote("get location", err)
	}
	return loc, nil
}

func (r *LocationRepository) FindByFilter(ctx context.Context, filter domain.Filter) ([]*domain.Location, error) {
	where, args := buildFilterClause(filter)
	query := `SELECT ` + locationColumns + ` FROM locations` + where + ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list locations", zap.Error(err))
		return nil, remote("list locations", err)
	}
	defer rows.Close()

	var out []*domain.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidInput) {
				r.logger.Warn("Skipping malformed location row", zap.Error(err))
				continue
			}
			return nil, remote("scan location", err)
		}
		out = append(out, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, remote("iterate locations", err)
	}
	return out, nil
}

// buildFilterClause returns a WHERE clause with positional arguments.
func buildFilterClause(f domain.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.MinPrice > 0 {
		conds = append(conds, "price_per_hour >= "+arg(f.MinPrice))
	}
	if f.MaxPrice > 0 {
		conds = append(conds, "price_per_hour <= "+arg(f.MaxPrice))
	}
	if f.MinArea > 0 {
		conds = append(conds, "area >= "+arg(f.MinArea))
	}
	if f.MaxArea > 0 {
		conds = append(conds, "area <= "+arg(f.MaxArea))
	}
	if f.OwnerID != "" {
		conds = append(conds, "owner_id = "+arg(f.OwnerID))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		byStatus := "status = ANY(" + arg(pq.Array(statuses)) + ")"
		if f.VisibleTo != "" {
			byStatus = "(" + byStatus + " OR owner_id = " + arg(f.VisibleTo) + ")"
		}
		conds = append(conds, byStatus)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(s rowScanner) (*domain.Location, error) {
	var (
		row      mapper.LocationRow
		features []byte
	)
	err := s.Scan(
		&row.ID, &row.OwnerID, &row.Title, &row.Description, &row.Address, &row.PricePerHour, &row.Area,
		pq.Array(&row.Images), pq.Array(&row.Amenities), pq.Array(&row.Rules),
		&row.Latitude, &row.Longitude, &features, &row.MinimumBookingHours,
		&row.Status, &row.IsDemo, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(features) > 0 {
		var fr mapper.FeaturesRow
		if err := json.Unmarshal(features, &fr); err != nil {
			return nil, fmt.Errorf("%w: location %s has malformed features: %v", domain.ErrInvalidInput, row.ID, err)
		}
		row.Features = &fr
	}
	return mapper.ToLocation(row)
}

// encodeFeatures returns the JSONB parameter as text; lib/pq would send
// []byte as bytea.
func encodeFeatures(f *mapper.FeaturesRow) (any, error) {
	if f == nil {
		return nil, nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}
	return string(b), nil
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return remote("rows affected", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
