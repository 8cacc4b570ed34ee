package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/mapper"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const shareColumns = `id, location_id, share_token, access_level, name, created_by, created_at, expires_at`

// ShareRepository implements domain.ShareRepository on PostgreSQL. Rows
// are removed with their location by the foreign key cascade.
type ShareRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

func NewShareRepository(db *sql.DB, log *logger.Logger) *ShareRepository {
	return &ShareRepository{db: db, logger: log.Named("PostgresShareRepository")}
}

func (r *ShareRepository) Create(ctx context.Context, link *domain.ShareLink) error {
	row := mapper.FromShareLink(link)
	query := `INSERT INTO location_shares (` + shareColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		row.ID, row.LocationID, row.ShareToken, row.AccessLevel, row.Name, row.CreatedBy, row.CreatedAt, row.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			r.logger.Warn("Duplicate share token or id", zap.String("share_id", link.ID))
			return fmt.Errorf("%w: share token already in use", domain.ErrInvalidInput)
		}
		r.logger.Error("Failed to insert share link", zap.Error(err))
		return remote("insert share", err)
	}
	return nil
}

func (r *ShareRepository) FindByToken(ctx context.Context, locationID, token string) (*domain.ShareLink, error) {
	if _, err := uuid.Parse(locationID); err != nil {
		return nil, domain.ErrShareNotFound
	}
	return r.findOne(ctx, `SELECT `+shareColumns+` FROM location_shares WHERE location_id=$1 AND share_token=$2`, locationID, token)
}

func (r *ShareRepository) FindByID(ctx context.Context, id string) (*domain.ShareLink, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrShareNotFound
	}
	return r.findOne(ctx, `SELECT `+shareColumns+` FROM location_shares WHERE id=$1`, id)
}

func (r *ShareRepository) findOne(ctx context.Context, query string, args ...any) (*domain.ShareLink, error) {
	link, err := scanShare(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrShareNotFound
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			return nil, err
		}
		r.logger.Error("Failed to get share link", zap.Error(err))
		return nil, remote("get share", err)
	}
	return link, nil
}

func (r *ShareRepository) ListByLocation(ctx context.Context, locationID string) ([]*domain.ShareLink, error) {
	if _, err := uuid.Parse(locationID); err != nil {
		return []*domain.ShareLink{}, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+shareColumns+` FROM location_shares WHERE location_id=$1 ORDER BY created_at DESC`, locationID)
	if err != nil {
		r.logger.Error("Failed to list share links", zap.String("location_id", locationID), zap.Error(err))
		return nil, remote("list shares", err)
	}
	defer rows.Close()

	out := []*domain.ShareLink{}
	for rows.Next() {
		link, err := scanShare(rows)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidInput) {
				r.logger.Warn("Skipping malformed share row", zap.Error(err))
				continue
			}
			return nil, remote("scan share", err)
		}
		out = append(out, link)
	}
	if err := rows.Err(); err != nil {
		return nil, remote("iterate shares", err)
	}
	return out, nil
}

func (r *ShareRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrShareNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM location_shares WHERE id=$1`, id)
	if err != nil {
		r.logger.Error("Failed to delete share link", zap.String("share_id", id), zap.Error(err))
		return remote("delete share", err)
	}
	return expectOne(res, domain.ErrShareNotFound)
}

func (r *ShareRepository) DeleteByLocation(ctx context.Context, locationID string) (int64, error) {
	if _, err := uuid.Parse(locationID); err != nil {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM location_shares WHERE location_id=$1`, locationID)
	if err != nil {
		return 0, remote("delete shares", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, remote("rows affected", err)
	}
	return n, nil
}

func scanShare(s rowScanner) (*domain.ShareLink, error) {
	var row mapper.ShareRow
	if err := s.Scan(&row.ID, &row.LocationID, &row.ShareToken, &row.AccessLevel,
		&row.Name, &row.CreatedBy, &row.CreatedAt, &row.ExpiresAt); err != nil {
		return nil, err
	}
	return mapper.ToShareLink(row)
}
