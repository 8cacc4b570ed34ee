// Package fallback keeps a local copy of locations that is served when the
// remote store is unreachable, plus a read-only demo dataset.
package fallback

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/mapper"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"go.uber.org/zap"
)

//go:embed seed/demo_locations.json
var demoSeed []byte

// DefaultMaxRecords caps the mirror when no limit is configured.
const DefaultMaxRecords = 500

// Store holds mirrored records in memory and persists them as one JSON
// file of snake_case rows. With an empty path nothing is written to disk.
//
// The mirror keeps at most maxRecords entries; the least recently mirrored
// one is evicted first. Each mutation rewrites the file, so the cap also
// bounds the cost of a write.
type Store struct {
	mu         sync.RWMutex
	path       string
	maxRecords int
	records    map[string]*domain.Location
	touched    map[string]uint64
	seq        uint64
	demo       map[string]*domain.Location
	logger     *logger.Logger
}

// NewStore opens the fallback dataset. maxRecords <= 0 selects DefaultMaxRecords.
func NewStore(path string, maxRecords int, log *logger.Logger) (*Store, error) {
	demo, err := decodeRows(demoSeed)
	if err != nil {
		return nil, fmt.Errorf("decode demo seed: %w", err)
	}

	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	s := &Store{
		path:       path,
		maxRecords: maxRecords,
		records:    make(map[string]*domain.Location),
		touched:    make(map[string]uint64),
		demo:       make(map[string]*domain.Location, len(demo)),
		logger:     log.Named("FallbackStore"),
	}
	for _, d := range demo {
		d.IsDemo = true
		s.demo[d.ID] = d
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read fallback file %s: %w", path, err)
		case len(data) > 0:
			locs, err := decodeRows(data)
			if err != nil {
				// a corrupt local copy must not stop the service
				s.logger.Warn("ignoring unreadable fallback file", zap.String("path", path), zap.Error(err))
				break
			}
			// oldest first, so that the most recently updated survive the cap
			sort.SliceStable(locs, func(i, j int) bool { return locs[i].UpdatedAt.Before(locs[j].UpdatedAt) })
			for _, l := range locs {
				if _, isDemo := s.demo[l.ID]; !isDemo {
					s.putLocked(l)
				}
			}
			s.evictLocked()
		}
	}

	s.logger.Info("fallback dataset loaded",
		zap.String("path", path), zap.Int("records", len(s.records)), zap.Int("demo_records", len(s.demo)))
	return s, nil
}

// All returns demo and mirrored records, newest first.
func (s *Store) All(_ context.Context) ([]*domain.Location, error) {
	s.mu.RLock()
	out := make([]*domain.Location, 0, len(s.demo)+len(s.records))
	for _, l := range s.demo {
		out = append(out, l.Clone())
	}
	for _, l := range s.records {
		out = append(out, l.Clone())
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) FindByID(_ context.Context, id string) (*domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.demo[id]; ok {
		return l.Clone(), nil
	}
	if l, ok := s.records[id]; ok {
		return l.Clone(), nil
	}
	return nil, domain.ErrNotFound
}

func (s *Store) Upsert(_ context.Context, loc *domain.Location) error {
	if loc == nil || loc.ID == "" {
		return fmt.Errorf("%w: fallback record needs an id", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.demo[loc.ID]; ok {
		return domain.ErrDemoReadOnly
	}
	prev, had := s.records[loc.ID]
	prevSeq := s.touched[loc.ID]
	s.putLocked(loc.Clone())
	evicted := s.evictLocked()
	if err := s.flushLocked(); err != nil {
		for id, l := range evicted {
			s.records[id] = l.loc
			s.touched[id] = l.seq
		}
		if had {
			s.records[loc.ID] = prev
			s.touched[loc.ID] = prevSeq
		} else {
			delete(s.records, loc.ID)
			delete(s.touched, loc.ID)
		}
		return err
	}
	if len(evicted) > 0 {
		s.logger.Debug("evicted mirrored records", zap.Int("count", len(evicted)), zap.Int("max_records", s.maxRecords))
	}
	return nil
}

type evictedRecord struct {
	loc *domain.Location
	seq uint64
}

func (s *Store) putLocked(loc *domain.Location) {
	s.seq++
	s.records[loc.ID] = loc
	s.touched[loc.ID] = s.seq
}

// evictLocked drops the least recently mirrored records above the cap.
func (s *Store) evictLocked() map[string]evictedRecord {
	var evicted map[string]evictedRecord
	for len(s.records) > s.maxRecords {
		oldest, oldestSeq := "", uint64(0)
		for id, seq := range s.touched {
			if oldest == "" || seq < oldestSeq {
				oldest, oldestSeq = id, seq
			}
		}
		if evicted == nil {
			evicted = make(map[string]evictedRecord)
		}
		evicted[oldest] = evictedRecord{loc: s.records[oldest], seq: oldestSeq}
		delete(s.records, oldest)
		delete(s.touched, oldest)
	}
	return evicted
}

func (s *Store) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.demo[id]; ok {
		return domain.ErrDemoReadOnly
	}
	prev, ok := s.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	prevSeq := s.touched[id]
	delete(s.records, id)
	delete(s.touched, id)
	if err := s.flushLocked(); err != nil {
		s.records[id] = prev
		s.touched[id] = prevSeq
		return err
	}
	return nil
}

// flushLocked writes every mirrored record to a temp file and renames it
// over the target.
func (s *Store) flushLocked() error {
	if s.path == "" {
		return nil
	}
	rows := make([]mapper.LocationRow, 0, len(s.records))
	for _, l := range s.records {
		rows = append(rows, mapper.FromLocation(l))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fallback rows: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create fallback dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".fallback-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace fallback file: %w", err)
	}
	return nil
}

func decodeRows(data []byte) ([]*domain.Location, error) {
	var rows []mapper.LocationRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	out := make([]*domain.Location, 0, len(rows))
	for _, row := range rows {
		l, err := mapper.ToLocation(row)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}
