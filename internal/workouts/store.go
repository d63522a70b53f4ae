package workouts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/2beens/liftlog/pkg"

	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidWeight   = errors.New("weight must be greater than zero")
	ErrUnknownExercise = errors.New("unknown exercise")
	ErrEmptySelection  = errors.New("no records selected")
)

// persistedRecord is the on-disk shape of a record; the date is stored in
// the YYYY-MM-DD HH:MM:SS format also used by the CSV export.
type persistedRecord struct {
	ID       int     `json:"id"`
	Date     string  `json:"date"`
	Exercise string  `json:"exercise"`
	Weight   float64 `json:"weight"`
}

type recordsDocument struct {
	// NextID is persisted alongside the records, so that IDs stay
	// monotonically increasing across delete-then-add sequences
	NextID  int               `json:"next_id"`
	Records []persistedRecord `json:"records"`
}

// Store is the workout record store: an ordered sequence of records held in
// memory and persisted as a single JSON document, fully rewritten on every
// add / delete. A missing file means an empty store.
type Store struct {
	filePath string
	mutex    sync.RWMutex
	nextID   int
	records  []Record
}

func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		return nil, errors.New("workout records file path cannot be empty")
	}

	s := &Store{
		filePath: filePath,
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("load workout records: %w", err)
	}

	return s, nil
}

func (s *Store) load() error {
	exists, err := pkg.PathExists(s.filePath, false)
	if err != nil {
		return fmt.Errorf("check workout records file: %w", err)
	}

	if !exists {
		log.Debugf("workout records file [%s] does not exist, starting empty", s.filePath)
		s.records = []Record{}
		s.nextID = 1
		return nil
	}

	documentJson, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var document recordsDocument
	if err := json.Unmarshal(documentJson, &document); err != nil {
		return fmt.Errorf("unmarshal workout records: %w", err)
	}

	records := make([]Record, 0, len(document.Records))
	maxID := 0
	for _, pr := range document.Records {
		date, err := time.ParseInLocation(DateTimeFormat, pr.Date, time.Local)
		if err != nil {
			return fmt.Errorf("parse date of record %d: %w", pr.ID, err)
		}
		if pr.ID > maxID {
			maxID = pr.ID
		}
		records = append(records, Record{
			ID:       pr.ID,
			Date:     date,
			Exercise: pr.Exercise,
			Weight:   pr.Weight,
		})
	}

	s.records = records
	s.nextID = document.NextID
	// documents written before the counter was introduced
	if s.nextID <= maxID {
		s.nextID = maxID + 1
	}

	return nil
}

// save rewrites the whole records document; callers hold the write lock
func (s *Store) save() error {
	document := recordsDocument{
		NextID:  s.nextID,
		Records: make([]persistedRecord, 0, len(s.records)),
	}
	for _, r := range s.records {
		document.Records = append(document.Records, persistedRecord{
			ID:       r.ID,
			Date:     r.Date.Format(DateTimeFormat),
			Exercise: r.Exercise,
			Weight:   r.Weight,
		})
	}

	documentJson, err := json.Marshal(document)
	if err != nil {
		return err
	}

	dst, err := os.Create(s.filePath)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, bytes.NewReader(documentJson)); err != nil {
		return err
	}

	log.Debugf("workout records saved, %d records", len(s.records))
	return nil
}

// Add appends a new record and persists the updated document. The date is
// truncated to second resolution.
func (s *Store) Add(exercise string, weight float64, now time.Time) (*Record, error) {
	if weight <= 0 {
		return nil, ErrInvalidWeight
	}
	if !KnownExercise(exercise) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExercise, exercise)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	record := Record{
		ID:       s.nextID,
		Date:     now.Truncate(time.Second),
		Exercise: exercise,
		Weight:   weight,
	}

	s.records = append(s.records, record)
	s.nextID++

	if err := s.save(); err != nil {
		s.records = s.records[:len(s.records)-1]
		s.nextID--
		return nil, fmt.Errorf("save workout records: %w", err)
	}

	log.Debugf("new workout record added: [%d] %s %.1f", record.ID, record.Exercise, record.Weight)
	return &record, nil
}

// Delete removes all records whose ID is in the given set and persists the
// remainder. An empty selection is a reported error, not a silent no-op.
func (s *Store) Delete(ids []int) (int, error) {
	if len(ids) == 0 {
		return 0, ErrEmptySelection
	}

	toDelete := make(map[int]bool, len(ids))
	for _, id := range ids {
		toDelete[id] = true
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	remaining := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		if !toDelete[r.ID] {
			remaining = append(remaining, r)
		}
	}

	deleted := len(s.records) - len(remaining)
	if deleted == 0 {
		return 0, nil
	}

	previous := s.records
	s.records = remaining

	if err := s.save(); err != nil {
		s.records = previous
		return 0, fmt.Errorf("save workout records: %w", err)
	}

	log.Debugf("deleted %d workout records", deleted)
	return deleted, nil
}

// List returns all records in insertion order.
func (s *Store) List() []Record {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	records := make([]Record, len(s.records))
	copy(records, s.records)
	return records
}

// FilterByExercise returns all records for the given exercise, preserving
// the original order.
func (s *Store) FilterByExercise(exercise string) []Record {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	filtered := make([]Record, 0)
	for _, r := range s.records {
		if r.Exercise == exercise {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// CountForDay returns the number of records for the given exercise on the
// day of the given time.
func (s *Store) CountForDay(exercise string, day time.Time) int {
	dayStart := day.Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	count := 0
	for _, r := range s.records {
		if r.Exercise != exercise {
			continue
		}
		if !r.Date.Before(dayStart) && r.Date.Before(dayEnd) {
			count++
		}
	}
	return count
}

// Reload re-reads the records document from disk, discarding the in-memory
// state. The persisted state is the source of truth at session boundaries.
func (s *Store) Reload() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.load()
}
