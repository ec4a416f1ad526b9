// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package ratings

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Config locates the store's files.
type Config struct {
	RatingsPath  string
	FeedbackPath string
	UsersPath    string
}

// Store is the durable rating table, feedback buffer and user metadata.
//
// mu is the process-wide data lock: rating mutation, buffer merge, user id
// allocation and (through Exclusive) model training all hold it. Readers
// use View and never block on it.
type Store struct {
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time

	mu         sync.Mutex
	base       *table
	users      *userTable
	buffer     []Rating
	bufIndex   map[pairKey]int
	pending    int
	nextUserID int
	seq        uint64

	view atomic.Pointer[View]
}

// Open loads all files. The base table and metadata must exist; a missing
// feedback file is an empty buffer. Any unreadable or corrupt file fails.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Open(cfg Config, logger zerolog.Logger) (*Store, error) {
	base, err := readBase(cfg.RatingsPath)
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}
	users, err := readUsers(cfg.UsersPath)
	if err != nil {
		return nil, fmt.Errorf("load user metadata: %w", err)
	}
	feedback, err := readFeedback(cfg.FeedbackPath)
	if err != nil {
		return nil, fmt.Errorf("load feedback: %w", err)
	}

	s := &Store{
		cfg:    cfg,
		logger: logger.With().Str("component", "ratings").Logger(),
		now:    time.Now,
		base:   newTable(base),
		users:  newUserTable(users),
	}

	// A hand-edited buffer may repeat a pair; the last row wins.
	s.bufIndex = make(map[pairKey]int, len(feedback))
	for _, r := range feedback {
		s.upsertBuffer(r)
	}
	s.pending = len(feedback)
	s.publish()
	s.nextUserID = s.View().MaxUserID() + 1

	s.logger.Info().
		Int("ratings", len(base)).
		Int("feedback", len(s.buffer)).
		Int("users", len(s.users.order)).
		Int("next_user_id", s.nextUserID).
		Msg("rating store loaded")

	return s, nil
}

// View returns the current immutable merged view.
func (s *Store) View() *View {
	return s.view.Load()
}

// publish installs a new view. Must hold mu (or be in Open).
func (s *Store) publish() {
	fb := make([]Rating, len(s.buffer))
	copy(fb, s.buffer)
	s.seq++
	s.view.Store(newView(s.seq, s.base, fb, s.users))
}

// NextUserID allocates a user id. Ids are never handed out twice.
func (s *Store) NextUserID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocUserID()
}

func (s *Store) allocUserID() int {
	id := s.nextUserID
	s.nextUserID++
	return id
}

// ReserveUserIDs ensures future ids are above maxID. Used with the user
// ids of a loaded model, which may include users no longer in the files.
func (s *Store) ReserveUserIDs(maxID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxID >= s.nextUserID {
		s.nextUserID = maxID + 1
	}
}

// CreateUser allocates an id for meta, appends it to the metadata file and
// returns the stored record.
func (s *Store) CreateUser(meta UserMeta) (UserMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta.ID = s.allocUserID()
	if meta.ZipCode == "" {
		meta.ZipCode = DefaultZipCode
	}
	if err := appendUser(s.cfg.UsersPath, meta); err != nil {
		return UserMeta{}, fmt.Errorf("append user %d: %w", meta.ID, err)
	}
	s.users = s.users.with(meta)
	s.publish()

	s.logger.Debug().Int("user_id", meta.ID).Msg("user created")
	return meta, nil
}

// Submit upserts a rating into the feedback buffer and persists the whole
// buffer before returning. Every call increments the pending count. A user
// id at or above the next allocation moves the allocator past it.
func (s *Store) Submit(userID, itemID int, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidRating, value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := Rating{UserID: userID, ItemID: itemID, Value: value}
	prev, existed := s.bufferRow(keyOf(r))
	s.upsertBuffer(r)

	if err := writeFeedback(s.cfg.FeedbackPath, s.buffer); err != nil {
		// Roll back so memory matches disk.
		if existed {
			s.upsertBuffer(prev)
		} else {
			s.removeLastBuffer()
		}
		return fmt.Errorf("persist feedback: %w", err)
	}

	s.pending++
	if userID >= s.nextUserID {
		s.nextUserID = userID + 1
	}
	s.publish()
	return nil
}

func (s *Store) bufferRow(k pairKey) (Rating, bool) {
	if i, ok := s.bufIndex[k]; ok {
		return s.buffer[i], true
	}
	return Rating{}, false
}

func (s *Store) upsertBuffer(r Rating) {
	k := keyOf(r)
	if i, ok := s.bufIndex[k]; ok {
		s.buffer[i].Value = r.Value
		return
	}
	s.bufIndex[k] = len(s.buffer)
	s.buffer = append(s.buffer, r)
}

func (s *Store) removeLastBuffer() {
	last := s.buffer[len(s.buffer)-1]
	delete(s.bufIndex, keyOf(last))
	s.buffer = s.buffer[:len(s.buffer)-1]
}

// Pending returns the number of feedback submissions since the last merge.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// ShouldRetrain merges the buffer into the base table when at least
// threshold submissions are pending, then clears the buffer and resets the
// count. It reports true exactly once per crossing; the caller is expected
// to retrain.
func (s *Store) ShouldRetrain(threshold int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending < threshold {
		return false, nil
	}
	if err := s.mergeLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// mergeLocked upserts every buffered row into the base table, rewrites the
// base file and removes the buffer file. Must hold mu.
func (s *Store) mergeLocked() error {
	merged := make([]Rating, len(s.base.rows), len(s.base.rows)+len(s.buffer))
	copy(merged, s.base.rows)

	positions := make(map[pairKey][]int, len(merged))
	for i, r := range merged {
		positions[keyOf(r)] = append(positions[keyOf(r)], i)
	}

	ts := s.now().Unix()
	for _, r := range s.buffer {
		if idx, ok := positions[keyOf(r)]; ok {
			for _, i := range idx {
				merged[i].Value = r.Value
				merged[i].Timestamp = ts
			}
			continue
		}
		positions[keyOf(r)] = []int{len(merged)}
		merged = append(merged, Rating{UserID: r.UserID, ItemID: r.ItemID, Value: r.Value, Timestamp: ts})
	}

	if err := writeBase(s.cfg.RatingsPath, merged); err != nil {
		return fmt.Errorf("rewrite base ratings: %w", err)
	}
	// Re-merging a stale buffer is an idempotent upsert, so a failed
	// removal only costs a spurious pending count after restart.
	if err := os.Remove(s.cfg.FeedbackPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Err(err).Str("path", s.cfg.FeedbackPath).Msg("failed to remove merged feedback file")
	}

	mergedRows := len(s.buffer)
	s.base = newTable(merged)
	s.buffer = nil
	s.bufIndex = make(map[pairKey]int)
	s.pending = 0
	s.publish()

	s.logger.Info().
		Int("merged", mergedRows).
		Int("ratings", len(merged)).
		Msg("feedback merged into base ratings")
	return nil
}

// Tx is the store as seen from inside Exclusive.
type Tx struct {
	s *Store
}

// View returns the merged view. It cannot change while the Tx is live.
func (tx *Tx) View() *View {
	return tx.s.View()
}

// Exclusive runs fn holding the data lock, so no feedback, merge or user
// registration interleaves with it.
func (s *Store) Exclusive(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&Tx{s: s})
}
