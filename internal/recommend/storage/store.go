// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinerec/internal/recommend/features"
	"github.com/tomtom215/cinerec/internal/recommend/knn"
	"github.com/tomtom215/cinerec/internal/recommend/snapshot"
)

var (
	// ErrNoSnapshot means no complete snapshot is stored for the requested
	// version.
	ErrNoSnapshot = errors.New("storage: no trained model snapshot")

	// ErrChecksum means a stored blob does not match its checksum.
	ErrChecksum = errors.New("storage: blob checksum mismatch")
)

// Blob names, one per snapshot component.
const (
	BlobUserIDs      = "user_ids"
	BlobItemIDs      = "item_ids"
	BlobItemFactors  = "item_factors"
	BlobUserProfiles = "user_profiles"
	BlobNNModel      = "nn_model"
	BlobGlobalMean   = "global_mean"
	BlobEncoder      = "encoder"
	BlobManifest     = "manifest"
)

// Blobs lists every blob a complete snapshot has.
var Blobs = []string{
	BlobUserIDs,
	BlobItemIDs,
	BlobItemFactors,
	BlobUserProfiles,
	BlobNNModel,
	BlobGlobalMean,
	BlobEncoder,
	BlobManifest,
}

const (
	keyPrefix = "model:"
	latestKey = keyPrefix + "latest"
)

// Manifest describes a stored snapshot.
type Manifest struct {
	Version    int64             `json:"version"`
	TrainedAt  time.Time         `json:"trained_at"`
	SavedAt    time.Time         `json:"saved_at"`
	LatentDim  int               `json:"latent_dim"`
	ProfileDim int               `json:"profile_dim"`
	Users      int               `json:"users"`
	Items      int               `json:"items"`
	Neighbors  int               `json:"neighbors"`
	GlobalMean float64           `json:"global_mean"`
	SizeBytes  int64             `json:"size_bytes"`
	Checksums  map[string]string `json:"checksums"`
}

// Options configures the store.
type Options struct {
	// Dir is the Badger directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps everything in memory. Used by tests.
	InMemory bool

	// RetainVersions is how many versions Save keeps. 0 keeps all.
	RetainVersions int
}

// Store persists snapshots in BadgerDB.
type Store struct {
	db     *badger.DB
	retain int
	logger zerolog.Logger
	now    func() time.Time
}

// Open opens (or creates) the Badger database.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Open(opts Options, logger zerolog.Logger) (*Store, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Dir == "" {
			return nil, errors.New("storage: directory is required")
		}
		if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create model directory: %w", err)
		}
		bopts = badger.DefaultOptions(opts.Dir)
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", opts.Dir, err)
	}

	return &Store{
		db:     db,
		retain: opts.RetainVersions,
		logger: logger.With().Str("component", "model-storage").Logger(),
		now:    time.Now,
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes every component of snap and moves the latest pointer to its
// version, all in one transaction. Older versions beyond RetainVersions
// are pruned afterwards; a prune failure is logged, not returned.
func (s *Store) Save(ctx context.Context, snap *snapshot.Snapshot) (*Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := snap.Parts()

	blobs := make(map[string][]byte, len(Blobs))
	manifest := &Manifest{
		Version:    p.Version,
		TrainedAt:  p.TrainedAt,
		SavedAt:    s.now(),
		LatentDim:  p.LatentDim,
		ProfileDim: snap.Dim(),
		Users:      len(p.UserIDs),
		Items:      len(p.ItemIDs),
		Neighbors:  p.Index.K(),
		GlobalMean: p.GlobalMean,
		Checksums:  make(map[string]string, len(Blobs)),
	}

	components := []struct {
		name  string
		value any
	}{
		{BlobUserIDs, p.UserIDs},
		{BlobItemIDs, p.ItemIDs},
		{BlobItemFactors, p.ItemFactors},
		{BlobUserProfiles, p.Profiles},
		{BlobNNModel, p.Index.State()},
		{BlobGlobalMean, p.GlobalMean},
		{BlobEncoder, p.Encoder},
	}
	for _, c := range components {
		raw, err := gobEncode(c.value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.name, err)
		}
		sealed, sum, err := seal(raw)
		if err != nil {
			return nil, fmt.Errorf("compress %s: %w", c.name, err)
		}
		blobs[c.name] = sealed
		manifest.Checksums[c.name] = sum
		manifest.SizeBytes += int64(len(sealed))
	}

	raw, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	sealed, _, err := seal(raw)
	if err != nil {
		return nil, fmt.Errorf("compress manifest: %w", err)
	}
	blobs[BlobManifest] = sealed

	err = s.db.Update(func(txn *badger.Txn) error {
		for name, data := range blobs {
			if err := txn.Set(blobKey(p.Version, name), data); err != nil {
				return fmt.Errorf("set %s: %w", name, err)
			}
		}
		return txn.Set([]byte(latestKey), encodeVersion(p.Version))
	})
	if err != nil {
		return nil, fmt.Errorf("write snapshot v%d: %w", p.Version, err)
	}

	s.logger.Info().
		Int64("version", p.Version).
		Int64("size_bytes", manifest.SizeBytes).
		Msg("snapshot saved")

	if s.retain > 0 {
		if err := s.Prune(ctx, s.retain); err != nil {
			s.logger.Warn().Err(err).Msg("failed to prune old snapshots")
		}
	}
	return manifest, nil
}

// Load reads and reassembles a snapshot. version 0 loads the latest.
func (s *Store) Load(ctx context.Context, version int64) (*snapshot.Snapshot, *Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	raw := make(map[string][]byte, len(Blobs))
	err := s.db.View(func(txn *badger.Txn) error {
		if version == 0 {
			v, err := latestVersion(txn)
			if err != nil {
				return err
			}
			version = v
		}
		for _, name := range Blobs {
			item, err := txn.Get(blobKey(version, name))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: v%d is missing %s", ErrNoSnapshot, version, name)
			}
			if err != nil {
				return fmt.Errorf("get %s: %w", name, err)
			}
			data, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}
			raw[name] = data
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	manifestRaw, err := unseal(raw[BlobManifest])
	if err != nil {
		return nil, nil, fmt.Errorf("decompress manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(manifestRaw, &manifest); err != nil {
		return nil, nil, fmt.Errorf("decode manifest: %w", err)
	}

	var (
		userIDs, itemIDs      []int
		itemFactors, profiles [][]float64
		state                 knn.State
		globalMean            float64
		encoder               features.Encoder
	)
	targets := []struct {
		name   string
		target any
	}{
		{BlobUserIDs, &userIDs},
		{BlobItemIDs, &itemIDs},
		{BlobItemFactors, &itemFactors},
		{BlobUserProfiles, &profiles},
		{BlobNNModel, &state},
		{BlobGlobalMean, &globalMean},
		{BlobEncoder, &encoder},
	}
	for _, t := range targets {
		data, err := unseal(raw[t.name])
		if err != nil {
			return nil, nil, fmt.Errorf("decompress %s: %w", t.name, err)
		}
		if got, want := checksum(data), manifest.Checksums[t.name]; got != want {
			return nil, nil, fmt.Errorf("%w: %s expected %s, got %s", ErrChecksum, t.name, want, got)
		}
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(t.target); err != nil {
			return nil, nil, fmt.Errorf("decode %s: %w", t.name, err)
		}
	}

	index, err := knn.Restore(profiles, state)
	if err != nil {
		return nil, nil, fmt.Errorf("restore similarity index: %w", err)
	}
	snap, err := snapshot.New(snapshot.Parts{
		Version:     manifest.Version,
		TrainedAt:   manifest.TrainedAt,
		LatentDim:   manifest.LatentDim,
		UserIDs:     userIDs,
		ItemIDs:     itemIDs,
		ItemFactors: itemFactors,
		Profiles:    profiles,
		Index:       index,
		GlobalMean:  globalMean,
		Encoder:     &encoder,
	})
	if err != nil {
		return nil, nil, err
	}
	return snap, &manifest, nil
}

// LatestVersion returns the version the latest pointer refers to.
func (s *Store) LatestVersion(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var version int64
	err := s.db.View(func(txn *badger.Txn) error {
		v, err := latestVersion(txn)
		version = v
		return err
	})
	return version, err
}

// Versions lists stored versions, ascending. Incomplete versions are
// included; Load decides completeness.
func (s *Store) Versions(ctx context.Context) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{})
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix + "v")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if v, ok := parseBlobKey(it.Item().Key()); ok {
				seen[v] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}

	versions := make([]int64, 0, len(seen))
	for v := range seen {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

// Prune deletes all but the newest keep versions. The version the latest
// pointer refers to is never deleted.
func (s *Store) Prune(ctx context.Context, keep int) error {
	if keep < 1 {
		keep = 1
	}
	versions, err := s.Versions(ctx)
	if err != nil {
		return err
	}
	if len(versions) <= keep {
		return nil
	}
	latest, err := s.LatestVersion(ctx)
	if err != nil && !errors.Is(err, ErrNoSnapshot) {
		return err
	}

	stale := versions[:len(versions)-keep]
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, v := range stale {
			if v == latest {
				continue
			}
			for _, name := range Blobs {
				if err := txn.Delete(blobKey(v, name)); err != nil {
					return fmt.Errorf("delete v%d %s: %w", v, name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}

	s.logger.Debug().Int("pruned", len(stale)).Int("kept", keep).Msg("old snapshots pruned")
	return nil
}

func latestVersion(txn *badger.Txn) (int64, error) {
	item, err := txn.Get([]byte(latestKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, ErrNoSnapshot
	}
	if err != nil {
		return 0, fmt.Errorf("get latest pointer: %w", err)
	}
	var version int64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("latest pointer has %d bytes, want 8", len(val))
		}
		version = int64(binary.BigEndian.Uint64(val))
		return nil
	})
	return version, err
}

// blobKey zero-pads the version so keys sort numerically.
func blobKey(version int64, name string) []byte {
	return []byte(fmt.Sprintf("%sv%020d:%s", keyPrefix, version, name))
}

func parseBlobKey(key []byte) (int64, bool) {
	rest, ok := strings.CutPrefix(string(key), keyPrefix+"v")
	if !ok {
		return 0, false
	}
	num, _, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func encodeVersion(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func gobEncode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// seal gzips raw and returns the compressed bytes with the checksum of raw.
func seal(raw []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	if _, err := gzw.Write(raw); err != nil {
		return nil, "", err
	}
	if err := gzw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), checksum(raw), nil
}

func unseal(data []byte) ([]byte, error) {
	gzr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable
	return io.ReadAll(gzr)
}
