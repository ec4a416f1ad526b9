// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

// Package storage persists model snapshots in BadgerDB.
//
// Each snapshot is stored as one blob per component under a versioned key
// prefix, written in a single transaction:
//
//	model:v00000000000000000003:user_ids
//	model:v00000000000000000003:item_ids
//	model:v00000000000000000003:item_factors
//	model:v00000000000000000003:user_profiles
//	model:v00000000000000000003:nn_model
//	model:v00000000000000000003:global_mean
//	model:v00000000000000000003:encoder
//	model:v00000000000000000003:manifest
//	model:latest -> 3
//
// Blob values are gob-encoded, checksummed with SHA-256 over the encoded
// bytes, then gzip-compressed. The manifest blob is JSON so it can be read
// without the model types.
//
// A version with any blob missing is treated as absent: Load returns
// ErrNoSnapshot and the caller trains a fresh model. A checksum mismatch
// returns ErrChecksum; that is corruption, not absence.
//
// Usage:
//
//	store, err := storage.Open(storage.Options{Dir: "./model_data", RetainVersions: 3}, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	manifest, err := store.Save(ctx, snap)
//	snap, manifest, err = store.Load(ctx, 0) // 0 = latest
package storage
