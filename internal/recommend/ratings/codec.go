// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package ratings

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// File formats:
//
//	base table:  user \t item \t rating \t timestamp   (no header)
//	feedback:    user,item,rating                      (header row)
//	users:       id|age|gender|occupation|zip          (no header)

var feedbackHeader = []string{"user", "item", "rating"}

func newReader(r io.Reader, sep rune) *csv.Reader {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return cr
}

// readBase parses the tab-separated base table.
func readBase(path string) ([]Rating, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := newReader(f, '\t')
	var out []Rating
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrCorrupt, path, line, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		r, err := parseRating(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrCorrupt, path, line, err)
		}
		out = append(out, r)
	}
}

// readFeedback parses the feedback buffer. A missing file is an empty buffer.
func readFeedback(path string) ([]Rating, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := newReader(f, ',')
	var out []Rating
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrCorrupt, path, line, err)
		}
		if line == 1 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), feedbackHeader[0]) {
			continue
		}
		r, err := parseRating(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrCorrupt, path, line, err)
		}
		out = append(out, r)
	}
}

func parseRating(rec []string) (Rating, error) {
	if len(rec) < 3 {
		return Rating{}, fmt.Errorf("want at least 3 fields, got %d", len(rec))
	}
	user, err := strconv.Atoi(strings.TrimSpace(rec[0]))
	if err != nil {
		return Rating{}, fmt.Errorf("user id: %w", err)
	}
	item, err := strconv.Atoi(strings.TrimSpace(rec[1]))
	if err != nil {
		return Rating{}, fmt.Errorf("item id: %w", err)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
	if err != nil {
		return Rating{}, fmt.Errorf("rating: %w", err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Rating{}, fmt.Errorf("rating: non-finite value %q", rec[2])
	}
	r := Rating{UserID: user, ItemID: item, Value: value}
	if len(rec) > 3 && strings.TrimSpace(rec[3]) != "" {
		ts, err := strconv.ParseInt(strings.TrimSpace(rec[3]), 10, 64)
		if err != nil {
			return Rating{}, fmt.Errorf("timestamp: %w", err)
		}
		r.Timestamp = ts
	}
	return r, nil
}

// readUsers parses the pipe-separated user metadata table.
func readUsers(path string) ([]UserMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := newReader(f, '|')
	var out []UserMeta
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrCorrupt, path, line, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 4 {
			return nil, fmt.Errorf("%w: %s line %d: want at least 4 fields, got %d", ErrCorrupt, path, line, len(rec))
		}
		id, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: user id: %v", ErrCorrupt, path, line, err)
		}
		age, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: age: %v", ErrCorrupt, path, line, err)
		}
		u := UserMeta{
			ID:         id,
			Age:        age,
			Gender:     strings.TrimSpace(rec[2]),
			Occupation: strings.TrimSpace(rec[3]),
			ZipCode:    DefaultZipCode,
		}
		if len(rec) > 4 && strings.TrimSpace(rec[4]) != "" {
			u.ZipCode = strings.TrimSpace(rec[4])
		}
		out = append(out, u)
	}
}

// writeBase rewrites the base table atomically.
func writeBase(path string, rows []Rating) error {
	return writeAtomic(path, func(w *csv.Writer) error {
		w.Comma = '\t'
		for _, r := range rows {
			rec := []string{
				strconv.Itoa(r.UserID),
				strconv.Itoa(r.ItemID),
				formatRating(r.Value),
				strconv.FormatInt(r.Timestamp, 10),
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeFeedback rewrites the feedback buffer atomically, header first.
func writeFeedback(path string, rows []Rating) error {
	return writeAtomic(path, func(w *csv.Writer) error {
		if err := w.Write(feedbackHeader); err != nil {
			return err
		}
		for _, r := range rows {
			rec := []string{strconv.Itoa(r.UserID), strconv.Itoa(r.ItemID), formatRating(r.Value)}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// appendUser appends one metadata record.
func appendUser(path string, u UserMeta) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	line := fmt.Sprintf("%d|%d|%s|%s|%s\n", u.ID, u.Age, u.Gender, u.Occupation, u.ZipCode)
	if _, err := f.WriteString(line); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func formatRating(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// writeAtomic writes to a temp file in the target directory and renames
// it over path, so readers never observe a partial file.
func writeAtomic(path string, fill func(w *csv.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	bw := bufio.NewWriter(tmp)
	w := csv.NewWriter(bw)
	if err := fill(w); err != nil {
		cleanup()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		cleanup()
		return err
	}
	if err := bw.Flush(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
