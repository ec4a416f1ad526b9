// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

// Package catalog maps item ids to display titles.
package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/charmap"
)

// UnknownTitle is returned for items the catalog does not know.
const UnknownTitle = "Unknown"

// Catalog is an immutable item id → title lookup.
type Catalog struct {
	titles map[int]string
}

// Empty returns a catalog that knows no titles.
func Empty() *Catalog {
	return &Catalog{titles: map[int]string{}}
}

// Load reads a MovieLens u.item file (pipe separated, ISO-8859-1). A
// missing file yields an empty catalog; titles are optional.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Load(path string, logger zerolog.Logger) (*Catalog, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Str("path", path).Msg("item catalog not found, titles will be unknown")
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open item catalog: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only file

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	logger.Info().Str("path", path).Int("items", c.Len()).Msg("item catalog loaded")
	return c, nil
}

// Parse reads u.item records from r. Only the first two fields are used.
func Parse(r io.Reader) (*Catalog, error) {
	c := Empty()
	sc := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(r))
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" {
			continue
		}
		idField, rest, ok := strings.Cut(text, "|")
		if !ok {
			return nil, fmt.Errorf("line %d: missing title field", line)
		}
		id, err := strconv.Atoi(strings.TrimSpace(idField))
		if err != nil {
			return nil, fmt.Errorf("line %d: item id %q: %w", line, idField, err)
		}
		title, _, _ := strings.Cut(rest, "|")
		if title = strings.TrimSpace(title); title != "" {
			c.titles[id] = title
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// Title returns the title for id, or UnknownTitle.
func (c *Catalog) Title(id int) string {
	if t, ok := c.titles[id]; ok {
		return t
	}
	return UnknownTitle
}

// Len is the number of known titles.
func (c *Catalog) Len() int { return len(c.titles) }
