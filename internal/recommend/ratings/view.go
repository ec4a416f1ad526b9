// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package ratings

// table is the immutable in-memory form of the base rating file.
type table struct {
	rows   []Rating
	byUser map[int][]Rating
	maxID  int
}

func newTable(rows []Rating) *table {
	t := &table{rows: rows, byUser: make(map[int][]Rating)}
	for _, r := range rows {
		t.byUser[r.UserID] = append(t.byUser[r.UserID], r)
		if r.UserID > t.maxID {
			t.maxID = r.UserID
		}
	}
	return t
}

// userTable is the immutable in-memory form of the metadata file.
type userTable struct {
	byID  map[int]UserMeta
	order []UserMeta
	maxID int
}

func newUserTable(users []UserMeta) *userTable {
	t := &userTable{byID: make(map[int]UserMeta, len(users)), order: make([]UserMeta, 0, len(users))}
	for _, u := range users {
		if _, dup := t.byID[u.ID]; !dup {
			t.order = append(t.order, u)
		} else {
			for i := range t.order {
				if t.order[i].ID == u.ID {
					t.order[i] = u
				}
			}
		}
		t.byID[u.ID] = u
		if u.ID > t.maxID {
			t.maxID = u.ID
		}
	}
	return t
}

func (t *userTable) with(u UserMeta) *userTable {
	next := &userTable{
		byID:  make(map[int]UserMeta, len(t.byID)+1),
		order: make([]UserMeta, len(t.order), len(t.order)+1),
		maxID: t.maxID,
	}
	for id, m := range t.byID {
		next.byID[id] = m
	}
	copy(next.order, t.order)
	next.byID[u.ID] = u
	next.order = append(next.order, u)
	if u.ID > next.maxID {
		next.maxID = u.ID
	}
	return next
}

// View is an immutable, consistent snapshot of the store: the base table
// merged with the feedback buffer, plus user metadata. A View never changes
// after it is published, so it is safe to use from any goroutine.
type View struct {
	base     *table
	feedback []Rating
	fbByUser map[int][]Rating
	fbKeys   map[pairKey]struct{}
	users    *userTable
	seq      uint64
}

func newView(seq uint64, base *table, feedback []Rating, users *userTable) *View {
	v := &View{
		seq:      seq,
		base:     base,
		feedback: feedback,
		fbByUser: make(map[int][]Rating),
		fbKeys:   make(map[pairKey]struct{}, len(feedback)),
		users:    users,
	}
	for _, r := range feedback {
		v.fbByUser[r.UserID] = append(v.fbByUser[r.UserID], r)
		v.fbKeys[keyOf(r)] = struct{}{}
	}
	return v
}

// Seq increases with every published view. Two views with the same Seq
// from the same Store are identical.
func (v *View) Seq() uint64 { return v.seq }

// Ratings returns the merged rating table: base rows not superseded by the
// buffer, followed by buffered rows. The slice is freshly allocated.
func (v *View) Ratings() []Rating {
	out := make([]Rating, 0, len(v.base.rows)+len(v.feedback))
	for _, r := range v.base.rows {
		if _, superseded := v.fbKeys[keyOf(r)]; superseded {
			continue
		}
		out = append(out, r)
	}
	return append(out, v.feedback...)
}

// Len returns the number of merged ratings.
func (v *View) Len() int {
	n := len(v.feedback)
	for _, r := range v.base.rows {
		if _, superseded := v.fbKeys[keyOf(r)]; !superseded {
			n++
		}
	}
	return n
}

// UserRatings returns the merged ratings made by one user.
func (v *View) UserRatings(userID int) []Rating {
	base := v.base.byUser[userID]
	fb := v.fbByUser[userID]
	if len(fb) == 0 {
		out := make([]Rating, len(base))
		copy(out, base)
		return out
	}
	out := make([]Rating, 0, len(base)+len(fb))
	for _, r := range base {
		if _, superseded := v.fbKeys[keyOf(r)]; !superseded {
			out = append(out, r)
		}
	}
	return append(out, fb...)
}

// ForEachUserRating calls fn for every merged rating by userID without
// allocating.
func (v *View) ForEachUserRating(userID int, fn func(Rating)) {
	fb := v.fbByUser[userID]
	for _, r := range v.base.byUser[userID] {
		if len(fb) > 0 {
			if _, superseded := v.fbKeys[keyOf(r)]; superseded {
				continue
			}
		}
		fn(r)
	}
	for _, r := range fb {
		fn(r)
	}
}

// SeenItems returns the set of items userID has rated.
func (v *View) SeenItems(userID int) map[int]struct{} {
	seen := make(map[int]struct{})
	v.ForEachUserRating(userID, func(r Rating) { seen[r.ItemID] = struct{}{} })
	return seen
}

// User returns the metadata for id.
func (v *View) User(id int) (UserMeta, bool) {
	u, ok := v.users.byID[id]
	return u, ok
}

// Users returns all metadata records in file order.
func (v *View) Users() []UserMeta {
	out := make([]UserMeta, len(v.users.order))
	copy(out, v.users.order)
	return out
}

// MaxUserID is the largest user id seen in metadata or merged ratings.
func (v *View) MaxUserID() int {
	m := v.base.maxID
	if v.users.maxID > m {
		m = v.users.maxID
	}
	for id := range v.fbByUser {
		if id > m {
			m = id
		}
	}
	return m
}

// BufferLen returns the number of distinct buffered feedback rows.
func (v *View) BufferLen() int {
	return len(v.feedback)
}
