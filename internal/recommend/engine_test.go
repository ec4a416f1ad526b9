// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package recommend

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinerec/internal/events"
	"github.com/tomtom215/cinerec/internal/recommend/knn"
	"github.com/tomtom215/cinerec/internal/recommend/profile"
	"github.com/tomtom215/cinerec/internal/recommend/ratings"
	"github.com/tomtom215/cinerec/internal/recommend/snapshot"
	"github.com/tomtom215/cinerec/internal/recommend/storage"
)

const (
	fixtureBase = "1\t10\t4\t881250949\n" +
		"1\t20\t2\t881250950\n" +
		"2\t10\t5\t881250951\n" +
		"2\t30\t4\t881250952\n" +
		"2\t50\t4\t881250953\n" +
		"3\t40\t1\t881250954\n" +
		"3\t10\t3\t881250955\n"

	fixtureUsers = "1|24|M|technician|85711\n" +
		"2|53|F|other|94043\n" +
		"3|23|M|writer|32067\n" +
		"9|30|F|student|00000\n"
)

// fakeTitles is a TitleLookup backed by a map.
type fakeTitles map[int]string

func (f fakeTitles) Title(id int) string {
	if t, ok := f[id]; ok {
		return t
	}
	return "Unknown"
}

// mockSnapshots wraps an in-memory storage.Store and can be told to fail.
type mockSnapshots struct {
	*storage.Store
	mu       sync.Mutex
	failSave bool
	saves    int
}

func (m *mockSnapshots) Save(ctx context.Context, snap *snapshot.Snapshot) (*storage.Manifest, error) {
	m.mu.Lock()
	m.saves++
	fail := m.failSave
	m.mu.Unlock()
	if fail {
		return nil, errors.New("disk full")
	}
	return m.Store.Save(ctx, snap)
}

// mockPublisher records published retrain events.
type mockPublisher struct {
	mu     sync.Mutex
	events []events.RetrainRequested
	err    error
}

func (m *mockPublisher) PublishRetrain(_ context.Context, e events.RetrainRequested) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

type fixture struct {
	dir   string
	cfg   ratings.Config
	store *ratings.Store
}

func newFixture(t *testing.T, base, users string) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := ratings.Config{
		RatingsPath:  filepath.Join(dir, "u1.base"),
		FeedbackPath: filepath.Join(dir, "feedback.csv"),
		UsersPath:    filepath.Join(dir, "u.user"),
	}
	for path, data := range map[string]string{cfg.RatingsPath: base, cfg.UsersPath: users} {
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", path, err)
		}
	}
	store, err := ratings.Open(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("ratings.Open() error = %v", err)
	}
	return &fixture{dir: dir, cfg: cfg, store: store}
}

func newTestBuilder(t *testing.T) *profile.Builder {
	t.Helper()
	b, err := profile.NewBuilder(profile.Config{LatentDim: 2, Neighbors: 3, Workers: 2}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	return b
}

func newTestEngine(t *testing.T, cfg *Config, deps Deps) *Engine {
	t.Helper()
	if deps.Builder == nil {
		deps.Builder = newTestBuilder(t)
	}
	e, err := NewEngine(cfg, deps, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func trainedEngine(t *testing.T, cfg *Config) (*Engine, *fixture) {
	t.Helper()
	fx := newFixture(t, fixtureBase, fixtureUsers)
	e := newTestEngine(t, cfg, Deps{Store: fx.store, Titles: fakeTitles{30: "Thirty"}})
	if _, err := e.Retrain(context.Background(), "manual"); err != nil {
		t.Fatalf("Retrain() error = %v", err)
	}
	return e, fx
}

func TestOpenStore(t *testing.T) {
	fx := newFixture(t, fixtureBase, fixtureUsers)

	store, err := OpenStore(fx.cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	if store.View().Len() == 0 {
		t.Error("OpenStore() loaded no ratings")
	}

	tests := []struct {
		name        string
		mutate      func(t *testing.T, cfg ratings.Config)
		wantCorrupt bool
	}{
		{"missing base", func(t *testing.T, cfg ratings.Config) {
			if err := os.Remove(cfg.RatingsPath); err != nil {
				t.Fatalf("Remove() error = %v", err)
			}
		}, false},
		{"corrupt users", func(t *testing.T, cfg ratings.Config) {
			if err := os.WriteFile(cfg.UsersPath, []byte("1|old|M|writer|0\n"), 0o600); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, fixtureBase, fixtureUsers)
			tt.mutate(t, fx.cfg)

			_, err := OpenStore(fx.cfg, zerolog.Nop())
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("OpenStore() error = %v, want ErrConfiguration", err)
			}
			if tt.wantCorrupt && !errors.Is(err, ratings.ErrCorrupt) {
				t.Errorf("OpenStore() error = %v, want wrapped ErrCorrupt", err)
			}
		})
	}
}

func TestNewEngine_Validation(t *testing.T) {
	fx := newFixture(t, fixtureBase, fixtureUsers)
	b := newTestBuilder(t)

	tests := []struct {
		name string
		cfg  *Config
		deps Deps
	}{
		{"missing store", nil, Deps{Builder: b}},
		{"missing builder", nil, Deps{Store: fx.store}},
		{"bad top n", &Config{DefaultTopN: 0, MaxTopN: 10, RetrainThreshold: 1, MaxRating: 5}, Deps{Store: fx.store, Builder: b}},
		{"async without publisher", &Config{DefaultTopN: 10, MaxTopN: 10, RetrainThreshold: 1, MaxRating: 5, AsyncRetrain: true}, Deps{Store: fx.store, Builder: b}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.cfg, tt.deps, zerolog.Nop())
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("NewEngine() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestRecommend_NoModel(t *testing.T) {
	fx := newFixture(t, fixtureBase, fixtureUsers)
	e := newTestEngine(t, nil, Deps{Store: fx.store})

	if e.Ready() {
		t.Error("Ready() = true before training")
	}
	_, err := e.Recommend(context.Background(), Request{UserID: 1})
	if !errors.Is(err, ErrNoModel) {
		t.Errorf("Recommend() error = %v, want ErrNoModel", err)
	}
}

func TestRecommend_KnownUser(t *testing.T) {
	e, fx := trainedEngine(t, nil)

	resp, err := e.Recommend(context.Background(), Request{UserID: 1})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if resp.ColdStart {
		t.Error("ColdStart = true for a trained user")
	}
	if resp.ModelVersion != 1 {
		t.Errorf("ModelVersion = %d, want 1", resp.ModelVersion)
	}

	// User 2 rated 30 and 50 with 4, user 3 rated 40 with 1; 10 and 20
	// are already seen. Equal scores are ordered by item id.
	want := []int{30, 50, 40}
	got := resp.ItemIDs()
	if len(got) != len(want) {
		t.Fatalf("ItemIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ItemIDs() = %v, want %v", got, want)
			break
		}
	}
	if resp.Items[0].Score != resp.Items[1].Score {
		t.Errorf("items 30 and 50 scores differ: %v vs %v", resp.Items[0].Score, resp.Items[1].Score)
	}

	seen := fx.store.View().SeenItems(1)
	for _, it := range resp.Items {
		if _, ok := seen[it.ItemID]; ok {
			t.Errorf("recommended seen item %d", it.ItemID)
		}
	}
	if resp.Items[0].Title != "Thirty" || resp.Items[2].Title != "Unknown" {
		t.Errorf("titles = %q, %q", resp.Items[0].Title, resp.Items[2].Title)
	}
}

func TestRecommend_TopN(t *testing.T) {
	e, _ := trainedEngine(t, &Config{DefaultTopN: 2, MaxTopN: 2, RetrainThreshold: 100, MinRating: 1, MaxRating: 5})
	ctx := context.Background()

	resp, err := e.Recommend(ctx, Request{UserID: 1, TopN: 1})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if ids := resp.ItemIDs(); len(ids) != 1 || ids[0] != 30 {
		t.Errorf("TopN=1 ItemIDs() = %v, want [30]", ids)
	}

	resp, err = e.Recommend(ctx, Request{UserID: 1, TopN: 50})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(resp.Items) != 2 {
		t.Errorf("TopN above max returned %d items, want 2", len(resp.Items))
	}

	if _, err := e.Recommend(ctx, Request{UserID: 1, TopN: -1}); !errors.Is(err, ErrValidation) {
		t.Errorf("negative TopN error = %v, want ErrValidation", err)
	}
}

func TestRecommend_ColdStart(t *testing.T) {
	e, _ := trainedEngine(t, nil)

	// User 9 has metadata but no ratings; "student" was not seen in
	// training and must encode as zeros.
	resp, err := e.Recommend(context.Background(), Request{UserID: 9})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if !resp.ColdStart {
		t.Error("ColdStart = false for a user without a profile")
	}
	if len(resp.Items) == 0 || len(resp.Items) > 10 {
		t.Fatalf("cold start returned %d items", len(resp.Items))
	}
	ids := make(map[int]bool)
	for i, it := range resp.Items {
		if ids[it.ItemID] {
			t.Errorf("duplicate item %d", it.ItemID)
		}
		ids[it.ItemID] = true
		if i > 0 && it.Score > resp.Items[i-1].Score {
			t.Errorf("items not sorted by score at %d", i)
		}
	}
}

func TestRecommend_ColdStartProfileDimension(t *testing.T) {
	e, fx := trainedEngine(t, nil)
	snap := e.Snapshot()

	created, err := e.CreateUser(context.Background(), ratings.UserMeta{Age: 30, Gender: "M", Occupation: "writer"})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	meta, ok := fx.store.View().User(created.ID)
	if !ok {
		t.Fatalf("created user %d not in view", created.ID)
	}

	p := snap.ColdStartProfile(demographicsOf(meta))
	if len(p) != len(snap.Profile(0)) {
		t.Errorf("cold start profile dim = %d, trained = %d", len(p), len(snap.Profile(0)))
	}
	for i := 0; i < snap.LatentDim(); i++ {
		if p[i] != 0 {
			t.Errorf("latent block[%d] = %v, want 0", i, p[i])
		}
	}
	if _, err := snap.Index().Query(p); err != nil {
		t.Errorf("Query() error = %v", err)
	}

	if _, err := e.Recommend(context.Background(), Request{UserID: created.ID}); err != nil {
		t.Errorf("Recommend(new user) error = %v", err)
	}
}

func TestRecommend_UnknownUserIsEmpty(t *testing.T) {
	e, _ := trainedEngine(t, nil)

	resp, err := e.Recommend(context.Background(), Request{UserID: 424242})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(resp.Items) != 0 || resp.ColdStart {
		t.Errorf("unknown user response = %+v, want empty", resp)
	}
}

func TestPredict_Scenario(t *testing.T) {
	fx := newFixture(t,
		"1\t10\t4\t0\n2\t10\t5\t0\n1\t20\t2\t0\n",
		"1|24|M|technician|85711\n2|53|F|other|94043\n")
	e := newTestEngine(t, nil, Deps{Store: fx.store})
	if _, err := e.Retrain(context.Background(), "manual"); err != nil {
		t.Fatalf("Retrain() error = %v", err)
	}
	snap := e.Snapshot()
	if math.Abs(snap.GlobalMean()-11.0/3.0) > 1e-9 {
		t.Fatalf("GlobalMean() = %v, want ~3.67", snap.GlobalMean())
	}

	row, _ := snap.UserRow(1)
	neighbors := withoutRow(snap.Index().Neighbors(row), row)
	if len(neighbors) != 1 || snap.UserID(neighbors[0].Index) != 2 {
		t.Fatalf("neighbors of user 1 = %+v, want only user 2", neighbors)
	}

	w := neighborWeight(neighbors[0].Distance)
	scores := predict(snap, fx.store.View(), neighbors)
	want := 5.0*w/(w+1e-9) + snap.GlobalMean()
	if got, ok := scores[10]; !ok || math.Abs(got-want) > 1e-12 {
		t.Errorf("prediction for item 10 = %v, %v; want %v", got, ok, want)
	}
	if _, ok := scores[20]; ok {
		t.Error("item 20 predicted, but no neighbor rated it")
	}

	// Both items are already seen by user 1.
	resp, err := e.Recommend(context.Background(), Request{UserID: 1})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(resp.Items) != 0 {
		t.Errorf("Recommend() = %v, want empty", resp.ItemIDs())
	}
}

func TestRank_TieBreakByItemID(t *testing.T) {
	fx := newFixture(t,
		"1\t1\t3\t0\n2\t7\t4\t0\n2\t3\t4\t0\n2\t5\t4\t0\n",
		"1|24|M|technician|85711\n2|53|F|other|94043\n")
	e := newTestEngine(t, nil, Deps{Store: fx.store})
	if _, err := e.Retrain(context.Background(), "manual"); err != nil {
		t.Fatalf("Retrain() error = %v", err)
	}
	snap := e.Snapshot()
	row, _ := snap.UserRow(1)

	got := rank(snap, fx.store.View(), 1, withoutRow(snap.Index().Neighbors(row), row), 10)
	want := []int{3, 5, 7}
	if len(got) != len(want) {
		t.Fatalf("rank() returned %d items, want %d", len(got), len(want))
	}
	for i, p := range got {
		if p.itemID != want[i] {
			t.Errorf("rank()[%d] = %d, want %d", i, p.itemID, want[i])
		}
	}
}

func TestWithoutRow(t *testing.T) {
	in := []knn.Neighbor{{Index: 4, Distance: 0}, {Index: 1, Distance: 0.2}, {Index: 7, Distance: 0.3}}
	out := withoutRow(in, 4)
	if len(out) != 2 || out[0].Index != 1 || out[1].Index != 7 {
		t.Errorf("withoutRow() = %+v", out)
	}
}

func TestSubmitFeedback_ThresholdScenario(t *testing.T) {
	cfg := DefaultConfig()
	e, fx := trainedEngine(t, cfg)
	ctx := context.Background()

	for i := 1; i <= 99; i++ {
		retrained, err := e.SubmitFeedback(ctx, 1, 1000+i, 3)
		if err != nil {
			t.Fatalf("SubmitFeedback(%d) error = %v", i, err)
		}
		if retrained {
			t.Fatalf("SubmitFeedback(%d) retrained before threshold", i)
		}
	}
	if fx.store.Pending() != 99 {
		t.Fatalf("Pending() = %d, want 99", fx.store.Pending())
	}

	retrained, err := e.SubmitFeedback(ctx, 1, 2000, 4)
	if err != nil {
		t.Fatalf("100th SubmitFeedback() error = %v", err)
	}
	if !retrained {
		t.Fatal("100th SubmitFeedback() did not retrain")
	}
	if fx.store.Pending() != 0 || fx.store.View().BufferLen() != 0 {
		t.Errorf("after retrain pending=%d buffer=%d, want 0/0", fx.store.Pending(), fx.store.View().BufferLen())
	}
	if v := e.Snapshot().Version(); v != 2 {
		t.Errorf("snapshot version = %d, want 2", v)
	}
	if _, err := os.Stat(fx.cfg.FeedbackPath); !os.IsNotExist(err) {
		t.Errorf("feedback file still present after merge: %v", err)
	}

	// The next submission starts a fresh count.
	retrained, err = e.SubmitFeedback(ctx, 2, 2001, 4)
	if err != nil || retrained {
		t.Errorf("SubmitFeedback after reset = %v, %v; want false, nil", retrained, err)
	}
}

func TestSubmitFeedback_Validation(t *testing.T) {
	e, _ := trainedEngine(t, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		user   int
		item   int
		rating float64
	}{
		{"rating too high", 1, 10, 6},
		{"rating too low", 1, 10, 0.5},
		{"nan rating", 1, 10, math.NaN()},
		{"zero user", 0, 10, 3},
		{"negative item", 1, -1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.SubmitFeedback(ctx, tt.user, tt.item, tt.rating)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("SubmitFeedback() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestSubmitFeedback_AsyncPublishesEvent(t *testing.T) {
	fx := newFixture(t, fixtureBase, fixtureUsers)
	pub := &mockPublisher{}
	cfg := DefaultConfig()
	cfg.RetrainThreshold = 2
	cfg.AsyncRetrain = true
	e := newTestEngine(t, cfg, Deps{Store: fx.store, Publisher: pub})
	ctx := context.Background()
	if _, err := e.Retrain(ctx, "manual"); err != nil {
		t.Fatalf("Retrain() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		retrained, err := e.SubmitFeedback(ctx, 1, 60+i, 5)
		if err != nil || retrained {
			t.Fatalf("SubmitFeedback() = %v, %v; want false, nil", retrained, err)
		}
	}
	if pub.count() != 1 {
		t.Fatalf("published %d events, want 1", pub.count())
	}
	if pub.events[0].Trigger != "feedback" {
		t.Errorf("event trigger = %q, want feedback", pub.events[0].Trigger)
	}
	if v := e.Snapshot().Version(); v != 1 {
		t.Errorf("async mode retrained inline: version = %d", v)
	}
}

func TestSubmitFeedback_AsyncFallsBackInline(t *testing.T) {
	fx := newFixture(t, fixtureBase, fixtureUsers)
	pub := &mockPublisher{err: errors.New("bus closed")}
	cfg := DefaultConfig()
	cfg.RetrainThreshold = 1
	cfg.AsyncRetrain = true
	e := newTestEngine(t, cfg, Deps{Store: fx.store, Publisher: pub})

	retrained, err := e.SubmitFeedback(context.Background(), 1, 70, 5)
	if err != nil {
		t.Fatalf("SubmitFeedback() error = %v", err)
	}
	if !retrained || !e.Ready() {
		t.Errorf("publish failure did not fall back to inline retrain")
	}
}

func TestSubmitFeedback_AsyncBusWithoutSubscriber(t *testing.T) {
	fx := newFixture(t, fixtureBase, fixtureUsers)
	bus := events.NewBus(events.DefaultBusConfig(), nil)
	defer func() { _ = bus.Close() }()

	cfg := DefaultConfig()
	cfg.RetrainThreshold = 2
	cfg.AsyncRetrain = true
	e := newTestEngine(t, cfg, Deps{Store: fx.store, Publisher: bus})
	ctx := context.Background()
	if _, err := e.Retrain(ctx, "manual"); err != nil {
		t.Fatalf("Retrain() error = %v", err)
	}

	if retrained, err := e.SubmitFeedback(ctx, 1, 60, 5); err != nil || retrained {
		t.Fatalf("first SubmitFeedback() = %v, %v; want false, nil", retrained, err)
	}
	retrained, err := e.SubmitFeedback(ctx, 1, 61, 5)
	if err != nil {
		t.Fatalf("second SubmitFeedback() error = %v", err)
	}
	if !retrained {
		t.Error("unrouted retrain event did not fall back to inline training")
	}

	st := e.Status()
	if st.ModelVersion != 2 || st.Pending != 0 || st.RetrainDue {
		t.Errorf("Status() = version %d, pending %d, retrain_due %v; want 2, 0, false",
			st.ModelVersion, st.Pending, st.RetrainDue)
	}
}

func TestSubmitFeedback_AsyncBusMarksRetrainDue(t *testing.T) {
	fx := newFixture(t, fixtureBase, fixtureUsers)
	bus := events.NewBus(events.DefaultBusConfig(), nil)
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := bus.SubscribeRetrain(ctx)
	if err != nil {
		t.Fatalf("SubscribeRetrain() error = %v", err)
	}

	cfg := DefaultConfig()
	cfg.RetrainThreshold = 1
	cfg.AsyncRetrain = true
	e := newTestEngine(t, cfg, Deps{Store: fx.store, Publisher: bus})

	retrained, err := e.SubmitFeedback(ctx, 1, 60, 5)
	if err != nil || retrained {
		t.Fatalf("SubmitFeedback() = %v, %v; want false, nil", retrained, err)
	}
	select {
	case msg := <-msgs:
		msg.Ack()
	case <-time.After(5 * time.Second):
		t.Fatal("retrain event not delivered")
	}
	if !e.Status().RetrainDue {
		t.Fatal("RetrainDue = false after merge without training")
	}

	if _, err := e.Retrain(ctx, "event"); err != nil {
		t.Fatalf("Retrain() error = %v", err)
	}
	if e.Status().RetrainDue {
		t.Error("RetrainDue still set after successful training")
	}
}

func TestRetrain_InProgress(t *testing.T) {
	e, _ := trainedEngine(t, nil)

	e.trainMu.Lock()
	_, err := e.Retrain(context.Background(), "manual")
	e.trainMu.Unlock()

	if !errors.Is(err, ErrTrainingInProgress) {
		t.Errorf("Retrain() error = %v, want ErrTrainingInProgress", err)
	}
}

func TestRetrain_FailureKeepsPreviousSnapshot(t *testing.T) {
	fx := newFixture(t, fixtureBase, fixtureUsers)
	mem, err := storage.Open(storage.Options{InMemory: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	defer func() { _ = mem.Close() }()
	snaps := &mockSnapshots{Store: mem}

	e := newTestEngine(t, nil, Deps{Store: fx.store, Snapshots: snaps})
	ctx := context.Background()
	first, err := e.Retrain(ctx, "manual")
	if err != nil {
		t.Fatalf("first Retrain() error = %v", err)
	}
	if !first.Persisted {
		t.Error("first training not persisted")
	}
	before := e.Snapshot()

	snaps.mu.Lock()
	snaps.failSave = true
	snaps.mu.Unlock()

	_, err = e.Retrain(ctx, "manual")
	if !errors.Is(err, ErrTraining) {
		t.Fatalf("Retrain() error = %v, want ErrTraining", err)
	}
	if e.Snapshot() != before {
		t.Error("failed training replaced the serving snapshot")
	}
	if st := e.Status(); st.LastError == "" || st.ModelVersion != 1 {
		t.Errorf("Status() = %+v, want last error and version 1", st)
	}

	// The version number is not burned by the failure.
	snaps.mu.Lock()
	snaps.failSave = false
	snaps.mu.Unlock()
	st, err := e.Retrain(ctx, "manual")
	if err != nil {
		t.Fatalf("Retrain() after recovery error = %v", err)
	}
	if st.Version != 2 {
		t.Errorf("version after recovery = %d, want 2", st.Version)
	}
}

func TestRetrain_EmptyRatings(t *testing.T) {
	fx := newFixture(t, "", fixtureUsers)
	e := newTestEngine(t, nil, Deps{Store: fx.store})

	_, err := e.Retrain(context.Background(), "manual")
	if !errors.Is(err, ErrTraining) || !errors.Is(err, profile.ErrNoRatings) {
		t.Errorf("Retrain() error = %v, want ErrTraining wrapping ErrNoRatings", err)
	}
	if e.Ready() {
		t.Error("engine ready after failed first training")
	}
}

func TestLoadLatest(t *testing.T) {
	mem, err := storage.Open(storage.Options{InMemory: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	defer func() { _ = mem.Close() }()
	ctx := context.Background()

	fx := newFixture(t, fixtureBase, fixtureUsers)
	first := newTestEngine(t, nil, Deps{Store: fx.store, Snapshots: mem})
	if err := first.LoadLatest(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("LoadLatest() on empty store error = %v, want ErrNoSnapshot", err)
	}
	if _, err := first.Retrain(ctx, "startup"); err != nil {
		t.Fatalf("Retrain() error = %v", err)
	}
	want, err := first.Recommend(ctx, Request{UserID: 1})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	second := newTestEngine(t, nil, Deps{Store: fx.store, Snapshots: mem})
	if err := second.LoadLatest(ctx); err != nil {
		t.Fatalf("LoadLatest() error = %v", err)
	}
	got, err := second.Recommend(ctx, Request{UserID: 1})
	if err != nil {
		t.Fatalf("Recommend() after load error = %v", err)
	}
	if got.ModelVersion != want.ModelVersion || len(got.Items) != len(want.Items) {
		t.Fatalf("loaded response = %+v, want %+v", got, want)
	}
	for i := range want.Items {
		if got.Items[i].ItemID != want.Items[i].ItemID || got.Items[i].Score != want.Items[i].Score {
			t.Errorf("item %d = %+v, want %+v", i, got.Items[i], want.Items[i])
		}
	}

	// The next training continues the version sequence.
	st, err := second.Retrain(ctx, "manual")
	if err != nil {
		t.Fatalf("Retrain() error = %v", err)
	}
	if st.Version != 2 {
		t.Errorf("version after load + retrain = %d, want 2", st.Version)
	}
}

func TestRecommend_CacheInvalidatedByFeedback(t *testing.T) {
	e, _ := trainedEngine(t, nil)
	ctx := context.Background()

	a, err := e.Recommend(ctx, Request{UserID: 1})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	b, _ := e.Recommend(ctx, Request{UserID: 1})
	if a != b {
		t.Error("second identical request was not served from cache")
	}

	// Rating item 30 makes it seen; the cached list must not be reused.
	if _, err := e.SubmitFeedback(ctx, 1, 30, 5); err != nil {
		t.Fatalf("SubmitFeedback() error = %v", err)
	}
	c, err := e.Recommend(ctx, Request{UserID: 1})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	for _, it := range c.Items {
		if it.ItemID == 30 {
			t.Error("item 30 still recommended after the user rated it")
		}
	}
}

func TestCreateUser(t *testing.T) {
	e, fx := trainedEngine(t, nil)
	ctx := context.Background()

	u, err := e.CreateUser(ctx, ratings.UserMeta{Age: 41, Gender: "F", Occupation: "doctor"})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.ID != 10 {
		t.Errorf("ID = %d, want 10 (max existing id 9 + 1)", u.ID)
	}
	if u.ZipCode != ratings.DefaultZipCode {
		t.Errorf("ZipCode = %q, want default", u.ZipCode)
	}
	if _, ok := fx.store.View().User(u.ID); !ok {
		t.Error("created user missing from view")
	}

	invalid := []ratings.UserMeta{
		{Age: 0, Gender: "F", Occupation: "doctor"},
		{Age: 30, Gender: "X", Occupation: "doctor"},
		{Age: 30, Gender: "M", Occupation: "astronaut"},
	}
	for _, meta := range invalid {
		if _, err := e.CreateUser(ctx, meta); !errors.Is(err, ErrValidation) {
			t.Errorf("CreateUser(%+v) error = %v, want ErrValidation", meta, err)
		}
	}
}

func TestStatus(t *testing.T) {
	e, _ := trainedEngine(t, nil)

	st := e.Status()
	if !st.Ready || st.ModelVersion != 1 || st.Users != 3 || st.Items != 5 {
		t.Errorf("Status() = %+v", st)
	}
	if st.LastTraining == nil || st.LastTraining.Trigger != "manual" {
		t.Errorf("LastTraining = %+v", st.LastTraining)
	}
	if st.Threshold != 100 {
		t.Errorf("Threshold = %d, want 100", st.Threshold)
	}
	if st.TrainedAt == nil || st.TrainedAt.IsZero() {
		t.Errorf("TrainedAt = %v, want training time", st.TrainedAt)
	}
}

func TestStatus_CacheCounters(t *testing.T) {
	e, _ := trainedEngine(t, nil)
	ctx := context.Background()

	for range 2 {
		if _, err := e.Recommend(ctx, Request{UserID: 1}); err != nil {
			t.Fatalf("Recommend() error = %v", err)
		}
	}
	st := e.Status()
	if st.Cache == nil {
		t.Fatal("Cache = nil with caching enabled")
	}
	if st.Cache.Hits != 1 || st.Cache.Misses != 1 || st.Cache.Keys != 1 || st.Cache.HitRate != 50 {
		t.Errorf("Cache = %+v, want 1 hit, 1 miss, 1 key, 50%%", *st.Cache)
	}

	cfg := DefaultConfig()
	cfg.CacheTTL = 0
	uncached, _ := trainedEngine(t, cfg)
	if uncached.Status().Cache != nil {
		t.Error("Cache reported with caching disabled")
	}
}

func TestStatus_UntrainedOmitsTrainedAt(t *testing.T) {
	fx := newFixture(t, fixtureBase, fixtureUsers)
	e := newTestEngine(t, nil, Deps{Store: fx.store})

	st := e.Status()
	if st.Ready || st.TrainedAt != nil {
		t.Fatalf("Status() = ready %v, trained_at %v; want false, nil", st.Ready, st.TrainedAt)
	}
	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if bytes.Contains(data, []byte("trained_at")) {
		t.Errorf("untrained status JSON carries trained_at: %s", data)
	}
}

func TestRecommend_ConcurrentWithRetrain(t *testing.T) {
	e, _ := trainedEngine(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if _, err := e.Recommend(ctx, Request{UserID: 1 + i%3}); err != nil {
					t.Errorf("Recommend() error = %v", err)
					return
				}
			}
		}()
	}
	for i := 0; i < 3; i++ {
		if _, err := e.retrainWait(ctx, "manual"); err != nil {
			t.Errorf("retrain error = %v", err)
		}
	}
	wg.Wait()
}
