package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/robalobadob/semantic-signal/internal/config"
	"github.com/robalobadob/semantic-signal/internal/game"
	"github.com/robalobadob/semantic-signal/internal/level"
	"github.com/robalobadob/semantic-signal/internal/store"
	"github.com/robalobadob/semantic-signal/internal/words"
)

var testNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

// heldScheduler keeps callbacks without running them.
type heldScheduler struct {
	mu sync.Mutex
	fs []func()
}

func (h *heldScheduler) AfterFunc(d time.Duration, f func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fs = append(h.fs, f)
}

type testEnv struct {
	srv    *Server
	store  store.Store
	scores *store.MemoryScores
	tokens *Tokens
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	vocab, err := words.Default()
	if err != nil {
		t.Fatalf("vocabulary: %v", err)
	}
	st := store.NewMemoryStore()
	scores := store.NewMemoryScores()
	tokens := NewTokens("test-secret", time.Hour)
	factory := &Factory{
		Vocab:     vocab,
		Levels:    level.Default,
		Scores:    scores,
		DailySalt: "test-salt",
		Field:     config.Field{Width: 1280, Height: 800, MaxWords: 25, KeepObstacles: 8, ExclusionRadius: 220},
		Game: config.Game{
			SpawnCount:      20,
			RefillThreshold: 3,
			HitRadius:       150,
			AdvanceDelay:    500 * time.Millisecond,
			TransitionDelay: 2 * time.Second,
		},
		Scheduler: &heldScheduler{},
		Now:       func() time.Time { return testNow },
	}
	srv := New(Options{
		Store:          st,
		Scores:         scores,
		Factory:        factory,
		Tokens:         tokens,
		StreamInterval: 10 * time.Millisecond,
		Now:            func() time.Time { return testNow },
	})
	return &testEnv{srv: srv, store: st, scores: scores, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func (e *testEnv) create(t *testing.T, mode string) createSessionRes {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/session", "", createSessionReq{Mode: mode})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", rec.Code, rec.Body.String())
	}
	return decode[createSessionRes](t, rec)
}

func (e *testEnv) start(t *testing.T, token string) game.Snapshot {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/session/start", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	return decode[game.Snapshot](t, rec)
}

func TestHealthAndLevels(t *testing.T) {
	e := newTestEnv(t)
	if rec := e.do(t, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}
	rec := e.do(t, http.MethodGet, "/levels", "", nil)
	levels := decode[[]level.Config](t, rec)
	if len(levels) != 4 || levels[2].Rules.IncludeChar != "r" {
		t.Errorf("levels = %+v", levels)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content type = %q", ct)
	}
}

func TestCreateSession(t *testing.T) {
	e := newTestEnv(t)
	res := e.create(t, "")
	if res.SessionID == "" || res.Token == "" {
		t.Fatalf("create = %+v", res)
	}
	if res.Snapshot.State != game.StateStart || res.Snapshot.Mode != game.ModeClassic {
		t.Errorf("snapshot = %+v", res.Snapshot)
	}
	if e.store.Len() != 1 {
		t.Errorf("registered sessions = %d", e.store.Len())
	}

	if rec := e.do(t, http.MethodPost, "/session", "", createSessionReq{Mode: "arcade"}); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown mode = %d", rec.Code)
	}
}

func TestSessionRoutesRequireToken(t *testing.T) {
	e := newTestEnv(t)
	if rec := e.do(t, http.MethodGet, "/session", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/session", "garbage", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token = %d", rec.Code)
	}
	tok, _, err := e.tokens.Sign("no-such-session")
	if err != nil {
		t.Fatal(err)
	}
	if rec := e.do(t, http.MethodGet, "/session", tok, nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown session = %d", rec.Code)
	}
}

func TestStartDropAndFinish(t *testing.T) {
	e := newTestEnv(t)
	res := e.create(t, game.ModeClassic)

	snap := e.start(t, res.Token)
	if snap.State != game.StatePlaying || len(snap.Words) != 20 {
		t.Fatalf("after start: state=%s words=%d", snap.State, len(snap.Words))
	}

	var target string
	for _, w := range snap.Words {
		if w.Classify(snap.Level.Rules) == level.OutcomeValid {
			target = w.ID
			break
		}
	}
	if target == "" {
		t.Fatal("no valid word on the field")
	}

	miss := decode[dropRes](t, e.do(t, http.MethodPost, "/session/drop", res.Token, dropReq{WordID: target, X: 0, Y: 0}))
	if miss.Dropped {
		t.Fatal("drop outside the receiver was scored")
	}

	hit := decode[dropRes](t, e.do(t, http.MethodPost, "/session/drop", res.Token, dropReq{WordID: target, X: 640, Y: 400}))
	if !hit.Dropped || hit.Result == nil || hit.Result.Score != 10 {
		t.Fatalf("hit = %+v", hit)
	}
	again := decode[dropRes](t, e.do(t, http.MethodPost, "/session/drop", res.Token, dropReq{WordID: target, X: 640, Y: 400}))
	if again.Dropped || again.Snapshot.Score != 10 {
		t.Fatalf("repeat drop = %+v", again)
	}

	fin := decode[map[string]json.RawMessage](t, e.do(t, http.MethodPost, "/session/finish", res.Token, nil))
	if string(fin["ended"]) != "true" {
		t.Fatalf("finish = %s", fin["ended"])
	}

	lb := decode[lbRes](t, e.do(t, http.MethodGet, "/scores/leaderboard", "", nil))
	if lb.Date != "2026-10-14" || len(lb.Top) != 1 || lb.Top[0].Score != 10 || lb.Top[0].SessionID != res.SessionID {
		t.Errorf("leaderboard = %+v", lb)
	}
	top := decode[map[string]int](t, e.do(t, http.MethodGet, "/scores/top", "", nil))
	if top["topScore"] != 10 {
		t.Errorf("top = %v", top)
	}
}

func TestPauseRescanAndAdvance(t *testing.T) {
	e := newTestEnv(t)
	res := e.create(t, "")

	if rec := e.do(t, http.MethodPost, "/session/rescan", res.Token, nil); rec.Code != http.StatusConflict {
		t.Errorf("rescan before start = %d", rec.Code)
	}
	e.start(t, res.Token)

	paused := decode[game.Snapshot](t, e.do(t, http.MethodPost, "/session/pause", res.Token, nil))
	if !paused.Paused {
		t.Error("pause not applied")
	}
	resumed := decode[game.Snapshot](t, e.do(t, http.MethodPost, "/session/resume", res.Token, nil))
	if resumed.Paused {
		t.Error("resume not applied")
	}

	if rec := e.do(t, http.MethodPost, "/session/rescan", res.Token, nil); rec.Code != http.StatusOK {
		t.Errorf("rescan = %d %s", rec.Code, rec.Body.String())
	}

	adv := decode[map[string]json.RawMessage](t, e.do(t, http.MethodPost, "/session/advance", res.Token, nil))
	if string(adv["advanced"]) != "true" {
		t.Errorf("advance = %s", adv["advanced"])
	}

	quit := decode[game.Snapshot](t, e.do(t, http.MethodPost, "/session/quit", res.Token, nil))
	if quit.State != game.StateStart {
		t.Errorf("quit state = %s", quit.State)
	}

	if rec := e.do(t, http.MethodDelete, "/session", res.Token, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/session", res.Token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d", rec.Code)
	}
}

func TestDailySessionsShareTheField(t *testing.T) {
	e := newTestEnv(t)
	a := e.start(t, e.create(t, game.ModeDaily).Token)
	b := e.start(t, e.create(t, game.ModeDaily).Token)

	if len(a.Words) != len(b.Words) {
		t.Fatalf("word counts differ: %d vs %d", len(a.Words), len(b.Words))
	}
	for i := range a.Words {
		wa, wb := a.Words[i], b.Words[i]
		if wa.Text != wb.Text || wa.X != wb.X || wa.Y != wb.Y || wa.Rotation != wb.Rotation {
			t.Fatalf("word %d differs: %+v vs %+v", i, wa, wb)
		}
	}
}

func TestLeaderboardLimit(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	for i, score := range []int{30, 90, 60} {
		_ = e.scores.RecordResult(ctx, game.Result{
			GameID: string(rune('a' + i)), SessionID: "s", Mode: game.ModeDaily,
			Date: "2026-10-13", Score: score, Level: 1, FinishedAt: testNow,
		})
	}
	lb := decode[lbRes](t, e.do(t, http.MethodGet, "/scores/leaderboard?date=2026-10-13&limit=2", "", nil))
	if len(lb.Top) != 2 || lb.Top[0].Score != 90 || lb.Top[1].Score != 60 {
		t.Errorf("leaderboard = %+v", lb.Top)
	}
	if rec := e.do(t, http.MethodGet, "/scores/leaderboard?limit=zero", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit = %d", rec.Code)
	}
}

func TestClockTicksPlayingSessions(t *testing.T) {
	e := newTestEnv(t)
	playing := e.create(t, "")
	e.start(t, playing.Token)
	idle := e.create(t, "")

	clock := NewClock(e.store, time.Second, time.Hour)
	if n := clock.TickAll(context.Background()); n != 0 {
		t.Errorf("ended = %d", n)
	}
	snap := decode[game.Snapshot](t, e.do(t, http.MethodGet, "/session", playing.Token, nil))
	if snap.TimeLeft != 59 {
		t.Errorf("playing timeLeft = %d, want 59", snap.TimeLeft)
	}
	snap = decode[game.Snapshot](t, e.do(t, http.MethodGet, "/session", idle.Token, nil))
	if snap.TimeLeft != 0 || snap.State != game.StateStart {
		t.Errorf("idle session ticked: %+v", snap)
	}
}

func TestClockEvictsIdleSessions(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	now := testNow
	st := store.NewMemoryStoreWithClock(func() time.Time { return now })

	idle, err := e.srv.factory.NewSession(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := idle.Start(ctx); err != nil {
		t.Fatal(err)
	}
	active, err := e.srv.factory.NewSession(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	_ = st.Save(ctx, idle)
	_ = st.Save(ctx, active)

	now = now.Add(45 * time.Minute)
	_, _ = st.Get(ctx, active.ID())
	now = now.Add(30 * time.Minute)

	NewClock(st, time.Second, time.Hour).TickAll(ctx)
	if st.Len() != 1 {
		t.Fatalf("sessions after eviction = %d, want 1", st.Len())
	}
	if _, err := st.Get(ctx, idle.ID()); err == nil {
		t.Error("idle session still registered")
	}
	if got := idle.Snapshot().State; got != game.StateStart {
		t.Errorf("evicted session state = %s, want START", got)
	}
}

func TestClockRunStopsOnCancel(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewClock(e.store, time.Millisecond, 0).Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("clock did not stop")
	}
}

func TestTokens(t *testing.T) {
	tk := NewTokens("secret", time.Minute)
	tok, exp, err := tk.Sign("abc")
	if err != nil {
		t.Fatal(err)
	}
	if sid, err := tk.Parse(tok); err != nil || sid != "abc" {
		t.Fatalf("parse = %q, %v", sid, err)
	}
	if !exp.After(time.Now()) {
		t.Errorf("expiry %v not in the future", exp)
	}
	if _, err := NewTokens("other", time.Minute).Parse(tok); err == nil {
		t.Error("token accepted under a different secret")
	}

	tk.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := tk.Parse(tok); err == nil {
		t.Error("expired token accepted")
	}
}

func TestStreamPushesSnapshots(t *testing.T) {
	e := newTestEnv(t)
	res := e.create(t, "")
	ts := httptest.NewServer(e.srv.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/session/stream?token=" + res.Token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg streamMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if msg.Type != "snapshot" || msg.Snapshot.State != game.StateStart {
		t.Fatalf("first frame = %+v", msg)
	}

	e.start(t, res.Token)
	for msg.Snapshot.State != game.StatePlaying {
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for PLAYING: %v", err)
		}
	}
	if len(msg.Snapshot.Words) != 20 {
		t.Errorf("streamed words = %d", len(msg.Snapshot.Words))
	}
}

func TestStreamRejectsForeignOrigin(t *testing.T) {
	e := newTestEnv(t)
	res := e.create(t, "")
	ts := httptest.NewServer(e.srv.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/session/stream?token=" + res.Token
	hdr := http.Header{"Origin": []string{"http://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, hdr); err == nil {
		t.Fatal("foreign origin accepted")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- e.srv.Serve(ctx, "127.0.0.1:0") }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
