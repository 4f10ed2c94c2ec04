package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/soulsync/soulsync/internal/api"
	"github.com/soulsync/soulsync/internal/app"
	"github.com/soulsync/soulsync/internal/companion"
	"github.com/soulsync/soulsync/internal/matching"
	"github.com/soulsync/soulsync/internal/mood"
	"github.com/soulsync/soulsync/internal/moodlog"
	"github.com/soulsync/soulsync/internal/storage"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

type testServer struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.mu.Lock()
		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
		})
		ts.mu.Unlock()

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"post not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		httpClient: ts.server.Client(),
	}
}

func (ts *testServer) recorded() []recordedRequest {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]recordedRequest(nil), ts.requests...)
}

// runCmd executes the root command against client and returns stdout.
func runCmd(t *testing.T, client *apiClient, stdin string, args ...string) (string, error) {
	t.Helper()

	oldClient, oldColor := newAPIClient, noColor
	newAPIClient = func() (*apiClient, error) { return client, nil }
	noColor = true
	t.Cleanup(func() {
		newAPIClient, noColor = oldClient, oldColor
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return out.String(), err
}

var ctx = context.Background()

func TestMoodSet(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /mood": `{"profile":{},"tip":"Breathe, you've got this."}`,
	})

	out, err := runCmd(t, ts.client(), "", "mood", "set", "stressed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Breathe, you've got this.") {
		t.Errorf("output = %q, want the tip", out)
	}

	reqs := ts.recorded()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(reqs[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["mood"] != "Stressed" {
		t.Errorf("body.mood = %v, want Stressed", body["mood"])
	}
}

func TestMoodSet_UnknownMood(t *testing.T) {
	ts := newTestServer(t, map[string]string{})

	_, err := runCmd(t, ts.client(), "", "mood", "set", "elated")
	if err == nil {
		t.Fatal("expected error for unknown mood")
	}
	if !strings.Contains(err.Error(), "Happy, Sad, Stressed, Anxious, Neutral") {
		t.Errorf("error = %q, want it to list the moods", err.Error())
	}
	if n := len(ts.recorded()); n != 0 {
		t.Errorf("sent %d requests for an invalid mood", n)
	}
}

func TestMoodTrend(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /mood/trend": `{"points":[{"day":"Mon","value":5,"label":"Happy","mood":"Happy"},{"day":"Tue","value":1,"label":"Challenging","mood":"Anxious"}],"empty":false}`,
	})

	out, err := runCmd(t, ts.client(), "", "mood", "trend")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "Mon") || strings.Count(lines[0], "█") != 5 || !strings.Contains(lines[0], "Happy") {
		t.Errorf("first line = %q", lines[0])
	}
	if strings.Count(lines[1], "█") != 1 {
		t.Errorf("second line = %q", lines[1])
	}
	if reqs := ts.recorded(); reqs[0].Path != "/mood/trend?n=7" {
		t.Errorf("path = %q", reqs[0].Path)
	}
}

func TestMoodTrend_Empty(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /mood/trend": `{"points":[],"empty":true,"message":"` + moodlog.EmptyMessage + `"}`,
	})

	out, err := runCmd(t, ts.client(), "", "mood", "trend")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != moodlog.EmptyMessage {
		t.Errorf("output = %q", out)
	}
}

func TestInterestsAdd_Duplicate(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /interests": `{"profile":{},"added":false}`,
	})

	if _, err := runCmd(t, ts.client(), "", "interests", "add", "Board", "Games"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]string
	json.Unmarshal([]byte(ts.recorded()[0].Body), &body)
	if body["interest"] != "Board Games" {
		t.Errorf("body.interest = %q, want joined args", body["interest"])
	}
}

func TestInterestsRemove_PathEscaped(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"DELETE /interests/Board Games": `{}`,
	})

	if _, err := runCmd(t, ts.client(), "", "interests", "remove", "Board Games"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p := ts.recorded()[0].Path; p != "/interests/Board%20Games" {
		t.Errorf("path = %q, want escaped tag", p)
	}
}

func TestWall(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /posts": `[{"id":"p-1","authorNickname":"Calm Otter","content":"exam week","mood":"Stressed","timestamp":"2026-05-01T10:00:00Z","likes":3}]`,
	})

	out, err := runCmd(t, ts.client(), "", "wall")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Calm Otter", "Stressed", "exam week", "♥ 3", "p-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestLike_NotFound(t *testing.T) {
	ts := newTestServer(t, map[string]string{})

	_, err := runCmd(t, ts.client(), "", "like", "missing")
	if err == nil {
		t.Fatal("expected error for unknown post")
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "post not found") {
		t.Errorf("error = %q", err.Error())
	}
	if p := ts.recorded()[0].Path; p != "/posts/missing/like" {
		t.Errorf("path = %q", p)
	}
}

func TestPeers(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /matches": `{"matches":[{"peer":{"id":"p1","nickname":"Brave Panda","mood":"Stressed","bio":"Finals are coming.","interests":["Coding","Coffee"]},"score":12,"shared":["Coffee"]}],"empty":false}`,
	})

	out, err := runCmd(t, ts.client(), "", "peers", "--limit", "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "1. Brave Panda") || !strings.Contains(out, "score 12") || !strings.Contains(out, "#Coffee") {
		t.Errorf("output = %q", out)
	}
	if p := ts.recorded()[0].Path; p != "/matches?limit=2" {
		t.Errorf("path = %q", p)
	}
}

func TestProfileSet_UnknownField(t *testing.T) {
	ts := newTestServer(t, map[string]string{})

	_, err := runCmd(t, ts.client(), "", "profile", "set", "mood", "Happy")
	if err == nil || !strings.Contains(err.Error(), "unknown profile field") {
		t.Errorf("error = %v", err)
	}
}

func TestDataExport(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /export": `{"profile":{"id":"abc123def","nickname":"Calm Otter","currentMood":"Neutral","interests":[]},"history":[],"posts":[]}`,
	})
	path := filepath.Join(t.TempDir(), "export.json")

	if _, err := runCmd(t, ts.client(), "", "data", "export", "--output", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var exp api.Export
	if err := json.Unmarshal(data, &exp); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if exp.Profile.Nickname != "Calm Otter" || exp.Profile.CurrentMood != mood.Neutral {
		t.Errorf("profile = %+v", exp.Profile)
	}
}

type stubCompanion struct {
	mu    sync.Mutex
	reply string
	chats int
}

func (s *stubCompanion) Complete(context.Context, string, mood.Mood) (string, error) {
	return s.reply, nil
}

func (s *stubCompanion) Chat(context.Context, string, []companion.ChatMessage, mood.Mood) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats++
	return s.reply, nil
}

// startAppServer serves the real handler over in-memory storage.
func startAppServer(t *testing.T, svc companion.Service, opts app.Options) *apiClient {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	srv := httptest.NewServer(api.NewAppHandler(api.AppDeps{App: app.New(store, svc, opts)}))
	t.Cleanup(srv.Close)
	return &apiClient{baseURL: srv.URL, httpClient: srv.Client()}
}

func TestInterestsRemove_EndToEnd(t *testing.T) {
	client := startAppServer(t, &stubCompanion{}, app.Options{})

	for _, tag := range []string{"100%", "a%2Fb", "a/b"} {
		if _, err := runCmd(t, client, "", "interests", "add", tag); err != nil {
			t.Fatalf("add %q: %v", tag, err)
		}
		if _, err := runCmd(t, client, "", "interests", "remove", tag); err != nil {
			t.Fatalf("remove %q: %v", tag, err)
		}
	}

	resp, err := client.get(ctx, "/profile")
	if err != nil {
		t.Fatal(err)
	}
	var p struct {
		Interests []string `json:"interests"`
	}
	if err := decodeJSON(resp, &p); err != nil {
		t.Fatal(err)
	}
	if strings.Join(p.Interests, ",") != "Music,Study,Coffee" {
		t.Errorf("interests = %v, want the defaults back", p.Interests)
	}
}

func TestPeers_EmptyCatalog(t *testing.T) {
	client := startAppServer(t, &stubCompanion{}, app.Options{Catalog: []matching.Peer{}})

	out, err := runCmd(t, client, "", "peers")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != matching.EmptyMessage {
		t.Errorf("output = %q, want empty-state message", out)
	}
}

func TestChat_EndToEnd(t *testing.T) {
	svc := &stubCompanion{reply: "I hear you."}
	client := startAppServer(t, svc, app.Options{})

	out, err := runCmd(t, client, "hello\n\n/quit\nnever sent\n", "chat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "SoulAI> I hear you.") {
		t.Errorf("output = %q", out)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.chats != 1 {
		t.Errorf("companion got %d turns, want 1", svc.chats)
	}
}

func TestAPIClient_ServerDown(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	_, err := ts.client().get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.WriteHeader(http.StatusBadRequest)
	rec.WriteString(`{"error":{"message":"post content must not be blank","type":"invalid_request_error"}}`)

	err := decodeJSON(rec.Result(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "server returned 400: post content must not be blank" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestWSURL(t *testing.T) {
	c := &apiClient{baseURL: "http://127.0.0.1:4100"}
	if got := c.wsURL("/chat/ws"); got != "ws://127.0.0.1:4100/chat/ws" {
		t.Errorf("wsURL = %q", got)
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]string{
		"debug": "DEBUG",
		"WARN":  "WARN",
		"error": "ERROR",
		"info":  "INFO",
		"":      "INFO",
	}
	for in, want := range tests {
		if got := parseLogLevel(in).String(); got != want {
			t.Errorf("parseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestPIDFile(t *testing.T) {
	path := pidFilePath(filepath.Join(t.TempDir(), "data"))
	if err := writePIDFile(path); err != nil {
		t.Fatal(err)
	}
	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}
	removePIDFile(path)
	if _, err := readPIDFile(path); err == nil {
		t.Error("PID file still readable after removal")
	}
}
