package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"irisai/core"
	"irisai/embedding"
	"irisai/rag"
	"irisai/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.MemoryStore, embedding.Embedder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := storage.NewMemoryStore("video_frames")
	embedder := embedding.NewLocalEmbedder(256)
	engine := rag.NewEngine(store, embedder, nil, 5)
	return New(engine, store), store, embedder
}

func TestAskEmptyIndex(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	body, _ := json.Marshal(core.AskRequest{Question: "what happened?"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp core.AskResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Answer != rag.EmptyAnswer {
		t.Errorf("answer = %q, want %q", resp.Answer, rag.EmptyAnswer)
	}
	if len(resp.Timestamps) != 0 {
		t.Errorf("timestamps = %v, want empty", resp.Timestamps)
	}
}

func TestAskWithMoments(t *testing.T) {
	srv, store, embedder := newTestServer(t)
	router := srv.Router()
	ctx := context.Background()

	vec, _ := embedder.Embed(ctx, "Person coding on a laptop")
	store.Upsert(ctx, core.NewMoment(42, "Person coding on a laptop", vec))

	body, _ := json.Marshal(core.AskRequest{Question: "someone coding on a laptop"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp core.AskResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(resp.Timestamps) != 1 || resp.Timestamps[0] != 42 {
		t.Errorf("timestamps = %v, want [42]", resp.Timestamps)
	}
	if len(resp.Context) != 1 || resp.Context[0].Description != "Person coding on a laptop" {
		t.Errorf("unexpected context: %+v", resp.Context)
	}
}

func TestAskRejectsMissingQuestion(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	for _, body := range []string{`{}`, `{"question": "   "}`} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader([]byte(body)))
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status for body %s = %d, want 400", body, w.Code)
		}
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	srv, _, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, "127.0.0.1:0")
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() after cancel = %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp["status"] != "ok" || resp["vector_db"] != "connected" {
		t.Errorf("unexpected health payload: %v", resp)
	}
}

func TestStats(t *testing.T) {
	srv, store, embedder := newTestServer(t)
	router := srv.Router()
	ctx := context.Background()

	vec, _ := embedder.Embed(ctx, "a moment")
	store.Upsert(ctx, core.NewMoment(0, "a moment", vec))
	store.Upsert(ctx, core.NewMoment(5, "another moment", vec))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp core.StatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.TotalFrames != 2 {
		t.Errorf("total_frames = %d, want 2", resp.TotalFrames)
	}
	if resp.CollectionName != "video_frames" {
		t.Errorf("collection_name = %q, want video_frames", resp.CollectionName)
	}
}
