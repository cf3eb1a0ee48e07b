package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"newsdocx/internal/modeldir"
	"newsdocx/internal/store"
)

func raceServer(t *testing.T, reply func(model string) (int, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		status, content := reply(req.Model)
		if status != http.StatusOK {
			http.Error(w, "error", status)
			return
		}
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, content)
	}))
}

func TestRace_FirstNonEmptyWins(t *testing.T) {
	srv := raceServer(t, func(model string) (int, string) {
		if model == "vendor/healthy:free" {
			return http.StatusOK, "winner text"
		}
		return http.StatusInternalServerError, ""
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	text, model, err := c.Race(t.Context(), "s", "u",
		[]string{"vendor/broken:free", "vendor/healthy:free"}, 100)
	if err != nil {
		t.Fatalf("race failed: %v", err)
	}
	if text != "winner text" {
		t.Errorf("got text %q", text)
	}
	if model != "vendor/healthy:free" {
		t.Errorf("got model %q", model)
	}
}

func TestRace_SkipsEmptyCompletions(t *testing.T) {
	srv := raceServer(t, func(model string) (int, string) {
		if model == "vendor/empty:free" {
			return http.StatusOK, "   "
		}
		return http.StatusOK, "real content"
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	text, model, err := c.Race(t.Context(), "s", "u",
		[]string{"vendor/empty:free", "vendor/full:free"}, 100)
	if err != nil {
		t.Fatalf("race failed: %v", err)
	}
	if text != "real content" || model != "vendor/full:free" {
		t.Errorf("got %q from %q", text, model)
	}
}

func TestRace_AllFailed(t *testing.T) {
	var calls atomic.Int64
	srv := raceServer(t, func(string) (int, string) {
		calls.Add(1)
		return http.StatusInternalServerError, ""
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	_, _, err := c.Race(t.Context(), "s", "u", []string{"vendor/a:free", "vendor/b:free"}, 100)
	if !errors.Is(err, ErrAllModelsFailed) {
		t.Fatalf("expected ErrAllModelsFailed, got %v", err)
	}
	if calls.Load() < 2 {
		t.Errorf("expected at least one attempt per candidate, saw %d", calls.Load())
	}
}

func TestRaceValidated_FirstPassingWins(t *testing.T) {
	srv := raceServer(t, func(model string) (int, string) {
		if model == "vendor/short:free" {
			return http.StatusOK, "too short"
		}
		return http.StatusOK, strings.Repeat("word ", 50)
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	longEnough := func(s string) bool { return len(strings.Fields(s)) >= 40 }

	text, model, validated, err := c.RaceValidated(t.Context(), "s", "u",
		[]string{"vendor/short:free", "vendor/long:free"}, 200, longEnough)
	if err != nil {
		t.Fatalf("race failed: %v", err)
	}
	if !validated {
		t.Error("expected a validated result")
	}
	if model != "vendor/long:free" {
		t.Errorf("got model %q", model)
	}
	if !longEnough(text) {
		t.Errorf("winning text fails its own validator: %q", text)
	}
}

func TestRaceValidated_FallsBackToUnvalidated(t *testing.T) {
	srv := raceServer(t, func(string) (int, string) {
		return http.StatusOK, "best effort output"
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	rejectAll := func(string) bool { return false }

	text, _, validated, err := c.RaceValidated(t.Context(), "s", "u",
		[]string{"vendor/a:free"}, 100, rejectAll)
	if err != nil {
		t.Fatalf("expected best-effort result, got error: %v", err)
	}
	if validated {
		t.Error("result must be flagged unvalidated")
	}
	if text != "best effort output" {
		t.Errorf("got %q", text)
	}
}

func TestCall_EmptyModelRacesDiscoveredCandidates(t *testing.T) {
	var mu sync.Mutex
	requested := make(map[string]bool)
	srv := raceServer(t, func(model string) (int, string) {
		mu.Lock()
		requested[model] = true
		mu.Unlock()
		return http.StatusOK, "ok"
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	discovered := []string{"discovered/model-a:free", "discovered/model-b:free"}
	c.SetCandidateSource(func(context.Context) []string { return discovered })

	if _, err := c.Call(t.Context(), "s", "u", "", 100); err != nil {
		t.Fatalf("call failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(requested) == 0 {
		t.Fatal("expected at least one upstream request")
	}
	for m := range requested {
		if m != discovered[0] && m != discovered[1] {
			t.Errorf("request for %q, want only the discovered candidates", m)
		}
	}
}

func TestRace_EmptySourceFallsBackToFixedList(t *testing.T) {
	var mu sync.Mutex
	requested := make(map[string]bool)
	srv := raceServer(t, func(model string) (int, string) {
		mu.Lock()
		requested[model] = true
		mu.Unlock()
		return http.StatusOK, "ok"
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	c.SetCandidateSource(func(context.Context) []string { return nil })

	if _, _, err := c.Race(t.Context(), "s", "u", nil, 100); err != nil {
		t.Fatalf("race failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	fixed := make(map[string]bool)
	for _, m := range modeldir.FallbackModels {
		fixed[m] = true
	}
	for m := range requested {
		if !fixed[m] {
			t.Errorf("request for %q, want only the fixed fallback list", m)
		}
	}
}

func TestRaceValidated_CachesCompletions(t *testing.T) {
	var calls atomic.Int64
	srv := raceServer(t, func(string) (int, string) {
		calls.Add(1)
		return http.StatusOK, "enforced output"
	})
	defer srv.Close()

	cache, err := store.New(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer cache.Close()

	c := newTestClient(t, srv.URL, cache)
	accept := func(string) bool { return true }
	models := []string{"vendor/only:free"}

	for i := 0; i < 2; i++ {
		text, _, validated, err := c.RaceValidated(t.Context(), "sys", "user", models, 200, accept)
		if err != nil {
			t.Fatalf("race %d failed: %v", i, err)
		}
		if !validated || text != "enforced output" {
			t.Fatalf("race %d: got %q validated=%v", i, text, validated)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 upstream request, saw %d", n)
	}
}

func TestRace_LosersRunToCompletion(t *testing.T) {
	var loserDone, loserCancelled atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model == "vendor/slow:free" {
			time.Sleep(150 * time.Millisecond)
			if r.Context().Err() != nil {
				loserCancelled.Store(true)
			}
			loserDone.Store(true)
			fmt.Fprint(w, `{"choices":[{"message":{"content":"late"}}]}`)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"fast win"}}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	text, model, err := c.Race(t.Context(), "s", "u",
		[]string{"vendor/slow:free", "vendor/fast:free"}, 100)
	if err != nil {
		t.Fatalf("race failed: %v", err)
	}
	if text != "fast win" || model != "vendor/fast:free" {
		t.Fatalf("got %q from %q", text, model)
	}

	deadline := time.After(2 * time.Second)
	for !loserDone.Load() {
		select {
		case <-deadline:
			t.Fatal("loser request never completed")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	if loserCancelled.Load() {
		t.Error("losers must be abandoned, not cancelled")
	}
}

func TestCall_EmptyModelDelegatesToRace(t *testing.T) {
	srv := raceServer(t, func(string) (int, string) {
		return http.StatusOK, "raced answer"
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	text, err := c.Call(t.Context(), "s", "u", "", 100)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if text != "raced answer" {
		t.Errorf("got %q", text)
	}
}
