package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wko-katas/katas-engine/internal/models"
)

func writeEnvelope(w http.ResponseWriter, status int, data interface{}, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	body := map[string]interface{}{"success": status < 300}
	if data != nil {
		body["data"] = data
	}
	if code != "" {
		body["error"] = map[string]string{"code": code, "message": message}
	}
	json.NewEncoder(w).Encode(body)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			writeEnvelope(w, http.StatusUnauthorized, nil, "invalid_credentials", "invalid username or password")
			return
		}
		writeEnvelope(w, http.StatusOK, models.LoginResponse{
			Token: "token-" + req.Username,
			User:  &models.User{ID: 2, Username: req.Username, Belt: models.BeltVerde},
		}, "", "")
	})

	mux.HandleFunc("GET /api/v1/katas", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-green" {
			writeEnvelope(w, http.StatusUnauthorized, nil, "not_authenticated", "authentication required")
			return
		}
		q := r.URL.Query()
		writeEnvelope(w, http.StatusOK, KataList{
			Katas: []models.KataView{{Kata: models.Kata{ID: "k1", KataName: q.Get("search")}}},
			Total: 1,
			Filter: models.FilterState{
				SearchTerm:        q.Get("search"),
				SelectedBelts:     []models.BeltLevel{models.BeltLevel(q.Get("belts"))},
				ShowFavoritesOnly: q.Get("favorites") == "true",
			},
		}, "", "")
	})

	mux.HandleFunc("GET /api/v1/video/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusForbidden, nil, "belt_locked", "kata requires belt "+r.PathValue("id"))
	})

	mux.HandleFunc("PUT /api/v1/progress/{id}", func(w http.ResponseWriter, r *http.Request) {
		var tick struct {
			CurrentTime float64 `json:"currentTime"`
			Duration    float64 `json:"duration"`
		}
		json.NewDecoder(r.Body).Decode(&tick)
		writeEnvelope(w, http.StatusOK, models.VideoProgress{
			KataID:            r.PathValue("id"),
			CurrentTime:       tick.CurrentTime,
			Duration:          tick.Duration,
			WatchedPercentage: tick.CurrentTime / tick.Duration * 100,
		}, "", "")
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]string{"status": "healthy"}, "", "")
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestLoginStoresToken(t *testing.T) {
	ts := newTestServer(t)
	c := NewClient(ts.URL + "/")

	resp, err := c.Login(context.Background(), "green", "secret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.User.Belt != models.BeltVerde {
		t.Errorf("unexpected user: %+v", resp.User)
	}

	list, err := c.ListKatas(context.Background(), ListOptions{
		Search:        "heian",
		Belts:         []models.BeltLevel{models.BeltAzulBarraAmarillo},
		FavoritesOnly: true,
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if list.Filter.SearchTerm != "heian" || !list.Filter.ShowFavoritesOnly {
		t.Errorf("query not forwarded: %+v", list.Filter)
	}
	if list.Filter.SelectedBelts[0] != models.BeltAzulBarraAmarillo {
		t.Errorf("belt not forwarded: %v", list.Filter.SelectedBelts)
	}
}

func TestLoginFailureReturnsAPIError(t *testing.T) {
	ts := newTestServer(t)
	c := NewClient(ts.URL)

	_, err := c.Login(context.Background(), "green", "wrong")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Code != "invalid_credentials" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestGatedVideoError(t *testing.T) {
	ts := newTestServer(t)
	c := NewClient(ts.URL, WithToken("token-white"))

	_, err := c.VideoURL(context.Background(), "k3")

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "belt_locked" {
		t.Fatalf("expected belt_locked error, got %v", err)
	}
}

func TestUpdateProgress(t *testing.T) {
	ts := newTestServer(t)
	c := NewClient(ts.URL, WithToken("token-green"))

	p, err := c.UpdateProgress(context.Background(), "k1", 45, 90)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if p.KataID != "k1" || p.WatchedPercentage != 50 {
		t.Errorf("unexpected progress: %+v", p)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	if err := NewClient(ts.URL).Health(context.Background()); err != nil {
		t.Errorf("health failed: %v", err)
	}
}
