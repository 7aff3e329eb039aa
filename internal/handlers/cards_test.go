package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"charchive/internal/catalog"

	"github.com/gorilla/mux"
)

func newCardRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/cards", h.UpsertCard).Methods("PUT")
	r.HandleFunc("/api/cards/batch", h.GetCardsBatch).Methods("POST")
	r.HandleFunc("/api/cards/{id}", h.GetCard).Methods("GET")
	r.HandleFunc("/api/cards/{id}", h.DeleteCard).Methods("DELETE")
	r.HandleFunc("/api/cards/{id}/favorite", h.ToggleFavorite).Methods("POST")
	return r
}

func TestGetCardHandler(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	h, store := setupTestHandlers(t)
	seedCard(t, store, 7, "fantasy")
	router := newCardRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cards/7", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var card catalog.Card
	if err := json.Unmarshal(w.Body.Bytes(), &card); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if card.ID != 7 || len(card.TagList) != 1 || card.TagList[0] != "fantasy" {
		t.Errorf("card = %+v", card)
	}

	// Unknown id
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cards/999", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown card status = %d, want 404", w.Code)
	}

	// Malformed id
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cards/abc", nil))
	if w.Code != http.StatusBadRequest && w.Code != http.StatusNotFound {
		t.Errorf("malformed id status = %d", w.Code)
	}
}

func TestUpsertCardHandler(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	h, store := setupTestHandlers(t)
	router := newCardRouter(h)

	body := `{"id": 42, "name": "New Card", "author": "alice", "tags": ["Fantasy", "Magic"], "createdAt": "2024-01-01T00:00:00Z", "updatedAt": "2024-01-01T00:00:00Z"}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/cards", strings.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	card, err := store.GetCard(context.Background(), 42)
	if err != nil {
		t.Fatalf("card not stored: %v", err)
	}
	if card.Name != "New Card" {
		t.Errorf("name = %q", card.Name)
	}
	if len(card.TagList) != 2 {
		t.Errorf("TagList = %v, want the two posted tags", card.TagList)
	}

	// Missing id is rejected
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/cards", strings.NewReader(`{"name": "no id"}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing id status = %d, want 400", w.Code)
	}
}

func TestGetCardsBatchHandler(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	h, store := setupTestHandlers(t)
	seedCard(t, store, 1, "")
	seedCard(t, store, 2, "")
	seedCard(t, store, 3, "")
	router := newCardRouter(h)

	body := `{"ids": ["3", "junk", "1", "999"]}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/cards/batch", strings.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var cards []catalog.Card
	if err := json.Unmarshal(w.Body.Bytes(), &cards); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if len(cards) != 2 || cards[0].ID != 3 || cards[1].ID != 1 {
		t.Errorf("cards = %+v, want [3 1] in request order", cards)
	}
}

func TestToggleFavoriteHandler(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	h, store := setupTestHandlers(t)
	seedCard(t, store, 5, "")
	router := newCardRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/cards/5/favorite", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]bool
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if !resp["favorited"] {
		t.Error("first toggle should set favorited true")
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/cards/5/favorite", nil))
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if resp["favorited"] {
		t.Error("second toggle should clear favorited")
	}
}

func TestDeleteCardHandler(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	h, store := setupTestHandlers(t)
	seedCard(t, store, 9, "fantasy")
	router := newCardRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/cards/9", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cards/9", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("deleted card status = %d, want 404", w.Code)
	}
}
