package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"charchive/internal/catalog"

	"github.com/gorilla/mux"
)

// BatchCardsRequest asks for a specific set of cards by id.
type BatchCardsRequest struct {
	IDs []string `json:"ids"`
}

const maxBatchIDs = 100

// GetCard returns a single card by id.
func (h *Handlers) GetCard(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, "Invalid card id", http.StatusBadRequest)
		return
	}

	card, err := h.store.GetCard(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, "Card not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeJSONError(w, "Failed to get card", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, card)
}

// GetCardsBatch returns the cards named in the request body, in request
// order. Unknown and malformed ids are dropped silently.
func (h *Handlers) GetCardsBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchCardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.IDs) > maxBatchIDs {
		req.IDs = req.IDs[:maxBatchIDs]
	}

	cards, err := h.store.GetCardsByIDs(r.Context(), req.IDs)
	if err != nil {
		writeJSONError(w, "Failed to get cards", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, cards)
}

// UpsertCard ingests or updates a card.
func (h *Handlers) UpsertCard(w http.ResponseWriter, r *http.Request) {
	var card catalog.Card
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if card.ID == 0 {
		writeJSONError(w, "Card id is required", http.StatusBadRequest)
		return
	}

	// The wire format carries tags as a list; the store keeps the raw
	// comma-joined field.
	if card.Topics == "" && len(card.TagList) > 0 {
		card.Topics = strings.Join(card.TagList, ", ")
	}

	if err := h.store.UpsertCard(r.Context(), &card); err != nil {
		writeJSONError(w, "Failed to store card", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, "ok")
}

// DeleteCard removes a card and its index rows.
func (h *Handlers) DeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, "Invalid card id", http.StatusBadRequest)
		return
	}

	if err := h.store.DeleteCard(r.Context(), id); err != nil {
		writeJSONError(w, "Failed to delete card", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, "ok")
}

// ToggleFavorite flips a card's favorite flag.
func (h *Handlers) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, "Invalid card id", http.StatusBadRequest)
		return
	}

	favorited, err := h.store.ToggleFavorite(r.Context(), id)
	if err != nil {
		writeJSONError(w, "Failed to toggle favorite", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]bool{"favorited": favorited})
}
