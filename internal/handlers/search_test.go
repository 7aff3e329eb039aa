package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"charchive/internal/catalog"
)

func TestSplitParam(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"empty", "", nil},
		{"blank", "  ", nil},
		{"single", "fantasy", []string{"fantasy"}},
		{"several", "a, b ,c", []string{"a", "b", "c"}},
		{"drops empties", "a,,b,", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitParam(tt.value)
			if len(got) != len(tt.want) {
				t.Fatalf("splitParam(%q) = %v, want %v", tt.value, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("splitParam(%q)[%d] = %q, want %q", tt.value, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitParamKeepEmpty(t *testing.T) {
	if got := splitParamKeepEmpty(""); got == nil || len(got) != 0 {
		t.Errorf("splitParamKeepEmpty(\"\") = %v, want empty non-nil slice", got)
	}
	if got := splitParamKeepEmpty("a,b"); len(got) != 2 {
		t.Errorf("splitParamKeepEmpty(a,b) = %v", got)
	}
}

func TestBoolParam(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"false", false},
		{"", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		if got := boolParam(tt.value); got != tt.want {
			t.Errorf("boolParam(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestSearchHandler(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	h, store := setupTestHandlers(t)
	seedCard(t, store, 1, "android, fantasy")
	seedCard(t, store, 2, "fantasy")
	seedCard(t, store, 3, "horror")

	tests := []struct {
		name      string
		query     string
		wantTotal int
	}{
		{"no filters", "", 3},
		{"tag filter", "tags=fantasy", 2},
		{"alias variant", "tags=robot", 1},
		{"tag all mode", "tags=android,fantasy&tagMode=all", 1},
		{"exclusion", "tags=fantasy&exclude=robot", 1},
		{"text", "q=Card+3", 1},
		{"explicit empty allow-list", "ids=", 0},
		{"allow-list", "ids=1,3", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/search?"+tt.query, nil)
			w := httptest.NewRecorder()
			h.Search(w, r)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}

			var page catalog.CardPage
			if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
				t.Fatalf("bad JSON: %v", err)
			}
			if page.TotalItems != tt.wantTotal {
				t.Errorf("TotalItems = %d, want %d", page.TotalItems, tt.wantTotal)
			}
		})
	}
}

func TestSearchHandlerPagination(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	h, store := setupTestHandlers(t)
	for i := int64(1); i <= 7; i++ {
		seedCard(t, store, i, "")
	}

	r := httptest.NewRequest(http.MethodGet, "/api/search?page=2&pageSize=3", nil)
	w := httptest.NewRecorder()
	h.Search(w, r)

	var page catalog.CardPage
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if page.Page != 2 || page.PageSize != 3 {
		t.Errorf("page/pageSize = %d/%d, want 2/3", page.Page, page.PageSize)
	}
	if page.TotalItems != 7 || page.TotalPages != 3 {
		t.Errorf("totals = %d items %d pages, want 7 and 3", page.TotalItems, page.TotalPages)
	}
	if len(page.Cards) != 3 {
		t.Errorf("got %d cards, want 3", len(page.Cards))
	}
}
