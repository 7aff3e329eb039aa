package startup

import (
	"net/http"
	"os"
	"testing"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Version should not be empty")
	}
	if info.GoVersion == "" {
		t.Error("GoVersion should not be empty")
	}
	if info.OS == "" || info.Arch == "" {
		t.Error("OS and Arch should be populated")
	}
}

func TestGetEnv(t *testing.T) {
	const key = "CHARCHIVE_TEST_ENV"

	os.Unsetenv(key)
	if got := getEnv(key, "fallback"); got != "fallback" {
		t.Errorf("getEnv unset = %q, want fallback", got)
	}

	os.Setenv(key, "value")
	defer os.Unsetenv(key)
	if got := getEnv(key, "fallback"); got != "value" {
		t.Errorf("getEnv set = %q, want value", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	const key = "CHARCHIVE_TEST_BOOL"

	tests := []struct {
		value        string
		defaultValue bool
		want         bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{"false", true, false},
		{"1", false, true},
		{"0", true, false},
		{"garbage", true, true},
		{"garbage", false, false},
	}

	for _, tt := range tests {
		if tt.value == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, tt.value)
		}
		if got := getEnvBool(key, tt.defaultValue); got != tt.want {
			t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.value, tt.defaultValue, got, tt.want)
		}
	}
	os.Unsetenv(key)
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "health"},
		{"/api/cards", "api/cards"},
		{"/api/cards/{id}", "api/cards"},
		{"/api/search", "api/search"},
		{"/", ""},
	}

	for _, tt := range tests {
		if got := getRouteGroup(tt.path); got != tt.want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestGetRoutes(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(http.ResponseWriter, *http.Request) {}).Methods("GET")
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/cards/{id}", func(http.ResponseWriter, *http.Request) {}).Methods("GET", "DELETE")

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatalf("GetRoutes failed: %v", err)
	}

	want := map[string]bool{
		"GET /health":            false,
		"GET /api/cards/{id}":    false,
		"DELETE /api/cards/{id}": false,
	}
	for _, route := range routes {
		key := route.Method + " " + route.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for key, found := range want {
		if !found {
			t.Errorf("route %q not returned", key)
		}
	}
}
