package tagalias

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewTable(t *testing.T) {
	t.Parallel()

	table := NewTable(map[string][]string{
		"robot":   {"android", "cyborg", "Android", " droid "},
		"vampire": {},
	})

	if table.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", table.Len())
	}

	// The canonical name is a member of its own group and duplicate
	// spellings collapse case-insensitively.
	group := table.Group("robot")
	want := []string{"robot", "android", "cyborg", "droid"}
	if len(group) != len(want) {
		t.Fatalf("Group(robot) = %v, want %v", group, want)
	}
	for i, v := range want {
		if group[i] != v {
			t.Errorf("Group(robot)[%d] = %q, want %q", i, group[i], v)
		}
	}

	if group := table.Group("vampire"); len(group) != 1 || group[0] != "vampire" {
		t.Errorf("Group(vampire) = %v, want [vampire]", group)
	}

	if group := table.Group("unknown"); group != nil {
		t.Errorf("Group(unknown) = %v, want nil", group)
	}
}

func TestCanonicalOf(t *testing.T) {
	t.Parallel()

	table := NewTable(map[string][]string{
		"robot": {"android", "cyborg"},
	})

	tests := []struct {
		variant string
		want    string
		ok      bool
	}{
		{"android", "robot", true},
		{"ANDROID", "robot", true},
		{"robot", "robot", true},
		{"Cyborg", "robot", true},
		{"werewolf", "", false},
	}

	for _, tt := range tests {
		got, ok := table.CanonicalOf(tt.variant)
		if got != tt.want || ok != tt.ok {
			t.Errorf("CanonicalOf(%q) = (%q, %v), want (%q, %v)",
				tt.variant, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	t.Parallel()

	table := NewTable(map[string][]string{
		"robot": {"android"},
	})

	snap := table.Snapshot()
	snap["robot"][0] = "mutated"
	delete(snap, "robot")

	if group := table.Group("robot"); len(group) != 2 || group[0] != "robot" {
		t.Errorf("table mutated through snapshot: Group(robot) = %v", group)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	path := filepath.Join(dir, "aliases.json")
	content := `{"robot": ["android", "cyborg"], "vampire": ["vamp"]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	table := Load(path)
	if table.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", table.Len())
	}
	if canonical, ok := table.CanonicalOf("cyborg"); !ok || canonical != "robot" {
		t.Errorf("CanonicalOf(cyborg) = (%q, %v), want (robot, true)", canonical, ok)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	table := Load(filepath.Join(t.TempDir(), "nope.json"))
	if table == nil {
		t.Fatal("Load of missing file returned nil")
	}
	if table.Len() != 0 {
		t.Errorf("Len() = %d, want 0", table.Len())
	}
}

func TestLoadMalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	table := Load(path)
	if table.Len() != 0 {
		t.Errorf("Len() = %d, want 0", table.Len())
	}
}
