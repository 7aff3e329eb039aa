package tagalias

import "testing"

func newTestExpander() *Expander {
	return NewExpander(NewTable(map[string][]string{
		"robot":   {"android", "cyborg"},
		"vampire": {"vamp"},
	}))
}

func TestExpand(t *testing.T) {
	t.Parallel()

	e := newTestExpander()

	tests := []struct {
		name string
		tag  string
		want []string
	}{
		{"canonical", "robot", []string{"robot", "android", "cyborg"}},
		{"variant pulls whole group", "android", []string{"android", "robot", "cyborg"}},
		{"case preserved on input", "Cyborg", []string{"Cyborg", "robot", "android"}},
		{"fuzzy typo", "robbot", []string{"robbot", "robot", "android", "cyborg"}},
		{"unknown passes through", "werewolf", []string{"werewolf"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := e.Expand(tt.tag)
			if len(got) != len(tt.want) {
				t.Fatalf("Expand(%q) = %v, want %v", tt.tag, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Expand(%q)[%d] = %q, want %q", tt.tag, i, got[i], tt.want[i])
				}
			}
			if got[0] != tt.tag {
				t.Errorf("Expand(%q) first element = %q, want verbatim input", tt.tag, got[0])
			}
		})
	}
}

func TestExpandWithKind(t *testing.T) {
	t.Parallel()

	e := newTestExpander()

	tests := []struct {
		tag  string
		kind ResolutionKind
	}{
		{"robot", ResolvedExact},
		{"ANDROID", ResolvedExact},
		{"robbot", ResolvedFuzzy},
		{"vampa", ResolvedFuzzy},
		{"werewolf", ResolvedNone},
		{"rp", ResolvedNone},
	}

	for _, tt := range tests {
		tt := tt
		if _, kind := e.ExpandWithKind(tt.tag); kind != tt.kind {
			t.Errorf("ExpandWithKind(%q) kind = %q, want %q", tt.tag, kind, tt.kind)
		}
	}
}

func TestExpandSymmetry(t *testing.T) {
	t.Parallel()

	e := newTestExpander()

	// Every member of a group must expand to the same spelling set,
	// regardless of which member the user typed.
	members := []string{"robot", "android", "cyborg"}
	for _, from := range members {
		got := e.Expand(from)
		set := make(map[string]bool, len(got))
		for _, v := range got {
			set[v] = true
		}
		for _, member := range members {
			if !set[member] {
				t.Errorf("Expand(%q) missing group member %q: %v", from, member, got)
			}
		}
	}
}

func TestNewExpanderNilTable(t *testing.T) {
	t.Parallel()

	e := NewExpander(nil)
	got := e.Expand("anything")
	if len(got) != 1 || got[0] != "anything" {
		t.Errorf("Expand on nil table = %v, want pass-through", got)
	}
}
