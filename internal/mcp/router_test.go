package mcp

import (
	"testing"
)

func TestToolCategories(t *testing.T) {
	for _, cat := range toolCategories {
		if len(cat.Tools) == 0 {
			t.Errorf("category %s has no tools", cat.Name)
		}
		if cat.Description == "" {
			t.Errorf("category %s has no description", cat.Name)
		}
	}
}

func TestToolCategoriesUniqueness(t *testing.T) {
	seen := make(map[string]string)
	for _, cat := range toolCategories {
		for _, tool := range cat.Tools {
			if prevCat, exists := seen[tool.Name]; exists {
				t.Errorf("tool %s appears in both %s and %s", tool.Name, prevCat, cat.Name)
			}
			seen[tool.Name] = cat.Name
		}
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"a", "", 1},
		{"", "a", 1},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"abc", "adc", 1},
		{"kitten", "sitting", 3},
		{"momentum", "momentun", 1},
		{"get_session_state", "getsession_state", 1},
	}

	for _, tt := range tests {
		result := levenshteinDistance(tt.a, tt.b)
		if result != tt.expected {
			t.Errorf("levenshteinDistance(%q, %q) = %d, expected %d", tt.a, tt.b, result, tt.expected)
		}
	}
}

func TestFindSimilarTools(t *testing.T) {
	s := &Server{}

	similar := s.findSimilarTools("momentum")
	if len(similar) != 1 || similar[0] != "momentum_event" {
		t.Errorf("findSimilarTools(momentum) = %v, want [momentum_event]", similar)
	}

	similar = s.findSimilarTools("resolve_next_acton")
	found := false
	for _, name := range similar {
		if name == "resolve_next_action" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected resolve_next_action in %v", similar)
	}

	if similar := s.findSimilarTools("zzzzzzzzzzzzzzzzzzzzzzzz"); len(similar) != 0 {
		t.Errorf("unexpected suggestions %v", similar)
	}
}

func TestToolHandlersCompleteness(t *testing.T) {
	s := &Server{}
	handlers := s.getToolHandlers()

	for _, cat := range toolCategories {
		for _, tool := range cat.Tools {
			if _, ok := handlers[tool.Name]; !ok {
				t.Errorf("tool %s has no handler", tool.Name)
			}
		}
	}
	for name := range handlers {
		if _, ok := lookupTool(name); !ok {
			t.Errorf("handler %s is not listed in any category", name)
		}
	}
	for name := range toolKeywords {
		if _, ok := handlers[name]; !ok {
			t.Errorf("keywords for unknown tool %s", name)
		}
	}
}

func TestSuggestTools(t *testing.T) {
	tests := []struct {
		intent       string
		expectedTool string
	}{
		{"what should the user do next", "resolve_next_action"},
		{"user came back after a long gap", "soft_landing_event"},
		{"hide the explore section", "get_today_visibility"},
		{"reset and forget", "clear_session_state"},
		{"build the whole dashboard", "compose_today"},
	}

	for _, tt := range tests {
		t.Run(tt.intent, func(t *testing.T) {
			got := suggestTools(tt.intent, 3)
			if len(got) == 0 {
				t.Fatalf("no suggestions for %q", tt.intent)
			}
			if got[0].info.Name != tt.expectedTool {
				t.Errorf("top suggestion = %s, want %s", got[0].info.Name, tt.expectedTool)
			}
		})
	}
}

func TestSuggestToolsLimit(t *testing.T) {
	got := suggestTools("show the next action on the today dashboard after a gap", 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].score < got[1].score {
		t.Errorf("suggestions not sorted: %+v", got)
	}
}
