package config

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEmojiSuggest(t *testing.T) {
	c := DefaultEmojiCatalog()

	tests := []struct {
		name string
		want string
	}{
		{"apple", "🍎"},
		{"  Apples ", "🍎"},
		{"sea salt", "🧂"},
		{"olive oil", "🫒"},
		{"quinoa flakes", ""},
		{"buttermilk", "🧈"},
		{"", ""},
		{"quinoa", ""},
	}
	for _, tt := range tests {
		if got := c.Suggest(tt.name); got != tt.want {
			t.Errorf("Suggest(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestEmojiCatalogFirstKeywordWins(t *testing.T) {
	c := NewEmojiCatalog([]EmojiEntry{
		{Emoji: "A", Keywords: []string{"Lime"}},
		{Emoji: "B", Keywords: []string{"lime", "kiwi"}},
		{Emoji: "", Keywords: []string{"ignored"}},
	})
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if got := c.Suggest("lime"); got != "A" {
		t.Errorf("Suggest(lime) = %q, want A", got)
	}
	if got := c.Suggest("kiwi"); got != "B" {
		t.Errorf("Suggest(kiwi) = %q, want B", got)
	}
	if got := c.Suggest("ignored"); got != "" {
		t.Errorf("Suggest(ignored) = %q, want empty", got)
	}
}

func TestLoadEmojiCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emoji.yaml")
	write := func(body string) {
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatalf("write catalog: %v", err)
		}
	}
	write("emojis:\n  - emoji: \"🥝\"\n    keywords: [kiwi, kiwis]\n")

	src, err := LoadEmojiCatalog(EmojiConfig{File: path})
	if err != nil {
		t.Fatalf("LoadEmojiCatalog: %v", err)
	}
	if got := src.Suggest("kiwis"); got != "🥝" {
		t.Errorf("Suggest(kiwis) = %q", got)
	}
	before := src.Catalog()

	write("emojis:\n  - emoji: \"🍐\"\n    keywords: [pear]\n")
	if err := src.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := src.Suggest("pear"); got != "🍐" {
		t.Errorf("after reload Suggest(pear) = %q", got)
	}
	if got := before.Suggest("kiwi"); got != "🥝" {
		t.Errorf("previous snapshot changed: %q", got)
	}

	write("emojis: []\n")
	if err := src.Reload(); err == nil {
		t.Error("expected error for empty catalog")
	}
	if got := src.Suggest("pear"); got != "🍐" {
		t.Errorf("failed reload replaced catalog: %q", got)
	}
}

func TestLoadEmojiCatalogFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"emojis":[{"emoji":"🥑","keywords":["avocado"]}]}`))
	}))
	defer srv.Close()

	src, err := LoadEmojiCatalog(EmojiConfig{URL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("LoadEmojiCatalog: %v", err)
	}
	if got := src.Suggest("ripe avocado"); got != "🥑" {
		t.Errorf("Suggest = %q", got)
	}
}

func TestLoadEmojiCatalogDefault(t *testing.T) {
	src, err := LoadEmojiCatalog(EmojiConfig{})
	if err != nil {
		t.Fatalf("LoadEmojiCatalog: %v", err)
	}
	if src.Catalog().Len() == 0 {
		t.Error("default catalog is empty")
	}
}
