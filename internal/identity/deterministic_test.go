package identity

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDDeterministic(t *testing.T) {
	first := UUID("go-sitegen:document:blog/post.md")
	second := UUID("go-sitegen:document:blog/post.md")
	if first != second {
		t.Fatalf("expected stable UUID, got %s and %s", first, second)
	}
	if first == uuid.Nil {
		t.Fatal("expected non-nil UUID")
	}
}

func TestUUIDEmptyKey(t *testing.T) {
	if got := UUID("   "); got != uuid.Nil {
		t.Fatalf("expected uuid.Nil for blank key, got %s", got)
	}
}

func TestDocumentUUIDNormalisesSeparators(t *testing.T) {
	plain := DocumentUUID("blog/post.md")
	padded := DocumentUUID("  blog/post.md  ")
	if plain != padded {
		t.Fatalf("expected trimmed path to hash identically, got %s and %s", plain, padded)
	}
}

func TestPageUUIDVariesByLocale(t *testing.T) {
	doc := DocumentUUID("blog/post.md")

	en := PageUUID(doc, "en")
	es := PageUUID(doc, "es")
	if en == es {
		t.Fatal("expected locale to change the page UUID")
	}
	if again := PageUUID(doc, "EN"); again != en {
		t.Fatalf("expected locale casing ignored, got %s and %s", again, en)
	}
}

func TestMenuItemUUIDScopedToMenu(t *testing.T) {
	main := MenuUUID("main")
	footer := MenuUUID("footer")
	if main == footer {
		t.Fatal("expected distinct menu UUIDs")
	}

	if MenuItemUUID(main, "docs") == MenuItemUUID(footer, "docs") {
		t.Fatal("expected menu item UUIDs scoped to the owning menu")
	}
}
