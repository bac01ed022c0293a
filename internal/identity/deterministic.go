package identity

import (
	"path/filepath"
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Callers must ensure key construction prevents cross-entity collisions (prefix by domain/type).
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// DocumentUUID identifies a source document by its content-root relative path.
// Separators are normalised so the same document hashes identically on every
// platform.
func DocumentUUID(filePath string) uuid.UUID {
	return UUID("go-sitegen:document:" + filepath.ToSlash(strings.TrimSpace(filePath)))
}

// PageUUID identifies one rendered page, which is a document in one locale.
func PageUUID(documentID uuid.UUID, locale string) uuid.UUID {
	return UUID("go-sitegen:page:" + documentID.String() + ":" + strings.ToLower(strings.TrimSpace(locale)))
}

func MenuUUID(menuCode string) uuid.UUID {
	return UUID("go-sitegen:menu:" + strings.TrimSpace(menuCode))
}

func MenuItemUUID(menuID uuid.UUID, canonicalKey string) uuid.UUID {
	return UUID("go-sitegen:menu_item:" + menuID.String() + ":" + strings.TrimSpace(canonicalKey))
}
