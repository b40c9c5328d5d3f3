package sqlite

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mediacatalog/catalog/internal/model"
	"github.com/mediacatalog/catalog/internal/store"
	"github.com/mediacatalog/catalog/internal/store/storetest"
)

func TestSQLiteStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
		if err != nil {
			t.Fatalf("open sqlite store: %v", err)
		}
		return s
	})
}

func TestTranslateDuplicate(t *testing.T) {
	err := translateDuplicate(fmt.Errorf("constraint failed: UNIQUE constraint failed: users.alias (2067)"))
	var dup *model.DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateKeyError, got %v", err)
	}
	if dup.Collection != "users" || dup.Property != "alias" {
		t.Fatalf("parsed %s.%s", dup.Collection, dup.Property)
	}

	plain := fmt.Errorf("disk I/O error")
	if got := translateDuplicate(plain); got != plain {
		t.Fatalf("non-unique error was rewritten: %v", got)
	}
}
