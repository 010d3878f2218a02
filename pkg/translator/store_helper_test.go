package translator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"digital.vasic.nmt/pkg/models"
)

// newTestStore builds a *models.Store rooted at a temp directory with a
// pre-seeded catalog and matching local artifacts for each pair, so
// GetModel never needs network access.
func newTestStore(t *testing.T, pairs ...models.Pair) *models.Store {
	t.Helper()
	dir := t.TempDir()
	modelsDir := filepath.Join(dir, "models")
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		t.Fatal(err)
	}

	var records []models.ModelRecord
	for _, pair := range pairs {
		for _, kind := range []models.FileKind{models.FileModel, models.FileVocab} {
			name := string(pair.From) + "_" + string(pair.To) + "_" + string(kind) + ".bin"
			data := []byte("payload-" + name)
			if err := os.WriteFile(filepath.Join(modelsDir, name), data, 0o644); err != nil {
				t.Fatal(err)
			}
			sum := sha256.Sum256(data)
			records = append(records, models.ModelRecord{
				FromLang: pair.From,
				ToLang:   pair.To,
				FileType: kind,
				Name:     name,
				Size:     int64(len(data)),
				Attachment: models.Attachment{
					Location: "file://" + name,
					Hash:     hex.EncodeToString(sum[:]),
				},
			})
		}
	}

	catalog, err := json.Marshal(records)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "models.json"), catalog, 0o644); err != nil {
		t.Fatal(err)
	}

	store := models.New(dir, "", "", true)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("store init failed: %v", err)
	}
	return store
}
