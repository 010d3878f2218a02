package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.nmt/internal/engineerr"
	"digital.vasic.nmt/pkg/language"
)

func TestGetModel_NoSuchPair(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, nil)

	s := New(dir, "", "", true)
	require.NoError(t, s.Init(context.Background()))

	_, err := s.GetModel(context.Background(), Pair{From: language.English, To: language.Japanese})
	assert.True(t, engineerr.Is(err, engineerr.NoSuchPair))
}

func TestGetModel_LocalFileAlreadyMatchesChecksum(t *testing.T) {
	dir := t.TempDir()
	pair := Pair{From: language.English, To: language.ChineseSimplified}
	data := []byte("model-content")
	writeArtifact(t, dir, "model.bin", data)

	writeCatalog(t, dir, []ModelRecord{
		{FromLang: pair.From, ToLang: pair.To, FileType: FileModel, Name: "model.bin", Attachment: Attachment{Hash: sha256Hex(data)}},
		{FromLang: pair.From, ToLang: pair.To, FileType: FileVocab, Name: "vocab.bin", Attachment: Attachment{Hash: sha256Hex([]byte("vocab-content"))}},
	})
	writeArtifact(t, dir, "vocab.bin", []byte("vocab-content"))

	s := New(dir, "", "", true)
	require.NoError(t, s.Init(context.Background()))

	bundle, err := s.GetModel(context.Background(), pair)
	require.NoError(t, err)
	assert.True(t, bundle.Complete())
	assert.Equal(t, data, bundle[FileModel].Data)
}

func TestGetModel_DownloadsMissingFile(t *testing.T) {
	dir := t.TempDir()
	pair := Pair{From: language.English, To: language.German}
	modelData := []byte("remote-model-bytes")
	vocabData := []byte("remote-vocab-bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/model.bin":
			w.Write(modelData)
		case "/vocab.bin":
			w.Write(vocabData)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	writeCatalog(t, dir, []ModelRecord{
		{FromLang: pair.From, ToLang: pair.To, FileType: FileModel, Name: "model.bin", Attachment: Attachment{Location: srv.URL + "/model.bin", Hash: sha256Hex(modelData)}},
		{FromLang: pair.From, ToLang: pair.To, FileType: FileVocab, Name: "vocab.bin", Attachment: Attachment{Location: srv.URL + "/vocab.bin", Hash: sha256Hex(vocabData)}},
	})

	s := New(dir, "", "", false)
	require.NoError(t, s.Init(context.Background()))

	bundle, err := s.GetModel(context.Background(), pair)
	require.NoError(t, err)
	assert.Equal(t, modelData, bundle[FileModel].Data)
	assert.Contains(t, s.ListDownloaded(), pair.Key())
}

func TestGetModel_OfflineWithMissingArtifactFails(t *testing.T) {
	dir := t.TempDir()
	pair := Pair{From: language.English, To: language.French}
	writeCatalog(t, dir, []ModelRecord{
		{FromLang: pair.From, ToLang: pair.To, FileType: FileModel, Name: "model.bin", Attachment: Attachment{Hash: "deadbeef"}},
		{FromLang: pair.From, ToLang: pair.To, FileType: FileVocab, Name: "vocab.bin", Attachment: Attachment{Hash: "deadbeef"}},
	})

	s := New(dir, "", "", true)
	require.NoError(t, s.Init(context.Background()))

	_, err := s.GetModel(context.Background(), pair)
	assert.True(t, engineerr.Is(err, engineerr.Offline))
}

func writeCatalog(t *testing.T, dir string, records []ModelRecord) {
	t.Helper()
	if records == nil {
		records = []ModelRecord{}
	}
	data, err := json.Marshal(records)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models.json"), data, 0o644))
}

func writeArtifact(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "models"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models", name), data, 0o644))
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
