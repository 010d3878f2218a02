package models

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"digital.vasic.nmt/internal/engineerr"
	"digital.vasic.nmt/internal/obslog"
)

const (
	catalogFileName = "models.json"
	flagsFileName   = "flags.json"
	artifactsDir    = "models"
)

// Store is the Model Store (C1): it resolves a Pair to a ModelBundle,
// downloading and verifying files as needed.
type Store struct {
	dataDir          string
	catalogURL       string
	artifactsBaseURL string
	offline          bool
	logger           obslog.Logger
	httpClient       *http.Client
	dl               *downloader

	mu         sync.Mutex
	catalog    []ModelRecord
	downloaded map[string]bool
}

// Option configures a Store at construction time.
type Option func(*Store)

func WithLogger(l obslog.Logger) Option { return func(s *Store) { s.logger = obslog.Or(l) } }

// New builds a Store rooted at dataDir. Init must be called before
// GetModel.
func New(dataDir, catalogURL, artifactsBaseURL string, offline bool, opts ...Option) *Store {
	s := &Store{
		dataDir:          dataDir,
		catalogURL:       catalogURL,
		artifactsBaseURL: artifactsBaseURL,
		offline:          offline,
		logger:           obslog.NoOp{},
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		downloaded:       make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dl = newDownloader(s.logger)
	return s
}

// Init ensures the data/models directories exist and loads (or
// refreshes) the catalog and the downloaded-flags file.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(s.dataDir, artifactsDir), 0o755); err != nil {
		return fmt.Errorf("models: create data dir: %w", err)
	}

	if err := s.loadOrRefreshCatalogLocked(ctx, false); err != nil {
		return err
	}
	return s.loadFlagsLocked()
}

// RefreshCatalog forces a catalog re-fetch regardless of whether a
// cached copy exists.
func (s *Store) RefreshCatalog(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadOrRefreshCatalogLocked(ctx, true)
}

func (s *Store) catalogPath() string { return filepath.Join(s.dataDir, catalogFileName) }
func (s *Store) flagsPath() string   { return filepath.Join(s.dataDir, flagsFileName) }

func (s *Store) loadOrRefreshCatalogLocked(ctx context.Context, force bool) error {
	path := s.catalogPath()
	_, statErr := os.Stat(path)
	needFetch := force || os.IsNotExist(statErr)

	if !needFetch {
		data, err := os.ReadFile(path)
		if err != nil {
			return engineerr.Wrap(engineerr.CatalogUnavailable, "store.loadCatalog", err)
		}
		var records []ModelRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return engineerr.Wrap(engineerr.CatalogUnavailable, "store.loadCatalog", err)
		}
		s.catalog = records
		return nil
	}

	if s.offline {
		if statErr == nil {
			return s.loadOrRefreshCatalogLocked(ctx, false)
		}
		return engineerr.New(engineerr.Offline, "store.loadCatalog", "catalog missing and offline mode is enabled")
	}
	if s.catalogURL == "" {
		return engineerr.New(engineerr.CatalogUnavailable, "store.loadCatalog", "no catalog URL configured and no cached catalog present")
	}

	records, err := s.fetchCatalog(ctx)
	if err != nil {
		if statErr == nil {
			s.logger.Warn("catalog refresh failed, using cached copy", map[string]interface{}{"error": err.Error()})
			return s.loadOrRefreshCatalogLocked(ctx, false)
		}
		return engineerr.Wrap(engineerr.CatalogUnavailable, "store.loadCatalog", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("models: marshal catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("models: persist catalog: %w", err)
	}
	s.catalog = records
	return nil
}

func (s *Store) fetchCatalog(ctx context.Context) ([]ModelRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.catalogURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog fetch: bad status %s", resp.Status)
	}

	var records []ModelRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) loadFlagsLocked() error {
	data, err := os.ReadFile(s.flagsPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("models: read flags: %w", err)
	}
	var f flagsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("models: parse flags: %w", err)
	}
	for _, key := range f.Downloaded {
		s.downloaded[key] = true
	}
	return nil
}

func (s *Store) saveFlagsLocked() error {
	keys := make([]string, 0, len(s.downloaded))
	for k := range s.downloaded {
		keys = append(keys, k)
	}
	data, err := json.MarshalIndent(flagsFile{Downloaded: keys}, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.flagsPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.flagsPath())
}

func (s *Store) recordsFor(pair Pair) []ModelRecord {
	var out []ModelRecord
	for _, r := range s.catalog {
		if r.FromLang == pair.From && r.ToLang == pair.To {
			out = append(out, r)
		}
	}
	return out
}

// GetModel resolves pair to a ModelBundle, downloading and verifying any
// missing or stale file.
func (s *Store) GetModel(ctx context.Context, pair Pair) (ModelBundle, error) {
	s.mu.Lock()
	records := s.recordsFor(pair)
	s.mu.Unlock()

	if len(records) == 0 {
		return nil, engineerr.New(engineerr.NoSuchPair, "store.GetModel", pair.Key())
	}

	bundle := make(ModelBundle, len(records))
	for _, record := range records {
		localPath := filepath.Join(s.dataDir, artifactsDir, record.Name)

		if !fileMatchesChecksum(localPath, record.Attachment.Hash) {
			if s.offline {
				return nil, engineerr.New(engineerr.Offline, "store.GetModel", record.Name)
			}
			if err := s.dl.fetch(ctx, record, localPath); err != nil {
				return nil, err
			}
		}

		data, err := os.ReadFile(localPath)
		if err != nil {
			return nil, fmt.Errorf("models: read %s: %w", record.Name, err)
		}
		bundle[record.FileType] = File{Name: record.Name, Data: data}
	}

	if !bundle.Complete() {
		return nil, engineerr.New(engineerr.NoSuchPair, "store.GetModel", fmt.Sprintf("%s: incomplete bundle", pair.Key()))
	}

	s.mu.Lock()
	s.downloaded[pair.Key()] = true
	err := s.saveFlagsLocked()
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("failed to persist downloaded flag", map[string]interface{}{"pair": pair.Key(), "error": err.Error()})
	}

	return bundle, nil
}

// ListDownloaded returns every pair key GetModel has successfully
// resolved at least once.
func (s *Store) ListDownloaded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.downloaded))
	for k := range s.downloaded {
		out = append(out, k)
	}
	return out
}

func fileMatchesChecksum(path, want string) bool {
	sum, err := checksumFile(path)
	if err != nil {
		return false
	}
	return sum == want
}
