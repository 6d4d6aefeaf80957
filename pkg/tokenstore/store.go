package tokenstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/giantswarm/courier/pkg/logging"
)

// DefaultStorageDir is the default directory for stored credentials,
// relative to the user's home directory.
const DefaultStorageDir = ".config/courier/tokens"

// Protocol values of Record.Protocol.
const (
	ProtocolOAuth1 = "oauth1"
	ProtocolOAuth2 = "oauth2"
)

// Record is a persisted credential of either protocol.
type Record struct {
	Protocol string `json:"protocol"`

	// Profile is the configuration profile the credential belongs to.
	Profile string `json:"profile,omitempty"`

	AccessToken string `json:"access_token"`

	// TokenSecret is the OAuth1 access token secret.
	TokenSecret string `json:"token_secret,omitempty"`

	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`

	// Endpoint is the token endpoint that issued the credential.
	Endpoint string `json:"endpoint"`
	ClientID string `json:"client_id"`

	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the access token expires within margin.
// Records without expiry never expire.
func (r *Record) Expired(margin time.Duration) bool {
	if r == nil || r.AccessToken == "" {
		return true
	}
	if r.Expiry.IsZero() {
		return false
	}
	return !time.Now().Add(margin).Before(r.Expiry)
}

// ToOAuth2Token converts the record to an oauth2.Token.
func (r *Record) ToOAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		Expiry:       r.Expiry,
	}
}

// Store persists credentials by key.
type Store interface {
	// Get returns the record for key, or nil when none is stored. Expired
	// records are returned; their refresh tokens may still be usable.
	Get(key string) (*Record, error)
	Save(key string, rec *Record) error
	Delete(key string) error
}

// Key derives a filesystem-safe key from the endpoint and client ID.
func Key(endpoint, clientID string) string {
	hash := sha256.Sum256([]byte(endpoint + "\x00" + clientID))
	return hex.EncodeToString(hash[:16])
}

// Config configures a FileStore.
type Config struct {
	// StorageDir is the directory for token files.
	// Defaults to ~/.config/courier/tokens
	StorageDir string

	// FileMode enables file persistence. If false, records are in-memory only.
	FileMode bool

	Logger *slog.Logger
}

// FileStore keeps records in memory and, in file mode, as one JSON file per
// key.
//
// SECURITY: records hold live credentials.
//   - Files are created with 0600 permissions (owner read/write only)
//   - The storage directory is created with 0700 permissions
//   - Credential values are never logged, only endpoints and client IDs
type FileStore struct {
	mu         sync.RWMutex
	storageDir string
	records    map[string]*Record
	fileMode   bool
	logger     *slog.Logger
}

var _ Store = (*FileStore)(nil)

// New creates a new store with the specified configuration.
func New(cfg Config) (*FileStore, error) {
	storageDir := cfg.StorageDir
	if storageDir == "" && cfg.FileMode {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		storageDir = filepath.Join(homeDir, DefaultStorageDir)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.ForSubsystem("TokenStore")
	}

	store := &FileStore{
		storageDir: storageDir,
		records:    make(map[string]*Record),
		fileMode:   cfg.FileMode,
		logger:     logger,
	}

	if cfg.FileMode {
		if err := os.MkdirAll(storageDir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create token storage directory: %w", err)
		}
	}

	return store, nil
}

// NewMemory returns an in-memory store.
func NewMemory() *FileStore {
	s, _ := New(Config{})
	return s
}

// Save stores rec under key.
func (s *FileStore) Save(key string, rec *Record) error {
	if rec == nil {
		return errors.New("tokenstore: nil record")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *rec
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.records[key] = &stored

	if s.fileMode {
		if err := s.writeFile(key, &stored); err != nil {
			logging.Audit(s.logger, "token_store_failed",
				"endpoint", stored.Endpoint,
				"client_id", stored.ClientID,
				"error", err.Error())
			return fmt.Errorf("failed to persist token: %w", err)
		}
	}

	logging.Audit(s.logger, "token_stored",
		"protocol", stored.Protocol,
		"endpoint", stored.Endpoint,
		"client_id", stored.ClientID,
		"has_refresh_token", stored.RefreshToken != "")
	return nil
}

// Get returns a copy of the record stored under key.
func (s *FileStore) Get(key string) (*Record, error) {
	s.mu.RLock()
	if rec, ok := s.records[key]; ok {
		cp := *rec
		s.mu.RUnlock()
		return &cp, nil
	}
	s.mu.RUnlock()

	if !s.fileMode {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check in case another goroutine populated it
	if rec, ok := s.records[key]; ok {
		cp := *rec
		return &cp, nil
	}

	rec, err := s.readFile(key)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.records[key] = rec
	cp := *rec
	return &cp, nil
}

// Delete removes the record stored under key.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, key)
	if s.fileMode {
		err := os.Remove(s.filePath(key))
		if err != nil && !os.IsNotExist(err) {
			logging.Audit(s.logger, "token_delete_failed", "error", err.Error())
			return err
		}
	}

	logging.Audit(s.logger, "token_deleted")
	return nil
}

// Entry is a listed record with its key.
type Entry struct {
	Key    string
	Record Record
}

// List returns every stored record, sorted by profile then key.
func (s *FileStore) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fileMode {
		entries, err := os.ReadDir(s.storageDir)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read token directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
				continue
			}
			key := strings.TrimSuffix(entry.Name(), ".json")
			if _, ok := s.records[key]; ok {
				continue
			}
			rec, err := s.readFile(key)
			if err != nil {
				s.logger.Warn("Skipping unreadable token file", "file", entry.Name(), "error", err)
				continue
			}
			s.records[key] = rec
		}
	}

	out := make([]Entry, 0, len(s.records))
	for key, rec := range s.records {
		out = append(out, Entry{Key: key, Record: *rec})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Record.Profile != out[j].Record.Profile {
			return out[i].Record.Profile < out[j].Record.Profile
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// Clear removes all stored records.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.records)
	s.records = make(map[string]*Record)

	fileCount := 0
	if s.fileMode {
		entries, err := os.ReadDir(s.storageDir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("failed to read token directory: %w", err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
				if err := os.Remove(filepath.Join(s.storageDir, entry.Name())); err != nil {
					return fmt.Errorf("failed to remove token file %s: %w", entry.Name(), err)
				}
				fileCount++
			}
		}
	}

	logging.Audit(s.logger, "tokens_cleared",
		"memory_tokens_cleared", count,
		"file_tokens_cleared", fileCount)
	return nil
}

func (s *FileStore) filePath(key string) string {
	return filepath.Join(s.storageDir, key+".json")
}

func (s *FileStore) writeFile(key string, rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	// owner read/write only
	if err := os.WriteFile(s.filePath(key), data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

func (s *FileStore) readFile(key string) (*Record, error) {
	// #nosec G304 -- the path is derived from a hashed key
	data, err := os.ReadFile(s.filePath(key))
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &rec, nil
}
