package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Turn is a single conversation exchange
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store manages conversation persistence using JSONL files
type Store struct {
	dir        string
	writeLocks map[string]*sync.Mutex
	locksMu    sync.Mutex
}

// NewStore creates a session store rooted at dir. An empty dir defaults to
// ~/.sleuth/sessions.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".sleuth", "sessions")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	log.Info().Str("dir", dir).Msg("Session store initialized")

	return &Store{
		dir:        dir,
		writeLocks: make(map[string]*sync.Mutex),
	}, nil
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("session key cannot be empty")
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("session key cannot contain '..'")
	}
	if strings.ContainsAny(key, "/\\") {
		return fmt.Errorf("session key cannot contain path separators")
	}
	if strings.Contains(key, "\x00") {
		return fmt.Errorf("session key cannot contain null bytes")
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".jsonl")
}

func (s *Store) lockFor(key string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	if lock, ok := s.writeLocks[key]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	s.writeLocks[key] = lock
	return lock
}

// Append adds a turn to the session, creating the file if needed
func (s *Store) Append(key string, turn Turn) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if turn.Role == "" {
		return fmt.Errorf("turn role cannot be empty")
	}
	if turn.Content == "" {
		return fmt.Errorf("turn content cannot be empty")
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}

	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	file, err := os.OpenFile(s.path(key), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open session file: %w", err)
	}
	defer file.Close()

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}
	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write turn: %w", err)
	}
	return file.Sync()
}

// Load returns all turns of a session in chronological order. A missing
// session is an empty history, not an error.
func (s *Store) Load(key string) ([]Turn, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	file, err := os.Open(s.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open session file: %w", err)
	}
	defer file.Close()

	turns := []Turn{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var turn Turn
		if err := json.Unmarshal([]byte(line), &turn); err != nil {
			log.Warn().Str("session_key", key).Err(err).Msg("Skipping corrupt session line")
			continue
		}
		turns = append(turns, turn)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	return turns, nil
}

// Recent returns up to n most recent turns in chronological order
func (s *Store) Recent(key string, n int) ([]Turn, error) {
	turns, err := s.Load(key)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns, nil
}

// List returns all session keys
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}
	keys := []string{}
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".jsonl") {
			keys = append(keys, strings.TrimSuffix(name, ".jsonl"))
		}
	}
	return keys, nil
}
