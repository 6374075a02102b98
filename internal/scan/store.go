package scan

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"chefai/internal/crypto"
)

var (
	// ErrMissingField is returned when username or password is empty.
	ErrMissingField = errors.New("username and password are required")
	// ErrInvalidCredentials is returned when a known username is presented
	// with the wrong password. Deliberately indistinguishable from an
	// unknown user at the HTTP layer.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnknownUser is returned when a scan operation names a user that
	// does not exist.
	ErrUnknownUser = errors.New("unknown user")
	// ErrScanNotFound is returned when a scan id does not exist for the
	// given user. Scans owned by other users are reported as not found.
	ErrScanNotFound = errors.New("scan not found")
)

// Store defines credential and scan-history operations.
type Store interface {
	// RegisterOrLogin creates the user if the username is unseen, otherwise
	// verifies the password. Returns the user id and whether the user was
	// newly created.
	RegisterOrLogin(ctx context.Context, username, password string) (string, bool, error)
	// SaveScan stores a new scan for the user and returns its generated id.
	SaveScan(ctx context.Context, username string, recipes []Recipe) (string, error)
	// GetScans returns the user's scan summaries, newest first.
	GetScans(ctx context.Context, username string) ([]ScanSummary, error)
	// GetScan returns one scan, scoped to the given user only.
	GetScan(ctx context.Context, username, scanID string) (*Scan, error)
}

// MemoryStore keeps users and scans in process memory. All state is lost on
// restart; that is the documented default for this service.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User
	now   func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*User), now: time.Now}
}

// RegisterOrLogin implements Store.
func (s *MemoryStore) RegisterOrLogin(ctx context.Context, username, password string) (string, bool, error) {
	if username == "" || password == "" {
		return "", false, ErrMissingField
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.users[username]; ok {
		match, err := crypto.VerifyPassword(password, user.PasswordHash)
		if err != nil {
			return "", false, err
		}
		if !match {
			return "", false, ErrInvalidCredentials
		}
		return user.ID, false, nil
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return "", false, err
	}
	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Scans:        make(map[string]*Scan),
	}
	s.users[username] = user
	return user.ID, true, nil
}

// SaveScan implements Store.
func (s *MemoryStore) SaveScan(ctx context.Context, username string, recipes []Recipe) (string, error) {
	if len(recipes) == 0 {
		return "", ErrNoRecipes
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return "", ErrUnknownUser
	}

	sc := &Scan{
		ID:        uuid.NewString(),
		CreatedAt: s.now(),
		Recipes:   append([]Recipe(nil), recipes...),
	}
	user.Scans[sc.ID] = sc
	return sc.ID, nil
}

// GetScans implements Store.
func (s *MemoryStore) GetScans(ctx context.Context, username string) ([]ScanSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, ErrUnknownUser
	}

	summaries := make([]ScanSummary, 0, len(user.Scans))
	for _, sc := range user.Scans {
		summaries = append(summaries, ScanSummary{
			ID:       sc.ID,
			Date:     sc.CreatedAt,
			Title:    sc.Title(),
			Notes:    sc.Notes(),
			ImageURL: sc.Image(),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Date.After(summaries[j].Date)
	})
	return summaries, nil
}

// GetScan implements Store.
func (s *MemoryStore) GetScan(ctx context.Context, username, scanID string) (*Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, ErrScanNotFound
	}
	sc, ok := user.Scans[scanID]
	if !ok {
		return nil, ErrScanNotFound
	}
	return sc, nil
}
