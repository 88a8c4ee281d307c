// Package stores provides a file-based UserStore suitable for development
// and tests. Production deployments should use stores/gorm or stores/gae.
package stores

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	oa "github.com/notably/noteauth"
)

// FSUserStore stores users as JSON files: one file per user id plus an
// email index file per normalized email. A process-local mutex serializes
// inserts so the email uniqueness check and the index write cannot race.
type FSUserStore struct {
	StoragePath string
	mu          sync.Mutex
}

func NewFSUserStore(storagePath string) *FSUserStore {
	return &FSUserStore{StoragePath: storagePath}
}

func (s *FSUserStore) userPath(userId string) string {
	return filepath.Join(s.StoragePath, "users", filepath.Base(userId)+".json")
}

func (s *FSUserStore) emailPath(email string) string {
	// Hash the email for a safe, collision-free filename.
	sum := sha256.Sum256([]byte(oa.NormalizeEmail(email)))
	return filepath.Join(s.StoragePath, "emails", hex.EncodeToString(sum[:])+".json")
}

func (s *FSUserStore) FindByEmail(ctx context.Context, email string) (*oa.User, error) {
	data, err := os.ReadFile(s.emailPath(email))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, oa.ErrUserNotFound
		}
		return nil, err
	}

	var index struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, err
	}
	return s.getUserById(index.UserID)
}

func (s *FSUserStore) Insert(ctx context.Context, user *oa.User) (*oa.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	emailPath := s.emailPath(user.Email)
	if _, err := os.Stat(emailPath); err == nil {
		return nil, oa.ErrEmailExists
	}

	userPath := s.userPath(user.ID)
	for _, path := range []string{userPath, emailPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
	}

	data, err := json.MarshalIndent(storedUser(user), "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeAtomicFile(userPath, data); err != nil {
		return nil, err
	}

	index, err := json.Marshal(map[string]string{"user_id": user.ID})
	if err != nil {
		return nil, err
	}
	if err := writeAtomicFile(emailPath, index); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *FSUserStore) getUserById(userId string) (*oa.User, error) {
	data, err := os.ReadFile(s.userPath(userId))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, oa.ErrUserNotFound
		}
		return nil, err
	}

	var stored fsUser
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return stored.toUser(), nil
}

// fsUser is the on-disk shape. The password hash is persisted here even
// though oa.User hides it from JSON responses.
type fsUser struct {
	oa.User
	PasswordHash string `json:"password_hash,omitempty"`
}

func storedUser(user *oa.User) *fsUser {
	return &fsUser{User: *user, PasswordHash: user.PasswordHash}
}

func (f *fsUser) toUser() *oa.User {
	user := f.User
	user.PasswordHash = f.PasswordHash
	return &user
}
