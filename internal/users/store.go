package users

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/2beens/liftlog/pkg"

	log "github.com/sirupsen/logrus"
)

var (
	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUserNotFound  = errors.New("user not found")
)

// Store is the credential store: username -> user info, persisted as a
// single JSON document which is fully rewritten on every mutation.
// A missing file means "no users yet", never an error.
type Store struct {
	filePath string
	mutex    sync.RWMutex
	users    map[string]UserInfo
}

func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		return nil, errors.New("user db file path cannot be empty")
	}

	s := &Store{
		filePath: filePath,
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("load user db: %w", err)
	}

	return s, nil
}

func (s *Store) load() error {
	exists, err := pkg.PathExists(s.filePath, false)
	if err != nil {
		return fmt.Errorf("check user db file: %w", err)
	}

	if !exists {
		log.Debugf("user db file [%s] does not exist, starting empty", s.filePath)
		s.users = make(map[string]UserInfo)
		return nil
	}

	userDBJson, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	users := make(map[string]UserInfo)
	if err := json.Unmarshal(userDBJson, &users); err != nil {
		return fmt.Errorf("unmarshal user db: %w", err)
	}

	s.users = users
	return nil
}

// save rewrites the whole credentials document; callers hold the write lock
func (s *Store) save() error {
	userDBJson, err := json.Marshal(s.users)
	if err != nil {
		return err
	}

	dst, err := os.Create(s.filePath)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, bytes.NewReader(userDBJson)); err != nil {
		return err
	}

	log.Debugf("user db saved, %d users", len(s.users))
	return nil
}

// Register inserts a new user, enforcing unique username and unique email,
// and persists the updated credentials document.
func (s *Store) Register(username, email, password string) (*User, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.users[username]; ok {
		return nil, ErrUsernameTaken
	}
	for _, info := range s.users {
		if info.Email == email {
			return nil, ErrEmailTaken
		}
	}

	passwordHash, err := pkg.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	info := UserInfo{
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	s.users[username] = info

	if err := s.save(); err != nil {
		delete(s.users, username)
		return nil, fmt.Errorf("save user db: %w", err)
	}

	log.Debugf("new user registered: %s", username)

	return &User{
		Username:     username,
		Email:        info.Email,
		PasswordHash: info.PasswordHash,
		CreatedAt:    info.CreatedAt,
	}, nil
}

// GetByIdentifier finds a user by username or email. Username and email are
// both unique (enforced at registration), so at most one user can match.
func (s *Store) GetByIdentifier(identifier string) (*User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if info, ok := s.users[identifier]; ok {
		return &User{
			Username:     identifier,
			Email:        info.Email,
			PasswordHash: info.PasswordHash,
			CreatedAt:    info.CreatedAt,
		}, nil
	}

	for username, info := range s.users {
		if info.Email == identifier {
			return &User{
				Username:     username,
				Email:        info.Email,
				PasswordHash: info.PasswordHash,
				CreatedAt:    info.CreatedAt,
			}, nil
		}
	}

	return nil, ErrUserNotFound
}

func (s *Store) Count() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.users)
}

// Reload re-reads the credentials document from disk. The persisted state is
// the source of truth at session boundaries.
func (s *Store) Reload() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.load()
}
