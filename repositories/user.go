//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"chat-gateway/domain"
	"chat-gateway/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(username, email, hashedPassword string) (string, error)
	GetUserByID(id string) (domain.User, error)
	GetUserByEmail(email string) (domain.User, error)
	SetPresence(id string, online bool, lastSeen time.Time) error
	ListOnline() ([]domain.User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// diskUser is the stored shape of a user. The email index key "user_email:{email}"
// holds the user ID so lookups by either key stay single-hop.
type diskUser struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"passwordHash"`
	IsOnline     bool       `json:"isOnline"`
	LastSeen     *time.Time `json:"lastSeen,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func userKey(id string) []byte { return []byte("user:" + id) }

func emailKey(email string) []byte { return []byte("user_email:" + email) }

// CreateUser persists a new user and its email index entry.
// It returns the newly generated user ID.
func (u UserRepository) CreateUser(username, email, hashedPassword string) (string, error) {
	newID := uuid.New().String()
	du := diskUser{
		ID:           newID,
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(du)
	if err != nil {
		return "", fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err = txn.Get(emailKey(email)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err = txn.Set(emailKey(email), []byte(newID)); err != nil {
			return err
		}
		return txn.Set(userKey(newID), data)
	})

	return newID, err
}

func (u UserRepository) GetUserByID(id string) (domain.User, error) {
	var du diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err == badger.ErrKeyNotFound {
			return errors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &du)
		})
	})
	if err != nil {
		return domain.User{}, err
	}
	return toUser(du), nil
}

func (u UserRepository) GetUserByEmail(email string) (domain.User, error) {
	var id string
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if err == badger.ErrKeyNotFound {
			return errors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		return domain.User{}, err
	}
	return u.GetUserByID(id)
}

// SetPresence flips the online flag. The last-seen time is only stamped on
// the offline transition; going online leaves the previous value untouched.
func (u UserRepository) SetPresence(id string, online bool, lastSeen time.Time) error {
	return u.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err == badger.ErrKeyNotFound {
			return errors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		var du diskUser
		if err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &du)
		}); err != nil {
			return err
		}
		du.IsOnline = online
		if !online {
			du.LastSeen = &lastSeen
		}
		data, err := json.Marshal(du)
		if err != nil {
			return err
		}
		return txn.Set(userKey(id), data)
	})
}

// ListOnline scans the user space and keeps the identities flagged online.
func (u UserRepository) ListOnline() ([]domain.User, error) {
	var users []domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		prefix := []byte("user:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var du diskUser
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &du)
			}); err != nil {
				return err
			}
			if du.IsOnline {
				users = append(users, toUser(du))
			}
		}
		return nil
	})
	return users, err
}

func toUser(du diskUser) domain.User {
	return domain.User{
		ID:           du.ID,
		Username:     du.Username,
		Email:        du.Email,
		PasswordHash: du.PasswordHash,
		IsOnline:     du.IsOnline,
		LastSeen:     du.LastSeen,
		CreatedAt:    du.CreatedAt,
	}
}
