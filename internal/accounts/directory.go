// Package accounts stores registered logins and serves account lookups from a
// short-lived cache in front of the database.
package accounts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"expiring-cache-api/internal/cache"
	"expiring-cache-api/internal/models"

	retry "github.com/avast/retry-go/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by Lookup for an id with no account.
	ErrNotFound = errors.New("accounts: not found")

	// ErrUsernameTaken is returned by Register when the username exists.
	ErrUsernameTaken = errors.New("accounts: username taken")

	// ErrInvalidCredentials is returned by Authenticate on any mismatch.
	ErrInvalidCredentials = errors.New("accounts: invalid credentials")

	// ErrInvalidInput is returned by Register for a blank username or password.
	ErrInvalidInput = errors.New("accounts: username and password are required")
)

// Options controls construction of a Directory.
type Options struct {
	CacheTTL     time.Duration
	LoadAttempts uint
	RetryDelay   time.Duration
	Scheduler    cache.Scheduler
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Directory registers and authenticates accounts against the database and
// serves Lookup through an expiring cache.
type Directory struct {
	db    *gorm.DB
	cache *cache.ExpiringCache[string, models.Account]
	cost  int
}

// NewDirectory constructs a Directory over db.
func NewDirectory(db *gorm.DB, opts Options) (*Directory, error) {
	ttl := opts.CacheTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	d := &Directory{db: db, cost: cost}

	load := cache.WithRetry(d.load, cache.RetryOptions{
		Attempts: opts.LoadAttempts,
		Delay:    opts.RetryDelay,
	})
	c, err := cache.New(load, cache.Options{Name: "accounts", TTL: ttl, Scheduler: opts.Scheduler})
	if err != nil {
		return nil, err
	}
	d.cache = c
	return d, nil
}

// load reads one account from the database. A missing row is final and is
// not retried.
func (d *Directory) load(id string) (models.Account, error) {
	var account models.Account
	err := d.db.Where("id = ?", id).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Account{}, retry.Unrecoverable(ErrNotFound)
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("accounts: load %s: %w", id, err)
	}
	return account, nil
}

// Register creates an account with a hashed password.
func (d *Directory) Register(username, password string) (models.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.Account{}, ErrInvalidInput
	}

	var count int64
	if err := d.db.Model(&models.Account{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return models.Account{}, fmt.Errorf("accounts: register: %w", err)
	}
	if count > 0 {
		return models.Account{}, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return models.Account{}, fmt.Errorf("accounts: hash password: %w", err)
	}
	account := models.Account{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := d.db.Create(&account).Error; err != nil {
		return models.Account{}, fmt.Errorf("accounts: register: %w", err)
	}
	return account, nil
}

// Authenticate checks a username and password. Unknown usernames and wrong
// passwords both report ErrInvalidCredentials.
func (d *Directory) Authenticate(username, password string) (models.Account, error) {
	var account models.Account
	err := d.db.Where("username = ?", strings.TrimSpace(username)).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("accounts: authenticate: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return models.Account{}, ErrInvalidCredentials
	}
	return account, nil
}

// Lookup returns an account by id, from the cache when possible.
func (d *Directory) Lookup(id string) (models.Account, error) {
	account, err := d.cache.Get(id)
	if errors.Is(err, ErrNotFound) {
		return models.Account{}, ErrNotFound
	}
	return account, err
}

// List returns every account ordered by username.
func (d *Directory) List() ([]models.Account, error) {
	var accounts []models.Account
	if err := d.db.Order("username").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("accounts: list: %w", err)
	}
	return accounts, nil
}

// Forget drops a cached account so the next Lookup reads the database.
func (d *Directory) Forget(id string) {
	d.cache.Remove(id)
}
