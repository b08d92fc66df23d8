// Package jsondb provides an in-memory implementation of the user and URL
// stores that can be snapshotted to a JSON file. The file is read once on New
// and rewritten on Close, so the state survives a graceful restart.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

// JSONDB keeps users and URL records in maps guarded by a single RWMutex,
// which makes every individual operation atomic.
type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

// URLEntry is the persisted form of a URL record. Seq keeps insertion order.
type URLEntry struct {
	Seq       int64
	ShortID   string
	LongURL   string
	OwnerID   string
	CreatedAt time.Time
}

// CacheStruct is the whole database content, also the JSON file layout.
type CacheStruct struct {
	URLs    map[string]*URLEntry
	Users   map[string]*user.User
	NextSeq int64
}

// NewCache returns an empty, ready to use cache.
func NewCache() CacheStruct {
	return CacheStruct{
		URLs:    map[string]*URLEntry{},
		Users:   map[string]*user.User{},
		NextSeq: 1,
	}
}

func initDBFile(fileName string) error {
	return writeToJSONFile(fileName, NewCache())
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}

// New opens the JSON database file, creating it when it does not exist.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		Cache:    NewCache(),
	}

	err := parseJSONFile(db.fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `parseJSONFile()` calling: %w", err)
		}
		if err := initDBFile(fileName); err != nil {
			return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `initDBFile()` calling: %w", err)
		}
	}
	db.Cache.normalize()

	return db, nil
}

// NewInMemory returns a JSONDB that is never written to disk.
func NewInMemory() *JSONDB {
	return &JSONDB{Cache: NewCache()}
}

func (c *CacheStruct) normalize() {
	if c.URLs == nil {
		c.URLs = map[string]*URLEntry{}
	}
	if c.Users == nil {
		c.Users = map[string]*user.User{}
	}
	for _, entry := range c.URLs {
		if entry.Seq >= c.NextSeq {
			c.NextSeq = entry.Seq + 1
		}
	}
	if c.NextSeq < 1 {
		c.NextSeq = 1
	}
}

// Ping always succeeds, the data lives in process memory.
func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close writes the snapshot to the file, if the database has one.
func (db *JSONDB) Close() error {
	if db.fileName == "" {
		return nil
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}

// CreateUser stores a copy of usr, assigning a UUID when usr.ID is empty.
// It fails with models.ErrEmailTaken if the email is already registered.
func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.findUserByEmail(usr.Email) != nil {
		return "", models.ErrEmailTaken
	}

	stored := *usr
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	db.Cache.Users[stored.ID] = &stored

	return stored.ID, nil
}

// GetUserByID returns models.ErrUserNotFound for unknown ids.
func (db *JSONDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, ok := db.Cache.Users[userID]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	found := *usr

	return &found, nil
}

// FindUserByEmail scans the users for an exact email match.
func (db *JSONDB) FindUserByEmail(ctx context.Context, email string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr := db.findUserByEmail(email)
	if usr == nil {
		return nil, models.ErrUserNotFound
	}
	found := *usr

	return &found, nil
}

func (db *JSONDB) findUserByEmail(email string) *user.User {
	for _, usr := range db.Cache.Users {
		if usr.Email == email {
			return usr
		}
	}

	return nil
}

// InsertURL adds a record; an existing short id is never overwritten.
func (db *JSONDB) InsertURL(ctx context.Context, record models.URLRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.Cache.URLs[record.ShortID]; exists {
		return models.ErrShortIDTaken
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	db.Cache.URLs[record.ShortID] = &URLEntry{
		Seq:       db.Cache.NextSeq,
		ShortID:   record.ShortID,
		LongURL:   record.LongURL,
		OwnerID:   record.OwnerID,
		CreatedAt: record.CreatedAt,
	}
	db.Cache.NextSeq++

	return nil
}

// GetURL returns models.ErrNotFound for unknown short ids.
func (db *JSONDB) GetURL(ctx context.Context, shortID string) (*models.URLRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	entry, ok := db.Cache.URLs[shortID]
	if !ok {
		return nil, models.ErrNotFound
	}
	record := entry.toRecord()

	return &record, nil
}

// UpdateURL replaces the long URL in place, the owner is kept.
func (db *JSONDB) UpdateURL(ctx context.Context, shortID, longURL string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	entry, ok := db.Cache.URLs[shortID]
	if !ok {
		return models.ErrNotFound
	}
	entry.LongURL = longURL

	return nil
}

func (db *JSONDB) DeleteURL(ctx context.Context, shortID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.Cache.URLs[shortID]; !ok {
		return models.ErrNotFound
	}
	delete(db.Cache.URLs, shortID)

	return nil
}

// ListURLsByOwner returns the records owned by ownerID in insertion order.
func (db *JSONDB) ListURLsByOwner(ctx context.Context, ownerID string) ([]models.URLRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.collect(func(entry *URLEntry) bool { return entry.OwnerID == ownerID }), nil
}

// ScanURLs returns every record in insertion order.
func (db *JSONDB) ScanURLs(ctx context.Context) ([]models.URLRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.collect(func(*URLEntry) bool { return true }), nil
}

func (db *JSONDB) CountURLs(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.URLs)), nil
}

func (db *JSONDB) CountUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

func (db *JSONDB) collect(keep func(*URLEntry) bool) []models.URLRecord {
	entries := make([]*URLEntry, 0, len(db.Cache.URLs))
	for _, entry := range db.Cache.URLs {
		if keep(entry) {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })

	result := make([]models.URLRecord, 0, len(entries))
	for _, entry := range entries {
		result = append(result, entry.toRecord())
	}

	return result
}

func (e *URLEntry) toRecord() models.URLRecord {
	return models.URLRecord{
		ShortID:   e.ShortID,
		LongURL:   e.LongURL,
		OwnerID:   e.OwnerID,
		CreatedAt: e.CreatedAt,
	}
}
