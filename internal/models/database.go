package models

import (
	"fmt"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Database wraps the bolthold store holding base game records
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// UpsertGame inserts a game or updates the existing record with the same ID
func (db *Database) UpsertGame(game *Game) error {
	now := time.Now()
	if game.CreatedAt.IsZero() {
		game.CreatedAt = now
	}
	game.UpdatedAt = now
	return db.store.Upsert(game.ID, game)
}

// GetGameByID retrieves a game by its identifier
func (db *Database) GetGameByID(id string) (*Game, error) {
	var game Game
	if err := db.store.Get(id, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// GetAllGames retrieves every game in the library
func (db *Database) GetAllGames() ([]Game, error) {
	var games []Game
	err := db.store.Find(&games, nil)
	return games, err
}

// GetGamesByStore retrieves all games belonging to one storefront
func (db *Database) GetGamesByStore(store Store) ([]Game, error) {
	var games []Game
	err := db.store.Find(&games, bolthold.Where("Store").Eq(store).Index("Store"))
	return games, err
}

// GetInstalledGames retrieves all currently installed games
func (db *Database) GetInstalledGames() ([]Game, error) {
	var games []Game
	err := db.store.Find(&games, bolthold.Where("Installed").Eq(true))
	return games, err
}

// DeleteGame deletes a game by ID
func (db *Database) DeleteGame(id string) error {
	return db.store.Delete(id, &Game{})
}

// ImportGames upserts a batch of games, e.g. from a storefront sync
func (db *Database) ImportGames(games []Game) error {
	for i := range games {
		if err := db.UpsertGame(&games[i]); err != nil {
			return fmt.Errorf("failed to import game %s: %w", games[i].ID, err)
		}
	}
	return nil
}

// IsNotFound reports whether err means the record does not exist
func IsNotFound(err error) bool {
	return err == bolthold.ErrNotFound
}
