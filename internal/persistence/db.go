// Package persistence provides SQLite-based city state storage.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/cityscape/internal/city"
	"github.com/talgya/cityscape/internal/store"
)

// Metadata keys.
const (
	metaWidth  = "grid_width"
	metaHeight = "grid_height"
	metaFunds  = "funds"
	metaTick   = "last_tick"
)

// DB wraps a SQLite connection for city state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path. Use ":memory:"
// for a throwaway database.
func Open(path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS buildings (
		id TEXT PRIMARY KEY,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		type TEXT NOT NULL,
		building_type TEXT NOT NULL DEFAULT '',
		size TEXT NOT NULL DEFAULT 'small',
		population INTEGER NOT NULL DEFAULT 0,
		jobs INTEGER NOT NULL DEFAULT 0,
		pollution INTEGER NOT NULL DEFAULT 0,
		happiness INTEGER NOT NULL DEFAULT 50,
		service_range INTEGER NOT NULL DEFAULT 3,
		is_block INTEGER NOT NULL DEFAULT 0,
		block_width INTEGER NOT NULL DEFAULT 1,
		block_height INTEGER NOT NULL DEFAULT 1,
		seq INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS infrastructure (
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		kind INTEGER NOT NULL,
		PRIMARY KEY (x, y)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS city_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_buildings_seq ON buildings(seq);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveBuildings writes all building records (full replace), keeping their
// order.
func (db *DB) SaveBuildings(records []city.Record) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM buildings"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO buildings
		(id, x, y, type, building_type, size, population, jobs, pollution,
		 happiness, service_range, is_block, block_width, block_height, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range records {
		_, err := stmt.Exec(
			r.ID, r.X, r.Y, r.Type, r.BuildingType, r.Size,
			r.Population, r.Jobs, r.Pollution, r.Happiness, r.ServiceRange,
			r.IsBlock, r.BlockWidth, r.BlockHeight, i,
		)
		if err != nil {
			return fmt.Errorf("insert building %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// LoadBuildings reads every building record in saved order.
func (db *DB) LoadBuildings() ([]city.Record, error) {
	var records []city.Record
	err := db.conn.Select(&records, `SELECT id, x, y, type, building_type, size,
		population, jobs, pollution, happiness, service_range,
		is_block, block_width, block_height
		FROM buildings ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load buildings: %w", err)
	}
	return records, nil
}

// SaveInfrastructure writes all infrastructure tiles (full replace).
func (db *DB) SaveInfrastructure(tiles []store.Tile) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM infrastructure"); err != nil {
		return err
	}
	for _, t := range tiles {
		if _, err := tx.Exec("INSERT INTO infrastructure (x, y, kind) VALUES (?, ?, ?)", t.X, t.Y, uint8(t.Kind)); err != nil {
			return fmt.Errorf("insert tile (%d,%d): %w", t.X, t.Y, err)
		}
	}

	return tx.Commit()
}

// LoadInfrastructure reads every infrastructure tile.
func (db *DB) LoadInfrastructure() ([]store.Tile, error) {
	var tiles []store.Tile
	if err := db.conn.Select(&tiles, "SELECT x, y, kind FROM infrastructure ORDER BY kind, y, x"); err != nil {
		return nil, fmt.Errorf("load infrastructure: %w", err)
	}
	return tiles, nil
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(events []store.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (tick, description, category) VALUES (?, ?, ?)",
			e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]store.Event, error) {
	var events []store.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// SaveMeta stores a key-value pair in city metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO city_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM city_meta WHERE key = ?", key)
	return value, err
}

// HasCityState reports whether a city has been saved.
func (db *DB) HasCityState() bool {
	_, err := db.GetMeta(metaWidth)
	return err == nil
}

// SaveCityState performs a full save of the city.
func (db *DB) SaveCityState(st store.State) error {
	slog.Info("saving city state", "buildings", len(st.Buildings), "tiles", len(st.Infrastructure), "tick", st.Tick)

	if err := db.SaveBuildings(st.Buildings); err != nil {
		return fmt.Errorf("save buildings: %w", err)
	}
	if err := db.SaveInfrastructure(st.Infrastructure); err != nil {
		return fmt.Errorf("save infrastructure: %w", err)
	}
	meta := map[string]string{
		metaWidth:  strconv.Itoa(st.Width),
		metaHeight: strconv.Itoa(st.Height),
		metaFunds:  strconv.Itoa(st.Funds),
		metaTick:   strconv.FormatUint(st.Tick, 10),
	}
	for k, v := range meta {
		if err := db.SaveMeta(k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	slog.Info("city state saved")
	return nil
}

// LoadCityState reads back a full save.
func (db *DB) LoadCityState() (store.State, error) {
	var st store.State
	ints := []struct {
		key string
		dst *int
	}{
		{metaWidth, &st.Width},
		{metaHeight, &st.Height},
		{metaFunds, &st.Funds},
	}
	for _, m := range ints {
		v, err := db.GetMeta(m.key)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return st, fmt.Errorf("load meta %s: no saved city", m.key)
			}
			return st, fmt.Errorf("load meta %s: %w", m.key, err)
		}
		if *m.dst, err = strconv.Atoi(v); err != nil {
			return st, fmt.Errorf("parse meta %s: %w", m.key, err)
		}
	}
	if v, err := db.GetMeta(metaTick); err == nil {
		if t, err := strconv.ParseUint(v, 10, 64); err == nil {
			st.Tick = t
		}
	}

	var err error
	if st.Buildings, err = db.LoadBuildings(); err != nil {
		return st, err
	}
	if st.Infrastructure, err = db.LoadInfrastructure(); err != nil {
		return st, err
	}
	return st, nil
}
