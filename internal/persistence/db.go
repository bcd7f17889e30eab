// Package persistence provides SQLite-based campaign state storage.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/raid-campaign/internal/agents"
	"github.com/talgya/raid-campaign/internal/balance"
	"github.com/talgya/raid-campaign/internal/economy"
	"github.com/talgya/raid-campaign/internal/engine"
	"github.com/talgya/raid-campaign/internal/raid"
	"github.com/talgya/raid-campaign/internal/social"
	"github.com/talgya/raid-campaign/internal/world"
)

// Metadata keys.
const (
	metaDay      = "day"
	metaHomeID   = "home_id"
	metaSeed     = "seed"
	metaWarriors = "warriors"
	metaFame     = "fame"
	metaStock    = "stock"
)

// DB wraps a SQLite connection for campaign persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

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
	CREATE TABLE IF NOT EXISTS settlements (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		pos_q INTEGER NOT NULL,
		pos_r INTEGER NOT NULL,
		terrain INTEGER NOT NULL,
		coastal INTEGER NOT NULL,
		type TEXT NOT NULL,
		faction_id INTEGER NOT NULL,
		population INTEGER NOT NULL,
		prosperity INTEGER NOT NULL,
		warriors INTEGER NOT NULL,
		defenses INTEGER NOT NULL,
		ships INTEGER NOT NULL,
		religious INTEGER NOT NULL,
		holdings_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS factions (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		affiliation TEXT NOT NULL,
		relations_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leaders (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		combat REAL NOT NULL,
		leadership REAL NOT NULL,
		fame INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS raids (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		name TEXT NOT NULL,
		class_id TEXT NOT NULL,
		phase TEXT NOT NULL,
		finished INTEGER NOT NULL,
		start_day INTEGER NOT NULL,
		days_remaining INTEGER NOT NULL,
		data_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		day INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_raids_finished ON raids(finished, seq);
	CREATE INDEX IF NOT EXISTS idx_raids_phase ON raids(phase);
	CREATE INDEX IF NOT EXISTS idx_events_day ON events(day);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type settlementRow struct {
	ID           uint64 `db:"id"`
	Name         string `db:"name"`
	PosQ         int    `db:"pos_q"`
	PosR         int    `db:"pos_r"`
	Terrain      uint8  `db:"terrain"`
	Coastal      bool   `db:"coastal"`
	Type         string `db:"type"`
	FactionID    uint64 `db:"faction_id"`
	Population   uint32 `db:"population"`
	Prosperity   int    `db:"prosperity"`
	Warriors     int    `db:"warriors"`
	Defenses     int    `db:"defenses"`
	Ships        int    `db:"ships"`
	Religious    bool   `db:"religious"`
	HoldingsJSON string `db:"holdings_json"`
}

// saveSettlements writes all settlements (full replace).
func saveSettlements(tx *sqlx.Tx, settlements []*social.Settlement) error {
	if _, err := tx.Exec("DELETE FROM settlements"); err != nil {
		return err
	}

	for _, s := range settlements {
		holdings, err := json.Marshal(s.Holdings)
		if err != nil {
			return fmt.Errorf("encode holdings of settlement %d: %w", s.ID, err)
		}
		_, err = tx.Exec(`INSERT INTO settlements
			(id, name, pos_q, pos_r, terrain, coastal, type, faction_id, population,
			 prosperity, warriors, defenses, ships, religious, holdings_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.Name, s.Position.Q, s.Position.R, uint8(s.Terrain), s.Coastal,
			s.Type.String(), uint64(s.FactionID), s.Population, s.Prosperity,
			s.Warriors, s.Defenses, s.Ships, s.Religious, string(holdings),
		)
		if err != nil {
			return fmt.Errorf("insert settlement %d: %w", s.ID, err)
		}
	}
	return nil
}

// LoadSettlements reads all settlements in ID order.
func (db *DB) LoadSettlements() ([]*social.Settlement, error) {
	var rows []settlementRow
	if err := db.conn.Select(&rows, "SELECT * FROM settlements ORDER BY id"); err != nil {
		return nil, err
	}

	out := make([]*social.Settlement, 0, len(rows))
	for _, row := range rows {
		t, err := balance.ParseSettlementType(row.Type)
		if err != nil {
			return nil, fmt.Errorf("settlement %d: %w", row.ID, err)
		}
		var holdings economy.Bundle
		if err := json.Unmarshal([]byte(row.HoldingsJSON), &holdings); err != nil {
			return nil, fmt.Errorf("settlement %d holdings: %w", row.ID, err)
		}
		out = append(out, &social.Settlement{
			ID:         row.ID,
			Name:       row.Name,
			Position:   world.HexCoord{Q: row.PosQ, R: row.PosR},
			Terrain:    world.Terrain(row.Terrain),
			Coastal:    row.Coastal,
			Type:       t,
			FactionID:  social.FactionID(row.FactionID),
			Population: row.Population,
			Prosperity: row.Prosperity,
			Warriors:   row.Warriors,
			Defenses:   row.Defenses,
			Ships:      row.Ships,
			Religious:  row.Religious,
			Holdings:   holdings,
		})
	}
	return out, nil
}

type factionRow struct {
	ID            uint64 `db:"id"`
	Name          string `db:"name"`
	Affiliation   string `db:"affiliation"`
	RelationsJSON string `db:"relations_json"`
}

// saveFactions writes all factions and their relations (full replace).
func saveFactions(tx *sqlx.Tx, factions []*social.Faction) error {
	if _, err := tx.Exec("DELETE FROM factions"); err != nil {
		return err
	}

	for _, f := range factions {
		relJSON, err := json.Marshal(f.Relations)
		if err != nil {
			return fmt.Errorf("encode relations of faction %d: %w", f.ID, err)
		}
		_, err = tx.Exec(
			"INSERT INTO factions (id, name, affiliation, relations_json) VALUES (?, ?, ?, ?)",
			uint64(f.ID), f.Name, f.Affiliation.String(), string(relJSON),
		)
		if err != nil {
			return fmt.Errorf("insert faction %d: %w", f.ID, err)
		}
	}
	return nil
}

// LoadFactions reads all factions with their relations.
func (db *DB) LoadFactions() ([]*social.Faction, error) {
	var rows []factionRow
	if err := db.conn.Select(&rows, "SELECT * FROM factions ORDER BY id"); err != nil {
		return nil, err
	}

	out := make([]*social.Faction, 0, len(rows))
	for _, row := range rows {
		aff, err := balance.ParseSettlementType(row.Affiliation)
		if err != nil {
			return nil, fmt.Errorf("faction %d: %w", row.ID, err)
		}
		rel := make(map[social.FactionID]float64)
		if err := json.Unmarshal([]byte(row.RelationsJSON), &rel); err != nil {
			return nil, fmt.Errorf("faction %d relations: %w", row.ID, err)
		}
		out = append(out, &social.Faction{
			ID:          social.FactionID(row.ID),
			Name:        row.Name,
			Affiliation: aff,
			Relations:   rel,
		})
	}
	return out, nil
}

type leaderRow struct {
	ID         uint64  `db:"id"`
	Name       string  `db:"name"`
	Combat     float64 `db:"combat"`
	Leadership float64 `db:"leadership"`
	Fame       int     `db:"fame"`
}

// saveLeaders writes the leader roster (full replace).
func saveLeaders(tx *sqlx.Tx, leaders []agents.Leader) error {
	if _, err := tx.Exec("DELETE FROM leaders"); err != nil {
		return err
	}
	for _, l := range leaders {
		_, err := tx.Exec(
			"INSERT INTO leaders (id, name, combat, leadership, fame) VALUES (?, ?, ?, ?, ?)",
			uint64(l.ID), l.Name, l.Skills.Combat, l.Skills.Leadership, l.Fame,
		)
		if err != nil {
			return fmt.Errorf("insert leader %d: %w", l.ID, err)
		}
	}
	return nil
}

// LoadLeaders reads the leader roster in ID order.
func (db *DB) LoadLeaders() ([]*agents.Leader, error) {
	var rows []leaderRow
	if err := db.conn.Select(&rows, "SELECT * FROM leaders ORDER BY id"); err != nil {
		return nil, err
	}
	out := make([]*agents.Leader, 0, len(rows))
	for _, row := range rows {
		out = append(out, &agents.Leader{
			ID:     agents.LeaderID(row.ID),
			Name:   row.Name,
			Skills: agents.SkillSet{Combat: row.Combat, Leadership: row.Leadership},
			Fame:   row.Fame,
		})
	}
	return out, nil
}

// saveRaids writes active and finished raids (full replace). Each raid is
// stored whole as JSON so phase, days remaining and the target snapshot
// survive a restart exactly.
func saveRaids(tx *sqlx.Tx, active, history []*raid.Raid) error {
	if _, err := tx.Exec("DELETE FROM raids"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO raids
		(id, seq, name, class_id, phase, finished, start_day, days_remaining, data_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	seq := 0
	for _, list := range [][]*raid.Raid{history, active} {
		for _, r := range list {
			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("encode raid %s: %w", r.ID, err)
			}
			_, err = stmt.Exec(
				r.ID, seq, r.Name, r.ClassID, string(r.Phase), r.Phase.Terminal(),
				r.StartDay, r.DaysRemaining, string(data),
			)
			if err != nil {
				return fmt.Errorf("insert raid %s: %w", r.ID, err)
			}
			seq++
		}
	}
	return nil
}

// LoadRaids reads saved raids back, split into active and history, each in
// the order they were saved.
func (db *DB) LoadRaids() (active, history []*raid.Raid, err error) {
	var rows []struct {
		ID       string `db:"id"`
		Finished bool   `db:"finished"`
		Data     string `db:"data_json"`
	}
	if err := db.conn.Select(&rows, "SELECT id, finished, data_json FROM raids ORDER BY seq"); err != nil {
		return nil, nil, err
	}

	for _, row := range rows {
		var r raid.Raid
		if err := json.Unmarshal([]byte(row.Data), &r); err != nil {
			return nil, nil, fmt.Errorf("decode raid %s: %w", row.ID, err)
		}
		if row.Finished {
			history = append(history, &r)
		} else {
			active = append(active, &r)
		}
	}
	return active, history, nil
}

// saveEvents replaces the stored event log.
func saveEvents(tx *sqlx.Tx, events []engine.Event) error {
	if _, err := tx.Exec("DELETE FROM events"); err != nil {
		return err
	}
	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (day, description, category) VALUES (?, ?, ?)",
			e.Day, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// RecentEvents returns the most recent N events, oldest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		`SELECT day, description, category FROM
			(SELECT id, day, description, category FROM events ORDER BY id DESC LIMIT ?)
		 ORDER BY id`,
		limit,
	)
	return events, err
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	return saveMeta(db.conn, key, value)
}

func saveMeta(ex sqlx.Execer, key, value string) error {
	_, err := ex.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

func (db *DB) getMetaInt(key string) (int64, error) {
	v, err := db.GetMeta(key)
	if err != nil {
		return 0, fmt.Errorf("meta %s: %w", key, err)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("meta %s: %w", key, err)
	}
	return n, nil
}

// HasWorldState reports whether a campaign has been saved.
func (db *DB) HasWorldState() bool {
	_, err := db.GetMeta(metaDay)
	return err == nil
}

// SaveWorldState writes all campaign state in one transaction. Raids, idle
// warriors, stockpile and fame come from a single raid engine snapshot, so an
// order landing mid-save cannot leave warriors or food unaccounted for.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	st := sim.Raids.Snapshot()
	leaders := sim.Leaders()
	events := sim.Events(0)
	slog.Debug("saving world state",
		"settlements", len(st.Settlements), "active_raids", len(st.Active), "history", len(st.History))

	stock, err := json.Marshal(st.Stock)
	if err != nil {
		return fmt.Errorf("encode stock: %w", err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveSettlements(tx, st.Settlements); err != nil {
		return fmt.Errorf("save settlements: %w", err)
	}
	if err := saveFactions(tx, st.Factions); err != nil {
		return fmt.Errorf("save factions: %w", err)
	}
	if err := saveLeaders(tx, leaders); err != nil {
		return fmt.Errorf("save leaders: %w", err)
	}
	if err := saveRaids(tx, st.Active, st.History); err != nil {
		return fmt.Errorf("save raids: %w", err)
	}
	if err := saveEvents(tx, events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}

	meta := map[string]string{
		metaDay:      strconv.Itoa(st.Day),
		metaHomeID:   strconv.FormatUint(sim.HomeID, 10),
		metaWarriors: strconv.Itoa(st.IdleWarriors),
		metaFame:     strconv.Itoa(st.Fame),
		metaStock:    string(stock),
	}
	for k, v := range meta {
		if err := saveMeta(tx, k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit world state: %w", err)
	}
	slog.Debug("world state saved")
	return nil
}

// SaveSeed records the seed a campaign was generated from.
func (db *DB) SaveSeed(seed int64) error {
	return db.SaveMeta(metaSeed, strconv.FormatInt(seed, 10))
}

// LoadWorldState rebuilds a saved campaign. Raids resume in the phase and
// with the days remaining they were saved with.
func (db *DB) LoadWorldState(tables *balance.Tables) (*engine.Simulation, error) {
	if !db.HasWorldState() {
		return nil, errors.New("no saved world state")
	}

	settlements, err := db.LoadSettlements()
	if err != nil {
		return nil, fmt.Errorf("load settlements: %w", err)
	}
	factions, err := db.LoadFactions()
	if err != nil {
		return nil, fmt.Errorf("load factions: %w", err)
	}
	leaders, err := db.LoadLeaders()
	if err != nil {
		return nil, fmt.Errorf("load leaders: %w", err)
	}
	active, history, err := db.LoadRaids()
	if err != nil {
		return nil, fmt.Errorf("load raids: %w", err)
	}
	events, err := db.RecentEvents(1000)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	day, err := db.getMetaInt(metaDay)
	if err != nil {
		return nil, err
	}
	homeID, err := db.getMetaInt(metaHomeID)
	if err != nil {
		return nil, err
	}
	warriors, err := db.getMetaInt(metaWarriors)
	if err != nil {
		return nil, err
	}
	fame, err := db.getMetaInt(metaFame)
	if err != nil {
		return nil, err
	}
	seed, err := db.getMetaInt(metaSeed)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	stockJSON, err := db.GetMeta(metaStock)
	if err != nil {
		return nil, fmt.Errorf("meta %s: %w", metaStock, err)
	}
	var stock economy.Bundle
	if err := json.Unmarshal([]byte(stockJSON), &stock); err != nil {
		return nil, fmt.Errorf("decode stock: %w", err)
	}

	sim := engine.NewSimulation(engine.Setup{
		HomeID:      social.SettlementID(homeID),
		Settlements: settlements,
		Factions:    factions,
		Leaders:     leaders,
		Warriors:    int(warriors),
		Stock:       stock,
		Fame:        int(fame),
		Tables:      tables,
		Seed:        seed + day,
	})
	sim.Raids.Restore(int(day), active, history)
	sim.RestoreEvents(events)

	slog.Info("world state restored",
		"day", day,
		"settlements", len(settlements),
		"active_raids", len(active),
		"history", len(history),
	)
	return sim, nil
}
