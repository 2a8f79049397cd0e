package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Database struct {
	db *sql.DB
}

var globalDB *Database

// Initialize opens the SQLite database and creates the schema.
func Initialize(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	globalDB = &Database{db: db}

	if err := globalDB.createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// Open returns a standalone Database, used by tests that need isolation
// from the global instance.
func Open(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &Database{db: db}
	if err := d.createTables(); err != nil {
		d.db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return d, nil
}

// GetDB returns the global database instance.
func GetDB() *Database {
	return globalDB
}

// IsConnected checks if the database connection is alive.
func IsConnected() bool {
	if globalDB == nil || globalDB.db == nil {
		return false
	}
	return globalDB.db.Ping() == nil
}

// Close closes the global database connection.
func Close() error {
	if globalDB != nil && globalDB.db != nil {
		return globalDB.db.Close()
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS guild_policies (
		guild_id TEXT PRIMARY KEY,
		anti_danger_perms INTEGER DEFAULT 0,
		anti_massban INTEGER DEFAULT 0,
		anti_masskick INTEGER DEFAULT 0,
		anti_massdelete INTEGER DEFAULT 0,
		anti_massping INTEGER DEFAULT 0,
		anti_webhook_spam INTEGER DEFAULT 0,
		anti_unauthorized_bot INTEGER DEFAULT 0,
		log_channel_id TEXT DEFAULT '',
		authorized_bots TEXT DEFAULT '[]',
		lockdown INTEGER DEFAULT 0,
		saved_overwrites TEXT DEFAULT '',
		created_at INTEGER DEFAULT 0,
		updated_at INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS user_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		whitelisted INTEGER DEFAULT 0,
		trusted INTEGER DEFAULT 0,
		UNIQUE(guild_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_user_records_guild ON user_records(guild_id);
	`

	_, err := d.db.Exec(schema)
	return err
}

// GetGuildPolicy retrieves a guild policy document, or nil if the guild
// has none yet.
func (d *Database) GetGuildPolicy(guildID string) (*GuildPolicy, error) {
	var (
		p                                            GuildPolicy
		dangerPerms, massBan, massKick, massDelete   int
		massPing, webhookSpam, unauthorizedBot, lock int
		bots, overwrites                             string
	)

	err := d.db.QueryRow(
		`SELECT guild_id, anti_danger_perms, anti_massban, anti_masskick, anti_massdelete,
		        anti_massping, anti_webhook_spam, anti_unauthorized_bot,
		        log_channel_id, authorized_bots, lockdown, saved_overwrites, created_at, updated_at
		 FROM guild_policies WHERE guild_id = ?`,
		guildID,
	).Scan(&p.GuildID, &dangerPerms, &massBan, &massKick, &massDelete,
		&massPing, &webhookSpam, &unauthorizedBot,
		&p.LogChannelID, &bots, &lock, &overwrites, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.Flags = AntinukeFlags{
		AntiDangerPerms:     dangerPerms != 0,
		AntiMassBan:         massBan != 0,
		AntiMassKick:        massKick != 0,
		AntiMassDelete:      massDelete != 0,
		AntiMassPing:        massPing != 0,
		AntiWebhookSpam:     webhookSpam != 0,
		AntiUnauthorizedBot: unauthorizedBot != 0,
	}
	p.AuthorizedBots = decodeBots(bots)
	p.Lockdown = lock != 0
	p.SavedOverwrites = decodeOverwrites(overwrites)

	return &p, nil
}

// UpsertGuildPolicy writes the full document shape. Read-then-upsert on a
// missing document races with concurrent initializers; last writer wins.
func (d *Database) UpsertGuildPolicy(p *GuildPolicy) error {
	now := time.Now().Unix()
	p.UpdatedAt = now
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}

	_, err := d.db.Exec(
		`INSERT OR REPLACE INTO guild_policies
		 (guild_id, anti_danger_perms, anti_massban, anti_masskick, anti_massdelete,
		  anti_massping, anti_webhook_spam, anti_unauthorized_bot,
		  log_channel_id, authorized_bots, lockdown, saved_overwrites, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.GuildID,
		boolToInt(p.Flags.AntiDangerPerms), boolToInt(p.Flags.AntiMassBan),
		boolToInt(p.Flags.AntiMassKick), boolToInt(p.Flags.AntiMassDelete),
		boolToInt(p.Flags.AntiMassPing), boolToInt(p.Flags.AntiWebhookSpam),
		boolToInt(p.Flags.AntiUnauthorizedBot),
		p.LogChannelID, encodeBots(p.AuthorizedBots),
		boolToInt(p.Lockdown), encodeOverwrites(p.SavedOverwrites),
		p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetUserRecord retrieves a (user, guild) record, or nil if absent.
func (d *Database) GetUserRecord(guildID, userID string) (*UserRecord, error) {
	var (
		r                    UserRecord
		whitelisted, trusted int
	)

	err := d.db.QueryRow(
		`SELECT guild_id, user_id, whitelisted, trusted
		 FROM user_records WHERE guild_id = ? AND user_id = ?`,
		guildID, userID,
	).Scan(&r.GuildID, &r.UserID, &whitelisted, &trusted)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.Whitelisted = whitelisted != 0
	r.Trusted = trusted != 0
	return &r, nil
}

// UpsertUserRecord creates or replaces a (user, guild) record.
func (d *Database) UpsertUserRecord(r *UserRecord) error {
	_, err := d.db.Exec(
		`INSERT OR REPLACE INTO user_records (guild_id, user_id, whitelisted, trusted)
		 VALUES (?, ?, ?, ?)`,
		r.GuildID, r.UserID, boolToInt(r.Whitelisted), boolToInt(r.Trusted),
	)
	return err
}

// ListWhitelisted returns the user IDs whitelisted in a guild.
func (d *Database) ListWhitelisted(guildID string) ([]string, error) {
	return d.listUsersWhere(guildID, "whitelisted")
}

// ListTrusted returns the user IDs trusted in a guild.
func (d *Database) ListTrusted(guildID string) ([]string, error) {
	return d.listUsersWhere(guildID, "trusted")
}

func (d *Database) listUsersWhere(guildID, column string) ([]string, error) {
	rows, err := d.db.Query(
		`SELECT user_id FROM user_records WHERE guild_id = ? AND `+column+` = 1`,
		guildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
