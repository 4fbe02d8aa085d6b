package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
	"github.com/mattn/go-sqlite3"
)

// ============================================================================
// Database Constants
// ============================================================================

const (
	MsgConfigInvalidGuildID = "invalid GUILD_ID: must be a valid Snowflake"
	MsgConfigParseFail      = "failed to parse environment: %w"
	MsgDatabaseInitSuccess  = "Database initialized successfully"
	MsgDBMigrationFail      = "failed to migrate database: %w"
	MsgDBParseUserIDFail    = "failed to parse user ID '%s' in level row: %w"
)

// --- Phase 1: Configuration & Environment ---

type Config struct {
	Token        string `env:"DISCORD_TOKEN"`
	GuildID      string `env:"GUILD_ID"`
	DatabasePath string `env:"DATABASE_PATH"`
	DataDir      string `env:"DATA_DIR" envDefault:"data"`
	OwnerIDs     []string `env:"OWNER_IDS" envSeparator:","`
	Silent       bool   `env:"SILENT"`

	CoralBaseURL  string `env:"CORALMC_BASE_URL" envDefault:"https://api.coralmc.it/api"`
	CoralCacheTTL int    `env:"CORALMC_CACHE_TTL" envDefault:"300"`

	GiveawayScanSeconds int `env:"GIVEAWAY_SCAN_INTERVAL" envDefault:"30"`

	RankCardBackground string `env:"RANK_CARD_BACKGROUND"`
}

var GlobalConfig *Config

// LoadConfig initializes the configuration from environment variables.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf(MsgConfigParseFail, err)
	}

	for i := range cfg.OwnerIDs {
		cfg.OwnerIDs[i] = strings.TrimSpace(cfg.OwnerIDs[i])
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(".", GetProjectName()+".db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Silent {
		SetSilentMode(true)
	}

	GlobalConfig = cfg
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf(MsgConfigMissingToken)
	}
	if c.GuildID != "" && (len(c.GuildID) < 17 || len(c.GuildID) > 20) {
		return fmt.Errorf(MsgConfigInvalidGuildID)
	}
	if c.GiveawayScanSeconds < 1 {
		c.GiveawayScanSeconds = 30
	}
	if c.CoralCacheTTL < 30 || c.CoralCacheTTL > 3600 {
		c.CoralCacheTTL = 300
	}
	return nil
}

func GetProjectName() string {
	exePath, err := os.Executable()
	projectName := "bot"
	if err == nil {
		projectName = filepath.Base(exePath)
		projectName = strings.TrimSuffix(projectName, ".exe")

		if projectName == "main" || strings.HasPrefix(projectName, "go_build_") {
			if modData, err := os.ReadFile("go.mod"); err == nil {
				lines := strings.Split(string(modData), "\n")
				if len(lines) > 0 && strings.HasPrefix(lines[0], "module ") {
					parts := strings.Split(lines[0], "/")
					projectName = strings.TrimSpace(parts[len(parts)-1])
				}
			}
		}
	}
	return projectName
}

// --- Phase 2: Database Connection & Lifecycle ---

var DB *sql.DB

func InitDatabase(ctx context.Context, dataSourceName string) error {
	_ = sqlite3.SQLiteDriver{}

	var err error
	DB, err = sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return err
	}

	DB.SetMaxOpenConns(5)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA cache_size=-2000;",
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, p := range pragmas {
		if _, err := DB.ExecContext(initCtx, p); err != nil {
			return fmt.Errorf(MsgDatabasePragmaError, p, err)
		}
	}

	tx, err := DB.BeginTx(initCtx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tableQueries := []string{
		`CREATE TABLE IF NOT EXISTS bot_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS levels (
			guild_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			xp INTEGER NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 0,
			messages INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (guild_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_levels_guild_xp ON levels(guild_id, xp DESC)`,
	}

	for _, q := range tableQueries {
		if _, err := tx.ExecContext(initCtx, q); err != nil {
			return fmt.Errorf(MsgDatabaseTableError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	migrations := []string{
		"ALTER TABLE levels ADD COLUMN messages INTEGER NOT NULL DEFAULT 0",
	}

	for _, m := range migrations {
		if _, err := DB.ExecContext(initCtx, m); err != nil {
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf(MsgDBMigrationFail, err)
			}
		}
	}

	LogDatabase(MsgDatabaseInitSuccess)
	return nil
}

func CloseDatabase() {
	if DB != nil {
		DB.Close()
	}
}

// --- Phase 3: Infrastructure & Bot Persistence ---

// BotConfig helpers are used by the loader for mode tracking and state.
func GetBotConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := DB.QueryRowContext(ctx, "SELECT value FROM bot_config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func SetBotConfig(ctx context.Context, key, value string) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO bot_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// --- Phase 4: Application Logic (Levels) ---

type LevelRow struct {
	GuildID  snowflake.ID
	UserID   snowflake.ID
	XP       int
	Level    int
	Messages int
}

func GetLevelRow(ctx context.Context, guildID, userID snowflake.ID) (*LevelRow, error) {
	row := DB.QueryRowContext(ctx, `
		SELECT xp, level, messages FROM levels WHERE guild_id = ? AND user_id = ?
	`, guildID.String(), userID.String())

	r := &LevelRow{GuildID: guildID, UserID: userID}
	err := row.Scan(&r.XP, &r.Level, &r.Messages)
	if err == sql.ErrNoRows {
		return r, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func SaveLevelRow(ctx context.Context, r *LevelRow) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO levels (guild_id, user_id, xp, level, messages)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			xp = excluded.xp,
			level = excluded.level,
			messages = excluded.messages,
			updated_at = CURRENT_TIMESTAMP
	`, r.GuildID.String(), r.UserID.String(), r.XP, r.Level, r.Messages)
	return err
}

func GetLevelLeaderboard(ctx context.Context, guildID snowflake.ID, limit, offset int) ([]*LevelRow, error) {
	rows, err := DB.QueryContext(ctx, `
		SELECT user_id, xp, level, messages FROM levels
		WHERE guild_id = ? ORDER BY level DESC, xp DESC LIMIT ? OFFSET ?
	`, guildID.String(), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*LevelRow
	for rows.Next() {
		r := &LevelRow{GuildID: guildID}
		var uid string
		if err := rows.Scan(&uid, &r.XP, &r.Level, &r.Messages); err != nil {
			return nil, err
		}
		r.UserID, err = snowflake.Parse(uid)
		if err != nil {
			return nil, fmt.Errorf(MsgDBParseUserIDFail, uid, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func GetLevelRank(ctx context.Context, guildID, userID snowflake.ID) (int, error) {
	var rank int
	err := DB.QueryRowContext(ctx, `
		SELECT COUNT(*) + 1 FROM levels
		WHERE guild_id = ? AND (level * 1000000 + xp) > (
			SELECT COALESCE((SELECT level * 1000000 + xp FROM levels WHERE guild_id = ? AND user_id = ?), -1)
		)
	`, guildID.String(), guildID.String(), userID.String()).Scan(&rank)
	return rank, err
}

func CountLevelRows(ctx context.Context, guildID snowflake.ID) (int, error) {
	var count int
	err := DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM levels WHERE guild_id = ?", guildID.String()).Scan(&count)
	return count, err
}

func DeleteLevelRow(ctx context.Context, guildID, userID snowflake.ID) error {
	_, err := DB.ExecContext(ctx, "DELETE FROM levels WHERE guild_id = ? AND user_id = ?", guildID.String(), userID.String())
	return err
}
