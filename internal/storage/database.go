package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"meligy/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the configured sqlite3 or mysql database.
func Open(dbType string, cfg *config.Config) (*sql.DB, error) {
	dbCfg, ok := cfg.Databases[dbType]
	if !ok {
		return nil, fmt.Errorf("database config for %s not found", dbType)
	}

	var (
		db  *sql.DB
		err error
	)

	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		if dbCfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open("sqlite3", dbCfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		// :memory: databases are per connection, and sqlite serializes writers anyway.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			dbCfg.Username,
			dbCfg.Password,
			dbCfg.Host,
			dbCfg.Port,
			dbCfg.DBName,
			dbCfg.Params,
		)
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", dbType)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate ensures the required tables are present.
func Migrate(db *sql.DB, driver string) error {
	var stmts []string
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS clients (
				id TEXT PRIMARY KEY,
				subscribed INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS client_tokens (
				token TEXT PRIMARY KEY,
				client_id TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				expires_at DATETIME NOT NULL,
				FOREIGN KEY(client_id) REFERENCES clients(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_client_tokens_client ON client_tokens(client_id)`,
			`CREATE INDEX IF NOT EXISTS idx_client_tokens_expiry ON client_tokens(expires_at)`,
			`CREATE TABLE IF NOT EXISTS conversations (
				id TEXT PRIMARY KEY,
				client_id TEXT NOT NULL,
				title TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				FOREIGN KEY(client_id) REFERENCES clients(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_conversations_client ON conversations(client_id, updated_at DESC)`,
			`CREATE TABLE IF NOT EXISTS messages (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				message_id TEXT NOT NULL,
				conversation_id TEXT NOT NULL,
				sender TEXT NOT NULL,
				content TEXT NOT NULL,
				type TEXT NOT NULL DEFAULT 'text',
				media_url TEXT NOT NULL DEFAULT '',
				table_html TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL,
				UNIQUE(conversation_id, message_id),
				FOREIGN KEY(conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS clients (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				subscribed TINYINT(1) NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS client_tokens (
				token VARCHAR(255) NOT NULL PRIMARY KEY,
				client_id VARCHAR(64) NOT NULL,
				created_at DATETIME NOT NULL,
				expires_at DATETIME NOT NULL,
				INDEX idx_client_tokens_client (client_id),
				INDEX idx_client_tokens_expiry (expires_at),
				CONSTRAINT fk_client_tokens_client FOREIGN KEY (client_id) REFERENCES clients(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS conversations (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				client_id VARCHAR(64) NOT NULL,
				title VARCHAR(255) NOT NULL,
				created_at DATETIME(3) NOT NULL,
				updated_at DATETIME(3) NOT NULL,
				INDEX idx_conversations_client (client_id, updated_at),
				CONSTRAINT fk_conversations_client FOREIGN KEY (client_id) REFERENCES clients(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS messages (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				message_id VARCHAR(64) NOT NULL,
				conversation_id VARCHAR(64) NOT NULL,
				sender VARCHAR(16) NOT NULL,
				content MEDIUMTEXT NOT NULL,
				type VARCHAR(16) NOT NULL DEFAULT 'text',
				media_url MEDIUMTEXT NOT NULL,
				table_html MEDIUMTEXT NOT NULL,
				created_at DATETIME(3) NOT NULL,
				PRIMARY KEY (id),
				UNIQUE KEY uniq_conversation_message (conversation_id, message_id),
				CONSTRAINT fk_messages_conversation FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	default:
		return fmt.Errorf("unsupported driver for migration: %s", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}
