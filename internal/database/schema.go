package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the tables used by the ticketing services.  The unique
// keys are the storage-level backstop for the application checks: a
// session triple (date, time_slot, room_number) and a ticket pair
// (user_id, session_id) can never be committed twice.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id CHAR(36) NOT NULL PRIMARY KEY,
		username VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL,
		age INT UNSIGNED NOT NULL,
		role ENUM('CUSTOMER','MANAGER') NOT NULL DEFAULT 'CUSTOMER',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS movies (
		id CHAR(36) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		age_restriction INT UNSIGNED NOT NULL DEFAULT 0,
		status ENUM('ACTIVE','INACTIVE') NOT NULL DEFAULT 'ACTIVE',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_movies_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id CHAR(36) NOT NULL PRIMARY KEY,
		movie_id CHAR(36) NOT NULL,
		date DATE NOT NULL,
		time_slot ENUM('08:00-10:00','10:00-12:00','12:00-14:00','14:00-16:00','16:00-18:00','18:00-20:00','20:00-22:00','22:00-00:00') NOT NULL,
		room_number INT UNSIGNED NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_sessions_slot (date, time_slot, room_number),
		KEY idx_sessions_movie (movie_id),
		CONSTRAINT fk_sessions_movie FOREIGN KEY (movie_id) REFERENCES movies (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id CHAR(36) NOT NULL PRIMARY KEY,
		user_id CHAR(36) NOT NULL,
		session_id CHAR(36) NOT NULL,
		used TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_tickets_user_session (user_id, session_id),
		KEY idx_tickets_session (session_id),
		CONSTRAINT fk_tickets_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_tickets_session FOREIGN KEY (session_id) REFERENCES sessions (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS watch_histories (
		id CHAR(36) NOT NULL PRIMARY KEY,
		user_id CHAR(36) NOT NULL,
		movie_id CHAR(36) NOT NULL,
		watched_at DATETIME NOT NULL,
		KEY idx_watch_histories_user (user_id),
		CONSTRAINT fk_watch_histories_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_watch_histories_movie FOREIGN KEY (movie_id) REFERENCES movies (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.  Statements are idempotent and run
// one at a time because the driver does not enable multi-statements.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}
