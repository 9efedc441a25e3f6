package store

type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations must stay ordered by Version. Never edit an applied entry.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create user rate state",
		SQL: `
			CREATE TABLE user_rate_state (
				user_id       TEXT PRIMARY KEY,
				message_count INTEGER NOT NULL DEFAULT 0,
				window_start  TEXT NOT NULL,
				updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`,
	},
	{
		Version: 2,
		Name:    "index rate state by window",
		SQL: `
			CREATE INDEX idx_user_rate_state_window ON user_rate_state(window_start);
		`,
	},
}
