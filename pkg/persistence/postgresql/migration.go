package postgresql

// migrations returns the schema migrations keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS plays (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS workstreams (
				id TEXT PRIMARY KEY,
				play_id TEXT NOT NULL,
				name TEXT,
				stage TEXT,
				fields JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_workstreams_play_id ON workstreams (play_id);
		`,
		2: `
			CREATE TABLE IF NOT EXISTS node_execution_states (
				workstream_id TEXT NOT NULL,
				node_id TEXT NOT NULL,
				play_id TEXT NOT NULL,
				status TEXT NOT NULL,
				output JSONB,
				pending_action JSONB,
				error_message TEXT,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				PRIMARY KEY (workstream_id, node_id)
			);

			CREATE INDEX IF NOT EXISTS idx_execution_states_play
				ON node_execution_states (workstream_id, play_id);
		`,
		3: `
			CREATE TABLE IF NOT EXISTS activity_log (
				id TEXT PRIMARY KEY,
				workstream_id TEXT NOT NULL,
				kind TEXT NOT NULL,
				node_id TEXT,
				user_id TEXT,
				detail JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_activity_log_workstream
				ON activity_log (workstream_id, created_at);
		`,
	}
}
