package journal

const Schema = `
CREATE TABLE IF NOT EXISTS intents (
	intent_id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	instrument TEXT NOT NULL,
	qty INTEGER NOT NULL,
	price REAL NOT NULL,
	notional TEXT NOT NULL,
	vote INTEGER NOT NULL,
	target INTEGER NOT NULL,
	owned INTEGER NOT NULL,
	mode TEXT NOT NULL,
	status TEXT NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_intents_time ON intents(time);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	balance REAL NOT NULL,
	peak REAL NOT NULL,
	drawdown REAL NOT NULL,
	state TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`

// PostgresSchema is Schema with Postgres column types.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS intents (
	intent_id TEXT PRIMARY KEY,
	time TIMESTAMPTZ NOT NULL,
	instrument TEXT NOT NULL,
	qty INTEGER NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	notional NUMERIC(20, 4) NOT NULL,
	vote SMALLINT NOT NULL,
	target INTEGER NOT NULL,
	owned INTEGER NOT NULL,
	mode TEXT NOT NULL,
	status TEXT NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_intents_time ON intents(time);

CREATE TABLE IF NOT EXISTS equity (
	time TIMESTAMPTZ NOT NULL,
	balance DOUBLE PRECISION NOT NULL,
	peak DOUBLE PRECISION NOT NULL,
	drawdown DOUBLE PRECISION NOT NULL,
	state TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`
