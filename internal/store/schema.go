package store

const schemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS chats (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	template_id TEXT,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id                TEXT PRIMARY KEY,
	chat_id           TEXT NOT NULL REFERENCES chats(id),
	role              TEXT NOT NULL,
	content           TEXT NOT NULL,
	idea_bundles_json TEXT,
	feedback          TEXT,
	created_at        TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS recipes (
	id                     TEXT PRIMARY KEY,
	name                   TEXT NOT NULL,
	system_prompt          TEXT NOT NULL,
	user_prompt_template   TEXT NOT NULL,
	rubric_json            TEXT NOT NULL,
	few_shot_examples_json TEXT,
	created_at             TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS eval_results (
	id              TEXT PRIMARY KEY,
	recipe_id       TEXT NOT NULL,
	problem_id      TEXT NOT NULL,
	bundle_id       TEXT NOT NULL,
	score_card_json TEXT NOT NULL,
	delta_json      TEXT,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id);
CREATE INDEX IF NOT EXISTS idx_eval_recipe ON eval_results(recipe_id, problem_id);
`
