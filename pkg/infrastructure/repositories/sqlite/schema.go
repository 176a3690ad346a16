package sqlite

// Quantities are stored as integer micro-units (see entities.ToMicroUnits)
// so the conditional decrement is exact.
const schema = `
CREATE TABLE IF NOT EXISTS lots (
    id              TEXT PRIMARY KEY,
    item_id         TEXT    NOT NULL,
    remaining_micro INTEGER NOT NULL CHECK (remaining_micro >= 0),
    unit            TEXT    NOT NULL,
    allergens       TEXT    NOT NULL DEFAULT '[]',
    source_run_id   TEXT    NOT NULL DEFAULT '',
    created_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lots_item_fifo ON lots (item_id, created_at, id);

CREATE TABLE IF NOT EXISTS allocations (
    id           TEXT PRIMARY KEY,
    run_id       TEXT    NOT NULL,
    line_id      TEXT    NOT NULL DEFAULT '',
    lot_id       TEXT    NOT NULL REFERENCES lots (id),
    quantity     TEXT    NOT NULL,
    unit         TEXT    NOT NULL,
    lot_micro    INTEGER NOT NULL CHECK (lot_micro > 0),
    is_rework    INTEGER NOT NULL DEFAULT 0,
    created_at   INTEGER NOT NULL,
    seq          INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_allocations_run ON allocations (run_id, seq);
`
