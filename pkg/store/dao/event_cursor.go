package dao

import "time"

// EventCursorDao maps to the 'event_cursors' table.
type EventCursorDao struct {
	tableName            struct{}  `bun:"table:event_cursors"` // nolint
	StreamName           string    `bun:",pk,type:varchar(64)"`
	LastProcessedOrdinal uint64    `bun:",notnull,default:0"`
	UpdatedAt            time.Time `bun:",notnull,default:current_timestamp"`
}
