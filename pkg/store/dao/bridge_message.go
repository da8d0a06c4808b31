// Package dao holds bun-tagged structs used only to define and migrate the
// relayer's PostgreSQL schema; hot-path reads and writes go through
// pkg/store/pgstore's raw database/sql queries instead.
package dao

import "time"

// BridgeMessageDao maps to the 'bridge_messages' table.
type BridgeMessageDao struct {
	tableName     struct{}  `bun:"table:bridge_messages"` // nolint
	ID            int64     `bun:",pk,autoincrement"`
	Origin        string    `bun:",notnull,type:varchar(20)"`
	Status        string    `bun:",notnull,type:varchar(32)"`
	SourceTxHash  string    `bun:",notnull,unique,type:varchar(66)"`
	DestTxHash    *string   `bun:",type:varchar(66)"`
	OriginBlock   uint64    `bun:",notnull"`
	DestBlock     *uint64   `bun:""`
	L1BatchNumber *uint64   `bun:""`
	Payload       []byte    `bun:",type:bytea"`
	EventType     string    `bun:",notnull,type:varchar(64)"`
	SubgraphID    string    `bun:",notnull,unique,type:varchar(128)"`
	VaultCtrlRef  *int64    `bun:""`
	CreatedAt     time.Time `bun:",notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:",notnull,default:current_timestamp"`
}
