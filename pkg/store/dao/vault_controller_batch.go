package dao

import "time"

// VaultControllerBatchDao maps to the 'vault_controller_batches' table.
type VaultControllerBatchDao struct {
	tableName        struct{}  `bun:"table:vault_controller_batches"` // nolint
	ID               int64     `bun:",pk,autoincrement"`
	TransactionHash  string    `bun:",notnull,type:varchar(66)"`
	L1BatchNumber    uint64    `bun:",notnull"`
	L1VaultAddress   string    `bun:",notnull,type:varchar(42)"`
	TotalShares      string    `bun:",notnull,type:numeric"`
	MessageHashCount int       `bun:",notnull,default:0"`
	Status           string    `bun:",notnull,type:varchar(32)"`
	CreatedAt        time.Time `bun:",notnull,default:current_timestamp"`
	UpdatedAt        time.Time `bun:",notnull,default:current_timestamp"`
}
