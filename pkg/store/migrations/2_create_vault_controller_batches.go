package migrations

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/via-network/bridge-relayer/pkg/store/dao"

	mghelper "github.com/via-network/bridge-relayer/pkg/pgutil/migrations"
)

func init() {
	if err := Migrations.Register(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating vault_controller_batches table...")
		if err := mghelper.CreateSchema(ctx, db, &dao.VaultControllerBatchDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &dao.VaultControllerBatchDao{}, "status", "l1_batch_number")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping vault_controller_batches table...")
		return mghelper.DropTables(ctx, db, &dao.VaultControllerBatchDao{})
	}); err != nil {
		panic(err)
	}
}
