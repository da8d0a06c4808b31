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
		log.Println("creating bridge_messages table...")
		if err := mghelper.CreateSchema(ctx, db, &dao.BridgeMessageDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &dao.BridgeMessageDao{}, "status", "origin", "created_at")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping bridge_messages table...")
		return mghelper.DropTables(ctx, db, &dao.BridgeMessageDao{})
	}); err != nil {
		panic(err)
	}
}
