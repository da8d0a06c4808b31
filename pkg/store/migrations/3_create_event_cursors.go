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
		log.Println("creating event_cursors table...")
		return mghelper.CreateSchema(ctx, db, &dao.EventCursorDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping event_cursors table...")
		return mghelper.DropTables(ctx, db, &dao.EventCursorDao{})
	}); err != nil {
		panic(err)
	}
}
