package main

import (
	"context"
	"flag"

	"github.com/bwmarrin/snowflake"
	"github.com/fintelhq/spendsight/internal/config"
	"github.com/fintelhq/spendsight/internal/ingest"
	"github.com/fintelhq/spendsight/internal/migration"
	"github.com/fintelhq/spendsight/internal/observability"
	"github.com/fintelhq/spendsight/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	file := flag.String("file", "", "path to the extraction export (overrides SEED_DATA_PATH)")
	flag.Parse()

	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		ingest.Module,
		fx.Invoke(func(lc fx.Lifecycle, svc *ingest.Service, shutdowner fx.Shutdowner, log *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go func() {
						result, err := svc.RunFile(context.Background(), *file)
						if err != nil {
							log.Error("ingest aborted", zap.Error(err))
						} else if result.Failures > 0 {
							log.Warn("ingest completed with failures",
								zap.Int("documents", result.Documents),
								zap.Int("failures", result.Failures),
							)
						}
						_ = shutdowner.Shutdown()
					}()
					return nil
				},
			})
		}),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
