package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/fintelhq/spendsight/internal/config"
	"github.com/fintelhq/spendsight/internal/migration"
	"github.com/fintelhq/spendsight/internal/observability"
	"github.com/fintelhq/spendsight/internal/server"
	"github.com/fintelhq/spendsight/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
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
