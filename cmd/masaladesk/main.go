package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/masaladesk/masaladesk/internal/config"
	"github.com/masaladesk/masaladesk/internal/migration"
	"github.com/masaladesk/masaladesk/internal/observability"
	"github.com/masaladesk/masaladesk/internal/server"
	"github.com/masaladesk/masaladesk/pkg/db"
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
