package main

import (
	"github.com/wisslab/wissrank/internal/server"
	"github.com/wisslab/wissrank/internal/util"
	"github.com/wisslab/wissrank/pkg/logger"
	"github.com/wisslab/wissrank/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
