package main

import (
	"context"
	"os"

	"github.com/inery/inery/cmd/inery/commands"
	"github.com/inery/inery/config"
	"github.com/inery/inery/libs/cli"
	"github.com/inery/inery/libs/log"
)

func main() {
	ctx := context.Background()

	conf := config.DefaultConfig()
	logger, err := log.NewDefaultLogger(conf.LogFormat, conf.LogLevel)
	if err != nil {
		panic(err)
	}

	rcmd := commands.RootCommand(conf, logger)
	rcmd.AddCommand(
		commands.MakeInitCommand(conf, logger),
		commands.MakeGenKeyCommand(),
		commands.MakeShowScheduleCommand(conf, logger),
		commands.MakeValidateHeadersCommand(conf, logger),
		commands.MakeVersionCommand(),
		commands.NewCompletionCmd(rcmd, true),
	)

	if err := cli.RunWithTrace(ctx, rcmd); err != nil {
		os.Exit(1)
	}
}
