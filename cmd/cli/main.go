package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/snapgrid/snapgrid/internal/buildinfo"
	"github.com/snapgrid/snapgrid/internal/cli"
	"github.com/snapgrid/snapgrid/internal/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	// Subcommands come before flags: snapgrid-admin create-admin -d <dsn>
	var args []string
	for _, a := range os.Args[1:] {
		if strings.HasPrefix(a, "-") {
			break
		}
		args = append(args, a)
	}

	if err := app.Run(ctx, args); err != nil {
		log.Fatalf("%v", err)
	}

}
