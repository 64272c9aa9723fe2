package main

import (
	"context"
	"log"
	"os"

	"github.com/snapgrid/snapgrid/internal/buildinfo"
	"github.com/snapgrid/snapgrid/internal/config"
	"github.com/snapgrid/snapgrid/internal/server"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}

}
