package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/snapgrid/snapgrid/internal/backend"
	"github.com/snapgrid/snapgrid/internal/config"
	"github.com/snapgrid/snapgrid/internal/logging"
	"github.com/snapgrid/snapgrid/internal/models"
	"github.com/snapgrid/snapgrid/internal/persist"
)

// App is the operator CLI. It opens the configured backend directly, without
// going through a running server.
type App struct {
	config *config.Config
	logger logging.Logger
	facade *persist.Facade
}

func NewApp(c *config.Config) (*App, error) {
	sl := slog.New(slog.NewTextHandler(os.Stderr, nil))
	logger := logging.NewSlogLogger(sl)

	facade := persist.NewFacade(backend.Opener(logger), logger)
	return &App{config: c, logger: logger, facade: facade}, nil
}

// Run dispatches the subcommand named by the first non-flag argument.
func (app *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: snapgrid-admin <create-admin|list-admins>")
	}

	if err := app.facade.Initialize(ctx, app.config.PersistConfig()); err != nil {
		return err
	}
	defer func() {
		if err := app.facade.Close(); err != nil {
			app.logger.Error(ctx, "closing backend", "error", err)
		}
	}()

	switch args[0] {
	case "create-admin":
		return app.createAdmin(ctx)
	case "list-admins":
		return app.listAdmins(ctx)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (app *App) createAdmin(ctx context.Context) error {
	reader := bufio.NewReader(os.Stdin)

	username, err := GetSimpleText(reader, "Admin username", os.Stdout)
	if err != nil {
		return err
	}
	levelText, err := GetSimpleText(reader, "Privilege level (1 is highest)", os.Stdout)
	if err != nil {
		return err
	}
	level, err := strconv.Atoi(levelText)
	if err != nil {
		return fmt.Errorf("invalid level %q: %w", levelText, err)
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	for i := range password {
		password[i] = 0
	}
	if err != nil {
		return err
	}

	db, err := app.facade.Database()
	if err != nil {
		return err
	}

	admin, err := db.CreateAdmin(ctx, &models.Admin{
		Username:     username,
		PasswordHash: string(hash),
		Level:        level,
	})
	if err != nil {
		return err
	}

	fmt.Printf("created admin %s (%s)\n", admin.Username, admin.ID)
	return nil
}

func (app *App) listAdmins(ctx context.Context) error {
	db, err := app.facade.Database()
	if err != nil {
		return err
	}

	admins, err := db.GetAdmins(ctx)
	if err != nil {
		return err
	}

	for _, a := range admins {
		fmt.Printf("%s\t%s\tlevel=%d\n", a.ID, a.Username, a.Level)
	}
	return nil
}
