package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/packfinderz-pos/pkg/config"
	"github.com/angelmondragon/packfinderz-pos/pkg/db"
	"github.com/angelmondragon/packfinderz-pos/pkg/logger"
	"github.com/angelmondragon/packfinderz-pos/pkg/migrate"
	"github.com/joho/godotenv"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

// Commands that only read or write migration files and never open the database.
var offline = map[string]func(options, migrate.Source) error{
	"create": func(opts options, _ migrate.Source) error {
		if opts.name == "" {
			return errors.New("-name is required for create")
		}
		target := opts.dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	},
	"validate": func(_ options, src migrate.Source) error {
		if err := migrate.Validate(src); err != nil {
			return err
		}
		fmt.Println("migrations valid")
		return nil
	},
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|redo|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", "", "read migrations from this directory instead of the embedded set")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	if err := run(context.Background(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	src := migrate.Embedded()
	if opts.dir != "" {
		src = migrate.Dir(opts.dir)
	}
	if fn, ok := offline[opts.cmd]; ok {
		return fn(opts, src)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg := logger.New(logger.Options{
		ServiceName: "pos-migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": opts.cmd, "dir": src.Path()})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("unwrap sql db: %w", err)
	}

	if err := apply(ctx, sqlDB, src, opts); err != nil {
		logg.Error(ctx, "migrate.failed", err)
		return err
	}
	logg.Info(ctx, "migrate.done")
	return nil
}

func apply(ctx context.Context, sqlDB *sql.DB, src migrate.Source, opts options) error {
	switch opts.cmd {
	case "up", "down", "redo", "status":
		return migrate.Run(ctx, sqlDB, src, opts.cmd)
	case "version":
		if opts.version == "" {
			return errors.New("-version is required for version")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, src, opts.version)
	}
	return fmt.Errorf("unknown command %q", opts.cmd)
}
