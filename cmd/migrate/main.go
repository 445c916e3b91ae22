package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/angelmondragon/auctionhouse-backend/pkg/bootstrap"
	"github.com/angelmondragon/auctionhouse-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|redo|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate work on files only and need no config.
	switch *cmd {
	case "create":
		if *name == "" {
			exitf("-name is required for create")
		}
		path, err := migrate.CreateFile(*dir, *name, time.Now())
		if err != nil {
			exitf("create: %v", err)
		}
		fmt.Println(path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			exitf("validate: %v", err)
		}
		fmt.Println("ok")
		return
	}

	proc := bootstrap.Start("migrate")
	logg := proc.Logger
	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": *cmd, "dir": *dir})

	client := proc.Database(ctx)
	conn, err := client.DB().DB()
	proc.Must(ctx, "sql database", err)
	m, err := migrate.New(conn, *dir)
	proc.Must(ctx, "migrator", err)

	if *cmd == "version" {
		if *version == "" {
			logg.Warn(ctx, "-version is required for version")
			proc.Fail(ctx)
		}
		err = m.To(ctx, *version)
	} else {
		err = m.Apply(ctx, *cmd)
	}
	if err != nil {
		logg.Error(ctx, "migrate.failed", err)
		proc.Fail(ctx)
	}
	logg.Info(ctx, "migrate.done")
	_ = proc.Close(ctx)
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}
