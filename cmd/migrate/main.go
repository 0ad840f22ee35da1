package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/digitos-team/masala-software/pkg/bootstrap"
	"github.com/digitos-team/masala-software/pkg/db"
	"github.com/digitos-team/masala-software/pkg/migrate"
)

type options struct {
	dir     string
	name    string
	version string
}

// offline commands work on files only; the rest get a Runner.
var (
	offline = map[string]func(ctx context.Context, opts options) error{
		"create":   create,
		"validate": validate,
	}
	online = map[string]func(ctx context.Context, r *migrate.Runner, opts options) error{
		"up":      func(ctx context.Context, r *migrate.Runner, _ options) error { return r.Up(ctx) },
		"down":    func(ctx context.Context, r *migrate.Runner, _ options) error { return r.Down(ctx) },
		"redo":    func(ctx context.Context, r *migrate.Runner, _ options) error { return r.Redo(ctx) },
		"reset":   func(ctx context.Context, r *migrate.Runner, _ options) error { return r.Reset(ctx) },
		"version": migrateTo,
		"status":  printStatus,
	}
)

func main() {
	cmd := flag.String("cmd", "up", "command: "+commandList())
	dir := flag.String("dir", "", "migrations directory (default: embedded; create writes to "+migrate.DefaultDir+")")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()
	opts := options{dir: *dir, name: *name, version: *version}

	if run, ok := offline[*cmd]; ok {
		if err := run(context.Background(), opts); err != nil {
			fmt.Fprintf(os.Stderr, "%s failed: %v\n", *cmd, err)
			os.Exit(1)
		}
		return
	}
	run, ok := online[*cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown -cmd %q (want %s)\n", *cmd, commandList())
		os.Exit(2)
	}

	cfg, logg := bootstrap.Load("migrate")
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	bootstrap.Must(logg, "open database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	bootstrap.Must(logg, "sql handle", err)

	runner, err := migrate.NewRunner(sqlDB, migrate.Source(opts.dir), logg)
	bootstrap.Must(logg, "goose provider", err)

	if err := run(ctx, runner, opts); err != nil {
		logg.Error(ctx, "migration command failed", err)
		dbClient.Close()
		os.Exit(1)
	}
	logg.Info(ctx, "migration command finished")
}

func create(_ context.Context, opts options) error {
	if opts.name == "" {
		return fmt.Errorf("missing -name")
	}
	dir := opts.dir
	if dir == "" {
		dir = migrate.DefaultDir
	}
	path, err := migrate.CreateSQLMigration(dir, opts.name, time.Now())
	if err != nil {
		return err
	}
	fmt.Println("created migration:", path)
	return nil
}

func validate(_ context.Context, opts options) error {
	if err := migrate.Validate(migrate.Source(opts.dir)); err != nil {
		return err
	}
	names, _ := fs.Glob(migrate.Source(opts.dir), "*.sql")
	fmt.Printf("%d migrations valid\n", len(names))
	return nil
}

func migrateTo(ctx context.Context, r *migrate.Runner, opts options) error {
	if opts.version == "" {
		return fmt.Errorf("missing -version")
	}
	return r.To(ctx, opts.version)
}

func printStatus(ctx context.Context, r *migrate.Runner, _ options) error {
	statuses, err := r.Status(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, st := range statuses {
		applied := "-"
		if !st.AppliedAt.IsZero() {
			applied = st.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", st.Source.Version, st.State, applied, st.Source.Path)
	}
	return w.Flush()
}

func commandList() string {
	names := make([]string, 0, len(offline)+len(online))
	for name := range offline {
		names = append(names, name)
	}
	for name := range online {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}
