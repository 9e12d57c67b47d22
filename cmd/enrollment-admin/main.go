// Command enrollment-admin runs maintenance tasks against the configured store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-enrollment/internal/models"
	"github.com/noah-isme/sma-enrollment/internal/repository"
	"github.com/noah-isme/sma-enrollment/internal/server"
	"github.com/noah-isme/sma-enrollment/internal/service"
	"github.com/noah-isme/sma-enrollment/pkg/config"
	"github.com/noah-isme/sma-enrollment/pkg/export"
	"github.com/noah-isme/sma-enrollment/pkg/logger"
	"github.com/noah-isme/sma-enrollment/pkg/storage"
)

const usage = `usage: enrollment-admin <command> [flags]

commands:
  migrate       create the SQL schema
  seed          create the default admin and staff accounts when none exist
  import-json   copy a students.json collection into the SQL store
  export        write the filtered student list as csv or pdf
`

var errUsage = errors.New("invalid usage")

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(context.Background(), cfg, logr, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		logr.Sugar().Fatalw("command failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "migrate":
		return migrate(ctx, cfg, logr)
	case "seed":
		return seed(ctx, cfg, logr, stdout)
	case "import-json":
		return importJSON(ctx, cfg, logr, args[1:], stdout)
	case "export":
		return exportStudents(ctx, cfg, logr, args[1:], stdout)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func migrate(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	sqlCfg := *cfg
	sqlCfg.Store.Backend = config.BackendSQL
	app, err := server.Build(ctx, &sqlCfg, logr)
	if err != nil {
		return err
	}
	defer app.Close() //nolint:errcheck

	logr.Info("schema ready", zap.String("driver", cfg.Database.Driver))
	return nil
}

func seed(ctx context.Context, cfg *config.Config, logr *zap.Logger, stdout io.Writer) error {
	app, err := server.Build(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer app.Close() //nolint:errcheck

	created, err := app.Seed.EnsureDefaultAccounts(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "created %d account(s)\n", created)
	return nil
}

func importJSON(ctx context.Context, cfg *config.Config, logr *zap.Logger, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("import-json", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	file := fs.String("file", "", "path to the students.json collection")
	replace := fs.Bool("replace", false, "overwrite records already in the SQL store")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *file == "" {
		return fmt.Errorf("%w: -file is required", errUsage)
	}

	source, err := storage.NewLocalStorage(filepath.Dir(*file))
	if err != nil {
		return err
	}
	records := repository.NewStudentFileRepository(source, filepath.Base(*file), logr).LoadAll(ctx)

	sqlCfg := *cfg
	sqlCfg.Store.Backend = config.BackendSQL
	app, err := server.Build(ctx, &sqlCfg, logr)
	if err != nil {
		return err
	}
	defer app.Close() //nolint:errcheck

	if err := app.Students.Replace(ctx, records, *replace); err != nil {
		if errors.Is(err, service.ErrCollectionNotEmpty) {
			return fmt.Errorf("sql store not empty (%v); pass -replace to overwrite", err)
		}
		return err
	}
	fmt.Fprintf(stdout, "imported %d record(s)\n", len(records))
	return nil
}

func exportStudents(ctx context.Context, cfg *config.Config, logr *zap.Logger, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	formatFlag := fs.String("format", string(export.FormatCSV), "csv or pdf")
	status := fs.String("status", models.StatusAll, "All, pending, approved or declined")
	query := fs.String("q", "", "search text")
	out := fs.String("out", "", "output file, stdout when empty")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	format, err := export.ParseFormat(*formatFlag)
	if err != nil {
		return err
	}

	app, err := server.Build(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer app.Close() //nolint:errcheck

	result, err := app.Students.Export(ctx, models.StudentFilter{Query: *query, Status: *status}, format)
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = stdout.Write(result.Body)
		return err
	}
	if err := os.WriteFile(*out, result.Body, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(stdout, "wrote %s\n", *out)
	return nil
}
