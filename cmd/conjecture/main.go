// Command conjecture generates sample rows for SQL tables and manages the
// settings profiles used by property tests.
//
//	conjecture sample --db sqlite:app.db --table users -n 5
//	conjecture replay --db sqlite:app.db --table users 1,0,3,7
//	conjecture profiles
//	conjecture profiles --export ci --out ci.ini
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shipq/conjecture/cli"
	"github.com/shipq/conjecture/dburl"
	"github.com/shipq/conjecture/fields"
	"github.com/shipq/conjecture/fields/sqlschema"
	"github.com/shipq/conjecture/internal/config"
	"github.com/shipq/conjecture/logging"
	"github.com/shipq/conjecture/proptest"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		cli.Fatal(err.Error())
	}
}

// app holds the flags shared by every subcommand and the state setup
// derives from them.
type app struct {
	configDir string
	dbURL     string
	table     string
	profile   string
	logLevel  string
	pretty    bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "conjecture",
		Short: "Generate sample rows and manage property-test settings profiles",
		Long: `conjecture draws example rows for a SQL table from the same strategies
property tests use, replays recorded choice sequences, and shows the
settings profiles defined in conjecture.ini.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup(cmd) },
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configDir, "config", "", "Directory holding conjecture.ini (default: current directory)")
	pf.StringVar(&a.dbURL, "db", "", "Database URL, e.g. sqlite:app.db or postgres://localhost/app")
	pf.StringVar(&a.table, "table", "", "Table to generate rows for")
	pf.StringVar(&a.profile, "profile", "", "Settings profile (default, ci, dev, or one from conjecture.ini)")
	pf.StringVar(&a.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	pf.BoolVar(&a.pretty, "pretty", false, "Write logs as indented JSON")

	root.AddCommand(newSampleCmd(a), newReplayCmd(a), newProfilesCmd(a))
	return root
}

// setup loads conjecture.ini, registers its profiles and fills unset flags
// from its [cli] section.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadOrDefault(a.configDir)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if cfg.Path != "" {
		if _, err := proptest.LoadProfilesFile(cfg.Path); err != nil {
			return err
		}
	}

	if a.dbURL == "" {
		a.dbURL = cfg.CLI.DBURL
	}
	if a.table == "" {
		a.table = cfg.CLI.Table
	}
	if a.profile == "" {
		a.profile = cfg.CLI.Profile
	}
	if a.profile == "" {
		a.profile = "default"
	}
	a.pretty = a.pretty || cfg.CLI.Pretty

	level, err := logging.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}
	a.logger = logging.New(cmd.ErrOrStderr(), level, a.pretty)
	return nil
}

// settings resolves the selected profile, then PROPTEST_* overrides.
func (a *app) settings() (proptest.Settings, error) {
	s, err := proptest.Profile(a.profile)
	if err != nil {
		return s, err
	}
	if s, err = proptest.ApplyEnv(s); err != nil {
		return s, err
	}
	s.Logger = a.logger
	return s, nil
}

// openTable connects to the configured database and describes its table.
func (a *app) openTable(ctx context.Context) (*sql.DB, []fields.Field, error) {
	switch {
	case a.dbURL == "":
		return nil, nil, errors.New("no database URL: pass --db or set db_url in the [cli] section of conjecture.ini")
	case a.table == "":
		return nil, nil, errors.New("no table: pass --table or set table in the [cli] section of conjecture.ini")
	}

	db, dialect, err := sqlschema.Open(ctx, a.dbURL)
	if err != nil {
		return nil, nil, err
	}
	cols, err := sqlschema.Columns(ctx, db, dialect, a.table)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	a.logger.Info("described table",
		"db", dburl.Redact(a.dbURL),
		"dialect", dialect,
		"table", a.table,
		"columns", len(cols),
	)
	return db, cols, nil
}

// rowStrategy builds the row strategy for the configured table and returns
// the generated column names in declaration order.
func (a *app) rowStrategy(ctx context.Context) (proptest.Strategy[map[string]any], []string, error) {
	db, cols, err := a.openTable(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	s, err := fields.FromFields(cols)
	if err != nil {
		return nil, nil, fmt.Errorf("table %s: %w", a.table, err)
	}
	var names []string
	for _, c := range cols {
		if c.Kind != fields.KindAuto {
			names = append(names, c.Name)
		}
	}
	return s, names, nil
}
