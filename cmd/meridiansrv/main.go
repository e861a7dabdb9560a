package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/meridian-data/meridian/internal/common/logtrace"
	"github.com/meridian-data/meridian/internal/metasrv/config"
	"github.com/meridian-data/meridian/internal/metasrv/db"
	dbconfig "github.com/meridian-data/meridian/internal/metasrv/db/config"
	"github.com/meridian-data/meridian/internal/metasrv/db/postgresql"
	"github.com/meridian-data/meridian/internal/metasrv/notify"
	"github.com/meridian-data/meridian/internal/metasrv/server"
)

func init() {
	logtrace.InitLogger()
}

type cmdoptions struct {
	configFile *string
	initDb     *bool
}

func main() {
	slog := log.With().Str("state", "init").Logger()
	opt := parseFlags()

	slog.Info().Str("config_file", *opt.configFile).Msg("loading config file")
	if err := config.LoadConfig(*opt.configFile); err != nil {
		slog.Error().Str("config_file", *opt.configFile).Err(err).Msg("unable to load config file")
		os.Exit(1)
	}
	if config.Config().ServerPort == "" {
		slog.Error().Msg("server port not defined")
		os.Exit(1)
	}

	ctx := log.Logger.WithContext(context.Background())

	if *opt.initDb {
		if err := initSchema(ctx); err != nil {
			slog.Error().Err(err).Msg("unable to initialize database schema")
			os.Exit(1)
		}
		slog.Info().Msg("database schema initialized")
	}

	if err := db.Init(ctx); err != nil {
		slog.Error().Err(err).Msg("unable to initialize db pool")
		os.Exit(1)
	}

	notify.StartWebhookForwarder(ctx)

	s, err := server.CreateNewServer()
	if err != nil {
		slog.Error().Err(err).Msg("unable to create server")
		os.Exit(1)
	}
	s.MountHandlers()

	slog.Info().Str("port", config.Config().ServerPort).Msg("starting metadata server")
	if err := http.ListenAndServe(":"+config.Config().ServerPort, s.Router); err != nil {
		slog.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

func initSchema(ctx context.Context) error {
	conn, err := sql.Open("pgx", dbconfig.MetaStoreDsn())
	if err != nil {
		return err
	}
	defer conn.Close()
	return postgresql.InitSchema(ctx, conn)
}

func parseFlags() cmdoptions {
	var opt cmdoptions
	opt.configFile = flag.String("config", "", "Path to the config file")
	opt.initDb = flag.Bool("init-db", false, "Create the database schema before serving")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
	}
	flag.Parse()
	return opt
}
