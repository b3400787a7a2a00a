// mayastor-agent orchestrator: assembles replicated block volumes out of
// per-node storage pools and publishes them as connectable device URIs.
//
// The daemon exposes a small REST API. A volume create request names the
// pools to carve replicas from (pool://host/pool-name), the node hosting
// the front-end nexus (nvmt://host) and the size in bytes. One replica
// is created per pool, the nexus is assembled over their connect URIs on
// the nexus host, published, and the resulting device URI is returned.
//
// Project structure:
//
// - api holds the transport-neutral types: locator parsing, the storage
// agent interface, and the typed error taxonomy.
//
// - agents implements the storage agent client over the agent's JSON
// control endpoint, with one cached client per host.
//
// - volumes is the orchestration core: validation, bounded-concurrency
// replica fan-out, nexus assembly and publish, best-effort rollback.
//
// - rest serves the HTTP front end, config loads the daemon settings.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/michaelbeaumont/mayastor/agents"
	"github.com/michaelbeaumont/mayastor/config"
	"github.com/michaelbeaumont/mayastor/rest"
	"github.com/michaelbeaumont/mayastor/volumes"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Panic().Err(err).Send()
	}

	loggerSetup(cfg.LogPretty, cfg.LogLevel)

	creator := &volumes.Creator{
		Agents:   agents.NewPool(cfg.AgentPort, cfg.AgentTimeout),
		FanOut:   cfg.ReplicaFanOut,
		Rollback: cfg.Rollback,
	}

	srv := rest.New(cfg.ListenAddress)
	srv.SetRoutes((&rest.VolumeCommand{Creator: creator}).Routes())

	registerSigHandlers(srv)

	log.Info().Str("addr", cfg.ListenAddress).Msg("volume orchestrator listening")
	if err := srv.Listen(); err != nil {
		log.Panic().Err(err).Send()
	}
}

// Register handler for graceful stop when SIGINT or SIGTERM came in.
func registerSigHandlers(srv *rest.Server) {
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt)
	signal.Notify(stopChan, syscall.SIGTERM)
	go func() {
		<-stopChan
		log.Info().Msg("received interrupt, stopping")
		srv.Stop()
	}()
}

func loggerSetup(pretty bool, level int) {
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	zerolog.SetGlobalLevel(zerolog.Level(level))
}
