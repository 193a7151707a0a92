package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ahmiyat/ahmiyat/app/services/ahmiyat/handlers"
	"github.com/ahmiyat/ahmiyat/foundation/events"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/dht"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/genesis"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/state"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/worker"
	"github.com/ahmiyat/ahmiyat/foundation/logger"
	"github.com/ardanlabs/conf/v3"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("AHMIYAT")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Args conf.Args
		Web  struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
		}
		Node struct {
			NodeID        string `conf:"default:node1"`
			DBPath        string `conf:"default:ahmiyat/blocks.db"`
			MemoriesDir   string `conf:"default:memories"`
			GenesisPath   string `conf:"default:ahmiyat/genesis.json"`
			MinerKeyPath  string `conf:"default:ahmiyat/miner.ecdsa"`
			ListenPort    int    `conf:"default:9080"`
			DeclaredStake int64  `conf:"default:0"`
		}
		Peers struct {
			ConfigFile string `conf:"default:ahmiyat/peers.yaml"`
			SeedHost   string
			SeedPort   int
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	const prefix = "AHMIYAT"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// The classic launch form is `ahmiyat <listen_port>`; a positional
	// port overrides the configured gossip port.
	if arg := cfg.Args.Num(0); arg != "" {
		port, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("parsing listen port %q: %w", arg, err)
		}
		cfg.Node.ListenPort = port
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// The memories folder holds the local artifacts referenced by mined
	// blocks.
	if err := os.MkdirAll(cfg.Node.MemoriesDir, 0755); err != nil {
		return fmt.Errorf("creating memories directory: %w", err)
	}

	// =========================================================================
	// Events Support

	// The ledger packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client connected through the events package.
	evts := events.New()
	defer evts.Shutdown()

	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	// =========================================================================
	// Peer Discovery

	peers := dht.New(ev)

	peersFile, err := loadPeersFile(cfg.Peers.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading peers file: %w", err)
	}

	for _, p := range peersFile.Peers {
		peers.Add(dht.NewNode(p.ID, p.Host, p.Port))
	}

	seedHost, seedPort := cfg.Peers.SeedHost, cfg.Peers.SeedPort
	if seedHost == "" && peersFile.Seed.Host != "" {
		seedHost, seedPort = peersFile.Seed.Host, peersFile.Seed.Port
	}
	if seedHost != "" {
		peers.Bootstrap(seedHost, seedPort, peers.Copy())
	}

	// =========================================================================
	// Ledger Support

	// The miner key decides the account credited with rewards and fees.
	// A missing key file does not stop mining; rewards then credit the
	// node id.
	minerID := cfg.Node.NodeID
	if privateKey, err := crypto.LoadECDSA(cfg.Node.MinerKeyPath); err == nil {
		minerID = fmt.Sprintf("%x", crypto.FromECDSAPub(&privateKey.PublicKey))
	} else {
		log.Infow("startup", "status", "no miner key, rewards credit node id", "path", cfg.Node.MinerKeyPath)
	}

	gen, err := genesis.Load(cfg.Node.GenesisPath)
	if err != nil {
		return fmt.Errorf("loading genesis: %w", err)
	}

	st, err := state.New(state.Config{
		NodeID:    cfg.Node.NodeID,
		MinerID:   minerID,
		DBPath:    cfg.Node.DBPath,
		Genesis:   gen,
		Peers:     peers,
		EvHandler: ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	// The worker package implements the gossip listener, the broadcast
	// fanout and the mining signals. The worker registers itself with
	// the state.
	if _, err := worker.Run(st, worker.Config{
		ListenPort:    cfg.Node.ListenPort,
		DeclaredStake: cfg.Node.DeclaredStake,
		MemoriesDir:   cfg.Node.MemoriesDir,
		EvHandler:     ev,
	}); err != nil {
		return err
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug router started", "host", cfg.Web.DebugHost)

	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, handlers.DebugMux(build, log)); err != nil {
			log.Errorw("shutdown", "status", "debug router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing public API", "host", cfg.Web.PublicHost)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		Evts:     evts,
	})

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	serverErrors := make(chan error, 1)

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public server gracefully: %w", err)
		}
	}

	return nil
}

// =============================================================================

// peersFile declares peer nodes and an optional bootstrap seed.
type peersFile struct {
	Seed struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"seed"`
	Peers []struct {
		ID   string `yaml:"id"`
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"peers"`
}

// loadPeersFile reads the optional peers declaration. A missing file is
// not an error; the node can join through the configured seed alone.
func loadPeersFile(path string) (peersFile, error) {
	var pf peersFile

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return pf, nil
		}
		return pf, err
	}

	if err := yaml.Unmarshal(data, &pf); err != nil {
		return pf, fmt.Errorf("parsing %s: %w", path, err)
	}

	return pf, nil
}
