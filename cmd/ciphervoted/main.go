package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/vocdoni/ciphervote/api"
	"github.com/vocdoni/ciphervote/config"
	"github.com/vocdoni/ciphervote/crypto/ecc/curves"
	"github.com/vocdoni/ciphervote/crypto/elgamal"
	"github.com/vocdoni/ciphervote/log"
	"github.com/vocdoni/ciphervote/service"
	"github.com/vocdoni/ciphervote/session"
	"github.com/vocdoni/ciphervote/storage"
	"github.com/vocdoni/ciphervote/verifier"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.Init(cfg.LogLevel, cfg.LogOutput, nil)
	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.Config) error {
	database, err := metadb.New(db.TypePebble, cfg.DBPath())
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	stg := storage.New(database)
	defer stg.Close()

	trustee, err := verifier.LoadTrustee(stg, cfg.Curve, cfg.VerifierKey, cfg.MaxVotes)
	if err != nil {
		return err
	}
	admin := trustee.Signer().Address()
	if cfg.Admin != "" {
		admin = common.HexToAddress(cfg.Admin)
	}
	gateway := verifier.NewGateway(trustee.Signer().Address(), trustee.PublicKey(), trustee, admin)

	curve, err := curves.New(cfg.Curve)
	if err != nil {
		return err
	}
	engine := session.NewEngine(stg, elgamal.NewEnvelope(curve), gateway, nil, cfg.Session())
	defer engine.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	apiService := service.NewAPI(&api.APIConfig{
		Engine:    engine,
		Verifier:  gateway,
		CurveType: cfg.Curve,
	}, cfg.Host, cfg.Port)
	if err := apiService.Start(ctx); err != nil {
		return err
	}
	defer apiService.Stop()

	monitor := service.NewFinalizerMonitor(engine, cfg.FinalizeInterval)
	if err := monitor.Start(ctx); err != nil {
		return err
	}
	defer monitor.Stop()

	log.Infow("ciphervote ready",
		"api", apiService.Addr().String(),
		"verifier", gateway.Address().Hex(),
		"admin", admin.Hex(),
		"curve", cfg.Curve,
		"datadir", cfg.Datadir)
	<-ctx.Done()
	log.Infow("shutting down")
	return nil
}
