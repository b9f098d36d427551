package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rkvd/internal/command"
	"rkvd/internal/config"
	"rkvd/internal/logx"
	"rkvd/internal/rdb"
	"rkvd/internal/replication"
	"rkvd/internal/server"
	"rkvd/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Default()
	var replicaOf string
	var debug bool

	root := &cobra.Command{
		Use:   "rkvd",
		Short: "A Redis-compatible key-value server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				logx.SetDebug(true)
			}
			if replicaOf != "" {
				host, port, err := config.ParseReplicaOf(replicaOf)
				if err != nil {
					return err
				}
				cfg.ReplicaOfHost = host
				cfg.ReplicaOfPort = port
				cfg.IsReplica = true
			}
			return run(cfg)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfg.Dir, "dir", cfg.Dir, "directory containing the RDB file")
	flags.StringVar(&cfg.DBFilename, "dbfilename", cfg.DBFilename, "name of the RDB file")
	flags.StringVar(&cfg.Host, "host", cfg.Host, "address to bind to")
	flags.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	flags.StringVar(&replicaOf, "replicaof", "", `master to replicate from, as "<host> <port>"`)
	flags.BoolVar(&debug, "debug", false, "enable debug logging")

	return root
}

func run(cfg config.Config) error {
	ks := store.New()
	if cfg.Dir != "" && cfg.DBFilename != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", cfg.Dir, err)
		}
		path := rdb.DefaultPath(cfg.Dir, cfg.DBFilename)
		loaded, err := rdb.Load(path)
		if err != nil {
			return fmt.Errorf("loading RDB file: %w", err)
		}
		ks = loaded
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			if err := rdb.Save(path, ks); err != nil {
				return fmt.Errorf("creating RDB file: %w", err)
			}
		}
	}

	registry := replication.NewRegistry()
	role := replication.RoleMaster
	if cfg.IsReplica {
		role = replication.RoleReplica
	}
	replID := replication.GenerateReplID()

	dispatcher := command.NewDispatcher(ks, cfg, registry, replID, role)

	listenerCfg := server.DefaultConfig()
	listenerCfg.Host = cfg.Host
	listenerCfg.Port = cfg.Port
	srv := server.New(listenerCfg, dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.IsReplica {
		go func() {
			exec := func(args [][]byte) { dispatcher.Execute(nil, args) }
			if err := replication.Handshake(cfg.ReplicaOfHost, cfg.ReplicaOfPort, cfg.Port, ks, exec); err != nil {
				logx.Errorf("replication handshake with %s:%d failed: %v", cfg.ReplicaOfHost, cfg.ReplicaOfPort, err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logx.Info("shutting down")
		cancel()
		srv.Shutdown()
	}()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
