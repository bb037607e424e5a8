package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"xdao.co/zpass/config"
	"xdao.co/zpass/observability"
	"xdao.co/zpass/receipt"
	"xdao.co/zpass/rpc"
	"xdao.co/zpass/zkcrypto"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("zpass-signerd", flag.ContinueOnError)
	configPath := fs.String("config", "", "Config file (YAML)")
	listen := fs.String("listen", "", "Listen address (default from config)")
	network := fs.String("network", "", "Default network for requests without one")
	receiptsDir := fs.String("receipts-dir", "", "Archive receipts in this directory (default: in memory)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *network != "" {
		cfg.Network = *network
	}
	if *receiptsDir != "" {
		cfg.ReceiptsDir = *receiptsDir
	}
	n, err := zkcrypto.ParseNetwork(cfg.Network)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	log, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	store, err := openStore(cfg.ReceiptsDir)
	if err != nil {
		log.Error("open receipt store", zap.Error(err))
		return 1
	}

	for _, id := range []zkcrypto.Network{zkcrypto.Testnet, zkcrypto.Mainnet} {
		if _, err := zkcrypto.Get(id); err != nil {
			log.Error("initialize crypto suite", zap.Stringer("network", id), zap.Error(err))
			return 1
		}
	}

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		log.Error("listen", zap.String("addr", cfg.Listen), zap.Error(err))
		return 1
	}
	defer lis.Close()

	s := grpc.NewServer(grpc.UnaryInterceptor(rpc.UnaryInterceptor(log)))
	fatal := make(chan error, 1)
	rpc.RegisterSignerServer(s, &rpc.Server{
		Network:   n,
		Algorithm: cfg.Algorithm(),
		Store:     store,
		Log:       log,
		OnFatal: func(err error) {
			select {
			case fatal <- err:
			default:
			}
		},
	})

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	exit := make(chan int, 1)
	go func() {
		select {
		case sig := <-sigs:
			log.Info("shutting down", zap.Stringer("signal", sig))
			s.GracefulStop()
			exit <- 0
		case err := <-fatal:
			log.Error("stopping after fatal signing failure", zap.Error(err))
			s.Stop()
			exit <- 3
		}
	}()

	log.Info("zpass-signerd listening",
		zap.String("addr", lis.Addr().String()),
		zap.Stringer("network", n),
		zap.Stringer("algorithm", cfg.Algorithm()),
		zap.Bool("receipts_on_disk", cfg.ReceiptsDir != ""))
	if err := s.Serve(lis); err != nil {
		log.Error("serve", zap.Error(err))
		return 1
	}
	return <-exit
}

func openStore(dir string) (receipt.Store, error) {
	if dir == "" {
		return receipt.NewMemStore(), nil
	}
	return receipt.NewDirStore(dir)
}
