package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ruvnet/swimguard/internal/agent"
	"github.com/ruvnet/swimguard/internal/api"
	"github.com/ruvnet/swimguard/internal/config"
	"github.com/ruvnet/swimguard/internal/middleware"
	"github.com/ruvnet/swimguard/internal/swim"
	"github.com/ruvnet/swimguard/internal/transport"
	"github.com/ruvnet/swimguard/pkg/metrics"
)

var (
	runJoinSeeds string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a swimguard agent",
	Run:   runAgent,
}

func init() {
	runCmd.Flags().StringVar(&runJoinSeeds, "join", "", "comma-separated addr:port seed peers to join on startup")
}

func runAgent(cmd *cobra.Command, args []string) {
	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.Logging.Level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	m := metrics.NewMetrics()

	peer, err := buildTransport(cfg)
	if err != nil {
		logger.Fatal("failed to build transport", zap.Error(err))
	}

	self := swim.NewNode(cfg.Swim.BindAddr)
	swimCfg := swim.Config{
		ProbeInterval:            cfg.Swim.ProbeInterval,
		PingTimeout:              cfg.Swim.PingTimeout,
		IndirectProbeCount:       cfg.Swim.IndirectProbeCount,
		MaxGossipMessages:        cfg.Gossip.MaxNumberOfMessages,
		MaxGossipCountPerMessage: cfg.Gossip.MaxGossipCountPerMessage,
		MaxLocalHealthMultiplier: cfg.Lifeguard.MaxLocalHealthMultiplier,
		MaxIndependentSuspicions: cfg.Lifeguard.MaxIndependentSuspicions,
		SuspicionTimeoutMin:      cfg.Lifeguard.SuspicionTimeoutMin,
		SuspicionTimeoutMax:      cfg.Lifeguard.SuspicionTimeoutMax,
		DisableUnreachablePhase:  cfg.Lifeguard.DisableUnreachablePhase,
		Clock:                    swim.ClockFunc(func() int64 { return time.Now().UnixNano() }),
		Rand:                     swim.NewSeededRand(time.Now().UnixNano()),
	}

	a := agent.New(self, swimCfg, cfg.Swim.ProbeInterval, peer, logger, m)

	for _, seed := range parseSeeds(runJoinSeeds) {
		a.Join(seed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := a.Run(ctx); err != nil {
			logger.Error("agent run loop exited", zap.Error(err))
		}
	}()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RateLimit(cfg.RateLimit))
	router.Use(middleware.Auth(cfg.JWT))
	api.NewHandler(a, m, logger).SetupRoutes(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("admin API listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("admin API server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin API shutdown error", zap.Error(err))
	}
}

func buildTransport(cfg *config.Config) (transport.Peer, error) {
	switch cfg.Transport.Kind {
	case config.TransportWebSocket:
		bindAddr := cfg.Transport.Endpoint
		if bindAddr == "" {
			bindAddr = cfg.Swim.BindAddr
		}
		return transport.NewWebSocketPeer(cfg.Swim.BindAddr, bindAddr), nil
	case config.TransportRedis:
		addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		return transport.NewRedisPeer(cfg.Swim.BindAddr, addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Channel), nil
	case config.TransportNATS:
		return transport.NewNATSPeer(cfg.Swim.BindAddr, cfg.NATS.URL, cfg.NATS.Subject)
	default:
		return transport.NewMemoryPeer(transport.NewMemoryHub(), cfg.Swim.BindAddr), nil
	}
}

func parseSeeds(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
