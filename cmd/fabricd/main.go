// Package main is the fabric routing daemon, fabricd: it loads
// configuration, builds a Tables with the configured Hat strategy,
// accepts/dials WebSocket links, and dispatches inbound messages
// against the routing core, grounded on the pack's cobra+zerolog
// daemon convention.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/meshfabric/fabric"
	"github.com/meshfabric/fabric/hat"
	"github.com/meshfabric/fabric/internal/fabricconfig"
	"github.com/meshfabric/fabric/internal/translink"
	"github.com/meshfabric/fabric/linkstate"
	fabricrt "github.com/meshfabric/fabric/runtime"
	"github.com/meshfabric/fabric/telemetry"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
)

var envPath string

var rootCmd = &cobra.Command{
	Use:     "fabricd",
	Short:   "fabricd routes pub/sub and query traffic between fabric faces",
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		runDaemon()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fabricd %s (%s)\n", Version, GitCommit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envPath, "env", ".env", "path to the daemon's .env configuration overlay")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDaemon() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := fabricconfig.Load(envPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.LogFormat == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	slogLog := newSlogBridge()

	zid, err := resolveZID(cfg.ZID)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid FABRIC_ZID")
	}
	log.Info().Str("zid", zid.String()).Str("role", cfg.Role).Msg("starting fabricd")

	graph := linkstate.NewGraph()
	h := buildHat(cfg.Role, zid, graph)

	tables := fabric.NewTables(zid, h, slogLog)
	dispatcher := fabric.NewDispatcher(tables)

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	_ = metrics
	otelProvider, err := telemetry.NewOtelProvider(reg)
	if err != nil {
		log.Warn().Err(err).Msg("otel provider unavailable, continuing without it")
	}

	pools := fabricrt.NewRegistry()
	pools.Register(fabricrt.NewPool(context.Background(), "tx", cfg.TxQueueCapacity))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/link", acceptHandler(ctx, tables, dispatcher, cfg))
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics/link listener up")
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("metrics listener failed")
		}
	}()

	policy := fabric.ParseTxDispatchPolicy(cfg.TxDispatchPolicy)
	for _, addr := range cfg.ConnectAddrs {
		go dialPeer(ctx, addr, tables, dispatcher, policy)
	}

	watcher, err := fabricconfig.NewWatcher(envPath, slogLog, func(next fabricconfig.Config, err error) {
		if err != nil {
			log.Warn().Err(err).Msg("config reload failed")
			return
		}
		log.Info().Msg("configuration reloaded")
		cfg = next
	})
	if err != nil {
		log.Warn().Err(err).Msg("config watcher unavailable")
	} else {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			if err := watcher.Run(stop); err != nil {
				log.Warn().Err(err).Msg("config watcher stopped")
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down fabricd")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	if otelProvider != nil {
		_ = otelProvider.Shutdown(shutdownCtx)
	}
}

// newSlogBridge builds the slog.Logger the routing core's internal
// components log through; zerolog remains the daemon's own
// operator-facing logger above this.
func newSlogBridge() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func buildHat(role string, zid fabric.ZID, graph *linkstate.Graph) fabric.Hat {
	switch role {
	case "client":
		return hat.NewClient()
	case "peer-linkstate":
		return hat.NewPeerLinkState(linkstate.ZID(zid), graph)
	case "router":
		return hat.NewRouter(linkstate.ZID(zid), graph)
	default:
		return hat.NewPeerMesh()
	}
}

func resolveZID(s string) (fabric.ZID, error) {
	if s == "" {
		return fabric.NewZID(), nil
	}
	return fabric.ParseZID(s)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

func acceptHandler(ctx context.Context, tables *fabric.Tables, dispatcher *fabric.Dispatcher, cfg fabricconfig.Config) http.HandlerFunc {
	var nextLinkID uint64
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		nextLinkID++
		link := translink.NewWSLink(conn, newSlogBridge(), true, cfg.ShmEnabled)
		policy := fabric.ParseTxDispatchPolicy(cfg.TxDispatchPolicy)
		face := tables.AddFace(link, fabric.FaceRolePeer, fabric.ZID{}, nextLinkID, policy)
		go serveFace(ctx, face, link, dispatcher, tables)
	}
}

func dialPeer(ctx context.Context, addr string, tables *fabric.Tables, dispatcher *fabric.Dispatcher, policy fabric.TxDispatchPolicy) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("failed to dial peer")
		return
	}
	link := translink.NewWSLink(conn, newSlogBridge(), true, false)
	face := tables.AddFace(link, fabric.FaceRolePeer, fabric.ZID{}, 0, policy)
	serveFace(ctx, face, link, dispatcher, tables)
}

// serveFace reads envelopes off link until it closes, handing each to
// the dispatcher, and removes the face from tables on exit.
func serveFace(ctx context.Context, face *fabric.Face, link *translink.WSLink, dispatcher *fabric.Dispatcher, tables *fabric.Tables) {
	defer func() {
		if err := tables.RemoveFace(face.ID); err != nil {
			log.Warn().Err(err).Uint64("face", face.ID).Msg("remove face failed")
		}
	}()

	err := link.ReadLoop(func(env fabric.Envelope) bool {
		switch {
		case env.Declare != nil:
			dispatcher.HandleDeclare(face, *env.Declare)
		case env.Interest != nil:
			dispatcher.HandleInterest(face, *env.Interest)
		case env.Push != nil:
			dispatcher.HandlePush(face, *env.Push)
		case env.Request != nil:
			dispatcher.HandleRequest(face, *env.Request)
		case env.Response != nil:
			dispatcher.HandleResponse(face, *env.Response)
		case env.ResponseFinal != nil:
			dispatcher.HandleResponseFinal(face, *env.ResponseFinal)
		}
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	})
	if err != nil {
		log.Debug().Err(err).Uint64("face", face.ID).Msg("face link closed")
	}
}
