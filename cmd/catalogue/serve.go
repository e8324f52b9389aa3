package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	catalogue "github.com/3vilTid/Catalogue-Web-App"
	"github.com/3vilTid/Catalogue-Web-App/internal/config"
	"github.com/3vilTid/Catalogue-Web-App/internal/fault"
	"github.com/3vilTid/Catalogue-Web-App/internal/intercept"
	"github.com/3vilTid/Catalogue-Web-App/internal/intercept/strategy"
	"github.com/3vilTid/Catalogue-Web-App/internal/netstatus"
	"github.com/3vilTid/Catalogue-Web-App/internal/rpc"
	"github.com/3vilTid/Catalogue-Web-App/internal/snapshot"
	"github.com/3vilTid/Catalogue-Web-App/internal/stats"
	statslogger "github.com/3vilTid/Catalogue-Web-App/internal/stats/logger"
	promstats "github.com/3vilTid/Catalogue-Web-App/internal/stats/prometheus"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the app through the offline-first caching proxy",
	Long: `Serve the app shell through the interception layer.

Shell assets are precached at startup and served network-first, falling
back to the cache when the origin cannot be reached. Image requests to
the data hosts are served stale-while-revalidate.

Control endpoints:
  POST /_catalogue/message     {"type":"SKIP_WAITING"} or {"type":"CLEAR_CACHE"}
  GET  /_catalogue/status      connectivity, lifecycle state and partitions
  GET  /_catalogue/data        the catalogue dataset, network or snapshot
  GET  /_catalogue/data/{tab}  one tab's dataset
  GET  /metrics                Prometheus metrics`,
	RunE: runServe,
}

var (
	serveOrigin string
	serveListen string
)

func init() {
	serveCmd.Flags().StringVar(&serveOrigin, "origin", "", "origin URL of the app shell (overrides config)")
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveOrigin != "" {
		cfg.Origin = serveOrigin
	}
	if serveListen != "" {
		cfg.Listen = serveListen
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := newServer(cfg, log, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer s.close()

	if cfg.Network.ProbeInterval > 0 {
		go s.monitor.Watch(ctx, netstatus.NewHTTPProber(s.probeURL()), cfg.Network.ProbeInterval)
	}
	go s.install(ctx)

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Listen), zap.String("origin", cfg.Origin))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
	}
	return nil
}

// server wires the interception layer, the network monitor and the data
// client behind one HTTP handler.
type server struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	monitor  *netstatus.Monitor
	layer    *intercept.Layer
	client   *catalogue.Client
	origin   *url.URL
}

func newServer(c *config.Config, log *zap.Logger, registry *prometheus.Registry) (*server, error) {
	origin, err := c.OriginURL()
	if err != nil {
		return nil, fmt.Errorf("parsing origin: %w", err)
	}
	if origin == nil {
		return nil, fmt.Errorf("serve: %w", intercept.ErrNoOrigin)
	}

	collector := stats.NewMulti(
		promstats.New(registry),
		statslogger.New(log.Named("stats")),
	)

	monitor := netstatus.New(true,
		netstatus.WithLogger(log.Named("netstatus")),
		netstatus.WithStats(collector),
	)

	layer, err := newLayer(c, origin, monitor, log, collector)
	if err != nil {
		return nil, err
	}

	store := snapshot.New(storeOpener(c.Store, collector),
		snapshot.WithLogger(log.Named("snapshot")),
		snapshot.WithStats(collector),
	)
	opts := []catalogue.Option{
		catalogue.WithStore(store),
		catalogue.WithMonitor(monitor),
		catalogue.WithAppDataCall(c.RPC.AppDataCall),
		catalogue.WithTabDataCall(c.RPC.TabDataCall),
		catalogue.WithStats(collector),
		catalogue.WithLogger(log.Named("catalogue")),
	}
	if c.RPC.URL != "" {
		opts = append(opts, catalogue.WithInvoker(rpc.New(c.RPC.URL,
			rpc.WithHTTPClient(&http.Client{Transport: layer}),
			rpc.WithTimeout(c.RPC.Timeout),
			rpc.WithLogger(log.Named("rpc")),
		)))
	}
	client, err := catalogue.New(opts...)
	if err != nil {
		return nil, err
	}

	s := &server{
		cfg:      c,
		logger:   log,
		registry: registry,
		monitor:  monitor,
		layer:    layer,
		client:   client,
		origin:   origin,
	}
	return s, nil
}

func newLayer(c *config.Config, origin *url.URL, monitor *netstatus.Monitor, log *zap.Logger, collector stats.Collector) (*intercept.Layer, error) {
	storage, err := newPartitions(c.Cache, c.Store.Codec)
	if err != nil {
		return nil, fmt.Errorf("opening partitions: %w", err)
	}

	manifest := intercept.DefaultManifest()
	if c.Cache.Manifest != "" {
		m, err := intercept.ReadManifest(c.Cache.Manifest)
		if err != nil {
			return nil, err
		}
		manifest = *m
	}
	if c.Cache.Version > 0 {
		manifest.Version = c.Cache.Version
	}

	shell, err := strategy.ParseKind(c.Cache.Strategy)
	if err != nil {
		return nil, fmt.Errorf("cache.strategy: %w", err)
	}

	opts := []intercept.Option{
		intercept.WithOrigin(origin),
		intercept.WithManifest(manifest),
		intercept.WithShellStrategy(shell),
		intercept.WithAutoActivate(c.Cache.AutoActivate),
		intercept.WithLogger(log),
		intercept.WithStats(collector),
	}
	if len(c.Cache.DataHosts) > 0 {
		opts = append(opts, intercept.WithDataHosts(c.Cache.DataHosts...))
	}
	if c.Cache.ImageParam != "" {
		opts = append(opts, intercept.WithImageParam(c.Cache.ImageParam))
	}

	return intercept.New(&netstatus.Transport{Monitor: monitor}, storage, opts...)
}

// install precaches the shell now and again whenever the network comes
// back after a failed attempt.
func (s *server) install(ctx context.Context) {
	s.monitor.OnChange(func(online bool) {
		if online && s.layer.State() == intercept.StateRedundant {
			go s.tryInstall(ctx)
		}
	})
	s.tryInstall(ctx)
}

func (s *server) tryInstall(ctx context.Context) {
	if err := s.layer.Install(ctx); err != nil {
		s.logger.Warn("install failed", zap.Error(err))
	}
}

func (s *server) probeURL() string {
	if s.cfg.Network.ProbeURL != "" {
		return s.cfg.Network.ProbeURL
	}
	return s.origin.String()
}

func (s *server) close() error {
	s.layer.Wait()
	return s.client.Close()
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/_catalogue", func(r chi.Router) {
		r.Post("/message", s.handleMessage)
		r.Get("/status", s.handleStatus)
		r.Get("/data", s.handleData)
		r.Get("/data/{tab}", s.handleTab)
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Handle("/*", s.proxy())
	return r
}

// proxy forwards app requests to the origin through the layer. A request
// carrying an absolute URL, as sent to a forward proxy, keeps its target.
func (s *server) proxy() *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			if pr.In.URL.IsAbs() {
				pr.Out.Host = ""
				return
			}
			pr.SetURL(s.origin)
		},
		Transport: s.layer,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.logger.Debug("proxy error", zap.String("url", r.URL.String()), zap.Error(err))
			if errors.Is(err, fault.ErrNetworkFailure) {
				http.Error(w, strategy.OfflineBody, http.StatusServiceUnavailable)
				return
			}
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		},
	}
}

const maxMessageBytes = 4 << 10

func (s *server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg intercept.Message
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&msg); err != nil {
		http.Error(w, "invalid message: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.layer.HandleMessage(r.Context(), msg); err != nil {
		s.logger.Warn("handling message", zap.String("type", msg.Type), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusResponse struct {
	Online      bool     `json:"online"`
	State       string   `json:"state"`
	Version     int      `json:"version"`
	Partitions  []string `json:"partitions"`
	LastUpdated string   `json:"lastUpdated"`
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Online:      s.monitor.IsOnline(),
		State:       s.layer.State().String(),
		Version:     s.layer.Version(),
		Partitions:  s.layer.Partitions(),
		LastUpdated: s.client.Store().LastUpdatedLabel(),
	})
}

type dataResponse struct {
	Source      string `json:"source"`
	LastUpdated string `json:"lastUpdated"`
	Data        any    `json:"data"`
}

func (s *server) handleData(w http.ResponseWriter, r *http.Request) {
	b, source, err := s.client.Load(r.Context())
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{
		Source:      source.String(),
		LastUpdated: s.client.Store().LastUpdatedLabel(),
		Data:        b,
	})
}

func (s *server) handleTab(w http.ResponseWriter, r *http.Request) {
	tab, err := strconv.Atoi(chi.URLParam(r, "tab"))
	if err != nil || tab < 0 {
		http.Error(w, "invalid tab index", http.StatusBadRequest)
		return
	}
	b, source, err := s.client.LoadTab(r.Context(), tab)
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{
		Source:      source.String(),
		LastUpdated: s.client.Store().LastUpdatedLabel(),
		Data:        b,
	})
}

func (s *server) writeLoadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalogue.ErrNoData):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, fault.ErrNetworkFailure), errors.Is(err, fault.ErrStorageUnavailable):
		s.logger.Warn("loading data", zap.Error(err))
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.logger.Error("loading data", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
