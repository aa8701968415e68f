package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edirooss/tablemux/internal/config"
	"github.com/edirooss/tablemux/internal/domain/customer"
	"github.com/edirooss/tablemux/internal/http/handler"
	mw "github.com/edirooss/tablemux/internal/http/middleware"
	"github.com/edirooss/tablemux/internal/notify"
	"github.com/edirooss/tablemux/internal/reservation"
	"github.com/edirooss/tablemux/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "tablemux-server.yaml", "path to config file")
	version := flag.Bool("v", false, "print version and exit")
	flag.BoolVar(version, "version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("tablemux-server %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildDate)
		os.Exit(0)
	}

	// Read env
	isDev := os.Getenv("ENV") == "dev"

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := buildLogger()
	defer log.Sync()
	log = log.Named("main")

	policy, err := reservation.ParsePolicy(cfg.WaitlistPolicy)
	if err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	// Domain wiring
	dir := customer.NewDirectory(log)
	alloc, err := reservation.New(cfg.Tables, dir, reservation.WithLogger(log), reservation.WithPolicy(policy))
	if err != nil {
		log.Fatal("allocator creation failed", zap.Error(err))
	}

	var pub notify.Publisher = notify.Nop{}
	if cfg.RedisAddr != "" {
		rdb := buildRedisClient(cfg.RedisAddr, 0)
		defer rdb.Close()
		rp, err := notify.NewRedisPublisher(log, rdb, cfg.NotifyChannel)
		if err != nil {
			log.Fatal("redis publisher creation failed", zap.Error(err))
		}
		pub = rp
		log.Info("grant notifications enabled", zap.String("redis", cfg.RedisAddr), zap.String("channel", cfg.NotifyChannel))
	}

	svc, err := service.NewReservationService(log, dir, alloc, service.ReservationOptions{
		Publisher: pub,
		Summary:   service.SummaryOptions{TTL: cfg.SummaryTTL},
	})
	if err != nil {
		log.Fatal("reservation service creation failed", zap.Error(err))
	}

	// Create Gin router
	if !isDev {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = zap.NewStdLog(log.Named("gin")).Writer()
	r := gin.New()
	{
		r.Use(gin.Recovery()) // Recovery first (outermost)
		r.Use(mw.RequestID())

		if isDev { // Enable CORS for local dev frontends
			r.Use(cors.New(cors.Config{
				AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000", "http://127.0.0.1:3000"},
				AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowHeaders:     []string{"X-Request-ID", "Content-Type"},
				ExposeHeaders:    []string{"X-Request-ID", "X-Total-Count", "X-Cache", "X-Summary-Generated-At"},
				AllowCredentials: true,
				MaxAge:           12 * time.Hour,
			}))
		} else { // Behind Nginx + TLS
			if err := trustProxies(r, cfg.ServerAddr); err != nil {
				log.Fatal("invalid trusted proxies", zap.String("server_address", cfg.ServerAddr), zap.Error(err))
			}
			r.Use(secure.New(secure.Config{
				SSLProxyHeaders: map[string]string{"X-Forwarded-Proto": "https"},
			}))
		}

		r.Use(mw.AccessLog(log.Named("access")))
		r.Use(mw.LimitConcurrentRequests(cfg.MaxConcurrentRequests))
		r.Use(func(c *gin.Context) {
			// Hard 1MB max request body; payloads here are tiny.
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
			c.Next()
		})
	}

	handler.RegisterRoutes(r, log, svc)

	httpsrv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           r,
		ReadHeaderTimeout: 2 * time.Second,  // kills header-drip Slowloris
		ReadTimeout:       10 * time.Second, // full request read (incl. body)
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigs
		log.Info("signal received; shutting down", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpsrv.Shutdown(ctx); err != nil {
			log.Warn("graceful shutdown failed", zap.Error(err))
		}
	}()

	log.Info("running HTTP server",
		zap.String("addr", httpsrv.Addr),
		zap.Int("tables", cfg.Tables),
		zap.Stringer("policy", policy))
	if err := httpsrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server failed", zap.Error(err))
	}
	log.Info("server closed")
}

// helpers

func buildLogger() *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	logConfig.Level.SetLevel(zap.DebugLevel)
	return zap.Must(logConfig.Build())
}

func buildRedisClient(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
	})
}

// trustProxies trusts loopback and the configured listen address as proxies.
func trustProxies(r *gin.Engine, serverAddr string) error {
	return r.SetTrustedProxies([]string{"127.0.0.1", serverAddr})
}
