package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/aquamarinepk/aqm/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/appetiteclub/pos/pkg"
	"github.com/appetiteclub/pos/pkg/event"
	"github.com/appetiteclub/pos/pkg/metrics"
	"github.com/appetiteclub/pos/services/terminal/internal/audit"
	"github.com/appetiteclub/pos/services/terminal/internal/checkout"
	"github.com/appetiteclub/pos/services/terminal/internal/mongo"
	"github.com/appetiteclub/pos/services/terminal/internal/restoapi"
	"github.com/appetiteclub/pos/services/terminal/internal/terminal"
)

const (
	appNamespace = "TERMINAL"
	appName      = "terminal"
	appVersion   = "0.1.0"
)

func main() {
	config, err := aqm.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("Cannot setup %s(%s): %v", appName, appVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := aqm.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	restoURL := config.GetStringOrDef("services.resto.url", "http://localhost:8080/api")
	restoTimeout, err := time.ParseDuration(config.GetStringOrDef("services.resto.timeout", "10s"))
	if err != nil {
		log.Fatalf("%s(%s) invalid services.resto.timeout: %v", appName, appVersion, err)
	}
	// The cashier's bearer is forwarded per request; services.resto.token
	// covers calls made outside one, such as catalog reloads.
	var tokens restoapi.TokenSource
	if token := config.GetStringOrDef("services.resto.token", ""); token != "" {
		tokens = restoapi.ContextTokens{Fallback: restoapi.StaticToken(token)}
	}
	resto, err := restoapi.NewClient(restoURL, restoTimeout, tokens, logger)
	if err != nil {
		log.Fatalf("%s(%s) cannot create resto api client: %v", appName, appVersion, err)
	}

	location, err := time.LoadLocation(config.GetStringOrDef("receipt.timezone", "Local"))
	if err != nil {
		log.Fatalf("%s(%s) invalid receipt.timezone: %v", appName, appVersion, err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := metrics.NewServerMetrics(registry, appName)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry, appName)

	catalog := checkout.NewCatalog(resto, logger)
	catalog.Observe(checkoutMetrics)

	var lifecycles []interface{}

	// Events are optional: without NATS the catalog is loaded once at start
	// and refreshed on demand.
	var publisher events.Publisher
	natsURL := config.GetStringOrDef("nats.url", "")
	if natsURL != "" {
		pub, err := pkg.NewNATSPublisher(natsURL, appName)
		if err != nil {
			log.Fatalf("%s(%s) cannot connect to NATS publisher: %v", appName, appVersion, err)
		}
		sub, err := pkg.NewNATSSubscriber(natsURL, appName, logger)
		if err != nil {
			log.Fatalf("%s(%s) cannot connect to NATS subscriber: %v", appName, appVersion, err)
		}
		publisher = pub

		lifecycles = append(lifecycles,
			checkout.NewCatalogSubscriber(sub, catalog, logger),
			aqm.LifecycleHooks{OnStop: func(context.Context) error { return pub.Close() }},
			aqm.LifecycleHooks{OnStop: func(context.Context) error { return sub.Close() }},
		)

		// With JetStream enabled placed orders are retained for late consumers.
		if stream, _ := config.GetString("nats.stream.enabled"); stream == "true" {
			maxAge, err := time.ParseDuration(config.GetStringOrDef("nats.stream.max_age", "72h"))
			if err != nil {
				log.Fatalf("%s(%s) invalid nats.stream.max_age: %v", appName, appVersion, err)
			}
			sp, err := pkg.NewNATSStreamPublisher(ctx, pkg.NATSStreamConfig{
				URL:        natsURL,
				Name:       appName,
				StreamName: config.GetStringOrDef("nats.stream.name", "POS_ORDERS"),
				Subjects:   []string{event.OrdersPlacedTopic},
				MaxAge:     maxAge,
			})
			if err != nil {
				log.Fatalf("%s(%s) cannot create orders stream: %v", appName, appVersion, err)
			}
			if pending, err := sp.Pending(ctx); err == nil {
				logger.Info("orders stream ready", "retained", pending)
			}
			publisher = sp
			lifecycles = append(lifecycles, aqm.LifecycleHooks{OnStop: func(context.Context) error { return sp.Close() }})
		}
	} else {
		lifecycles = append(lifecycles, aqm.LifecycleHooks{
			OnStart: func(ctx context.Context) error {
				if err := catalog.Load(ctx); err != nil {
					logger.Info("catalog warmup failed", "error", err)
				}
				return nil
			},
		})
	}

	auditStore, auditRepo := auditStorage(config, logger, &lifecycles)
	auditor := audit.NewLogger(auditStore, logger)

	submitter := checkout.NewSubmitter(checkout.SubmitterDeps{
		Gateway:   resto,
		Publisher: publisher,
		Auditor:   auditor,
		Observer:  checkoutMetrics,
	}, logger)

	sessions := terminal.NewSessionStore(0, logger)
	lifecycles = append(lifecycles, sessions)

	hd := terminal.HandlerDeps{
		Catalog:   catalog,
		Sessions:  sessions,
		Submitter: submitter,
		History:   checkout.NewHistory(resto, location),
		Receipts:  checkout.NewReceiptFormatter(config.GetStringOrDef("receipt.currency", "$"), location),
		Metrics:   metrics.Handler(registry),
		Observe:   serverMetrics.Middleware,
	}
	if auditRepo != nil {
		hd.Audits = auditRepo
	}
	handler := terminal.NewHandler(hd, config, logger)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger: logger,
	})

	options := []aqm.Option{
		aqm.WithConfig(config),
		aqm.WithLogger(logger),
		aqm.WithHTTPMiddleware(stack...),
		aqm.WithHTTPServerModules("web.port", handler),
		aqm.WithLifecycle(lifecycles...),
		aqm.WithHealthChecks(appName),
	}

	ms := aqm.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	if err := ms.Run(ctx); err != nil {
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}

// auditStorage wires the Mongo audit trail when audit.enabled is true.
func auditStorage(config *aqm.Config, logger aqm.Logger, lifecycles *[]interface{}) (audit.Store, *mongo.AuditRepo) {
	enabled, _ := config.GetString("audit.enabled")
	if enabled != "true" {
		return nil, nil
	}

	baseRepo := mongo.NewBaseRepo(config, logger)
	repo := mongo.NewAuditRepo(baseRepo)
	*lifecycles = append(*lifecycles, baseRepo)
	logger.Info("Audit trail enabled")
	return repo, repo
}
