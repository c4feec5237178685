// Package observability provides logging, metrics, and tracing for the
// gateway routing layer.
//
// Structured logging is backed by zap behind the Logger interface,
// metrics are Prometheus collectors behind a gateway-owned registry, and
// distributed tracing uses OpenTelemetry with OTLP/gRPC export.
//
// Typical wiring:
//
//	logger, err := observability.NewLogger(observability.DefaultLogConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("instance selected",
//	    observability.String("service", "gamification"),
//	    observability.Int("healthy", 3),
//	)
//
//	metrics := observability.NewMetrics("gateway")
//	http.Handle("/metrics", metrics.Handler())
package observability
