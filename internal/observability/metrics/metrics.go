package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ServiceName      string
	Environment      string
	ExporterEndpoint string
	ExporterProtocol string
}

// Metrics exposes application-level instruments for the billing core.
type Metrics struct {
	ordersFinalized      metric.Int64Counter
	paymentsApplied      metric.Int64Counter
	movementsRecorded    metric.Int64Counter
	overpaymentsRejected metric.Int64Counter
	stockWarnings        metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New builds the application instruments from the registered meter provider.
func New(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter("masaladesk/billing")

	ordersFinalized, err := meter.Int64Counter("orders_finalized_total",
		metric.WithDescription("Orders finalized into invoices"))
	if err != nil {
		return nil, err
	}
	paymentsApplied, err := meter.Int64Counter("payments_applied_total",
		metric.WithDescription("Payments applied against invoices and purchases"))
	if err != nil {
		return nil, err
	}
	movementsRecorded, err := meter.Int64Counter("inventory_movements_total",
		metric.WithDescription("Inventory movements appended to the ledger"))
	if err != nil {
		return nil, err
	}
	overpaymentsRejected, err := meter.Int64Counter("overpayments_rejected_total",
		metric.WithDescription("Payments rejected for exceeding the amount owed"))
	if err != nil {
		return nil, err
	}
	stockWarnings, err := meter.Int64Counter("stock_warnings_total",
		metric.WithDescription("Low or negative stock warnings surfaced to callers"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ordersFinalized:      ordersFinalized,
		paymentsApplied:      paymentsApplied,
		movementsRecorded:    movementsRecorded,
		overpaymentsRejected: overpaymentsRejected,
		stockWarnings:        stockWarnings,
	}, nil
}

func (m *Metrics) OrderFinalized(ctx context.Context, orderType string) {
	if m == nil {
		return
	}
	m.ordersFinalized.Add(ctx, 1, metric.WithAttributes(attribute.String("order_type", orderType)))
}

func (m *Metrics) PaymentApplied(ctx context.Context, target, method string) {
	if m == nil {
		return
	}
	m.paymentsApplied.Add(ctx, 1, metric.WithAttributes(
		attribute.String("target", target),
		attribute.String("method", method),
	))
}

func (m *Metrics) MovementsRecorded(ctx context.Context, movementType string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.movementsRecorded.Add(ctx, int64(count), metric.WithAttributes(attribute.String("type", movementType)))
}

func (m *Metrics) OverpaymentRejected(ctx context.Context, target string) {
	if m == nil {
		return
	}
	m.overpaymentsRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("target", target)))
}

func (m *Metrics) StockWarnings(ctx context.Context, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.stockWarnings.Add(ctx, int64(count))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}
