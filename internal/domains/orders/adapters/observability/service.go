package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	coupondomain "github.com/dinecore/order-engine/internal/domains/coupons/domain"
	"github.com/dinecore/order-engine/internal/domains/orders/domain"
	"github.com/dinecore/order-engine/internal/domains/orders/ports"
)

const tracerName = "github.com/dinecore/order-engine/internal/domains/orders/adapters/observability/service"

// Service decorates the order lifecycle port with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wires a decorator around the core service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

// CreateOrder opens a new order with instrumentation.
func (s *Service) CreateOrder(ctx context.Context, input ports.CreateOrderInput) (*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "Service.CreateOrder",
		attribute.String("order.restaurant_id", input.RestaurantID),
		attribute.Int("order.line_count", len(input.Lines)),
	)
	defer span.End()

	s.logInfo(ctx, "creating order", slog.String("restaurant_id", input.RestaurantID), slog.Int("lines", len(input.Lines)))
	result, err := s.inner.CreateOrder(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to create order", slog.String("restaurant_id", input.RestaurantID))
	}
	s.metrics.recordCreated(ctx)
	s.logInfo(ctx, "order created", slog.String("order_id", result.ID), slog.String("status", string(result.Status)))
	return result, nil
}

// Transition advances the order lifecycle.
func (s *Service) Transition(ctx context.Context, input ports.TransitionInput) (*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "Service.Transition",
		attribute.String("order.id", input.OrderID),
		attribute.String("order.target_status", string(input.Target)),
	)
	defer span.End()

	s.logInfo(ctx, "transitioning order", slog.String("order_id", input.OrderID), slog.String("target", string(input.Target)))
	result, err := s.inner.Transition(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to transition order",
			slog.String("order_id", input.OrderID), slog.String("target", string(input.Target)))
	}
	s.metrics.recordTransition(ctx, result.Status)
	if result.Status == domain.StatusCompleted {
		s.metrics.recordCompleted(ctx)
	}
	s.logInfo(ctx, "order transitioned", slog.String("order_id", result.ID), slog.String("status", string(result.Status)))
	return result, nil
}

// GetOrder loads an order aggregate.
func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "Service.GetOrder", attribute.String("order.id", id))
	defer span.End()

	result, err := s.inner.GetOrder(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.String("order_id", id))
	}
	span.SetAttributes(attribute.String("order.status", string(result.Status)))
	return result, nil
}

// GetBill loads the bill issued for an order.
func (s *Service) GetBill(ctx context.Context, orderID string) (*domain.Bill, error) {
	ctx, span := s.startSpan(ctx, "Service.GetBill", attribute.String("order.id", orderID))
	defer span.End()

	result, err := s.inner.GetBill(ctx, orderID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load bill", slog.String("order_id", orderID))
	}
	span.SetAttributes(attribute.Int64("bill.number", result.Number))
	return result, nil
}

// PayBill stamps the bill as paid.
func (s *Service) PayBill(ctx context.Context, orderID string) (*domain.Bill, error) {
	ctx, span := s.startSpan(ctx, "Service.PayBill", attribute.String("order.id", orderID))
	defer span.End()

	s.logInfo(ctx, "paying bill", slog.String("order_id", orderID))
	result, err := s.inner.PayBill(ctx, orderID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to pay bill", slog.String("order_id", orderID))
	}
	s.metrics.recordBillPaid(ctx)
	s.logInfo(ctx, "bill paid", slog.String("order_id", orderID), slog.Int64("bill_number", result.Number))
	return result, nil
}

// PreviewDiscount validates a coupon without consuming it.
func (s *Service) PreviewDiscount(ctx context.Context, input ports.PreviewDiscountInput) (*coupondomain.AppliedDiscount, error) {
	ctx, span := s.startSpan(ctx, "Service.PreviewDiscount",
		attribute.String("order.id", input.OrderID),
		attribute.String("coupon.code", input.Code),
	)
	defer span.End()

	result, err := s.inner.PreviewDiscount(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to preview discount",
			slog.String("order_id", input.OrderID), slog.String("code", input.Code))
	}
	span.SetAttributes(attribute.String("coupon.discount", result.Amount.String()))
	return result, nil
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := s.tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceMetrics struct {
	ordersCreated     metric.Int64Counter
	ordersTransitions metric.Int64Counter
	ordersCompleted   metric.Int64Counter
	billsPaid         metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	ordersCreated, _ := m.Int64Counter("orders.service.created", metric.WithDescription("Number of orders created"))
	ordersTransitions, _ := m.Int64Counter("orders.service.transitions", metric.WithDescription("Number of status transitions applied"))
	ordersCompleted, _ := m.Int64Counter("orders.service.completed", metric.WithDescription("Number of orders completed and billed"))
	billsPaid, _ := m.Int64Counter("orders.service.bills_paid", metric.WithDescription("Number of bills marked paid"))
	return serviceMetrics{
		ordersCreated:     ordersCreated,
		ordersTransitions: ordersTransitions,
		ordersCompleted:   ordersCompleted,
		billsPaid:         billsPaid,
	}
}

func (m serviceMetrics) recordCreated(ctx context.Context) {
	addCounter(ctx, m.ordersCreated, 1)
}

func (m serviceMetrics) recordTransition(ctx context.Context, status domain.Status) {
	addCounter(ctx, m.ordersTransitions, 1, attribute.String("order.status", string(status)))
}

func (m serviceMetrics) recordCompleted(ctx context.Context) {
	addCounter(ctx, m.ordersCompleted, 1)
}

func (m serviceMetrics) recordBillPaid(ctx context.Context) {
	addCounter(ctx, m.billsPaid, 1)
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Service = (*Service)(nil)
