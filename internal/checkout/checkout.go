// Package checkout turns a session cart into a hosted payment session and,
// once paid, into a persisted order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/metrics"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/payment"
	"github.com/safar/go-storefront/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrBelowMinimum      = errors.New("order total below minimum")
	ErrSnapshotNotFound  = errors.New("checkout snapshot not found")
	ErrPaymentIncomplete = errors.New("payment not completed")
)

type Orders interface {
	CreateOrder(ctx context.Context, req store.CreateOrderRequest) (*models.Order, error)
	GetOrderByPaymentID(ctx context.Context, paymentID string) (*models.Order, error)
}

type Config struct {
	Currency     string
	MinimumTotal decimal.Decimal
	// BaseURL is the public origin the provider redirects back to.
	BaseURL string
}

type Service struct {
	catalog   cart.Catalog
	orders    Orders
	snapshots Snapshots
	provider  payment.Provider
	cfg       Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(catalog cart.Catalog, orders Orders, snapshots Snapshots, provider payment.Provider,
	cfg Config, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		catalog:   catalog,
		orders:    orders,
		snapshots: snapshots,
		provider:  provider,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

func (s *Service) MinimumTotal() decimal.Decimal {
	return s.cfg.MinimumTotal
}

type BeginResult struct {
	PaymentID   string
	RedirectURL string
	Snapshot    Snapshot
}

// Begin resolves the cart once, rejects empty or below-minimum carts, and
// opens a provider session priced from that single snapshot.
func (s *Service) Begin(ctx context.Context, userID int64, c cart.Cart) (*BeginResult, error) {
	res, err := cart.Resolve(ctx, s.catalog, c)
	if err != nil {
		return nil, fmt.Errorf("resolve cart: %w", err)
	}

	if res.Empty() {
		s.metrics.CheckoutSession("empty")
		return nil, ErrEmptyCart
	}
	if res.Total.LessThan(s.cfg.MinimumTotal) {
		s.metrics.CheckoutSession("below_minimum")
		return nil, ErrBelowMinimum
	}

	snap := newSnapshot(userID, s.cfg.Currency, res, s.now())

	req := payment.SessionRequest{
		Currency:   snap.Currency,
		SuccessURL: s.cfg.BaseURL + "/success/?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.cfg.BaseURL + "/cancel/",
		Reference:  fmt.Sprintf("user-%d", userID),
	}
	for _, line := range snap.Lines {
		req.Lines = append(req.Lines, payment.LineItem{
			Name:       line.Name,
			UnitAmount: payment.MinorUnits(line.UnitPrice),
			Quantity:   int64(line.Quantity),
		})
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		s.metrics.CheckoutSession("provider_error")
		return nil, err
	}

	if err := s.snapshots.Save(ctx, sess.ID, snap); err != nil {
		s.metrics.CheckoutSession("snapshot_error")
		return nil, err
	}

	s.metrics.CheckoutSession("created")
	s.logger.Info("checkout session created",
		zap.Int64("user_id", userID),
		zap.String("payment_id", sess.ID),
		zap.String("total", snap.Total.StringFixed(2)),
	)

	return &BeginResult{PaymentID: sess.ID, RedirectURL: sess.URL, Snapshot: snap}, nil
}

// CompleteResult is the order for a payment. Created is false when the order
// already existed before this call.
type CompleteResult struct {
	Order   *models.Order
	Created bool
}

// Complete finalizes a paid session into an order. Calling it again for the
// same payment id returns the existing order with Created unset.
func (s *Service) Complete(ctx context.Context, userID int64, paymentID string) (*CompleteResult, error) {
	if paymentID == "" {
		return nil, ErrSnapshotNotFound
	}

	existing, err := s.orders.GetOrderByPaymentID(ctx, paymentID)
	if err == nil {
		if existing.UserID != userID {
			return nil, ErrSnapshotNotFound
		}
		return &CompleteResult{Order: existing}, nil
	}
	if !errors.Is(err, database.ErrOrderNotFound) {
		return nil, err
	}

	snap, err := s.snapshots.Load(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if snap.UserID != userID {
		return nil, ErrSnapshotNotFound
	}

	paid, err := s.provider.CheckoutSessionPaid(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !paid {
		return nil, ErrPaymentIncomplete
	}

	req := store.CreateOrderRequest{
		UserID:    userID,
		PaymentID: paymentID,
		Status:    models.OrderStatusProcessing,
		Items:     make([]store.OrderItemRequest, 0, len(snap.Lines)),
	}
	for _, line := range snap.Lines {
		req.Items = append(req.Items, store.OrderItemRequest{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	order, err := s.orders.CreateOrder(ctx, req)
	if errors.Is(err, database.ErrDuplicatePayment) {
		existing, err := s.orders.GetOrderByPaymentID(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		return &CompleteResult{Order: existing}, nil
	}
	if err != nil {
		return nil, err
	}

	s.metrics.OrderCreated()
	s.logger.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.String("payment_id", paymentID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)

	if err := s.snapshots.Delete(ctx, paymentID); err != nil {
		s.logger.Warn("failed to delete checkout snapshot", zap.String("payment_id", paymentID), zap.Error(err))
	}

	return &CompleteResult{Order: order, Created: true}, nil
}
