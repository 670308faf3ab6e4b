package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/lib/pq"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	UserID int64
	// PaymentID is the payment provider's checkout session id. It is unique
	// across orders; empty means no payment reference.
	PaymentID string
	Status    string
	Items     []OrderItemRequest
}

// OrderItemRequest carries the unit price captured at checkout. The catalog
// price is not re-read when the order is written.
type OrderItemRequest struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

const orderColumns = `o.id, o.user_id, o.order_number, COALESCE(o.payment_id, ''), o.status,
	o.total_amount, o.created_at, o.updated_at, o.version`

func scanOrder(row rowScanner, order *models.Order) error {
	return row.Scan(
		&order.ID,
		&order.UserID,
		&order.OrderNumber,
		&order.PaymentID,
		&order.Status,
		&order.TotalAmount,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
}

func generateOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%04d", time.Now().UnixNano(), rand.Intn(10000))
}

// CreateOrder writes an order and all of its items in one serializable
// transaction. Either everything is persisted or nothing is.
func CreateOrder(ctx context.Context, db *sql.DB, req CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, database.ErrEmptyOrder
	}

	status := req.Status
	if status == "" {
		status = models.OrderStatusPending
	}
	if !models.ValidOrderStatus(status) {
		return nil, fmt.Errorf("create order: unknown status %q", status)
	}

	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("create order: product %d has quantity %d", item.ProductID, item.Quantity)
		}
	}

	var order *models.Order

	err := database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)",
			req.UserID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check user exists: %w", err)
		}
		if !exists {
			return database.ErrUserNotFound
		}

		productIDs := make([]int64, 0, len(req.Items))
		for _, item := range req.Items {
			productIDs = append(productIDs, item.ProductID)
		}

		names, err := lockProducts(ctx, tx, productIDs)
		if err != nil {
			return err
		}

		totalAmount := decimal.Zero
		for _, item := range req.Items {
			if _, ok := names[item.ProductID]; !ok {
				return database.ErrProductNotFound
			}
			totalAmount = totalAmount.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		paymentID := sql.NullString{String: req.PaymentID, Valid: req.PaymentID != ""}

		created := &models.Order{}
		err = scanOrder(tx.QueryRowContext(ctx,
			`WITH o AS (
				INSERT INTO orders (user_id, order_number, payment_id, status, total_amount, created_at, updated_at, version)
				VALUES ($1, $2, $3, $4, $5, NOW(), NOW(), 1)
				RETURNING *
			)
			SELECT `+orderColumns+` FROM o`,
			req.UserID, generateOrderNumber(), paymentID, status, totalAmount), created)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, item := range req.Items {
			subtotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))

			orderItem := models.OrderItem{
				OrderID:     created.ID,
				ProductID:   item.ProductID,
				ProductName: names[item.ProductID],
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				Subtotal:    subtotal,
			}

			err = tx.QueryRowContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal, created_at)
				 VALUES ($1, $2, $3, $4, $5, NOW())
				 RETURNING id, created_at`,
				created.ID, item.ProductID, item.Quantity, item.UnitPrice, subtotal).Scan(&orderItem.ID, &orderItem.CreatedAt)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}

			created.Items = append(created.Items, orderItem)
		}

		order = created
		return nil
	})

	if err != nil {
		if database.IsUniqueViolation(err, "orders_payment_id_key") {
			return nil, database.ErrDuplicatePayment
		}
		return nil, err
	}

	return order, nil
}

// lockProducts takes a key-share lock on the given products so they cannot be
// deleted while the order referencing them is written. It returns id -> name.
func lockProducts(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, name FROM products WHERE id = ANY($1) FOR KEY SHARE`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	names := make(map[int64]string, len(ids))
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		names[id] = name
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return names, nil
}

func GetOrder(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	return getOrderWhere(ctx, db, "o.id = $1", id)
}

func GetOrderByPaymentID(ctx context.Context, db *sql.DB, paymentID string) (*models.Order, error) {
	return getOrderWhere(ctx, db, "o.payment_id = $1", paymentID)
}

func getOrderWhere(ctx context.Context, db *sql.DB, where string, arg interface{}) (*models.Order, error) {
	order := &models.Order{}

	query := `SELECT ` + orderColumns + ` FROM orders o WHERE ` + where

	err := scanOrder(db.QueryRowContext(ctx, query, arg), order)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := getOrderItems(ctx, db, []int64{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]

	return order, nil
}

func getOrderItems(ctx context.Context, db *sql.DB, orderIDs []int64) (map[int64][]models.OrderItem, error) {
	itemsQuery := `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.unit_price, oi.subtotal, oi.created_at
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.id`

	rows, err := db.QueryContext(ctx, itemsQuery, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	items := make(map[int64][]models.OrderItem, len(orderIDs))
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items[item.OrderID] = append(items[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// ListOrdersCursor pages through a user's orders, oldest first, with their items.
func ListOrdersCursor(ctx context.Context, db *sql.DB, userID int64, cursor string, limit int) (*CursorPage, error) {
	if limit < 1 || limit > MaxPageSize {
		limit = DefaultPageSize
	}

	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		WHERE o.user_id = $1
		  AND (o.created_at, o.id) > ($2, $3)
		ORDER BY o.created_at ASC, o.id ASC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	if len(orders) > 0 {
		ids := make([]int64, len(orders))
		for i, order := range orders {
			ids[i] = order.ID
		}
		items, err := getOrderItems(ctx, db, ids)
		if err != nil {
			return nil, err
		}
		for i := range orders {
			orders[i].Items = items[orders[i].ID]
		}
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// UpdateOrderStatus advances an order along the status state machine. When
// version is non-zero it must match the stored version.
func UpdateOrderStatus(ctx context.Context, db *sql.DB, id int64, status string, version int) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, database.ErrInvalidStatusTransition
	}

	var current string
	var currentVersion int
	err := db.QueryRowContext(ctx,
		`SELECT status, version FROM orders WHERE id = $1`, id).Scan(&current, &currentVersion)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order status: %w", err)
	}

	if version != 0 && version != currentVersion {
		return nil, database.ErrOptimisticLockFailed
	}

	if !models.CanTransition(current, status) {
		return nil, database.ErrInvalidStatusTransition
	}

	result, err := db.ExecContext(ctx,
		`UPDATE orders
		 SET status = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2 AND version = $3 AND status = $4`,
		status, id, currentVersion, current)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, database.ErrOptimisticLockFailed
	}

	return GetOrder(ctx, db, id)
}
