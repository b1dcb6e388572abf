package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-depot-engine/internal/catalog"
	"github.com/ariefcatur/go-depot-engine/internal/checkout"
	"github.com/ariefcatur/go-depot-engine/internal/finance"
	"github.com/ariefcatur/go-depot-engine/internal/inventory"
	"github.com/ariefcatur/go-depot-engine/internal/orders"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrStaleOrder        = errors.New("order status changed since it was read")
	ErrInsufficientStock = errors.New("stock went negative while applying movements")
	ErrNotApplicable     = errors.New("result is not applicable")
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type LedgerRepo struct{ DB *pgxpool.Pool }

// LoadOrder reads the order with its items, payments and history.
func (r *LedgerRepo) LoadOrder(ctx context.Context, orderID string) (orders.Order, error) {
	query, args, err := psql.Select(
		"id", "deposit_id", "customer_id", "customer_name", "address",
		"mode", "total", "status", "delivery_status", "created_at", "completed_at", "cancelled_at",
	).From("orders").Where(sq.Eq{"id": orderID}).ToSql()
	if err != nil {
		return orders.Order{}, fmt.Errorf("build order query: %w", err)
	}

	var o orders.Order
	err = r.DB.QueryRow(ctx, query, args...).Scan(
		&o.ID, &o.DepositID, &o.CustomerID, &o.CustomerName, &o.Address,
		&o.Mode, &o.Total, &o.Status, &o.DeliveryStatus, &o.CreatedAt, &o.CompletedAt, &o.CancelledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, ErrOrderNotFound
	} else if err != nil {
		return orders.Order{}, fmt.Errorf("load order %s: %w", orderID, err)
	}

	if o.Items, err = r.loadItems(ctx, orderID); err != nil {
		return orders.Order{}, err
	}
	if o.Payments, err = r.loadPayments(ctx, orderID); err != nil {
		return orders.Order{}, err
	}
	if o.History, err = r.loadHistory(ctx, orderID); err != nil {
		return orders.Order{}, err
	}
	return o, nil
}

func (r *LedgerRepo) loadItems(ctx context.Context, orderID string) ([]orders.OrderItem, error) {
	query, args, err := psql.Select("product_id", "product_name", "quantity", "unit_price", "modality", "movement_override").
		From("order_items").Where(sq.Eq{"order_id": orderID}).OrderBy("line_no").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	var out []orders.OrderItem
	for rows.Next() {
		var it orders.OrderItem
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.Modality, &it.MovementOverride); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *LedgerRepo) loadPayments(ctx context.Context, orderID string) ([]orders.Payment, error) {
	query, args, err := psql.Select("method_id", "method_name", "amount").
		From("order_payments").Where(sq.Eq{"order_id": orderID}).OrderBy("line_no").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	defer rows.Close()

	var out []orders.Payment
	for rows.Next() {
		var p orders.Payment
		if err := rows.Scan(&p.MethodID, &p.MethodName, &p.Amount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *LedgerRepo) loadHistory(ctx context.Context, orderID string) ([]orders.HistoryEntry, error) {
	query, args, err := psql.Select("at", "status", "note", "actor").
		From("order_history").Where(sq.Eq{"order_id": orderID}).OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var out []orders.HistoryEntry
	for rows.Next() {
		var h orders.HistoryEntry
		if err := rows.Scan(&h.At, &h.Status, &h.Note, &h.Actor); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *LedgerRepo) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, movement_rule, is_service, is_delivery_fee, track_stock,
		       return_product_id, group_id, container_type, kind, allow_full_sale
		FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	defer rows.Close()

	var ps []catalog.Product
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.MovementRule, &p.IsService, &p.IsDeliveryFee, &p.TrackStock,
			&p.ReturnProductID, &p.GroupID, &p.ContainerType, &p.Kind, &p.AllowFullSale); err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return catalog.NewCatalog(ps), nil
}

func (r *LedgerRepo) LoadPaymentMethods(ctx context.Context) (catalog.PaymentMethods, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, timing, generates_receivable, fee_percent, term_days
		FROM payment_methods`)
	if err != nil {
		return nil, fmt.Errorf("load payment methods: %w", err)
	}
	defer rows.Close()

	var ms []catalog.PaymentMethod
	for rows.Next() {
		var m catalog.PaymentMethod
		if err := rows.Scan(&m.ID, &m.Name, &m.Timing, &m.GeneratesReceivable, &m.FeePercent, &m.TermDays); err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return catalog.NewPaymentMethods(ms), nil
}

func (r *LedgerRepo) LoadBalances(ctx context.Context, depositID string) ([]inventory.Balance, error) {
	query, args, err := psql.Select("deposit_id", "product_id", "quantity").
		From("stock_balances").Where(sq.Eq{"deposit_id": depositID}).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}
	defer rows.Close()

	var out []inventory.Balance
	for rows.Next() {
		var b inventory.Balance
		if err := rows.Scan(&b.DepositID, &b.ProductID, &b.Quantity); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Apply writes a successful checkout result in one transaction: the order
// status (guarded by the status it was computed from), its history entry,
// every stock movement with its balance delta, cash movements and titles.
// Jika ada stok yang jadi negatif saat completion, semua di-rollback.
func (r *LedgerRepo) Apply(ctx context.Context, res checkout.Result) error {
	if !res.Success {
		return ErrNotApplicable
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o := res.Order
	query, args, err := psql.Update("orders").
		Set("status", o.Status).
		Set("completed_at", o.CompletedAt).
		Set("cancelled_at", o.CancelledAt).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": o.ID, "status": res.PreviousStatus}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build order update: %w", err)
	}
	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return ErrStaleOrder
	}

	if n := len(o.History); n > 0 {
		if err := insertHistory(ctx, tx, o.ID, o.History[n-1]); err != nil {
			return err
		}
	}
	if err := insertStockMovements(ctx, tx, res.StockMovements); err != nil {
		return err
	}
	if err := insertCashMovements(ctx, tx, res.CashMovements); err != nil {
		return err
	}
	if err := insertTitles(ctx, tx, res.Titles); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertHistory(ctx context.Context, q querier, orderID string, h orders.HistoryEntry) error {
	query, args, err := psql.Insert("order_history").
		Columns("order_id", "at", "status", "note", "actor").
		Values(orderID, h.At, h.Status, h.Note, h.Actor).ToSql()
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func insertStockMovements(ctx context.Context, q querier, ms []inventory.Movement) error {
	if len(ms) == 0 {
		return nil
	}
	ins := psql.Insert("stock_movements").
		Columns("id", "at", "deposit_id", "product_id", "direction", "quantity", "origin", "order_id", "actor")
	for _, m := range ms {
		ins = ins.Values(m.ID, m.At, m.DepositID, m.ProductID, m.Direction, m.Quantity, m.Origin, m.OrderID, m.Actor)
	}
	query, args, err := ins.ToSql()
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert stock movements: %w", err)
	}

	for _, m := range ms {
		var qty int
		err := q.QueryRow(ctx, `
			INSERT INTO stock_balances (deposit_id, product_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (deposit_id, product_id)
			DO UPDATE SET quantity = stock_balances.quantity + EXCLUDED.quantity
			RETURNING quantity`, m.DepositID, m.ProductID, m.Delta()).Scan(&qty)
		if err != nil {
			return fmt.Errorf("apply balance %s/%s: %w", m.DepositID, m.ProductID, err)
		}
		if qty < 0 && m.Origin == inventory.OriginOrderCompleted && m.Direction == inventory.DirectionOut {
			return fmt.Errorf("%w: %s at %s", ErrInsufficientStock, m.ProductID, m.DepositID)
		}
	}
	return nil
}

func insertCashMovements(ctx context.Context, q querier, ms []finance.CashMovement) error {
	if len(ms) == 0 {
		return nil
	}
	ins := psql.Insert("cash_movements").
		Columns("id", "at", "direction", "center_id", "method_id", "gross", "net", "origin", "order_id")
	for _, m := range ms {
		ins = ins.Values(m.ID, m.At, m.Direction, m.CenterID, m.MethodID, m.Gross, m.Net, m.Origin, m.OrderID)
	}
	query, args, err := ins.ToSql()
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert cash movements: %w", err)
	}
	return nil
}

func insertTitles(ctx context.Context, q querier, ts []finance.Title) error {
	if len(ts) == 0 {
		return nil
	}
	ins := psql.Insert("receivable_titles").
		Columns("id", "order_id", "deposit_id", "method_id", "amount", "outstanding", "due_date", "status", "created_at")
	for _, t := range ts {
		ins = ins.Values(t.ID, t.OrderID, t.DepositID, t.MethodID, t.Amount, t.Outstanding, t.DueDate, t.Status, t.CreatedAt)
	}
	query, args, err := ins.ToSql()
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert titles: %w", err)
	}
	return nil
}

// CancelTitlesForOrder closes the open receivable titles of a cancelled
// order. It is not part of Apply.
func (r *LedgerRepo) CancelTitlesForOrder(ctx context.Context, orderID string) (int64, error) {
	query, args, err := psql.Update("receivable_titles").
		Set("status", finance.TitleCancelled).
		Set("outstanding", 0).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"order_id": orderID, "status": finance.TitleOpen}).
		ToSql()
	if err != nil {
		return 0, err
	}
	ct, err := r.DB.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("cancel titles for %s: %w", orderID, err)
	}
	return ct.RowsAffected(), nil
}

// SetDeliveryStatus records delivery progress on the order. It satisfies
// dispatch.DeliveryStatusWriter and leaves the ledger status untouched.
func (r *LedgerRepo) SetDeliveryStatus(ctx context.Context, orderID string, status orders.DeliveryStatus, note string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query, args, err := psql.Update("orders").
		Set("delivery_status", status).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": orderID}).
		Suffix("RETURNING status").ToSql()
	if err != nil {
		return err
	}
	var current string
	if err := tx.QueryRow(ctx, query, args...).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("set delivery status: %w", err)
	}
	entry := orders.HistoryEntry{At: time.Now(), Status: orders.Status(current), Note: note, Actor: "dispatch"}
	if err := insertHistory(ctx, tx, orderID, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
