package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fosterlabs/blink-engine/shared/postgres"

	"github.com/fosterlabs/blink-engine/services/blink-service/internal/domain"
)

// Repository implements the product, user, and order stores on
// Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(pg *postgres.Postgres) *Repository {
	return &Repository{db: pg.GetClient()}
}

const getProductQuery = `
	SELECT p.id, p.name, p.description, p.selling_price, p.foster_amount,
	       p.supply, p.current_supply, p.sale_start_at, p.sale_end_at,
	       p.fulfillment, p.seller_id, u.wallet_id, p.options
	FROM products p
	JOIN users u ON u.id = p.seller_id
	WHERE p.id = $1`

func (r *Repository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var (
		p           domain.Product
		fulfillment string
		optionsRaw  []byte
	)
	err := r.db.QueryRowContext(ctx, getProductQuery, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.SellingPriceUSD, &p.FosterAmountUSD,
		&p.Supply, &p.CurrentSupply, &p.SaleStartAt, &p.SaleEndAt,
		&fulfillment, &p.SellerID, &p.SellerWallet, &optionsRaw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", domain.ErrProductNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}

	p.Fulfillment, err = domain.ParseFulfillmentType(fulfillment)
	if err != nil {
		return nil, fmt.Errorf("product %d: %w", id, err)
	}
	if len(optionsRaw) > 0 {
		if err := json.Unmarshal(optionsRaw, &p.Options); err != nil {
			return nil, fmt.Errorf("product %d has malformed options: %w", id, err)
		}
	}
	return &p, nil
}

const getUserByWalletQuery = `
	SELECT id, wallet_id, username, email
	FROM users
	WHERE wallet_id = $1`

func (r *Repository) GetUserByWallet(ctx context.Context, wallet string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx, getUserByWalletQuery, wallet).Scan(
		&u.ID, &u.WalletID, &u.Username, &u.Email,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: wallet %s", domain.ErrUserNotFound, wallet)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by wallet: %w", err)
	}
	return &u, nil
}

const createUserQuery = `
	INSERT INTO users (id, wallet_id, email, created_at, updated_at)
	VALUES (gen_random_uuid(), $1, NULLIF($2, ''), now(), now())
	RETURNING id, wallet_id, username, email`

func (r *Repository) CreateUserFromWallet(ctx context.Context, wallet, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx, createUserQuery, wallet, email).Scan(
		&u.ID, &u.WalletID, &u.Username, &u.Email,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user for wallet %s: %w", wallet, err)
	}
	return &u, nil
}

const createOrderQuery = `
	INSERT INTO orders (id, user_id, product_id, status, total_usd, total_lamports,
	                    split, shipping_address, payment_method, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())`

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	split, err := json.Marshal(order.Split)
	if err != nil {
		return fmt.Errorf("failed to encode split: %w", err)
	}
	shipping, err := json.Marshal(order.Shipping)
	if err != nil {
		return fmt.Errorf("failed to encode shipping address: %w", err)
	}
	_, err = r.db.ExecContext(ctx, createOrderQuery,
		order.ID, order.UserID, order.ProductID, order.Status,
		order.TotalUSD, order.TotalLamports, split, shipping, order.PaymentMethod,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

const getOrderQuery = `
	SELECT id, user_id, product_id, status, total_usd, total_lamports,
	       split, shipping_address, payment_method, external_order_id,
	       payment_reference, created_at, updated_at
	FROM orders
	WHERE id = $1`

func (r *Repository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var (
		o           domain.Order
		splitRaw    []byte
		shippingRaw []byte
	)
	err := r.db.QueryRowContext(ctx, getOrderQuery, id).Scan(
		&o.ID, &o.UserID, &o.ProductID, &o.Status, &o.TotalUSD, &o.TotalLamports,
		&splitRaw, &shippingRaw, &o.PaymentMethod, &o.ExternalOrderID,
		&o.PaymentRef, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}

	if err := json.Unmarshal(splitRaw, &o.Split); err != nil {
		return nil, fmt.Errorf("order %s has malformed split: %w", id, err)
	}
	if err := json.Unmarshal(shippingRaw, &o.Shipping); err != nil {
		return nil, fmt.Errorf("order %s has malformed shipping address: %w", id, err)
	}
	return &o, nil
}

// confirmOrderQuery settles an order only while no payment reference is
// attached. The condition makes concurrent confirmations race safely:
// exactly one update wins.
const confirmOrderQuery = `
	UPDATE orders
	SET external_order_id = $2, payment_reference = $3, status = $4, updated_at = now()
	WHERE id = $1 AND payment_reference IS NULL`

func (r *Repository) ConfirmOrder(ctx context.Context, id string, externalOrderID int64, paymentRef string) error {
	res, err := r.db.ExecContext(ctx, confirmOrderQuery, id, externalOrderID, paymentRef, domain.OrderFulfilled)
	if err != nil {
		return fmt.Errorf("failed to confirm order %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to confirm order %s: %w", id, err)
	}
	if affected == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to confirm order %s: %w", id, err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
		}
		return domain.ErrOrderAlreadyPaid
	}
	return nil
}

const markFailedQuery = `
	UPDATE orders
	SET status = $2, failure_reason = $3, updated_at = now()
	WHERE id = $1`

func (r *Repository) MarkFailed(ctx context.Context, id, reason string) error {
	if _, err := r.db.ExecContext(ctx, markFailedQuery, id, domain.OrderFailed, reason); err != nil {
		return fmt.Errorf("failed to mark order %s failed: %w", id, err)
	}
	return nil
}
