package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/suite"

	"github.com/fosterlabs/blink-engine/shared/postgres"

	"github.com/fosterlabs/blink-engine/services/blink-service/internal/domain"
)

type RepositoryTestSuite struct {
	suite.Suite
	db   *sql.DB
	mock sqlmock.Sqlmock
	repo *Repository
}

func (suite *RepositoryTestSuite) SetupTest() {
	var err error
	suite.db, suite.mock, err = sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	suite.Require().NoError(err)
	suite.repo = NewRepository(postgres.NewPostgresWithDB(suite.db))
}

func (suite *RepositoryTestSuite) TearDownTest() {
	suite.NoError(suite.mock.ExpectationsWereMet())
	suite.db.Close()
}

func productRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "description", "selling_price", "foster_amount",
		"supply", "current_supply", "sale_start_at", "sale_end_at",
		"fulfillment", "seller_id", "wallet_id", "options",
	})
}

func (suite *RepositoryTestSuite) TestGetProduct_Success() {
	rows := productRows().AddRow(
		int64(7), "Tour Tee", "Limited run", int64(2000), int64(300),
		nil, int64(3), nil, nil,
		"user", "seller-id", "seller-wallet",
		[]byte(`{"product_images":["https://cdn.test/tee.png"]}`),
	)
	suite.mock.ExpectQuery(`SELECT p\.id, p\.name`).WithArgs(int64(7)).WillReturnRows(rows)

	product, err := suite.repo.GetProduct(context.Background(), 7)

	suite.Require().NoError(err)
	suite.Equal("Tour Tee", product.Name)
	suite.Equal(int64(2000), product.SellingPriceUSD)
	suite.Equal(domain.FulfillmentSeller, product.Fulfillment)
	suite.Equal("seller-wallet", product.SellerWallet)
	suite.Equal([]string{"https://cdn.test/tee.png"}, product.Options.ProductImages)
}

func (suite *RepositoryTestSuite) TestGetProduct_NotFound() {
	suite.mock.ExpectQuery(`SELECT p\.id, p\.name`).WithArgs(int64(7)).WillReturnError(sql.ErrNoRows)

	_, err := suite.repo.GetProduct(context.Background(), 7)

	suite.ErrorIs(err, domain.ErrProductNotFound)
}

func (suite *RepositoryTestSuite) TestGetProduct_UnknownFulfillmentTag() {
	rows := productRows().AddRow(
		int64(7), "Tour Tee", "", int64(2000), int64(0),
		nil, int64(0), nil, nil,
		"dropship", "seller-id", "seller-wallet", []byte(`{}`),
	)
	suite.mock.ExpectQuery(`SELECT p\.id, p\.name`).WithArgs(int64(7)).WillReturnRows(rows)

	_, err := suite.repo.GetProduct(context.Background(), 7)

	suite.ErrorIs(err, domain.ErrBadFulfillmentType)
}

func (suite *RepositoryTestSuite) TestGetUserByWallet_NotFound() {
	suite.mock.ExpectQuery(`SELECT id, wallet_id, username, email`).
		WithArgs("wallet").WillReturnError(sql.ErrNoRows)

	_, err := suite.repo.GetUserByWallet(context.Background(), "wallet")

	suite.ErrorIs(err, domain.ErrUserNotFound)
}

func (suite *RepositoryTestSuite) TestCreateOrder_EncodesSplitAndShipping() {
	order := &domain.Order{
		ID:            "order-1",
		UserID:        "user-id",
		ProductID:     7,
		Status:        domain.OrderCreated,
		TotalUSD:      3500,
		TotalLamports: 357000000,
		Split: domain.PaymentSplit{
			{Address: "seller", USD: 2000, Lamports: 204000000},
		},
		Shipping:      domain.ShippingAddress{RawAddress: "1 Main St"},
		PaymentMethod: domain.PaymentMethodSOL,
	}

	suite.mock.ExpectExec(`INSERT INTO orders`).
		WithArgs(order.ID, order.UserID, order.ProductID, string(order.Status),
			order.TotalUSD, order.TotalLamports, sqlmock.AnyArg(), sqlmock.AnyArg(), order.PaymentMethod).
		WillReturnResult(sqlmock.NewResult(0, 1))

	suite.NoError(suite.repo.CreateOrder(context.Background(), order))
}

func (suite *RepositoryTestSuite) TestGetOrder_Success() {
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "product_id", "status", "total_usd", "total_lamports",
		"split", "shipping_address", "payment_method", "external_order_id",
		"payment_reference", "created_at", "updated_at",
	}).AddRow(
		"order-1", "user-id", int64(7), "created", int64(3500), int64(357000000),
		[]byte(`[{"address":"seller","usd":2000,"lamports":204000000}]`),
		[]byte(`{"rawAddress":"1 Main St"}`), "SOL", nil, nil,
		time.Now(), time.Now(),
	)
	suite.mock.ExpectQuery(`SELECT id, user_id, product_id`).WithArgs("order-1").WillReturnRows(rows)

	order, err := suite.repo.GetOrder(context.Background(), "order-1")

	suite.Require().NoError(err)
	suite.Equal(domain.OrderCreated, order.Status)
	suite.Nil(order.PaymentRef)
	suite.Require().Len(order.Split, 1)
	suite.Equal(uint64(204000000), order.Split[0].Lamports)
	suite.Equal("1 Main St", order.Shipping.RawAddress)
}

func (suite *RepositoryTestSuite) TestConfirmOrder_WinsRace() {
	suite.mock.ExpectExec(`UPDATE orders`).
		WithArgs("order-1", int64(9001), "sig", string(domain.OrderFulfilled)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	suite.NoError(suite.repo.ConfirmOrder(context.Background(), "order-1", 9001, "sig"))
}

func (suite *RepositoryTestSuite) TestConfirmOrder_AlreadyPaid() {
	suite.mock.ExpectExec(`UPDATE orders`).
		WithArgs("order-1", int64(9001), "sig", string(domain.OrderFulfilled)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	suite.mock.ExpectQuery(`SELECT EXISTS`).WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := suite.repo.ConfirmOrder(context.Background(), "order-1", 9001, "sig")

	suite.ErrorIs(err, domain.ErrOrderAlreadyPaid)
}

func (suite *RepositoryTestSuite) TestConfirmOrder_NotFound() {
	suite.mock.ExpectExec(`UPDATE orders`).
		WithArgs("missing", int64(9001), "sig", string(domain.OrderFulfilled)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	suite.mock.ExpectQuery(`SELECT EXISTS`).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := suite.repo.ConfirmOrder(context.Background(), "missing", 9001, "sig")

	suite.ErrorIs(err, domain.ErrOrderNotFound)
}

func (suite *RepositoryTestSuite) TestMarkFailed() {
	suite.mock.ExpectExec(`UPDATE orders`).
		WithArgs("order-1", string(domain.OrderFailed), "rpc unavailable").
		WillReturnResult(sqlmock.NewResult(0, 1))

	suite.NoError(suite.repo.MarkFailed(context.Background(), "order-1", "rpc unavailable"))
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
