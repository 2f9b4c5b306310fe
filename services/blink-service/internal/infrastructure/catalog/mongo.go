package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodrv "go.mongodb.org/mongo-driver/v2/mongo"

	sharedmongo "github.com/fosterlabs/blink-engine/shared/mongo"

	"github.com/fosterlabs/blink-engine/services/blink-service/internal/domain"
)

const nftCollection = "nfts"

// nftDocument is the stored catalog shape. Sale mechanisms live in
// nullable subdocuments; at most one is expected to be set. When data
// drift leaves more than one populated, listing wins over auction wins
// over master edition, matching marketplace display precedence.
type nftDocument struct {
	TokenID       string            `bson:"token_id"`
	Name          string            `bson:"name"`
	MinterID      string            `bson:"minter_id"`
	CollectionID  string            `bson:"collection_id"`
	AssetURL      string            `bson:"asset_url"`
	AssetType     string            `bson:"asset_type"`
	CoverImageURL *string           `bson:"cover_image_url,omitempty"`
	Categories    []string          `bson:"categories,omitempty"`
	Royalties     string            `bson:"royalties,omitempty"`
	ParentNFT     *string           `bson:"parent_nft,omitempty"`
	Listing       *listingDoc       `bson:"listing,omitempty"`
	Auction       *auctionDoc       `bson:"auction,omitempty"`
	MasterEdition *masterEditionDoc `bson:"master_edition,omitempty"`
}

type listingDoc struct {
	PriceSOL float64 `bson:"price_sol"`
}

type auctionDoc struct {
	HighestBidSOL   *float64 `bson:"highest_bid_sol,omitempty"`
	ReservePriceSOL float64  `bson:"reserve_price_sol"`
}

type masterEditionDoc struct {
	PriceLamports  uint64 `bson:"price_lamports"`
	MerchProductID *int64 `bson:"merch_product_id,omitempty"`
}

type printDocument struct {
	TokenID       string    `bson:"token_id"`
	OwnerID       string    `bson:"owner_id"`
	MinterID      string    `bson:"minter_id"`
	CollectionID  string    `bson:"collection_id"`
	Name          string    `bson:"name"`
	AssetURL      string    `bson:"asset_url"`
	AssetType     string    `bson:"asset_type"`
	CoverImageURL *string   `bson:"cover_image_url,omitempty"`
	Categories    []string  `bson:"categories,omitempty"`
	Royalties     string    `bson:"royalties,omitempty"`
	ParentNFT     string    `bson:"parent_nft"`
	MaxSupply     *int64    `bson:"max_supply,omitempty"`
	Edition       int64     `bson:"edition"`
	MintedAt      time.Time `bson:"minted_at"`
}

// Catalog reads NFT snapshots and records minted prints in Mongo.
// Merch products referenced by master editions are hydrated from the
// relational store.
type Catalog struct {
	collection *mongodrv.Collection
	products   domain.ProductRepository
}

func NewCatalog(db *sharedmongo.MongoDB, products domain.ProductRepository) *Catalog {
	return &Catalog{
		collection: db.GetDatabase().Collection(nftCollection),
		products:   products,
	}
}

func (c *Catalog) GetNFT(ctx context.Context, tokenID string) (*domain.NFTSnapshot, error) {
	var doc nftDocument
	err := c.collection.FindOne(ctx, bson.M{"token_id": tokenID}).Decode(&doc)
	if errors.Is(err, mongodrv.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNFTNotFound, tokenID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load nft %s: %w", tokenID, err)
	}

	snapshot := &domain.NFTSnapshot{
		TokenID:       doc.TokenID,
		Name:          doc.Name,
		MinterID:      doc.MinterID,
		CollectionID:  doc.CollectionID,
		AssetURL:      doc.AssetURL,
		AssetType:     doc.AssetType,
		CoverImageURL: doc.CoverImageURL,
		Categories:    doc.Categories,
		Royalties:     doc.Royalties,
		ParentNFT:     doc.ParentNFT,
	}
	snapshot.Sale, err = c.decodeSale(ctx, &doc)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (c *Catalog) decodeSale(ctx context.Context, doc *nftDocument) (domain.SaleState, error) {
	switch {
	case doc.Listing != nil:
		return domain.FixedListing{ListPriceSOL: doc.Listing.PriceSOL}, nil
	case doc.Auction != nil:
		return domain.Auction{
			HighestBidSOL:   doc.Auction.HighestBidSOL,
			ReservePriceSOL: doc.Auction.ReservePriceSOL,
		}, nil
	case doc.MasterEdition != nil:
		edition := domain.MasterEdition{PriceLamports: doc.MasterEdition.PriceLamports}
		if doc.MasterEdition.MerchProductID != nil {
			product, err := c.products.GetProduct(ctx, *doc.MasterEdition.MerchProductID)
			if err != nil {
				return nil, fmt.Errorf("nft %s references merch product %d: %w", doc.TokenID, *doc.MasterEdition.MerchProductID, err)
			}
			edition.MerchProduct = product
		}
		return edition, nil
	default:
		return domain.NoSale{}, nil
	}
}

func (c *Catalog) InsertPrint(ctx context.Context, print *domain.PrintNFT) error {
	doc := printDocument{
		TokenID:       print.TokenID,
		OwnerID:       print.OwnerID,
		MinterID:      print.MinterID,
		CollectionID:  print.CollectionID,
		Name:          print.Name,
		AssetURL:      print.AssetURL,
		AssetType:     print.AssetType,
		CoverImageURL: print.CoverImageURL,
		Categories:    print.Categories,
		Royalties:     print.Royalties,
		ParentNFT:     print.ParentNFT,
		MaxSupply:     print.MaxSupply,
		Edition:       print.Edition,
		MintedAt:      print.MintedAt,
	}
	if _, err := c.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert print %s: %w", print.TokenID, err)
	}
	return nil
}
