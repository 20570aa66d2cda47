package application

import (
	"context"

	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/google/uuid"
)

// AuctionService defines application interface layer of auction module
// exposes uses cases to external layer, aka infra
type AuctionService interface {
	CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*domain.Auction, error)
	// PlaceBid places a literal amount; the result reports whether the bidder leads afterwards
	PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*BidResultDTO, error)
	PlaceAutoBid(ctx context.Context, cmd PlaceAutoBidDTO) (*BidResultDTO, error)
	BuyNow(ctx context.Context, cmd BuyNowDTO) (*BidResultDTO, error)
	ForceEnd(ctx context.Context, cmd ForceEndDTO) (*CloseResultDTO, error)
	GetAuctionView(ctx context.Context, auctionID, requesterID uuid.UUID) (*domain.AuctionView, error)
}

// concret implementation of AuctionService (struct)
type auctionService struct {
	createAuctionUC  *CreateAuctionUseCase
	placeBidUC       *PlaceBidUseCase
	placeAutoBidUC   *PlaceAutoBidUseCase
	buyNowUC         *BuyNowUseCase
	forceEndUC       *ForceEndUseCase
	getAuctionViewUC *GetAuctionViewUseCase
}

func NewAuctionService(createAuctionUC *CreateAuctionUseCase,
	placeBidUC *PlaceBidUseCase,
	placeAutoBidUC *PlaceAutoBidUseCase,
	buyNowUC *BuyNowUseCase,
	forceEndUC *ForceEndUseCase,
	getAuctionViewUC *GetAuctionViewUseCase) AuctionService {

	return &auctionService{
		createAuctionUC:  createAuctionUC,
		placeBidUC:       placeBidUC,
		placeAutoBidUC:   placeAutoBidUC,
		buyNowUC:         buyNowUC,
		forceEndUC:       forceEndUC,
		getAuctionViewUC: getAuctionViewUC,
	}
}

func (as *auctionService) CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*domain.Auction, error) {
	return as.createAuctionUC.Execute(ctx, cmd)
}

// PlaceBid implements AuctionService.
func (as *auctionService) PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*BidResultDTO, error) {
	return as.placeBidUC.Execute(ctx, cmd)
}

func (as *auctionService) PlaceAutoBid(ctx context.Context, cmd PlaceAutoBidDTO) (*BidResultDTO, error) {
	return as.placeAutoBidUC.Execute(ctx, cmd)
}

func (as *auctionService) BuyNow(ctx context.Context, cmd BuyNowDTO) (*BidResultDTO, error) {
	return as.buyNowUC.Execute(ctx, cmd)
}

func (as *auctionService) ForceEnd(ctx context.Context, cmd ForceEndDTO) (*CloseResultDTO, error) {
	return as.forceEndUC.Execute(ctx, cmd)
}

// GetAuctionView to implementss AuctionService
func (as *auctionService) GetAuctionView(ctx context.Context, auctionID, requesterID uuid.UUID) (*domain.AuctionView, error) {
	return as.getAuctionViewUC.Execute(ctx, auctionID, requesterID)
}
