package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cristianortiz/bidEngine/internal/auction/application"
	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/cristianortiz/bidEngine/internal/shared/websocket"
	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

// stubService records the commands it receives and answers with canned results.
type stubService struct {
	application.AuctionService
	bids     []application.PlaceBidDTO
	autoBids []application.PlaceAutoBidDTO
	buyNows  []application.BuyNowDTO
	err      error
	view     *domain.AuctionView
}

func (s *stubService) PlaceBid(_ context.Context, cmd application.PlaceBidDTO) (*application.BidResultDTO, error) {
	s.bids = append(s.bids, cmd)
	if s.err != nil {
		return nil, s.err
	}
	price := cmd.Amount
	return &application.BidResultDTO{AuctionID: cmd.AuctionID, Kind: domain.KindManual, Leading: true, Price: &price}, nil
}

func (s *stubService) PlaceAutoBid(_ context.Context, cmd application.PlaceAutoBidDTO) (*application.BidResultDTO, error) {
	s.autoBids = append(s.autoBids, cmd)
	return &application.BidResultDTO{AuctionID: cmd.AuctionID, Leading: true, HasActiveAutoBid: true}, s.err
}

func (s *stubService) BuyNow(_ context.Context, cmd application.BuyNowDTO) (*application.BidResultDTO, error) {
	s.buyNows = append(s.buyNows, cmd)
	return &application.BidResultDTO{AuctionID: cmd.AuctionID, LifecycleState: domain.StateEnded}, s.err
}

func (s *stubService) GetAuctionView(_ context.Context, auctionID, requesterID uuid.UUID) (*domain.AuctionView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.view, nil
}

func newTestClient(auctionID, bidderID uuid.UUID) *websocket.Client {
	return websocket.NewClient(websocket.NewHub(), nil, auctionID.String(), bidderID)
}

func nextFrame(t *testing.T, client *websocket.Client) map[string]json.RawMessage {
	t.Helper()
	select {
	case data := <-client.Send:
		var frame map[string]json.RawMessage
		assert.NoError(t, json.Unmarshal(data, &frame))
		return frame
	case <-time.After(time.Second):
		t.Fatal("no frame sent to client")
		return nil
	}
}

func frameType(t *testing.T, frame map[string]json.RawMessage) MessageType {
	t.Helper()
	var mt MessageType
	assert.NoError(t, json.Unmarshal(frame["type"], &mt))
	return mt
}

func TestProcessBidUsesConnectionBidder(t *testing.T) {
	svc := &stubService{}
	h := NewAuctionWSHandler(svc, websocket.NewHub())
	auctionID, bidderID := uuid.New(), uuid.New()
	client := newTestClient(auctionID, bidderID)

	// a bidder id smuggled into the payload is ignored
	raw := `{"type":"client_bid","payload":{"auctionId":"` + auctionID.String() + `","amount":"125.5","bidderId":"` + uuid.NewString() + `"}}`
	h.ProcessMessage(context.Background(), client, []byte(raw))

	assert.Equal(t, 1, len(svc.bids))
	check.Equal(t, bidderID, svc.bids[0].BidderID)
	check.Equal(t, "125.5", svc.bids[0].Amount.String())

	frame := nextFrame(t, client)
	check.Equal(t, MessageTypeServerBidResult, frameType(t, frame))
	var res application.BidResultDTO
	assert.NoError(t, json.Unmarshal(frame["payload"], &res))
	check.True(t, res.Leading)
}

func TestProcessAutoBidAndBuyNow(t *testing.T) {
	svc := &stubService{}
	h := NewAuctionWSHandler(svc, websocket.NewHub())
	auctionID, bidderID := uuid.New(), uuid.New()
	client := newTestClient(auctionID, bidderID)

	h.ProcessMessage(context.Background(), client, []byte(`{"type":"client_auto_bid","payload":{"auctionId":"`+auctionID.String()+`","ceiling":"300"}}`))
	assert.Equal(t, 1, len(svc.autoBids))
	check.Equal(t, "300", svc.autoBids[0].Ceiling.String())
	check.Equal(t, MessageTypeServerBidResult, frameType(t, nextFrame(t, client)))

	h.ProcessMessage(context.Background(), client, []byte(`{"type":"client_buy_now","payload":{"auctionId":"`+auctionID.String()+`"}}`))
	assert.Equal(t, 1, len(svc.buyNows))
	check.Equal(t, bidderID, svc.buyNows[0].BidderID)
	check.Equal(t, MessageTypeServerBidResult, frameType(t, nextFrame(t, client)))
}

func TestProcessRejectionCarriesDetail(t *testing.T) {
	minNext := decimal.RequireFromString("120")
	svc := &stubService{err: &domain.RejectionError{
		Reason: domain.ReasonBidTooLow,
		Detail: domain.RejectionDetail{MinNextBid: &minNext, State: domain.StateHappening},
	}}
	h := NewAuctionWSHandler(svc, websocket.NewHub())
	auctionID := uuid.New()
	client := newTestClient(auctionID, uuid.New())

	h.ProcessMessage(context.Background(), client, []byte(`{"type":"client_bid","payload":{"auctionId":"`+auctionID.String()+`","amount":"105"}}`))

	frame := nextFrame(t, client)
	check.Equal(t, MessageTypeServerError, frameType(t, frame))
	var payload struct {
		Reason domain.RejectReason     `json:"reason"`
		Detail *domain.RejectionDetail `json:"detail"`
	}
	assert.NoError(t, json.Unmarshal(frame["payload"], &payload))
	check.Equal(t, domain.ReasonBidTooLow, payload.Reason)
	assert.NotNil(t, payload.Detail)
	assert.NotNil(t, payload.Detail.MinNextBid)
	check.Equal(t, "120", payload.Detail.MinNextBid.String())
}

func TestProcessRefusesInvalidFrames(t *testing.T) {
	auctionID := uuid.New()
	cases := []struct {
		name   string
		bidder uuid.UUID
		raw    string
	}{
		{"malformed json", uuid.New(), `{"type":`},
		{"unknown type", uuid.New(), `{"type":"client_cancel","payload":{}}`},
		{"watch only", uuid.Nil, `{"type":"client_bid","payload":{"auctionId":"` + auctionID.String() + `","amount":"110"}}`},
		{"other auction", uuid.New(), `{"type":"client_bid","payload":{"auctionId":"` + uuid.NewString() + `","amount":"110"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{}
			h := NewAuctionWSHandler(svc, websocket.NewHub())
			client := newTestClient(auctionID, tc.bidder)

			h.ProcessMessage(context.Background(), client, []byte(tc.raw))

			check.Equal(t, MessageTypeServerError, frameType(t, nextFrame(t, client)))
			check.Equal(t, 0, len(svc.bids))
		})
	}
}

func TestSendInitialState(t *testing.T) {
	auctionID := uuid.New()
	svc := &stubService{view: &domain.AuctionView{AuctionID: auctionID, Title: "vintage camera"}}
	h := NewAuctionWSHandler(svc, websocket.NewHub())
	client := newTestClient(auctionID, uuid.Nil)

	h.SendInitialState(context.Background(), client)

	frame := nextFrame(t, client)
	check.Equal(t, MessageTypeServerInitialState, frameType(t, frame))
	var view domain.AuctionView
	assert.NoError(t, json.Unmarshal(frame["payload"], &view))
	check.Equal(t, "vintage camera", view.Title)
}

func TestListenForMessagesDispatches(t *testing.T) {
	svc := &stubService{}
	hub := websocket.NewHub()
	h := NewAuctionWSHandler(svc, hub)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.ListenForMessages(ctx)

	auctionID := uuid.New()
	client := websocket.NewClient(hub, nil, auctionID.String(), uuid.New())
	hub.InboundMessages <- &websocket.ClientMessage{
		Client: client,
		Data:   []byte(`{"type":"client_bid","payload":{"auctionId":"` + auctionID.String() + `","amount":"110"}}`),
	}

	check.Equal(t, MessageTypeServerBidResult, frameType(t, nextFrame(t, client)))
}
