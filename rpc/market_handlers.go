package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"bazaar/core/state"
	"bazaar/crypto"
	nativecommon "bazaar/native/common"
	"bazaar/native/market"
	"bazaar/native/royalty"
)

const (
	codeUnauthorizedOp    = -32030
	codeInvalidState      = -32031
	codeExpired           = -32032
	codeNotExpired        = -32033
	codeInvalidPrice      = -32034
	codePriceMismatch     = -32035
	codeInsufficientFunds = -32036
	codeTransferDenied    = -32037
	codeNotAssetOwner     = -32038
	codeInvalidRoyalty    = -32039
	codeModulePaused      = -32040
)

// writeMarketError maps engine sentinels onto distinct RPC codes so clients
// can branch without parsing messages.
func writeMarketError(w http.ResponseWriter, id interface{}, err error) {
	status := http.StatusBadRequest
	code := codeServerError
	switch {
	case errors.Is(err, market.ErrNotFound):
		status, code = http.StatusNotFound, codeNotFound
	case errors.Is(err, market.ErrUnauthorized):
		status, code = http.StatusForbidden, codeUnauthorizedOp
	case errors.Is(err, market.ErrInvalidState):
		status, code = http.StatusConflict, codeInvalidState
	case errors.Is(err, market.ErrExpired):
		status, code = http.StatusConflict, codeExpired
	case errors.Is(err, market.ErrNotExpired):
		status, code = http.StatusConflict, codeNotExpired
	case errors.Is(err, market.ErrInvalidPrice):
		code = codeInvalidPrice
	case errors.Is(err, market.ErrPriceMismatch):
		status, code = http.StatusConflict, codePriceMismatch
	case errors.Is(err, market.ErrInsufficientFunds):
		status, code = http.StatusConflict, codeInsufficientFunds
	case errors.Is(err, market.ErrTransferDenied):
		status, code = http.StatusConflict, codeTransferDenied
	case errors.Is(err, market.ErrNotAssetOwner):
		status, code = http.StatusForbidden, codeNotAssetOwner
	case errors.Is(err, royalty.ErrInvalidSchedule):
		code = codeInvalidRoyalty
	case errors.Is(err, state.ErrAssetExists):
		status, code = http.StatusConflict, codeConflict
	case errors.Is(err, state.ErrAssetNotFound):
		status, code = http.StatusNotFound, codeNotFound
	case errors.Is(err, nativecommon.ErrModulePaused):
		status, code = http.StatusServiceUnavailable, codeModulePaused
	default:
		status = http.StatusInternalServerError
	}
	writeError(w, status, id, code, err.Error(), nil)
}

func decodeHash32(s string) ([32]byte, error) {
	var out [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, fmt.Errorf("invalid hex identifier: %w", err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("identifier must be 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func encodeHash32(h [32]byte) string {
	return "0x" + hex.EncodeToString(h[:])
}

func decodeAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal amount %q", s)
	}
	return amount, nil
}

func decodeOptionalAddress(s string) ([20]byte, error) {
	if strings.TrimSpace(s) == "" {
		return [20]byte{}, nil
	}
	addr, err := crypto.DecodeAddress(s)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Bytes(), nil
}

func singleParam(req *rpcRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("parameter object required")
	}
	return json.Unmarshal(req.Params[0], out)
}

type listingResult struct {
	ID        string `json:"id"`
	Asset     string `json:"asset"`
	Seller    string `json:"seller"`
	Price     string `json:"price"`
	CreatedAt int64  `json:"createdAt"`
	Expiry    int64  `json:"expiry,omitempty"`
	Status    string `json:"status"`
}

func listingResultFrom(l *market.Listing) listingResult {
	return listingResult{
		ID:        encodeHash32(l.ID),
		Asset:     encodeHash32(l.Asset),
		Seller:    crypto.MustAddress(l.Seller).String(),
		Price:     l.Price.String(),
		CreatedAt: l.CreatedAt,
		Expiry:    l.Expiry,
		Status:    l.Status.String(),
	}
}

type offerResult struct {
	ID        string `json:"id"`
	Asset     string `json:"asset"`
	Buyer     string `json:"buyer"`
	Amount    string `json:"amount"`
	Nonce     uint64 `json:"nonce"`
	CreatedAt int64  `json:"createdAt"`
	Expiry    int64  `json:"expiry,omitempty"`
	Status    string `json:"status"`
}

func offerResultFrom(o *market.Offer) offerResult {
	return offerResult{
		ID:        encodeHash32(o.ID),
		Asset:     encodeHash32(o.Asset),
		Buyer:     crypto.MustAddress(o.Buyer).String(),
		Amount:    o.Amount.String(),
		Nonce:     o.Nonce,
		CreatedAt: o.CreatedAt,
		Expiry:    o.Expiry,
		Status:    o.Status.String(),
	}
}

type royaltyResult struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type receiptResult struct {
	Price          string          `json:"price"`
	SellerProceeds string          `json:"sellerProceeds"`
	Fee            string          `json:"fee"`
	BuyerReferral  string          `json:"buyerReferral,omitempty"`
	SellerReferral string          `json:"sellerReferral,omitempty"`
	Royalties      []royaltyResult `json:"royalties,omitempty"`
}

func receiptResultFrom(r *royalty.Receipt) receiptResult {
	out := receiptResult{
		Price:          r.Price.String(),
		SellerProceeds: r.SellerProceeds.String(),
		Fee:            r.Fee.String(),
	}
	if r.BuyerReferral.Sign() > 0 {
		out.BuyerReferral = r.BuyerReferral.String()
	}
	if r.SellerReferral.Sign() > 0 {
		out.SellerReferral = r.SellerReferral.String()
	}
	for _, p := range r.Royalties {
		out.Royalties = append(out.Royalties, royaltyResult{
			Recipient: crypto.MustAddress(p.Recipient).String(),
			Amount:    p.Amount.String(),
		})
	}
	return out
}

type createListingParams struct {
	Seller string `json:"seller"`
	Asset  string `json:"asset"`
	Price  string `json:"price"`
	Expiry int64  `json:"expiry"`
}

func (s *Server) handleCreateListing(w http.ResponseWriter, req *rpcRequest) {
	var params createListingParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	seller, err := crypto.DecodeAddress(params.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid seller address", err.Error())
		return
	}
	asset, err := decodeHash32(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	price, err := decodeAmount(params.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	listing, err := s.node.CreateListing(seller.Bytes(), asset, price, params.Expiry)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, listingResultFrom(listing))
}

type recordCallerParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
}

func (s *Server) handleCancelListing(w http.ResponseWriter, req *rpcRequest) {
	var params recordCallerParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := decodeHash32(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := crypto.DecodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.node.CancelListing(id, caller.Bytes()); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "cancelled"})
}

type recordParams struct {
	ID string `json:"id"`
}

func (s *Server) handleReclaimListing(w http.ResponseWriter, req *rpcRequest) {
	var params recordParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := decodeHash32(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.ReclaimListing(id); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "expired"})
}

type createOfferParams struct {
	Buyer  string `json:"buyer"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
	Expiry int64  `json:"expiry"`
	Nonce  uint64 `json:"nonce"`
}

func (s *Server) handleCreateOffer(w http.ResponseWriter, req *rpcRequest) {
	var params createOfferParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	buyer, err := crypto.DecodeAddress(params.Buyer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid buyer address", err.Error())
		return
	}
	asset, err := decodeHash32(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := decodeAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	offer, err := s.node.CreateOffer(buyer.Bytes(), asset, amount, params.Expiry, params.Nonce)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, offerResultFrom(offer))
}

func (s *Server) handleCancelOffer(w http.ResponseWriter, req *rpcRequest) {
	var params recordCallerParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := decodeHash32(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := crypto.DecodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.node.CancelOffer(id, caller.Bytes()); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "cancelled"})
}

func (s *Server) handleReclaimOffer(w http.ResponseWriter, req *rpcRequest) {
	var params recordParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := decodeHash32(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.ReclaimOffer(id); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "expired"})
}

type instantBuyParams struct {
	Listing        string `json:"listing"`
	Buyer          string `json:"buyer"`
	Amount         string `json:"amount"`
	BuyerReferral  string `json:"buyerReferral,omitempty"`
	SellerReferral string `json:"sellerReferral,omitempty"`
}

func referralsFrom(buyerRef, sellerRef string) (market.Referrals, error) {
	buyer, err := decodeOptionalAddress(buyerRef)
	if err != nil {
		return market.Referrals{}, fmt.Errorf("invalid buyer referral: %w", err)
	}
	seller, err := decodeOptionalAddress(sellerRef)
	if err != nil {
		return market.Referrals{}, fmt.Errorf("invalid seller referral: %w", err)
	}
	return market.Referrals{Buyer: buyer, Seller: seller}, nil
}

func (s *Server) handleInstantBuy(w http.ResponseWriter, req *rpcRequest) {
	var params instantBuyParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	listingID, err := decodeHash32(params.Listing)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	buyer, err := crypto.DecodeAddress(params.Buyer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid buyer address", err.Error())
		return
	}
	amount, err := decodeAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	refs, err := referralsFrom(params.BuyerReferral, params.SellerReferral)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	receipt, err := s.node.InstantBuy(listingID, buyer.Bytes(), amount, refs)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, receiptResultFrom(receipt))
}

type acceptOfferParams struct {
	Listing        string `json:"listing"`
	Offer          string `json:"offer"`
	Caller         string `json:"caller"`
	BuyerReferral  string `json:"buyerReferral,omitempty"`
	SellerReferral string `json:"sellerReferral,omitempty"`
}

func (s *Server) handleAcceptOffer(w http.ResponseWriter, req *rpcRequest) {
	var params acceptOfferParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	listingID, err := decodeHash32(params.Listing)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	offerID, err := decodeHash32(params.Offer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := crypto.DecodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	refs, err := referralsFrom(params.BuyerReferral, params.SellerReferral)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	receipt, err := s.node.AcceptOffer(listingID, offerID, caller.Bytes(), refs)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, receiptResultFrom(receipt))
}

type acceptBareOfferParams struct {
	Offer          string `json:"offer"`
	Caller         string `json:"caller"`
	BuyerReferral  string `json:"buyerReferral,omitempty"`
	SellerReferral string `json:"sellerReferral,omitempty"`
}

func (s *Server) handleAcceptBareOffer(w http.ResponseWriter, req *rpcRequest) {
	var params acceptBareOfferParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	offerID, err := decodeHash32(params.Offer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := crypto.DecodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	refs, err := referralsFrom(params.BuyerReferral, params.SellerReferral)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	receipt, err := s.node.AcceptBareOffer(offerID, caller.Bytes(), refs)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, receiptResultFrom(receipt))
}

func (s *Server) handleGetListing(w http.ResponseWriter, req *rpcRequest) {
	var params recordParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := decodeHash32(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	listing, ok := s.node.GetListing(id)
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeNotFound, "listing not found", nil)
		return
	}
	writeResult(w, req.ID, listingResultFrom(listing))
}

func (s *Server) handleGetOffer(w http.ResponseWriter, req *rpcRequest) {
	var params recordParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := decodeHash32(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	offer, ok := s.node.GetOffer(id)
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeNotFound, "offer not found", nil)
		return
	}
	writeResult(w, req.ID, offerResultFrom(offer))
}

type registerAssetParams struct {
	Creator   string `json:"creator"`
	URI       string `json:"uri"`
	Royalties []struct {
		Recipient string `json:"recipient"`
		Bps       uint32 `json:"bps"`
	} `json:"royalties"`
}

type assetResult struct {
	ID        string         `json:"id"`
	Creator   string         `json:"creator"`
	Holder    string         `json:"holder"`
	URI       string         `json:"uri"`
	Royalties []royaltyEntry `json:"royalties,omitempty"`
	CreatedAt int64          `json:"createdAt"`
}

type royaltyEntry struct {
	Recipient string `json:"recipient"`
	Bps       uint32 `json:"bps"`
}

func assetResultFrom(a *state.Asset) assetResult {
	out := assetResult{
		ID:        encodeHash32(a.ID),
		Creator:   crypto.MustAddress(a.Creator).String(),
		Holder:    crypto.MustAddress(a.Holder).String(),
		URI:       a.URI,
		CreatedAt: a.CreatedAt,
	}
	for _, r := range a.Royalties {
		out.Royalties = append(out.Royalties, royaltyEntry{
			Recipient: crypto.MustAddress(r.Recipient).String(),
			Bps:       r.Bps,
		})
	}
	return out
}

func (s *Server) handleRegisterAsset(w http.ResponseWriter, req *rpcRequest) {
	var params registerAssetParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	creator, err := crypto.DecodeAddress(params.Creator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid creator address", err.Error())
		return
	}
	schedule := make(royalty.Schedule, 0, len(params.Royalties))
	for _, r := range params.Royalties {
		recipient, err := crypto.DecodeAddress(r.Recipient)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid royalty recipient", err.Error())
			return
		}
		schedule = append(schedule, royalty.Royalty{Recipient: recipient.Bytes(), Bps: r.Bps})
	}
	asset, err := s.node.RegisterAsset(creator.Bytes(), params.URI, schedule)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, assetResultFrom(asset))
}

func (s *Server) handleGetAsset(w http.ResponseWriter, req *rpcRequest) {
	var params recordParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := decodeHash32(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, found, err := s.node.GetAsset(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load asset", err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, req.ID, codeNotFound, "asset not found", nil)
		return
	}
	writeResult(w, req.ID, assetResultFrom(asset))
}

func (s *Server) handleAssetHolder(w http.ResponseWriter, req *rpcRequest) {
	var params recordParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := decodeHash32(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, found, err := s.node.GetAsset(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load asset", err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, req.ID, codeNotFound, "asset not found", nil)
		return
	}
	writeResult(w, req.ID, map[string]string{
		"asset":  encodeHash32(asset.ID),
		"holder": crypto.MustAddress(asset.Holder).String(),
	})
}

type balanceParams struct {
	Address string `json:"address"`
}

func (s *Server) handleBalance(w http.ResponseWriter, req *rpcRequest) {
	var params balanceParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := crypto.DecodeAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	balance, err := s.node.Balance(addr.Bytes())
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load account", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]string{
		"address": params.Address,
		"balance": balance.String(),
	})
}
