// Package httpserver adapts the order service to a JSON HTTP API.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"

	"freya/domain/orderbook"
	"freya/service"
)

// Server adapts OrderService to HTTP.
type Server struct {
	svc *service.OrderService
	log zerolog.Logger
}

func NewServer(svc *service.OrderService, log zerolog.Logger) *Server {
	return &Server{svc: svc, log: log}
}

// Router builds the route table.
func (s *Server) Router() *httprouter.Router {
	r := httprouter.New()
	r.POST("/v1/orders", s.handleAddOrder)
	r.DELETE("/v1/orders", s.handleRemoveOrder)
	r.GET("/v1/collections/:collection/best-price", s.handleBestPrice)
	r.GET("/v1/collections/:collection/best-order", s.handleBestOrder)
	r.GET("/v1/collections/:collection/orders", s.handleOrders)
	return r
}

// -------------------- Commands --------------------

type orderKeyResponse struct {
	OrderKey orderbook.OrderKey `json:"orderKey"`
}

func (s *Server) handleAddOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var o orderbook.Order
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	key, err := s.svc.AddOrder(r.Context(), o)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderKeyResponse{OrderKey: key})
}

func (s *Server) handleRemoveOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var o orderbook.Order
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	key, err := s.svc.RemoveOrder(r.Context(), o)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderKeyResponse{OrderKey: key})
}

// -------------------- Queries --------------------

type bestPriceResponse struct {
	Price *orderbook.Price `json:"price"`
}

func (s *Server) handleBestPrice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	collection, side, _, err := scopeParams(r, ps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	price := s.svc.BestPrice(collection, side)
	if price.IsEmpty() {
		writeJSON(w, http.StatusOK, bestPriceResponse{Price: nil})
		return
	}
	writeJSON(w, http.StatusOK, bestPriceResponse{Price: &price})
}

type bestOrderResponse struct {
	Order *orderbook.Order `json:"order"`
}

func (s *Server) handleBestOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	collection, side, saleKind, err := scopeParams(r, ps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tokenID, err := uintParam(r, "tokenId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	order := s.svc.BestOrder(collection, tokenID, side, saleKind)
	if order.Price.IsEmpty() {
		writeJSON(w, http.StatusOK, bestOrderResponse{Order: nil})
		return
	}
	writeJSON(w, http.StatusOK, bestOrderResponse{Order: &order})
}

type ordersResponse struct {
	Orders     []orderbook.Order   `json:"orders"`
	NextCursor *orderbook.OrderKey `json:"nextCursor"`
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	collection, side, saleKind, err := scopeParams(r, ps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tokenID, err := uintParam(r, "tokenId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	count := 50
	if v := r.URL.Query().Get("count"); v != "" {
		count, err = strconv.Atoi(v)
		if err != nil || count <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("count must be a positive integer"))
			return
		}
	}

	price := orderbook.EmptyPrice
	if v := r.URL.Query().Get("price"); v != "" {
		price, err = orderbook.PriceFromDecimal(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	cursor := orderbook.NilOrderKey
	if v := r.URL.Query().Get("cursor"); v != "" {
		if err := cursor.UnmarshalText([]byte(v)); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	orders, next := s.svc.Orders(collection, tokenID, side, saleKind, count, price, cursor)
	resp := ordersResponse{Orders: orders}
	if next != orderbook.NilOrderKey {
		resp.NextCursor = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

// -------------------- Helpers --------------------

func scopeParams(r *http.Request, ps httprouter.Params) (orderbook.Address, orderbook.Side, orderbook.SaleKind, error) {
	collection, err := orderbook.AddressFromHex(ps.ByName("collection"))
	if err != nil {
		return orderbook.Address{}, 0, 0, err
	}

	var side orderbook.Side
	if err := side.UnmarshalText([]byte(r.URL.Query().Get("side"))); err != nil {
		return orderbook.Address{}, 0, 0, err
	}

	saleKind := orderbook.FixedPriceForItem
	if v := r.URL.Query().Get("saleKind"); v != "" {
		if err := saleKind.UnmarshalText([]byte(v)); err != nil {
			return orderbook.Address{}, 0, 0, err
		}
	}
	return collection, side, saleKind, nil
}

func uintParam(r *http.Request, name string) (uint64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	return strconv.ParseUint(v, 10, 64)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, orderbook.ErrDuplicateOrder), errors.Is(err, orderbook.ErrDuplicateKey):
		status = http.StatusConflict
	case errors.Is(err, orderbook.ErrOrderNotFound), errors.Is(err, orderbook.ErrKeyNotFound):
		status = http.StatusNotFound
	case errors.Is(err, orderbook.ErrEmptyKey), errors.Is(err, orderbook.ErrZeroSalt):
		status = http.StatusBadRequest
	}
	writeError(w, status, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing useful left to do.
		return
	}
}
