// Package httpapi exposes deployed contracts over HTTP.
//
// Reads are plain GETs. State changes are POSTed as signed envelopes; the
// caller identity is the address of the signing key, never a request field.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/bitfsorg/tiersplit-go/envelope"
	"github.com/bitfsorg/tiersplit-go/identity"
	"github.com/bitfsorg/tiersplit-go/ledger"
	"github.com/bitfsorg/tiersplit-go/splitter"
	"github.com/bitfsorg/tiersplit-go/store"
	"github.com/bitfsorg/tiersplit-go/x402"
)

const maxBodyBytes = 64 << 10

// Server serves every contract found in a store.
type Server struct {
	store    store.Store
	nonces   *envelope.Nonces
	log      *zap.Logger
	sink     splitter.EventSink
	quoteTTL time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithEventSink forwards contract events to sink.
func WithEventSink(sink splitter.EventSink) Option {
	return func(s *Server) { s.sink = sink }
}

// WithQuoteTTL sets the lifetime of x402 quotes. Zero disables expiry.
func WithQuoteTTL(ttl time.Duration) Option {
	return func(s *Server) { s.quoteTTL = ttl }
}

// New returns a server over st.
func New(st store.Store, opts ...Option) *Server {
	s := &Server{
		store:    st,
		nonces:   envelope.NewNonces(st),
		log:      zap.NewNop(),
		quoteTTL: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/v1", func(api chi.Router) {
		api.Get("/contracts", s.listContracts)
		api.Route("/contracts/{contract}", func(c chi.Router) {
			c.Get("/", s.getSnapshot)
			c.Get("/roles", s.getRoles)
			c.Get("/escrow", s.getEscrow)
			c.Get("/prices/{tier}", s.getPrice)
			c.Get("/quote/{tier}", s.getQuote)
			c.Get("/balance", s.getContractBalance)
			c.Post("/calls", s.postCall)
		})
		api.Get("/balances/{asset}/{account}", s.getBalance)
		api.Get("/nonces/{account}", s.getNonce)
		api.Post("/transfers", s.postTransfer)
	})
	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
	}
	writeError(w, r, status, code, err.Error())
}

func (s *Server) open(addr identity.Address) (*splitter.Contract, error) {
	opts := []splitter.Option{splitter.WithLogger(s.log)}
	if s.sink != nil {
		opts = append(opts, splitter.WithEventSink(s.sink))
	}
	return splitter.Open(s.store, addr, opts...)
}

// contract resolves the {contract} URL parameter.
func (s *Server) contract(r *http.Request) (*splitter.Contract, error) {
	addr, err := identity.Parse(chi.URLParam(r, "contract"))
	if err != nil {
		return nil, err
	}
	return s.open(addr)
}

// --- reads ---

func (s *Server) listContracts(w http.ResponseWriter, r *http.Request) {
	addrs, err := splitter.List(s.store)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if addrs == nil {
		addrs = []identity.Address{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"contracts": addrs})
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	c, err := s.contract(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	snap, err := c.Snapshot()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) getRoles(w http.ResponseWriter, r *http.Request) {
	c, err := s.contract(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	roles, err := c.Roles()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

// EscrowResponse reports the retained balance and approval flags.
type EscrowResponse struct {
	splitter.EscrowState
	Phase splitter.Phase `json:"phase"`
}

func (s *Server) getEscrow(w http.ResponseWriter, r *http.Request) {
	c, err := s.contract(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	esc, err := c.Escrow()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EscrowResponse{EscrowState: esc, Phase: esc.Phase()})
}

// PriceResponse reports a tier's list price and the amount a payment must carry.
type PriceResponse struct {
	Tier      splitter.Tier `json:"tier"`
	ListPrice uint64        `json:"list_price"`
	Price     uint64        `json:"price"`
}

func (s *Server) priceOf(r *http.Request) (*splitter.Contract, PriceResponse, error) {
	var resp PriceResponse
	c, err := s.contract(r)
	if err != nil {
		return nil, resp, err
	}
	t, err := splitter.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		return nil, resp, err
	}
	prices, err := c.Prices()
	if err != nil {
		return nil, resp, err
	}
	resp.Tier = t
	resp.ListPrice, _ = prices.Price(t)
	resp.Price, _ = prices.Quote(t)
	return c, resp, nil
}

func (s *Server) getPrice(w http.ResponseWriter, r *http.Request) {
	_, resp, err := s.priceOf(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// getQuote answers 402 Payment Required with the quote in headers and body.
func (s *Server) getQuote(w http.ResponseWriter, r *http.Request) {
	c, resp, err := s.priceOf(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q, err := x402.NewQuote(c.Address(), resp.Tier.String(), resp.ListPrice, c.Asset().ID(), s.quoteTTL)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("content-type", "application/json")
	x402.SetQuoteHeaders(w, q)
	_ = json.NewEncoder(w).Encode(q)
}

// ContractBalanceResponse reports the retained balance and the asset balance
// of the contract account. They are equal between calls.
type ContractBalanceResponse struct {
	Asset    string `json:"asset"`
	Retained uint64 `json:"retained"`
	Balance  uint64 `json:"balance"`
}

func (s *Server) getContractBalance(w http.ResponseWriter, r *http.Request) {
	c, err := s.contract(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	snap, err := c.Snapshot()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ContractBalanceResponse{
		Asset:    c.Asset().ID(),
		Retained: snap.Escrow.Retained,
		Balance:  snap.Balance,
	})
}

// BalanceResponse reports one account's balance of one asset.
type BalanceResponse struct {
	Asset   string           `json:"asset"`
	Account identity.Address `json:"account"`
	Balance uint64           `json:"balance"`
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	asset, err := ledger.ForID(chi.URLParam(r, "asset"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	who, err := identity.Parse(chi.URLParam(r, "account"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	bal, err := ledger.New(s.store, asset).Balance(who)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Asset: asset.ID(), Account: who, Balance: bal})
}

// NonceResponse reports the next nonce an account must sign with.
type NonceResponse struct {
	Account identity.Address `json:"account"`
	Next    uint64           `json:"next"`
}

func (s *Server) getNonce(w http.ResponseWriter, r *http.Request) {
	who, err := identity.Parse(chi.URLParam(r, "account"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	next, err := s.nonces.Next(who)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NonceResponse{Account: who, Next: next})
}

// readEnvelope decodes and authenticates a signed call addressed to target.
func (s *Server) readEnvelope(w http.ResponseWriter, r *http.Request, target identity.Address) (*envelope.Envelope, identity.Address, error) {
	var env envelope.Envelope
	if err := readJSON(w, r, &env); err != nil {
		return nil, identity.Zero, errors.Join(errBadRequest, err)
	}
	caller, err := s.nonces.Authenticate(&env, target)
	if err != nil {
		return nil, identity.Zero, err
	}
	return &env, caller, nil
}
