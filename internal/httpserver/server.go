package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/rafian-git/storefront-state/internal/cart"
	"github.com/rafian-git/storefront-state/internal/catalog"
	"github.com/rafian-git/storefront-state/internal/favorites"
	"github.com/rafian-git/storefront-state/internal/models"
	"github.com/rafian-git/storefront-state/internal/queue"
	"github.com/rafian-git/storefront-state/internal/session"
	"github.com/rafian-git/storefront-state/internal/summary"
)

// SessionHeader carries the id issued by POST /sessions.
const SessionHeader = "X-Session-ID"

type Server struct {
	sessions *session.Manager
	log      *zap.Logger
	limiter  *RateLimiter
}

type Option func(*Server)

func WithLogger(log *zap.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithRateLimit limits every client address to rps requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 {
			s.limiter = NewRateLimiter(rps, burst)
		}
	}
}

func New(sessions *session.Manager, opts ...Option) http.Handler {
	s := &Server{sessions: sessions, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging(s.log))
	r.Use(middleware.Recoverer)
	if s.limiter != nil {
		r.Use(s.limiter.Middleware)
	}
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("not found"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/sessions", s.handleCreateSession)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", s.handleGetCart)
		r.Get("/count", s.handleCartCount)
		r.Post("/items", s.handleAddItem)
		r.Post("/items/{id}/increase", s.handleIncrease)
		r.Post("/items/{id}/decrease", s.handleDecrease)
		r.Delete("/items/{id}", s.handleRemove)
		r.Delete("/", s.handleClearCart)
	})
	r.Route("/favorites", func(r chi.Router) {
		r.Get("/", s.handleListFavorites)
		r.Post("/toggle", s.handleToggleFavorite)
		r.Post("/states", s.handleFavoriteStates)
		r.Get("/{id}", s.handleIsFavorite)
	})
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/", s.handleCatalog)
		r.Get("/items", s.handleCatalogItems)
		r.Post("/filter", s.handleFilter)
		r.Post("/controls", s.handleControl)
		r.Post("/sort", s.handleSort)
		r.Post("/clear", s.handleClearFilters)
	})
	r.Route("/selected", func(r chi.Router) {
		r.Get("/", s.handleGetSelected)
		r.Put("/", s.handleSelect)
		r.Delete("/", s.handleClearSelected)
	})
	r.Route("/summary", func(r chi.Router) {
		r.Get("/", s.handleSummary)
		r.Put("/discount", s.handleDiscount)
		r.Delete("/", s.handleCloseSummary)
	})
	return r
}

// do runs fn on the requesting session's event loop. It writes the error
// response itself and reports whether fn ran.
func (s *Server) do(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, sess *session.Session)) bool {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.Errorf("missing %s header", SessionHeader))
		return false
	}
	if err := s.sessions.Do(r.Context(), id, fn); err != nil {
		s.fail(w, r, err)
		return false
	}
	return true
}

// fail maps an error to its status code.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrUnknownSession):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, catalog.ErrUnavailable), errors.Is(err, session.ErrCatalogUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": catalog.MsgUnavailable})
	case errors.Is(err, queue.ErrClosed), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
}

type cartView struct {
	Entries []models.CartEntry `json:"entries"`
	Badge   models.Badge       `json:"badge"`
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	var out cartView
	if !s.do(w, r, func(ctx context.Context, sess *session.Session) {
		out.Entries = sess.Cart.Entries(ctx)
		out.Badge = models.NewBadge(cart.TotalOf(out.Entries))
	}) {
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCartCount(w http.ResponseWriter, r *http.Request) {
	var badge models.Badge
	if !s.do(w, r, func(ctx context.Context, sess *session.Session) { badge = sess.Cart.Badge(ctx) }) {
		return
	}
	writeJSON(w, http.StatusOK, badge)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var dto addItemDTO
	if !decode(w, r, &dto) {
		return
	}
	if err := dto.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var res cart.AddResult
	if !s.do(w, r, func(ctx context.Context, sess *session.Session) {
		res = sess.Cart.AddItem(ctx, dto.ref(), dto.Qty)
	}) {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type quantityView struct {
	Changed bool `json:"changed"`
	Count   int  `json:"count"`
}

func (s *Server) handleIncrease(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var out quantityView
	if !s.do(w, r, func(ctx context.Context, sess *session.Session) {
		out.Changed = sess.Cart.IncreaseQty(ctx, id)
		out.Count = sess.Cart.TotalCount(ctx)
	}) {
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type outcomeView struct {
	Outcome cart.Outcome `json:"outcome"`
	Count   int          `json:"count"`
	Message string       `json:"message,omitempty"`
}

func (s *Server) handleDecrease(w http.ResponseWriter, r *http.Request) {
	s.handleRemoval(w, r, (*cart.Cart).DecreaseQty)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	s.handleRemoval(w, r, (*cart.Cart).RemoveItem)
}

type removal func(c *cart.Cart, ctx context.Context, id int, confirm cart.Confirmer) cart.Outcome

// handleRemoval answers the confirmation from the confirm query parameter.
// A missing answer declines.
func (s *Server) handleRemoval(w http.ResponseWriter, r *http.Request, op removal) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	confirm, err := confirmation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var out outcomeView
	if !s.do(w, r, func(ctx context.Context, sess *session.Session) {
		out.Outcome = op(sess.Cart, ctx, id, confirm)
		out.Count = sess.Cart.TotalCount(ctx)
	}) {
		return
	}
	if out.Outcome == cart.Removed {
		out.Message = cart.MsgRemoved
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	var cleared bool
	if !s.do(w, r, func(ctx context.Context, sess *session.Session) { cleared = sess.Cart.Clear(ctx) }) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": cleared})
}

type favoritesView struct {
	Entries []models.FavoriteEntry `json:"entries"`
	Badge   models.Badge           `json:"badge"`
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	var out favoritesView
	if !s.do(w, r, func(ctx context.Context, sess *session.Session) {
		out.Entries = sess.Favorites.List(ctx)
		out.Badge = models.NewBadge(len(out.Entries))
	}) {
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type toggleView struct {
	favorites.ToggleResult
	Glyph string `json:"glyph"`
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var dto productDTO
	if !decode(w, r, &dto) {
		return
	}
	if err := dto.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var out toggleView
	if !s.do(w, r, func(ctx context.Context, sess *session.Session) {
		out.ToggleResult = sess.Favorites.Toggle(ctx, dto.ref())
	}) {
		return
	}
	out.Glyph = out.State.Glyph()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleIsFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var fav bool
	if !s.do(w, r, func(ctx context.Context, sess *session.Session) { fav = sess.Favorites.IsFavorite(ctx, id) }) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "favorite": fav})
}

func (s *Server) handleFavoriteStates(w http.ResponseWriter, r *http.Request) {
	var dto statesDTO
	if !decode(w, r, &dto) {
		return
	}
	var states map[int]bool
	if !s.do(w, r, func(ctx context.Context, sess *session.Session) { states = sess.Favorites.States(ctx, dto.IDs) }) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"states": states})
}

// withCatalog runs fn against the session's engine. An unavailable catalog is
// reported instead of an empty listing.
func (s *Server) withCatalog(w http.ResponseWriter, r *http.Request, fn func(e *catalog.Engine) catalog.Result) {
	var (
		res catalog.Result
		err error
	)
	if !s.do(w, r, func(_ context.Context, sess *session.Session) {
		var e *catalog.Engine
		if e, err = sess.Catalog(); err == nil {
			res = fn(e)
		}
	}) {
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type catalogView struct {
	catalog.Result
	Visibility map[int]bool       `json:"visibility"`
	State      models.FilterState `json:"state"`
}

// handleCatalog reports the listing as a card grid sees it: every snapshot
// item with its visibility, plus the active filter.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	var (
		out catalogView
		err error
	)
	if !s.do(w, r, func(_ context.Context, sess *session.Session) {
		var e *catalog.Engine
		if e, err = sess.Catalog(); err == nil {
			out = catalogView{Result: e.Current(), Visibility: e.Visibility(), State: e.State()}
		}
	}) {
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCatalogItems(w http.ResponseWriter, r *http.Request) {
	var (
		items []models.CatalogItem
		err   error
	)
	if !s.do(w, r, func(_ context.Context, sess *session.Session) {
		var e *catalog.Engine
		if e, err = sess.Catalog(); err == nil {
			items = e.Snapshot()
		}
	}) {
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var dto controlDTO
	if !decode(w, r, &dto) {
		return
	}
	if err := dto.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.withCatalog(w, r, dto.apply)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	state := models.InitialFilter()
	if !decode(w, r, &state) {
		return
	}
	s.withCatalog(w, r, func(e *catalog.Engine) catalog.Result { return e.Apply(state) })
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	var dto sortDTO
	if !decode(w, r, &dto) {
		return
	}
	if err := dto.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.withCatalog(w, r, func(e *catalog.Engine) catalog.Result {
		e.Sort(dto.Criterion)
		return e.Current()
	})
}

func (s *Server) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	s.withCatalog(w, r, func(e *catalog.Engine) catalog.Result { return e.Clear() })
}

// handleSelect records the product card the visitor opened.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var dto productDTO
	if !decode(w, r, &dto) {
		return
	}
	if err := dto.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ref := dto.ref()
	var err error
	if !s.do(w, r, func(ctx context.Context, sess *session.Session) { err = sess.Selected.Set(ctx, ref) }) {
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

func (s *Server) handleGetSelected(w http.ResponseWriter, r *http.Request) {
	var (
		ref models.ProductRef
		ok  bool
	)
	if !s.do(w, r, func(ctx context.Context, sess *session.Session) { ref, ok = sess.Selected.Get(ctx) }) {
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no product selected"))
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

func (s *Server) handleClearSelected(w http.ResponseWriter, r *http.Request) {
	var err error
	if !s.do(w, r, func(ctx context.Context, sess *session.Session) { err = sess.Selected.Clear(ctx) }) {
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type summaryView struct {
	models.Summary
	Lines     []summary.Line    `json:"lines"`
	Formatted map[string]string `json:"formatted"`
}

// handleSummary opens the summary view; it keeps following the cart until
// DELETE /summary.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var out summaryView
	if !s.do(w, r, func(ctx context.Context, sess *session.Session) {
		out.Summary = sess.Summary.Activate(ctx, sess.Cart)
		out.Lines = sess.Summary.Lines()
		out.Formatted = sess.Summary.Formatted()
	}) {
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDiscount(w http.ResponseWriter, r *http.Request) {
	var dto discountDTO
	if !decode(w, r, &dto) {
		return
	}
	if err := dto.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var out models.Summary
	if !s.do(w, r, func(_ context.Context, sess *session.Session) { out = sess.Summary.SetDiscount(dto.Discount) }) {
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCloseSummary(w http.ResponseWriter, r *http.Request) {
	if !s.do(w, r, func(_ context.Context, sess *session.Session) { sess.Summary.Deactivate() }) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, errors.Errorf("invalid product id %q", chi.URLParam(r, "id")))
		return 0, false
	}
	return id, true
}

func confirmation(r *http.Request) (cart.Confirmer, error) {
	raw := r.URL.Query().Get("confirm")
	if raw == "" {
		return cart.Never, nil
	}
	ok, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.Errorf("invalid confirm value %q", raw)
	}
	if ok {
		return cart.Always, nil
	}
	return cart.Never, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer func() { _ = r.Body.Close() }()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid json"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
