package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rafian-git/storefront-state/internal/models"
)

// ErrUnavailable wraps every catalog load failure. A listing must not be
// shown when it is returned.
var ErrUnavailable = errors.New("catalog unavailable")

// unavailableError reports a failed load as ErrUnavailable and keeps the
// underlying cause reachable through Unwrap.
type unavailableError struct {
	cause error
}

func (e *unavailableError) Error() string { return ErrUnavailable.Error() + ": " + e.cause.Error() }

func (e *unavailableError) Is(target error) bool { return target == ErrUnavailable }

func (e *unavailableError) Unwrap() error { return e.cause }

// MsgUnavailable is the message shown instead of the listing.
const MsgUnavailable = "Mahsulotlarni yuklashda xato yuz berdi. Iltimos, keyinroq qayta urinib ko'ring."

// Loader fetches every catalog source concurrently. Sources are file paths or
// http(s) URLs, each holding a {"products": [...]} document.
type Loader struct {
	sources []string
	client  *http.Client
	log     *zap.Logger
}

func NewLoader(sources []string, client *http.Client, log *zap.Logger) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{sources: sources, client: client, log: log}
}

// wireItem accepts the shapes found in the data files: prices as numbers or
// display strings and the creation date under either key.
type wireItem struct {
	ID        int          `json:"id"`
	Name      string       `json:"name"`
	Price     models.Price `json:"price"`
	Image     string       `json:"image"`
	Category  string       `json:"category"`
	Color     string       `json:"color"`
	Rating    float64      `json:"rating"`
	CreatedAt string       `json:"createdAt"`
	Created   string       `json:"created"`
}

type document struct {
	Products []wireItem `json:"products"`
}

// Load waits for all sources. If any one fails the whole load fails and no
// items are returned. Items are concatenated in source order; an id seen in
// an earlier source wins.
func (l *Loader) Load(ctx context.Context) ([]models.CatalogItem, error) {
	if len(l.sources) == 0 {
		return nil, errors.Wrap(ErrUnavailable, "no catalog sources configured")
	}
	results := make([][]models.CatalogItem, len(l.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range l.sources {
		g.Go(func() error {
			items, err := l.fetch(gctx, src)
			if err != nil {
				return errors.Wrapf(err, "source %q", src)
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.log.Error("catalog load failed", zap.Error(err))
		return nil, &unavailableError{cause: err}
	}

	seen := map[int]bool{}
	var out []models.CatalogItem
	for _, items := range results {
		for _, it := range items {
			if seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			out = append(out, it)
		}
	}
	l.log.Info("catalog loaded", zap.Int("sources", len(l.sources)), zap.Int("items", len(out)))
	return out, nil
}

func (l *Loader) fetch(ctx context.Context, src string) ([]models.CatalogItem, error) {
	raw, err := l.read(ctx, src)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	items := make([]models.CatalogItem, 0, len(doc.Products))
	for _, w := range doc.Products {
		created := w.CreatedAt
		if created == "" {
			created = w.Created
		}
		items = append(items, models.CatalogItem{
			ID:        w.ID,
			Name:      w.Name,
			Price:     int64(w.Price),
			Image:     w.Image,
			Category:  w.Category,
			Color:     w.Color,
			Rating:    w.Rating,
			CreatedAt: created,
		})
	}
	return items, nil
}

func (l *Loader) read(ctx context.Context, src string) ([]byte, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return os.ReadFile(src)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
