package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/rafian-git/storefront-state/internal/cart"
	"github.com/rafian-git/storefront-state/internal/catalog"
	"github.com/rafian-git/storefront-state/internal/favorites"
	"github.com/rafian-git/storefront-state/internal/models"
	"github.com/rafian-git/storefront-state/internal/queue"
	"github.com/rafian-git/storefront-state/internal/store"
)

func listing() []models.CatalogItem {
	return []models.CatalogItem{
		{ID: 1, Name: "Nike Air Krossovka", Price: 150000, Category: "shoes", Color: "white", Rating: 4.5, CreatedAt: "2024-03-01"},
		{ID: 2, Name: "Adidas Krossovka", Price: 450000, Category: "shoes", Color: "black", Rating: 4.8, CreatedAt: "2024-05-12"},
		{ID: 3, Name: "Yozgi ko'ylak", Price: 120000, Category: "dresses", Color: "red", Rating: 3.9, CreatedAt: "2024-01-20"},
		{ID: 4, Name: "Charm sumka", Price: 90000, Category: "bags", Color: "black", Rating: 4.1, CreatedAt: "2024-06-02"},
		{ID: 5, Name: "Sandal", Price: 200000, Category: "shoes", Color: "white", Rating: 3.2, CreatedAt: "2023-12-30"},
	}
}

type storefrontTestContext struct {
	backend  *store.MemoryBackend
	q        *queue.Queue
	stop     context.CancelFunc
	sessions *Manager
	id       string

	outcome    cart.Outcome
	favorite   favorites.ToggleResult
	listing    catalog.Result
	remembered []byte
}

func (c *storefrontTestContext) reset() {
	c.backend = store.NewMemory()
	c.q = queue.New(2, 8, nil)
	ctx, cancel := context.WithCancel(context.Background())
	c.q.StartWorkers(ctx)
	c.stop = cancel
	c.sessions = NewManager(c.backend, c.q, WithCatalog(listing()))
	c.id = c.sessions.Create().ID
	c.outcome = 0
	c.favorite = favorites.ToggleResult{}
	c.listing = catalog.Result{}
	c.remembered = nil
}

func (c *storefrontTestContext) teardown() {
	c.q.Close()
	c.stop()
}

func (c *storefrontTestContext) do(fn func(ctx context.Context, s *Session)) error {
	return c.sessions.Do(context.Background(), c.id, fn)
}

func confirmer(answer string) cart.Confirmer {
	if answer == "confirm" {
		return cart.Always
	}
	return cart.Never
}

// Given steps

func (c *storefrontTestContext) anEmptyCart() error {
	return c.do(func(ctx context.Context, s *Session) { s.Cart.Clear(ctx) })
}

func (c *storefrontTestContext) iRememberTheStoredCart() error {
	raw, _, err := c.backend.Get(context.Background(), CartKey(c.id))
	c.remembered = raw
	return err
}

// When steps

func (c *storefrontTestContext) iAddProduct(id int, name, price string, qty int) error {
	var res cart.AddResult
	err := c.do(func(ctx context.Context, s *Session) {
		res = s.Cart.AddItem(ctx, models.ProductRef{ID: id, Name: name, Price: price}, qty)
	})
	if err != nil {
		return err
	}
	if !res.Added {
		return fmt.Errorf("product %d was not added", id)
	}
	return nil
}

func (c *storefrontTestContext) iDecreaseProduct(id int, answer string) error {
	return c.do(func(ctx context.Context, s *Session) {
		c.outcome = s.Cart.DecreaseQty(ctx, id, confirmer(answer))
	})
}

func (c *storefrontTestContext) iRemoveProduct(id int, answer string) error {
	return c.do(func(ctx context.Context, s *Session) {
		c.outcome = s.Cart.RemoveItem(ctx, id, confirmer(answer))
	})
}

func (c *storefrontTestContext) iOpenTheOrderSummary() error {
	return c.do(func(ctx context.Context, s *Session) { s.Summary.Activate(ctx, s.Cart) })
}

func (c *storefrontTestContext) aDiscountIsGranted(discount int) error {
	return c.do(func(_ context.Context, s *Session) { s.Summary.SetDiscount(int64(discount)) })
}

func (c *storefrontTestContext) iToggleFavorite(id int, name, price string) error {
	return c.do(func(ctx context.Context, s *Session) {
		c.favorite = s.Favorites.Toggle(ctx, models.ProductRef{ID: id, Name: name, Price: price})
	})
}

func (c *storefrontTestContext) withEngine(fn func(e *catalog.Engine) catalog.Result) error {
	var err error
	doErr := c.do(func(_ context.Context, s *Session) {
		var e *catalog.Engine
		if e, err = s.Catalog(); err == nil {
			c.listing = fn(e)
		}
	})
	if doErr != nil {
		return doErr
	}
	return err
}

func (c *storefrontTestContext) iSelectCategory(category string) error {
	return c.withEngine(func(e *catalog.Engine) catalog.Result { return e.SetCategory(category) })
}

func (c *storefrontTestContext) iCheckThePriceRange(lo, hi int) error {
	return c.withEngine(func(e *catalog.Engine) catalog.Result {
		return e.TogglePriceRange(models.PriceRange{Min: int64(lo), Max: int64(hi)}, true)
	})
}

func (c *storefrontTestContext) iSortBy(criterion string) error {
	return c.withEngine(func(e *catalog.Engine) catalog.Result {
		e.Sort(catalog.SortCriterion(criterion))
		return e.Current()
	})
}

func (c *storefrontTestContext) iClearTheFilters() error {
	return c.withEngine(func(e *catalog.Engine) catalog.Result { return e.Clear() })
}

func (c *storefrontTestContext) iFilterWithTheExpression(expression string) error {
	return c.withEngine(func(e *catalog.Engine) catalog.Result { return e.SetExpression(expression) })
}

// Then steps

func (c *storefrontTestContext) entries() ([]models.CartEntry, error) {
	var entries []models.CartEntry
	err := c.do(func(ctx context.Context, s *Session) { entries = s.Cart.Entries(ctx) })
	return entries, err
}

func (c *storefrontTestContext) theCartHasEntries(n int) error {
	entries, err := c.entries()
	if err != nil {
		return err
	}
	if len(entries) != n {
		return fmt.Errorf("expected %d entries, got %d", n, len(entries))
	}
	return nil
}

func (c *storefrontTestContext) theCartEntryHasQuantity(id, qty int) error {
	entries, err := c.entries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.ID == id {
			if e.Qty != qty {
				return fmt.Errorf("expected qty %d for %d, got %d", qty, id, e.Qty)
			}
			return nil
		}
	}
	return fmt.Errorf("no cart entry %d", id)
}

func (c *storefrontTestContext) theCartCountIs(n int) error {
	var got int
	if err := c.do(func(ctx context.Context, s *Session) { got = s.Cart.TotalCount(ctx) }); err != nil {
		return err
	}
	if got != n {
		return fmt.Errorf("expected count %d, got %d", n, got)
	}
	return nil
}

func (c *storefrontTestContext) theCartBadgeIsHidden() error {
	var badge models.Badge
	if err := c.do(func(ctx context.Context, s *Session) { badge = s.Cart.Badge(ctx) }); err != nil {
		return err
	}
	if !badge.Hidden {
		return fmt.Errorf("expected hidden badge, got count %d", badge.Count)
	}
	return nil
}

func (c *storefrontTestContext) theOutcomeIs(want string) error {
	if c.outcome.String() != want {
		return fmt.Errorf("expected outcome %q, got %q", want, c.outcome)
	}
	return nil
}

func (c *storefrontTestContext) theStoredCartIsUnchanged() error {
	raw, _, err := c.backend.Get(context.Background(), CartKey(c.id))
	if err != nil {
		return err
	}
	if !bytes.Equal(raw, c.remembered) {
		return fmt.Errorf("stored cart changed: %s -> %s", c.remembered, raw)
	}
	return nil
}

func (c *storefrontTestContext) theSummaryShows(subtotal, shipping, discount, total int) error {
	var got models.Summary
	if err := c.do(func(_ context.Context, s *Session) { got = s.Summary.Current() }); err != nil {
		return err
	}
	want := [4]int64{int64(subtotal), int64(shipping), int64(discount), int64(total)}
	have := [4]int64{got.Subtotal, got.Shipping, got.Discount, got.Total}
	if want != have {
		return fmt.Errorf("expected subtotal/shipping/discount/total %v, got %v", want, have)
	}
	return nil
}

func (c *storefrontTestContext) theSummaryIsEmpty() error {
	var got models.Summary
	if err := c.do(func(_ context.Context, s *Session) { got = s.Summary.Current() }); err != nil {
		return err
	}
	if !got.IsEmpty {
		return errors.New("expected the empty summary")
	}
	return nil
}

func (c *storefrontTestContext) theFavoriteStateIs(want string) error {
	if c.favorite.State.String() != want {
		return fmt.Errorf("expected favorite state %q, got %q", want, c.favorite.State)
	}
	return nil
}

func (c *storefrontTestContext) productIsAFavorite(id int, not string) error {
	var got bool
	if err := c.do(func(ctx context.Context, s *Session) { got = s.Favorites.IsFavorite(ctx, id) }); err != nil {
		return err
	}
	if want := not == ""; got != want {
		return fmt.Errorf("expected favorite(%d) = %v, got %v", id, want, got)
	}
	return nil
}

func (c *storefrontTestContext) theFavoritesCountIs(n int) error {
	var got int
	if err := c.do(func(ctx context.Context, s *Session) { got = s.Favorites.Count(ctx) }); err != nil {
		return err
	}
	if got != n {
		return fmt.Errorf("expected %d favorites, got %d", n, got)
	}
	return nil
}

func (c *storefrontTestContext) theVisibleProductsAre(list string) error {
	var want []int
	for _, part := range strings.Split(list, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return err
		}
		want = append(want, id)
	}
	if fmt.Sprint(want) != fmt.Sprint(c.listing.VisibleIDs) {
		return fmt.Errorf("expected visible %v, got %v", want, c.listing.VisibleIDs)
	}
	return nil
}

func (c *storefrontTestContext) theListingIsEmpty(not string) error {
	if want := not == ""; c.listing.IsEmpty != want {
		return fmt.Errorf("expected empty listing = %v, got %v", want, c.listing.IsEmpty)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &storefrontTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		tc.teardown()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an empty cart$`, tc.anEmptyCart)
	ctx.Step(`^I remember the stored cart$`, tc.iRememberTheStoredCart)

	// When steps
	ctx.Step(`^I add product (\d+) "([^"]*)" priced "([^"]*)" with quantity (-?\d+)$`, tc.iAddProduct)
	ctx.Step(`^I decrease product (\d+) and (confirm|decline)$`, tc.iDecreaseProduct)
	ctx.Step(`^I remove product (\d+) and (confirm|decline)$`, tc.iRemoveProduct)
	ctx.Step(`^I open the order summary$`, tc.iOpenTheOrderSummary)
	ctx.Step(`^a discount of (\d+) is granted$`, tc.aDiscountIsGranted)
	ctx.Step(`^I toggle favorite (\d+) "([^"]*)" priced "([^"]*)"$`, tc.iToggleFavorite)
	ctx.Step(`^I select category "([^"]*)"$`, tc.iSelectCategory)
	ctx.Step(`^I check the price range (\d+) to (\d+)$`, tc.iCheckThePriceRange)
	ctx.Step(`^I sort by "([^"]*)"$`, tc.iSortBy)
	ctx.Step(`^I clear the filters$`, tc.iClearTheFilters)
	ctx.Step(`^I filter with the expression "([^"]*)"$`, tc.iFilterWithTheExpression)

	// Then steps
	ctx.Step(`^the cart has (\d+) entr(?:y|ies)$`, tc.theCartHasEntries)
	ctx.Step(`^the cart entry (\d+) has quantity (\d+)$`, tc.theCartEntryHasQuantity)
	ctx.Step(`^the cart count is (\d+)$`, tc.theCartCountIs)
	ctx.Step(`^the cart badge is hidden$`, tc.theCartBadgeIsHidden)
	ctx.Step(`^the outcome is "([^"]*)"$`, tc.theOutcomeIs)
	ctx.Step(`^the stored cart is unchanged$`, tc.theStoredCartIsUnchanged)
	ctx.Step(`^the summary shows subtotal (\d+), shipping (\d+), discount (\d+) and total (\d+)$`, tc.theSummaryShows)
	ctx.Step(`^the summary is empty$`, tc.theSummaryIsEmpty)
	ctx.Step(`^the favorite state is "([^"]*)"$`, tc.theFavoriteStateIs)
	ctx.Step(`^product (\d+) is (not )?a favorite$`, tc.productIsAFavorite)
	ctx.Step(`^the favorites count is (\d+)$`, tc.theFavoritesCountIs)
	ctx.Step(`^the visible products are "([^"]*)"$`, tc.theVisibleProductsAre)
	ctx.Step(`^the listing is (not )?empty$`, tc.theListingIsEmpty)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../../features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
