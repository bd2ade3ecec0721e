//go:build property
// +build property

package favorites_test

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/rafian-git/storefront-state/internal/favorites"
	"github.com/rafian-git/storefront-state/internal/models"
	"github.com/rafian-git/storefront-state/internal/store"
)

// TestToggleIsAnInvolution verifies toggling the same product twice is a no-op.
// Property: toggle(x); toggle(x) restores membership and count for any prior set
func TestToggleIsAnInvolution(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("double toggle restores membership and count", prop.ForAll(
		func(seed []int, x int) bool {
			f := favorites.New(store.NewCollection[models.FavoriteEntry](store.NewMemory(), "favorites", nil), nil)
			ctx := context.Background()
			for _, id := range seed {
				f.Toggle(ctx, models.ProductRef{ID: id, Price: "100"})
			}
			wasMember := f.IsFavorite(ctx, x)
			count := f.Count(ctx)

			f.Toggle(ctx, models.ProductRef{ID: x, Price: "100"})
			if f.IsFavorite(ctx, x) == wasMember {
				return false
			}
			f.Toggle(ctx, models.ProductRef{ID: x, Price: "100"})
			return f.IsFavorite(ctx, x) == wasMember && f.Count(ctx) == count
		},
		gen.SliceOf(gen.IntRange(1, 30)),
		gen.IntRange(1, 30),
	))

	properties.TestingRun(t)
}
