package catalog

import (
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/go-faster/errors"

	"github.com/rafian-git/storefront-state/internal/models"
)

// itemEnv is what an expression facet can see of an item.
type itemEnv struct {
	ID       int     `expr:"id"`
	Name     string  `expr:"name"`
	Price    int64   `expr:"price"`
	Rating   float64 `expr:"rating"`
	Category string  `expr:"category"`
	Color    string  `expr:"color"`
	Created  string  `expr:"created"`
}

func envOf(it models.CatalogItem) itemEnv {
	return itemEnv{
		ID:       it.ID,
		Name:     it.Name,
		Price:    it.Price,
		Rating:   it.Rating,
		Category: it.Category,
		Color:    it.Color,
		Created:  it.CreatedAt,
	}
}

// expressions caches compiled programs by source text.
type expressions struct {
	mu       sync.Mutex
	programs map[string]*vm.Program
}

func newExpressions() *expressions {
	return &expressions{programs: map[string]*vm.Program{}}
}

func (x *expressions) compile(source string) (*vm.Program, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if p, ok := x.programs[source]; ok {
		return p, nil
	}
	p, err := expr.Compile(source, expr.Env(itemEnv{}), expr.AsBool())
	if err != nil {
		return nil, errors.Wrap(err, "compile expression")
	}
	x.programs[source] = p
	return p, nil
}

// predicate returns nil when source is empty or does not compile. A program
// that fails at run time rejects the item.
func (x *expressions) predicate(source string) (func(models.CatalogItem) bool, error) {
	if source == "" {
		return nil, nil
	}
	program, err := x.compile(source)
	if err != nil {
		return nil, err
	}
	return func(it models.CatalogItem) bool {
		out, err := expr.Run(program, envOf(it))
		if err != nil {
			return false
		}
		ok, _ := out.(bool)
		return ok
	}, nil
}
