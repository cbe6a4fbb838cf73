package bootstrap

import (
	"context"

	"github.com/m3rciful/newsbot/news/store"
)

// Seeder loads reference data into the store at startup.
type Seeder interface {
	Seed(ctx context.Context, st *store.Store) error
}

// SeederFunc adapts a bare function to the Seeder interface.
type SeederFunc func(ctx context.Context, st *store.Store) error

// Seed executes the underlying function.
func (f SeederFunc) Seed(ctx context.Context, st *store.Store) error {
	return f(ctx, st)
}

// LegacySeeder imports the configured legacy export into an empty store.
var LegacySeeder = SeederFunc(func(ctx context.Context, st *store.Store) error {
	_, err := st.Seed(ctx)
	return err
})

// Modules groups optional bootstrapping hooks. A nil Seeders list runs
// LegacySeeder; an empty one runs nothing.
type Modules struct {
	Seeders []Seeder
}
