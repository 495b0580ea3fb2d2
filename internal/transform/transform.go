// Package transform routes raw extractor output onto the content entities
// and cleans each routed dataset. Cleaners are pure: they never mutate their
// input and never fail, so a transform pass always produces a usable map.
package transform

import (
	"sort"

	"github.com/rs/zerolog"

	"logiflow/internal/dataset"
)

// Cleaner reshapes one raw dataset into its loadable form.
type Cleaner interface {
	Clean(ds *dataset.Dataset) *dataset.Dataset
}

// entityByKey is the explicit routing table from extractor output keys onto
// content entities. Substring guessing is deliberately absent: a new source
// key must be added here before its data reaches a table.
var entityByKey = map[string]string{
	"products_api":    "products",
	"products_csv":    "products",
	"orders_api":      "orders",
	"orders_csv":      "orders",
	"order_items_csv": "order_items",
	"users_api":       "customers",
	"customers_csv":   "customers",
	"sellers_csv":     "sellers",
}

// routeOrder fixes the order keys are considered in: API keys before CSV
// keys, so that when both sources feed one entity the API dataset claims it.
var routeOrder = []string{
	"products_api",
	"orders_api",
	"users_api",
	"orders_csv",
	"order_items_csv",
	"customers_csv",
	"sellers_csv",
	"products_csv",
}

// EntityFor reports the content entity an extractor output key routes onto.
func EntityFor(key string) (string, bool) {
	entity, ok := entityByKey[key]
	return entity, ok
}

// Transformer applies the per-entity cleaners to routed datasets.
type Transformer struct {
	Log      zerolog.Logger
	cleaners map[string]Cleaner
}

// NewTransformer returns a Transformer with the stock entity cleaners
// registered.
func NewTransformer(log zerolog.Logger) *Transformer {
	return &Transformer{
		Log: log,
		cleaners: map[string]Cleaner{
			"orders":      OrdersCleaner{Log: log},
			"products":    ProductsCleaner{Log: log},
			"order_items": OrderItemsCleaner{Log: log},
			"customers":   CustomersCleaner{Log: log},
			"sellers":     SellersCleaner{Log: log},
		},
	}
}

// Run routes raw datasets onto entities and cleans them. Keys are visited in
// routeOrder, then any remaining keys sorted, so that when two sources feed
// the same entity the earlier one wins and the loser is dropped with a
// warning. Keys with no routing entry pass through under their original
// name, uncleaned; the loader never touches them.
func (t *Transformer) Run(raw map[string]*dataset.Dataset) map[string]*dataset.Dataset {
	keys := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, k := range routeOrder {
		if _, ok := raw[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(raw))
	for k := range raw {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	out := make(map[string]*dataset.Dataset, len(raw))
	claimedBy := make(map[string]string, len(raw))

	for _, key := range keys {
		ds := raw[key]
		entity, ok := entityByKey[key]
		if !ok {
			t.Log.Debug().Str("key", key).Msg("no entity mapping, passing through")
			out[key] = ds
			continue
		}
		if winner, taken := claimedBy[entity]; taken {
			t.Log.Warn().
				Str("key", key).
				Str("entity", entity).
				Str("claimed_by", winner).
				Msg("entity already claimed, dropping dataset")
			continue
		}
		claimedBy[entity] = key

		cleaner, ok := t.cleaners[entity]
		if !ok {
			out[entity] = ds
			continue
		}
		out[entity] = cleaner.Clean(ds)
	}

	entities := make([]string, 0, len(claimedBy))
	for e := range claimedBy {
		entities = append(entities, e)
	}
	sort.Strings(entities)
	t.Log.Info().Strs("entities", entities).Msg("transformation complete")

	return out
}
