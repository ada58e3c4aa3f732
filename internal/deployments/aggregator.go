// Package deployments fetches deployment environments and their installed
// products, and combines them into a single product map.
package deployments

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/novera/support-assistant/internal/model"
	"github.com/novera/support-assistant/pkg/logger"
	"github.com/novera/support-assistant/pkg/metrics"
)

// ProductLister fetches the installed products for one deployment.
type ProductLister interface {
	ListProducts(ctx context.Context, deploymentID string) ([]model.InstalledProduct, error)
}

// Aggregator joins a list of deployments against their per-deployment
// product listings. The per-deployment fetches run concurrently with no
// ordering dependency; only their collective completion matters. A failed
// fetch contributes an empty product list for that deployment rather than
// failing the aggregate.
type Aggregator struct {
	lister ProductLister
	log    *logger.Logger

	mu       sync.RWMutex
	loading  bool
	complete bool
	products model.ProductMap

	done chan struct{}
}

// NewAggregator creates an aggregator that has not started loading.
// Done() does not fire until Start is called.
func NewAggregator(lister ProductLister, log *logger.Logger) *Aggregator {
	return &Aggregator{
		lister:   lister,
		log:      log,
		products: model.ProductMap{},
		done:     make(chan struct{}),
	}
}

// Start kicks off one product fetch per deployment and returns immediately.
// With zero deployments the aggregator completes at once. Start must be
// called at most once.
func (a *Aggregator) Start(ctx context.Context, deps []model.Deployment) {
	if len(deps) == 0 {
		a.mu.Lock()
		a.complete = true
		a.mu.Unlock()
		close(a.done)
		return
	}

	a.mu.Lock()
	a.loading = true
	a.mu.Unlock()

	go a.fetchAll(ctx, deps)
}

func (a *Aggregator) fetchAll(ctx context.Context, deps []model.Deployment) {
	results := make([][]string, len(deps))
	g, gctx := errgroup.WithContext(ctx)

	for i, dep := range deps {
		i, dep := i, dep
		g.Go(func() error {
			products, err := a.lister.ListProducts(gctx, dep.ID)
			if err != nil {
				// Treated as "no products for that deployment".
				a.log.Warn("product fetch failed",
					zap.String("deployment_id", dep.ID),
					zap.Error(err))
				metrics.ProductFetchesTotal.WithLabelValues("error").Inc()
				return nil
			}
			metrics.ProductFetchesTotal.WithLabelValues("ok").Inc()
			results[i] = productLabels(products)
			return nil
		})
	}
	g.Wait()

	combined := make(model.ProductMap, len(deps))
	for i, dep := range deps {
		label := dep.DisplayLabel()
		if results[i] == nil {
			results[i] = []string{}
		}
		combined[label] = dedupe(append(combined[label], results[i]...))
	}

	a.mu.Lock()
	a.products = combined
	a.loading = false
	a.complete = true
	a.mu.Unlock()
	close(a.done)
}

// Loading reports whether at least one product fetch is still outstanding.
func (a *Aggregator) Loading() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loading
}

// Done returns a channel closed exactly once, when every per-deployment
// fetch has settled. Consumers that must run strictly after the aggregate
// is complete wait on this channel instead of polling Loading.
func (a *Aggregator) Done() <-chan struct{} {
	return a.done
}

// ProductMap returns the combined environment-to-products map. While any
// fetch is outstanding it returns an empty map; once complete, every
// deployment passed to Start appears as a key.
func (a *Aggregator) ProductMap() model.ProductMap {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.complete {
		return model.ProductMap{}
	}
	return a.products.Clone()
}

func productLabels(products []model.InstalledProduct) []string {
	labels := make([]string, 0, len(products))
	for _, p := range products {
		if l := p.DisplayLabel(); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}

// dedupe removes duplicates while preserving first-seen order.
func dedupe(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
