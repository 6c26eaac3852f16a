package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/contentline-backend/internal/data/aggregates"
	"github.com/yungbote/contentline-backend/internal/data/repos"
	domainagg "github.com/yungbote/contentline-backend/internal/domain/aggregates"
	"github.com/yungbote/contentline-backend/internal/domain/content"
	"github.com/yungbote/contentline-backend/internal/observability"
	"github.com/yungbote/contentline-backend/internal/platform/dbctx"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
)

const (
	defaultResolveCacheSize   = 1024
	defaultResolveConcurrency = 8
	defaultResolveTimeout     = 30 * time.Second
)

// Resolution is the effective content of a version together with the chain it was folded from.
type Resolution struct {
	Version *content.ContentVersion
	Chain   []*content.ContentVersion
	Content content.EffectiveContent
}

// ContentResolver answers "what content is visible at this version".
type ContentResolver interface {
	Resolve(ctx context.Context, versionID uuid.UUID) (*Resolution, error)
	ResolveMany(ctx context.Context, versionIDs []uuid.UUID) (map[uuid.UUID]*Resolution, error)
	AncestryChain(ctx context.Context, versionID uuid.UUID) ([]*content.ContentVersion, error)
	// Invalidate drops every cached resolution held by this process. Writes from other
	// processes are caught by the per-version revision check on every cache hit.
	Invalidate()
}

type ContentResolverDeps struct {
	Runner      aggregates.TxRunner
	Versions    repos.ContentVersionRepo
	Files       repos.ContentFileRepo
	Withdrawals repos.ContentWithdrawalRepo
	MaxDepth    int

	CacheSize   int
	Concurrency int
	// LoadTimeout bounds a shared load, which outlives any single caller's context.
	LoadTimeout time.Duration
	Metrics     *observability.Metrics
}

type cachedResolution struct {
	generation uint64
	res        *Resolution
}

type contentResolver struct {
	log     *logger.Logger
	runner  aggregates.TxRunner
	chain   aggregates.ChainReader
	metrics *observability.Metrics

	cache       *lru.Cache[uuid.UUID, cachedResolution]
	generation  atomic.Uint64
	group       singleflight.Group
	concurrency int
	loadTimeout time.Duration
}

func NewContentResolver(baseLog *logger.Logger, deps ContentResolverDeps) (ContentResolver, error) {
	size := deps.CacheSize
	if size <= 0 {
		size = defaultResolveCacheSize
	}
	cache, err := lru.New[uuid.UUID, cachedResolution](size)
	if err != nil {
		return nil, fmt.Errorf("resolver cache: %w", err)
	}
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = defaultResolveConcurrency
	}
	loadTimeout := deps.LoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = defaultResolveTimeout
	}
	return &contentResolver{
		log:    baseLog.With("service", "ContentResolver"),
		runner: deps.Runner,
		chain: aggregates.ChainReader{
			Versions:    deps.Versions,
			Files:       deps.Files,
			Withdrawals: deps.Withdrawals,
			MaxDepth:    deps.MaxDepth,
		},
		metrics:     deps.Metrics,
		cache:       cache,
		concurrency: concurrency,
		loadTimeout: loadTimeout,
	}, nil
}

func (r *contentResolver) Invalidate() {
	r.generation.Add(1)
	r.cache.Purge()
}

func (r *contentResolver) Resolve(ctx context.Context, versionID uuid.UUID) (*Resolution, error) {
	const op = "Content.Resolver.Resolve"
	if versionID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing version_id", nil)
	}
	gen := r.generation.Load()
	if hit, ok := r.cache.Get(versionID); ok && hit.generation == gen {
		current, err := r.current(ctx, hit.res.Chain)
		if err != nil {
			r.log.Warn("resolver revision check failed", "version_id", versionID, "error", err)
		}
		if current {
			r.metrics.ObserveResolve("hit", 0, 0)
			return cloneResolution(hit.res), nil
		}
		r.metrics.ObserveResolve("stale", 0, 0)
		r.cache.Remove(versionID)
	}

	key := fmt.Sprintf("%s@%d", versionID, gen)
	ch := r.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.loadTimeout)
		defer cancel()
		start := time.Now()
		res, err := r.load(loadCtx, op, versionID)
		if err != nil {
			return nil, err
		}
		r.metrics.ObserveResolve("miss", time.Since(start), len(res.Chain))
		// A write that committed while we were loading bumped the generation; do not
		// publish a result that may predate it.
		if r.generation.Load() == gen {
			r.cache.Add(versionID, cachedResolution{generation: gen, res: res})
		}
		return res, nil
	})
	select {
	case <-ctx.Done():
		r.metrics.ObserveResolve("error", 0, 0)
		return nil, aggregates.MapError(op, ctx.Err())
	case out := <-ch:
		if out.Err != nil {
			r.metrics.ObserveResolve("error", 0, 0)
			return nil, out.Err
		}
		return cloneResolution(out.Val.(*Resolution)), nil
	}
}

// current reports whether every version of a cached chain is still live at the
// revision it was folded with.
func (r *contentResolver) current(ctx context.Context, chain []*content.ContentVersion) (bool, error) {
	ids := make([]uuid.UUID, 0, len(chain))
	for _, v := range chain {
		ids = append(ids, v.ID)
	}
	var revisions map[uuid.UUID]int64
	err := r.runner.InReadTx(ctx, func(dbc dbctx.Context) error {
		var err error
		revisions, err = r.chain.Versions.Revisions(dbc, ids)
		return err
	})
	if err != nil {
		return false, err
	}
	for _, v := range chain {
		if rev, ok := revisions[v.ID]; !ok || rev != v.Revision {
			return false, nil
		}
	}
	return true, nil
}

func (r *contentResolver) load(ctx context.Context, op string, versionID uuid.UUID) (*Resolution, error) {
	var out *Resolution
	err := r.runner.InReadTx(ctx, func(dbc dbctx.Context) error {
		view, chain, err := r.chain.Resolve(dbc, versionID)
		if err != nil {
			return aggregates.LineageError(op, err, "version", versionID.String())
		}
		out = &Resolution{Version: chain[len(chain)-1], Chain: chain, Content: view}
		return nil
	})
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return out, nil
}

func (r *contentResolver) ResolveMany(ctx context.Context, versionIDs []uuid.UUID) (map[uuid.UUID]*Resolution, error) {
	out := make(map[uuid.UUID]*Resolution, len(versionIDs))
	if len(versionIDs) == 0 {
		return out, nil
	}
	results := make([]*Resolution, len(versionIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, id := range versionIDs {
		i, id := i, id
		g.Go(func() error {
			res, err := r.Resolve(gctx, id)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, id := range versionIDs {
		out[id] = results[i]
	}
	return out, nil
}

func (r *contentResolver) AncestryChain(ctx context.Context, versionID uuid.UUID) ([]*content.ContentVersion, error) {
	res, err := r.Resolve(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return res.Chain, nil
}

func cloneResolution(in *Resolution) *Resolution {
	if in == nil {
		return nil
	}
	chain := make([]*content.ContentVersion, len(in.Chain))
	for i, v := range in.Chain {
		cp := *v
		chain[i] = &cp
	}
	return &Resolution{
		Version: chain[len(chain)-1],
		Chain:   chain,
		Content: in.Content.Clone(),
	}
}
