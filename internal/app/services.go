package app

import (
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/contentline-backend/internal/data/aggregates"
	"github.com/yungbote/contentline-backend/internal/data/repos"
	"github.com/yungbote/contentline-backend/internal/observability"
	"github.com/yungbote/contentline-backend/internal/platform/locks"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
	"github.com/yungbote/contentline-backend/internal/platform/neo4jdb"
	"github.com/yungbote/contentline-backend/internal/services"
)

// ServiceOptions tunes the content stack. Zero values fall back to package defaults.
type ServiceOptions struct {
	Metrics *observability.Metrics
	Locks   locks.Locker
	Neo4j   *neo4jdb.Client
	Now     func() time.Time

	MaxDepth           int
	EditLockWait       time.Duration
	ResolverCacheSize  int
	ResolveConcurrency int
	ResolveTimeout     time.Duration
}

func (c Config) serviceOptions(clients Clients, metrics *observability.Metrics) ServiceOptions {
	return ServiceOptions{
		Metrics:            metrics,
		Locks:              clients.Locks,
		Neo4j:              clients.Neo4j,
		MaxDepth:           c.MaxLineageDepth,
		EditLockWait:       c.EditLockWait,
		ResolverCacheSize:  c.ResolverCacheSize,
		ResolveConcurrency: c.ResolveConcurrency,
		ResolveTimeout:     c.ResolveTimeout,
	}
}

type Services struct {
	Repos    repos.Set
	Resolver services.ContentResolver
	Content  services.ContentService
	Importer *services.LineageImporter
}

// WireServices builds the content stack on db. Every aggregate shares one
// BaseDeps so lineage edits and finalization contend on the same locks.
func WireServices(db *gorm.DB, log *logger.Logger, opts ServiceOptions) (Services, error) {
	log.Info("Wiring services...")
	set := repos.NewSet(db, log)

	base := aggregates.NewBaseDeps(db, log)
	if opts.Locks != nil {
		base.Locks = opts.Locks
	}
	if opts.Now != nil {
		base.Now = opts.Now
	}
	if opts.Metrics != nil {
		base.Hooks = aggregates.NewObservabilityHooks(opts.Metrics)
	}

	resolver, err := services.NewContentResolver(log, services.ContentResolverDeps{
		Runner:      base.Runner,
		Versions:    set.Versions,
		Files:       set.Files,
		Withdrawals: set.Withdrawals,
		MaxDepth:    opts.MaxDepth,
		CacheSize:   opts.ResolverCacheSize,
		Concurrency: opts.ResolveConcurrency,
		LoadTimeout: opts.ResolveTimeout,
		Metrics:     opts.Metrics,
	})
	if err != nil {
		return Services{}, err
	}

	content := services.NewContentService(log, services.ContentServiceDeps{
		Repos: set,
		Lineage: aggregates.NewLineageAggregate(aggregates.LineageAggregateDeps{
			Base:        base,
			Versions:    set.Versions,
			Files:       set.Files,
			Withdrawals: set.Withdrawals,
			Assignments: set.Assignments,
			Directory:   set.Directory,
			MaxDepth:    opts.MaxDepth,
			LockWait:    opts.EditLockWait,
		}),
		Diff: aggregates.NewDiffAggregate(aggregates.DiffAggregateDeps{
			Base:        base,
			Versions:    set.Versions,
			Files:       set.Files,
			Withdrawals: set.Withdrawals,
			Changes:     set.Changes,
			MaxDepth:    opts.MaxDepth,
		}),
		Assignments: aggregates.NewAssignmentAggregate(aggregates.AssignmentAggregateDeps{
			Base:        base,
			Assignments: set.Assignments,
			Versions:    set.Versions,
			Directory:   set.Directory,
		}),
		Resolver:  resolver,
		Notifier:  services.NewSyncNotifier(log, set.SyncLog, opts.Metrics),
		Projector: services.NewLineageProjector(opts.Neo4j, log, opts.Metrics),
	})

	return Services{
		Repos:    set,
		Resolver: resolver,
		Content:  content,
		Importer: services.NewLineageImporter(log, content),
	}, nil
}
