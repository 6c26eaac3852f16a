package aggregates

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/yungbote/contentline-backend/internal/data/repos"
	domainagg "github.com/yungbote/contentline-backend/internal/domain/aggregates"
	"github.com/yungbote/contentline-backend/internal/domain/content"
	"github.com/yungbote/contentline-backend/internal/platform/dbctx"
)

const defaultChangedBy = "system"

type DiffAggregateDeps struct {
	Base BaseDeps

	Versions    repos.ContentVersionRepo
	Files       repos.ContentFileRepo
	Withdrawals repos.ContentWithdrawalRepo
	Changes     repos.VersionChangeRepo

	MaxDepth int
}

type diffAggregate struct {
	deps  DiffAggregateDeps
	chain ChainReader
}

func NewDiffAggregate(deps DiffAggregateDeps) domainagg.DiffAggregate {
	deps.Base = deps.Base.withDefaults()
	return &diffAggregate{
		deps: deps,
		chain: ChainReader{
			Versions:    deps.Versions,
			Files:       deps.Files,
			Withdrawals: deps.Withdrawals,
			MaxDepth:    deps.MaxDepth,
		},
	}
}

func (a *diffAggregate) Contract() domainagg.Contract {
	return domainagg.DiffAggregateContract
}

// FinalizeDiff writes the version's change set against its parent as a new
// generation and marks the version finalized. A concurrent finalize of the same
// version fails fast instead of waiting.
func (a *diffAggregate) FinalizeDiff(ctx context.Context, in domainagg.FinalizeInput) (domainagg.FinalizeResult, error) {
	const op = "Content.Diff.FinalizeDiff"
	var out domainagg.FinalizeResult
	if in.VersionID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing version_id", nil)
	}
	changedBy := strings.TrimSpace(in.ChangedBy)
	if changedBy == "" {
		changedBy = defaultChangedBy
	}
	at := in.At
	if at.IsZero() {
		at = a.deps.Base.Now()
	}
	at = at.UTC()

	err := executeLocked(ctx, a.deps.Base, op, in.VersionID.String(), 0, func(dbc dbctx.Context) error {
		v, err := a.deps.Versions.LockByID(dbc, in.VersionID)
		if err != nil {
			return err
		}
		if v == nil {
			return unknownVersion(op, in.VersionID)
		}
		if v.IsFinalized() && !in.Refinalize {
			return domainagg.NewRefError(domainagg.CodeAlreadyFinalized, op, "version change log already written", "version", v.Code)
		}

		layers, err := a.chain.Layers(dbc, v.ID)
		if err != nil {
			return LineageError(op, err, "version", v.Code)
		}
		n := len(layers)
		parentView := content.Fold(layers[:n-1])
		resolved := content.Fold(layers)
		own := layers[n-1].Files

		changes := content.ComputeChanges(parentView, own, resolved)

		latest, err := a.deps.Changes.LatestGeneration(dbc, v.ID)
		if err != nil {
			return err
		}
		generation := latest
		if v.FinalizeGeneration > generation {
			generation = v.FinalizeGeneration
		}
		generation++

		rows := content.ToRecords(v.ID, generation, changedBy, at, changes)
		if len(rows) > 0 {
			if _, err := a.deps.Changes.Create(dbc, rows); err != nil {
				return err
			}
		}

		ok, err := a.deps.Base.CASGuard.UpdateByGeneration(dbc, "content_version", v.ID, v.FinalizeGeneration, map[string]any{
			"finalized_at":        at,
			"finalize_generation": generation,
			"updated_at":          at,
		})
		if err != nil {
			return err
		}
		if !ok {
			return domainagg.NewRefError(domainagg.CodeConcurrentFinalizeConflict, op, "version was finalized concurrently", "version", v.Code)
		}
		if err := a.deps.Versions.Touch(dbc, v.ID); err != nil {
			return err
		}

		v.FinalizedAt = &at
		v.FinalizeGeneration = generation
		v.Revision++
		v.UpdatedAt = at
		content.SortChanges(rows)
		out = domainagg.FinalizeResult{Version: v, Generation: generation, Changes: rows}
		return nil
	})
	if err != nil {
		return domainagg.FinalizeResult{}, err
	}
	a.deps.Base.Log.Info("content version finalized",
		"version_code", out.Version.Code,
		"generation", out.Generation,
		"changes", len(out.Changes),
		"changed_by", changedBy,
	)
	return out, nil
}
