package aggregates

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/yungbote/contentline-backend/internal/data/repos"
	domainagg "github.com/yungbote/contentline-backend/internal/domain/aggregates"
	"github.com/yungbote/contentline-backend/internal/domain/content"
	"github.com/yungbote/contentline-backend/internal/platform/dbctx"
)

// ChainReader loads a version's ancestry and the per-version layers needed to fold
// its effective content. It only reads through dbc, so callers decide the snapshot.
type ChainReader struct {
	Versions    repos.ContentVersionRepo
	Files       repos.ContentFileRepo
	Withdrawals repos.ContentWithdrawalRepo
	MaxDepth    int
}

func (r ChainReader) maxDepth() int {
	if r.MaxDepth < 2 {
		return content.DefaultMaxLineageDepth
	}
	return r.MaxDepth
}

func (r ChainReader) loader(dbc dbctx.Context) content.VersionLoader {
	return func(id uuid.UUID) (*content.ContentVersion, error) {
		return r.Versions.GetByID(dbc, id)
	}
}

// Ancestry returns the chain root-first ending at versionID.
func (r ChainReader) Ancestry(dbc dbctx.Context, versionID uuid.UUID) ([]*content.ContentVersion, error) {
	return content.Ancestry(versionID, r.maxDepth(), r.loader(dbc))
}

// parentChain walks from parentID leaving room for one more version below it.
func (r ChainReader) parentChain(dbc dbctx.Context, parentID uuid.UUID) ([]*content.ContentVersion, error) {
	return content.Ancestry(parentID, r.maxDepth()-1, r.loader(dbc))
}

// Layers returns one layer per chain version, root-first.
func (r ChainReader) Layers(dbc dbctx.Context, versionID uuid.UUID) ([]content.Layer, error) {
	chain, err := r.Ancestry(dbc, versionID)
	if err != nil {
		return nil, err
	}
	return r.layersFor(dbc, chain)
}

func (r ChainReader) layersFor(dbc dbctx.Context, chain []*content.ContentVersion) ([]content.Layer, error) {
	ids := make([]uuid.UUID, 0, len(chain))
	for _, v := range chain {
		ids = append(ids, v.ID)
	}
	files, err := r.Files.ListByVersionIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	withdrawals, err := r.Withdrawals.ListByVersionIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	filesBy := make(map[uuid.UUID][]*content.ContentFile, len(chain))
	for _, f := range files {
		filesBy[f.VersionID] = append(filesBy[f.VersionID], f)
	}
	withdrawnBy := make(map[uuid.UUID][]uuid.UUID, len(chain))
	for _, w := range withdrawals {
		withdrawnBy[w.VersionID] = append(withdrawnBy[w.VersionID], w.ClassID)
	}
	layers := make([]content.Layer, 0, len(chain))
	for _, v := range chain {
		layers = append(layers, content.Layer{Version: v, Files: filesBy[v.ID], Withdrawn: withdrawnBy[v.ID]})
	}
	return layers, nil
}

// Resolve folds the chain of versionID. It also returns the chain it folded.
func (r ChainReader) Resolve(dbc dbctx.Context, versionID uuid.UUID) (content.EffectiveContent, []*content.ContentVersion, error) {
	layers, err := r.Layers(dbc, versionID)
	if err != nil {
		return nil, nil, err
	}
	chain := make([]*content.ContentVersion, 0, len(layers))
	for _, l := range layers {
		chain = append(chain, l.Version)
	}
	return content.Fold(layers), chain, nil
}

// parentView resolves the parent of v, or returns an empty view for roots.
func (r ChainReader) parentView(dbc dbctx.Context, v *content.ContentVersion) (content.EffectiveContent, error) {
	if v.IsRoot() {
		return content.EffectiveContent{}, nil
	}
	view, _, err := r.Resolve(dbc, *v.ParentID)
	return view, err
}

// LineageError turns a failed ancestry walk into a coded aggregate error naming
// the version the walk started from.
func LineageError(op string, err error, refs ...string) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return err
	}
	var code domainagg.ErrorCode
	switch {
	case errors.Is(err, content.ErrCycle), errors.Is(err, content.ErrDepthExceeded):
		code = domainagg.CodeCycleDetected
	case errors.Is(err, content.ErrMissingVersion):
		code = domainagg.CodeUnknownVersion
	default:
		return err
	}
	out := &domainagg.Error{Code: code, Op: op, Message: err.Error(), Cause: err}
	if len(refs) > 0 {
		out.Refs = make(map[string]string, len(refs)/2)
		for i := 0; i+1 < len(refs); i += 2 {
			out.Refs[refs[i]] = refs[i+1]
		}
	}
	return out
}

func unknownVersion(op string, ref fmt.Stringer) error {
	return domainagg.NewRefError(domainagg.CodeUnknownVersion, op, "version not found", "version", ref.String())
}
