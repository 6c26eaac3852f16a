package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/contentline-backend/internal/domain"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
	"github.com/yungbote/contentline-backend/internal/platform/neo4jdb"
)

// UpsertVersionLineage projects versions as (:ContentVersion) nodes linked to their
// parents by DERIVED_FROM. Parent edges are replaced, so a reparent moves the edge.
func UpsertVersionLineage(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, versions []*types.ContentVersion) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	nodes := make([]map[string]any, 0, len(versions))
	rels := make([]map[string]any, 0, len(versions))
	for _, v := range versions {
		if v == nil || v.ID == uuid.Nil {
			continue
		}
		finalizedAt := ""
		if v.FinalizedAt != nil {
			finalizedAt = v.FinalizedAt.UTC().Format(time.RFC3339Nano)
		}
		nodes = append(nodes, map[string]any{
			"id":                  v.ID.String(),
			"code":                v.Code,
			"cohort_id":           v.CohortID.String(),
			"module_id":           v.ModuleID.String(),
			"version_number":      v.VersionNumber,
			"status":              string(v.Status),
			"finalized_at":        finalizedAt,
			"finalize_generation": int64(v.FinalizeGeneration),
			"synced_at":           now,
		})
		if !v.IsRoot() {
			rels = append(rels, map[string]any{
				"child_id":  v.ID.String(),
				"parent_id": v.ParentID.String(),
				"synced_at": now,
			})
		}
	}
	if len(nodes) == 0 {
		return nil
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	// Create schema helpers (best-effort; may fail for restricted users).
	if res, err := session.Run(ctx, `CREATE CONSTRAINT content_version_id_unique IF NOT EXISTS FOR (v:ContentVersion) REQUIRE v.id IS UNIQUE`, nil); err != nil {
		if log != nil {
			log.Warn("neo4j schema init failed (continuing)", "error", err)
		}
	} else {
		_, _ = res.Consume(ctx)
	}
	if res, err := session.Run(ctx, `CREATE INDEX content_version_lineage_idx IF NOT EXISTS FOR (v:ContentVersion) ON (v.cohort_id, v.module_id)`, nil); err != nil {
		if log != nil {
			log.Warn("neo4j schema init failed (continuing)", "error", err)
		}
	} else {
		_, _ = res.Consume(ctx)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
UNWIND $nodes AS n
MERGE (v:ContentVersion {id: n.id})
SET v += n
WITH v
OPTIONAL MATCH (v)-[old:DERIVED_FROM]->()
DELETE old
`, map[string]any{"nodes": nodes})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		if len(rels) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $rels AS r
MATCH (c:ContentVersion {id: r.child_id})
MERGE (p:ContentVersion {id: r.parent_id})
MERGE (c)-[e:DERIVED_FROM]->(p)
SET e.synced_at = r.synced_at
`, map[string]any{"rels": rels})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j lineage sync: %w", err)
	}
	return nil
}

// DeleteVersionNode removes a soft-deleted version from the projection.
func DeleteVersionNode(ctx context.Context, client *neo4jdb.Client, versionID uuid.UUID) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if versionID == uuid.Nil {
		return fmt.Errorf("neo4j lineage delete: missing versionID")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (v:ContentVersion {id: $id}) DETACH DELETE v`, map[string]any{"id": versionID.String()})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}
