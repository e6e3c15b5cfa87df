package supersession

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/hotbray/briar/pkg/models"
	"github.com/hotbray/briar/pkg/partcode"
	"github.com/hotbray/briar/pkg/tracing"
)

// ErrNotFound is returned when a part has no supersession record anywhere:
// no cached row and no outgoing edge in the link set.
var ErrNotFound = httperror.NewHTTPError(http.StatusNotFound, "no supersession record for part")

// Store is the persistence contract the resolver reads through. ReplaceResolved
// must execute the delete and reinsert as one transaction so concurrent
// readers see either the old table or the new one, never a partial rebuild.
type Store interface {
	GetResolved(ctx context.Context, tenantID, partCode string) (*models.SupersessionResolved, error)
	ListLinks(ctx context.Context, tenantID string) ([]models.SupersessionLink, error)
	ReplaceResolved(ctx context.Context, tenantID, batchID string, rows []models.SupersessionResolved) error
}

// Resolver answers part resolution from the cached table, falling back to an
// inline traversal over the full edge set when the cache is cold.
type Resolver struct {
	store  Store
	logger ectologger.Logger
}

func NewResolver(store Store, logger ectologger.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger,
	}
}

// Resolve returns the resolution row for a part, computing it on demand when
// no cached row exists. ErrNotFound when the part was never superseded.
func (r *Resolver) Resolve(ctx context.Context, tenantID, code string) (*models.SupersessionResolved, error) {
	ctx, span := tracing.StartSpan(ctx, "supersession.Resolver.Resolve")
	defer span.End()

	code = partcode.Normalize(code)
	if code == "" {
		return nil, ErrNotFound
	}

	row, err := r.store.GetResolved(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return row, nil
	}

	// Cold cache: load the full edge set and traverse inline
	links, err := r.store.ListLinks(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	edges := BuildEdgeMap(links)
	if _, ok := edges[code]; !ok {
		return nil, ErrNotFound
	}

	result := ResolveChain(code, edges)
	if result.HadLoop {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"tenant_id": tenantID,
			"part_code": code,
			"loop_at":   result.LoopPartCode,
		}).Warn("Supersession loop detected, keeping original part")
	}

	return resolvedRow(tenantID, "", result, time.Now().UTC()), nil
}

// RebuildStats summarizes one resolution table rebuild
type RebuildStats struct {
	ResolvedCount int
	LoopCount     int
}

// RebuildAll recomputes the whole resolution table from the given edge map
// and replaces the stored table atomically. Callers serialize imports;
// concurrent rebuilds for the same tenant are not supported.
func (r *Resolver) RebuildAll(ctx context.Context, tenantID string, edges map[string]string, batchID string) (RebuildStats, error) {
	ctx, span := tracing.StartSpan(ctx, "supersession.Resolver.RebuildAll")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"batch_id":  batchID,
		"edges":     len(edges),
	})

	originals := make([]string, 0, len(edges))
	for original := range edges {
		originals = append(originals, original)
	}
	sort.Strings(originals)

	now := time.Now().UTC()
	rows := make([]models.SupersessionResolved, 0, len(originals))
	loops := 0
	for _, original := range originals {
		result := ResolveChain(original, edges)
		if result.HadLoop {
			loops++
		}
		rows = append(rows, *resolvedRow(tenantID, batchID, result, now))
	}

	if err := r.store.ReplaceResolved(ctx, tenantID, batchID, rows); err != nil {
		log.WithError(err).Error("Failed to replace supersession resolution table")
		return RebuildStats{}, err
	}

	if loops > 0 {
		log.WithFields(map[string]any{"loop_count": loops}).Warn("Supersession edge set contains loops")
	}
	log.WithFields(map[string]any{"row_count": len(rows)}).Info("Supersession resolution table rebuilt")

	return RebuildStats{ResolvedCount: len(rows), LoopCount: loops}, nil
}

func resolvedRow(tenantID, batchID string, result ChainResult, now time.Time) *models.SupersessionResolved {
	row := &models.SupersessionResolved{
		TenantID:         tenantID,
		OriginalPartCode: result.OriginalPartCode,
		LatestPartCode:   result.LatestPartCode,
		ChainLength:      result.ChainLength,
		HadLoop:          result.HadLoop,
		SourceBatchID:    batchID,
		ComputedAt:       now,
	}
	if result.LoopPartCode != "" {
		loopAt := result.LoopPartCode
		row.LoopPartCode = &loopAt
	}
	return row
}
