// Package supersession resolves part replacement chains. Edges form a graph
// with out-degree at most one per part, so a flat map plus a visited set is
// the whole traversal machinery.
package supersession

import "github.com/hotbray/briar/pkg/models"

// MaxChainHops bounds a single traversal. A chain this long is corrupt data;
// the bound converts runaway traversal into a detected loop.
const MaxChainHops = 1000

// ChainResult is the outcome of following one part's supersession chain
type ChainResult struct {
	OriginalPartCode string
	LatestPartCode   string
	ChainLength      int
	HadLoop          bool
	LoopPartCode     string
}

// ResolveChain follows start -> edges[start] -> ... until a part with no
// outgoing edge (terminal) or a previously visited part reappears (loop).
// On a loop the latest part is the original: a cycle must never be resolved
// through, so the caller substitutes nothing.
func ResolveChain(start string, edges map[string]string) ChainResult {
	result := ChainResult{
		OriginalPartCode: start,
		LatestPartCode:   start,
	}

	visited := map[string]bool{start: true}
	current := start

	for {
		next, ok := edges[current]
		if !ok {
			result.LatestPartCode = current
			return result
		}

		// The hop is counted before loop detection, so a looped row still
		// reports how far the chain ran: a self-loop is one hop.
		result.ChainLength++
		if visited[next] || result.ChainLength > MaxChainHops {
			result.HadLoop = true
			result.LoopPartCode = next
			result.LatestPartCode = start
			return result
		}

		visited[next] = true
		current = next
	}
}

// BuildEdgeMap collapses stored links into the flat edge map the traversal
// consumes. Duplicated originals resolve last-write-wins in link order.
func BuildEdgeMap(links []models.SupersessionLink) map[string]string {
	edges := make(map[string]string, len(links))
	for _, link := range links {
		edges[link.OriginalPartCode] = link.ReplacementPartCode
	}
	return edges
}
