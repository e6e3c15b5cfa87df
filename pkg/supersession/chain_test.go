package supersession

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hotbray/briar/pkg/models"
)

func TestResolveChain_Linear(t *testing.T) {
	edges := map[string]string{"A": "B", "B": "C"}

	result := ResolveChain("A", edges)

	assert.Equal(t, "A", result.OriginalPartCode)
	assert.Equal(t, "C", result.LatestPartCode)
	assert.Equal(t, 2, result.ChainLength)
	assert.False(t, result.HadLoop)
	assert.Empty(t, result.LoopPartCode)
}

func TestResolveChain_MidChain(t *testing.T) {
	edges := map[string]string{"A": "B", "B": "C"}

	result := ResolveChain("B", edges)

	assert.Equal(t, "C", result.LatestPartCode)
	assert.Equal(t, 1, result.ChainLength)
	assert.False(t, result.HadLoop)
}

func TestResolveChain_Terminal(t *testing.T) {
	edges := map[string]string{"A": "B"}

	result := ResolveChain("Z", edges)

	assert.Equal(t, "Z", result.LatestPartCode)
	assert.Equal(t, 0, result.ChainLength)
	assert.False(t, result.HadLoop)
}

func TestResolveChain_TwoPartLoop(t *testing.T) {
	edges := map[string]string{"A": "B", "B": "A"}

	result := ResolveChain("A", edges)

	assert.True(t, result.HadLoop)
	assert.Equal(t, "A", result.LatestPartCode, "loops must not resolve through the cycle")
	assert.Contains(t, []string{"A", "B"}, result.LoopPartCode)
	assert.Equal(t, 2, result.ChainLength)
}

func TestResolveChain_SelfLoop(t *testing.T) {
	edges := map[string]string{"A": "A"}

	result := ResolveChain("A", edges)

	assert.True(t, result.HadLoop)
	assert.Equal(t, "A", result.LatestPartCode)
	assert.Equal(t, "A", result.LoopPartCode)
	assert.Equal(t, 1, result.ChainLength, "a self-loop is one hop deep")
}

func TestResolveChain_TailIntoLoop(t *testing.T) {
	edges := map[string]string{"A": "B", "B": "C", "C": "B"}

	result := ResolveChain("A", edges)

	assert.True(t, result.HadLoop)
	assert.Equal(t, "A", result.LatestPartCode)
	assert.Equal(t, "B", result.LoopPartCode)
	assert.Equal(t, 3, result.ChainLength, "the hop that closes the loop still counts")
}

func TestResolveChain_TerminatesOnLongChain(t *testing.T) {
	// A strictly linear chain always terminates in at most |edges| hops
	edges := make(map[string]string, 500)
	for i := 0; i < 500; i++ {
		edges[fmt.Sprintf("P%d", i)] = fmt.Sprintf("P%d", i+1)
	}

	result := ResolveChain("P0", edges)

	assert.False(t, result.HadLoop)
	assert.Equal(t, "P500", result.LatestPartCode)
	assert.Equal(t, 500, result.ChainLength)
}

func TestResolveChain_SafetyBound(t *testing.T) {
	// Chains beyond the hop bound are treated as loops rather than followed
	edges := make(map[string]string, MaxChainHops+200)
	for i := 0; i < MaxChainHops+200; i++ {
		edges[fmt.Sprintf("P%d", i)] = fmt.Sprintf("P%d", i+1)
	}

	result := ResolveChain("P0", edges)

	assert.True(t, result.HadLoop)
	assert.Equal(t, "P0", result.LatestPartCode)
}

func TestBuildEdgeMap_LastWriteWins(t *testing.T) {
	links := []models.SupersessionLink{
		{OriginalPartCode: "A", ReplacementPartCode: "B"},
		{OriginalPartCode: "A", ReplacementPartCode: "C"},
		{OriginalPartCode: "B", ReplacementPartCode: "D"},
	}

	edges := BuildEdgeMap(links)

	assert.Equal(t, map[string]string{"A": "C", "B": "D"}, edges)
}
