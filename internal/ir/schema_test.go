package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relex/internal/relgraph"
)

func sampleRecord() relgraph.Record {
	return relgraph.Record{
		Category: relgraph.CategoryConcurrency,
		Resource: "mutex",
		Identity: "m",
		Status:   relgraph.StatusNormal,
		Events: []relgraph.RoleEvent{
			{Role: "lock", Loc: relgraph.Location{Line: 3, Column: 4}},
			{Role: "unlock", Loc: relgraph.Location{Line: 8, Column: 4}},
		},
		Confidence: 0.9,
	}
}

func TestRecordID(t *testing.T) {
	t.Run("Deterministic", func(t *testing.T) {
		assert.Equal(t, RecordID("main.c", sampleRecord()), RecordID("main.c", sampleRecord()))
	})

	t.Run("Sensitive to semantic fields", func(t *testing.T) {
		base := RecordID("main.c", sampleRecord())

		leaked := sampleRecord()
		leaked.Status = relgraph.StatusLeaked
		assert.NotEqual(t, base, RecordID("main.c", leaked))

		other := sampleRecord()
		other.Identity = "n"
		assert.NotEqual(t, base, RecordID("main.c", other))

		assert.NotEqual(t, base, RecordID("other.c", sampleRecord()))
	})

	t.Run("Readable prefix", func(t *testing.T) {
		assert.Contains(t, RecordID("main.c", sampleRecord()), "concurrency/mutex:m:")
	})
}

func TestSnapshot(t *testing.T) {
	b := relgraph.NewBuilder("main.c", "c")
	b.AddRecord(sampleRecord())
	b.AddCallEdge(relgraph.CallEdge{Caller: "f", Callee: "g", Kind: relgraph.CallDirect, Loc: relgraph.Location{Line: 5}})
	b.AddRegion(relgraph.Region{StartLine: 1, EndLine: 2, Condition: "DEBUG"})
	g := b.Build()

	snap := Snapshot(g)
	assert.Equal(t, SchemaVersion, snap.Version)
	assert.Equal(t, "main.c", snap.File)
	assert.Equal(t, "c", snap.Language)
	require.Len(t, snap.Records, 1)
	require.Len(t, snap.CallEdges, 1)
	require.Len(t, snap.Regions, 1)
	assert.Empty(t, snap.Sequences)
}
