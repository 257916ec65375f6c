package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"relex/internal/relgraph"
)

// GraphSnapshot is the serialized view of one file's RelationshipGraph,
// used by the CLI's JSON output and the sqlite store. The in-memory graph
// itself never outlives its analysis run.
type GraphSnapshot struct {
	Version    string                    `json:"version"`
	File       string                    `json:"file"`
	Language   string                    `json:"language"`
	Records    []relgraph.Record         `json:"records"`
	CallEdges  []relgraph.CallEdge       `json:"call_edges"`
	Regions    []relgraph.Region         `json:"regions"`
	Sequences  []relgraph.AcquireSequence `json:"sequences,omitempty"`
	Unresolved []relgraph.Unresolved     `json:"unresolved,omitempty"`
}

// SchemaVersion tags snapshots so consumers can detect format drift.
const SchemaVersion = "1"

// Snapshot converts a built graph into its serialized form.
func Snapshot(g *relgraph.Graph) GraphSnapshot {
	return GraphSnapshot{
		Version:    SchemaVersion,
		File:       g.File,
		Language:   g.Language,
		Records:    g.Records,
		CallEdges:  g.CallEdges,
		Regions:    g.Regions,
		Sequences:  g.Sequences,
		Unresolved: g.Unresolved,
	}
}

// RecordID creates a deterministic identifier for one record, derived from
// semantic identity fields. Identical input graphs yield identical IDs.
func RecordID(file string, r relgraph.Record) string {
	roles := make([]string, 0, len(r.Events))
	for _, ev := range r.Events {
		roles = append(roles, fmt.Sprintf("%s@%d:%d", ev.Role, ev.Loc.Line, ev.Loc.Column))
	}

	fingerprint := strings.Join([]string{
		file,
		string(r.Category),
		r.Resource,
		r.Identity,
		string(r.Status),
		strings.Join(roles, ","),
	}, "|")

	sum := sha256.Sum256([]byte(fingerprint))
	short := hex.EncodeToString(sum[:8])
	return fmt.Sprintf("%s/%s:%s:%s", r.Category, r.Resource, r.Identity, short)
}
