// Package compound holds the value types that flow through a mining run:
// the KEGG identifier, the records kept for the output files and the failure
// bookkeeping for identifiers that could not be resolved.
package compound

import (
	"fmt"
	"sort"
)

// ID is an opaque KEGG compound identifier such as C00001.
type ID string

func (id ID) String() string { return string(id) }

// Unknown is written for flat-file fields the KEGG record does not carry.
const Unknown = "Unknown"

// ─────────────────────────────────────────────────────────────────────────────
// Records
// ─────────────────────────────────────────────────────────────────────────────

// Result is a compound that met the similarity threshold.
type Result struct {
	ID         ID      `json:"kegg_id"`
	SMILES     string  `json:"smiles"`
	Similarity float64 `json:"tanimoto_similarity"`
}

// Entry is a compound with its flat-file metadata.
type Entry struct {
	ID      ID     `json:"kegg_id"`
	Name    string `json:"name"`
	Formula string `json:"formula"`
	SMILES  string `json:"smiles"`
}

// Stage names the step at which an identifier failed.
type Stage string

const (
	StageFetch Stage = "fetch"
	StageParse Stage = "parse"
)

// Failure records why an identifier produced no record.
type Failure struct {
	ID     ID     `json:"kegg_id"`
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason"`
}

func (f Failure) String() string {
	return fmt.Sprintf("%s failed at %s: %s", f.ID, f.Stage, f.Reason)
}

// SortResults orders results by similarity, highest first, breaking ties by
// identifier so output files are stable across runs.
func SortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})
}

// SortEntries orders entries by identifier.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
}

// SortFailures orders failures by identifier.
func SortFailures(failures []Failure) {
	sort.SliceStable(failures, func(i, j int) bool { return failures[i].ID < failures[j].ID })
}
