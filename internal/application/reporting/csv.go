// Package reporting writes the artifacts of a mining run: result tables,
// the failed-identifier list and the structure grid image.
package reporting

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/turtacn/keggminer/internal/domain/compound"
	"github.com/turtacn/keggminer/pkg/errors"
)

var (
	similarityHeader = []string{"KEGG_ID", "SMILES", "Tanimoto_Similarity"}
	metadataHeader   = []string{"KEGG_ID", "Name", "Formula", "SMILES"}
	failedHeader     = []string{"KEGG_ID"}
)

// FormatScore renders a similarity the way the historical result files did:
// shortest round-trip decimal, always with a fractional part.
func FormatScore(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// WriteSimilarityCSV writes results in the order given.
func WriteSimilarityCSV(w io.Writer, results []compound.Result) error {
	return writeRecords(w, similarityHeader, len(results), func(i int) []string {
		r := results[i]
		return []string{r.ID.String(), r.SMILES, FormatScore(r.Similarity)}
	})
}

func WriteMetadataCSV(w io.Writer, entries []compound.Entry) error {
	return writeRecords(w, metadataHeader, len(entries), func(i int) []string {
		e := entries[i]
		return []string{e.ID.String(), e.Name, e.Formula, e.SMILES}
	})
}

func WriteFailedCSV(w io.Writer, ids []compound.ID) error {
	return writeRecords(w, failedHeader, len(ids), func(i int) []string {
		return []string{ids[i].String()}
	})
}

func writeRecords(w io.Writer, header []string, n int, row func(int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputFailed, "failed to write csv header")
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return errors.Wrap(err, errors.ErrCodeOutputFailed, "failed to write csv record")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputFailed, "failed to flush csv")
	}
	return nil
}

// writeFile creates path and hands it to write. The file is closed before
// returning and a close error is reported.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputFailed, "cannot create output file").WithDetail(path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, errors.ErrCodeOutputFailed, "cannot close output file").WithDetail(path)
		}
	}()
	if err := write(f); err != nil {
		var app *errors.AppError
		if errors.As(err, &app) {
			return app.WithDetail(path)
		}
		return errors.Wrap(err, errors.ErrCodeOutputFailed, "cannot write output file").WithDetail(path)
	}
	return nil
}
