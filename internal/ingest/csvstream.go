package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cobrancalabs/analytics-api/internal/canonical"
)

const (
	// BulkBatchSize is the row grouping for the background path; each batch
	// is normalized by the same stage as the interactive path but persisted
	// through the columnar writer.
	BulkBatchSize = 20000

	// readBufferSize is the chunk size for streaming from temporary storage.
	readBufferSize = 64 * 1024

	// sniffSampleSize bounds the leading sample used for delimiter detection.
	sniffSampleSize = 8192
)

var delimiterCandidates = []byte{',', ';', '\t', '|'}

// DetectDelimiter picks the field separator by comparing candidate frequency
// in a leading sample. Only the first line is counted when one is present, so
// quoted values deeper in the file cannot skew the choice. Ties and empty
// samples fall back to a comma.
func DetectDelimiter(sample []byte) rune {
	if i := bytes.IndexByte(sample, '\n'); i > 0 {
		sample = sample[:i]
	}
	best := byte(',')
	bestCount := 0
	for _, c := range delimiterCandidates {
		if n := bytes.Count(sample, []byte{c}); n > bestCount {
			best = c
			bestCount = n
		}
	}
	return rune(best)
}

// StreamBatches reads a delimited file from temporary storage in fixed-size
// chunks, detects the delimiter from a leading sample, maps each data row
// onto the header columns and hands rows to fn in batches of batchSize. The
// final partial batch is delivered too. Returns the total row count.
func StreamBatches(ctx context.Context, path string, batchSize int, fn func(rows []canonical.RawRow) error) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open source file: %w", err)
	}
	defer func() { _ = f.Close() }()

	br := bufio.NewReaderSize(f, readBufferSize)
	sample, err := br.Peek(sniffSampleSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("sample source file: %w", err)
	}

	cr := csv.NewReader(br)
	cr.Comma = DetectDelimiter(sample)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("read header: %w", err)
	}

	var (
		total int64
		batch = make([]canonical.RawRow, 0, batchSize)
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, fmt.Errorf("read row: %w", err)
		}

		row := make(canonical.RawRow, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		batch = append(batch, row)
		total++

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}

	return total, flush()
}
