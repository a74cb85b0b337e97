package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/cobrancalabs/analytics-api/internal/canonical"
	"github.com/cobrancalabs/analytics-api/internal/record"
)

// Stage persists raw rows verbatim for audit/replay. Values are scrubbed to
// JSON-safe equivalents (non-finite floats become null, timestamps RFC 3339)
// but keys and shape are preserved untouched.
func Stage(ctx context.Context, rows []canonical.RawRow, organizationID int64, w record.StagingWriter) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	recs := make([]record.StagingRecord, 0, len(rows))
	for _, raw := range rows {
		payload, err := json.Marshal(toJSONable(raw))
		if err != nil {
			return 0, fmt.Errorf("encode staging row: %w", err)
		}
		recs = append(recs, record.StagingRecord{
			OrganizationID: organizationID,
			RawJSON:        string(payload),
			Checksum:       fmt.Sprintf("%016x", xxh3.Hash(payload)),
		})
	}

	return w.SaveStaging(ctx, recs)
}

func toJSONable(raw canonical.RawRow) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = jsonableValue(v)
	}
	return out
}

func jsonableValue(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
	case float32:
		f := float64(t)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case time.Time:
		return t.Format(time.RFC3339)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.Format(time.RFC3339)
	}
	return v
}
