package vectorindex

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// formatMagic opens every serialized index
const formatMagic = "SDQX/1"

// persistedIndex is the on-disk shape of an Index
type persistedIndex struct {
	DocumentID string           `json:"document_id"`
	Model      string           `json:"model"`
	Dimensions int              `json:"dimensions"`
	Metric     string           `json:"metric"`
	BuiltAt    time.Time        `json:"built_at"`
	Passages   []domain.Passage `json:"passages"`
	Vectors    [][]float32      `json:"vectors"`
}

// Marshal serializes the index as a magic line, a blake2b-256 checksum
// line and the JSON payload.
func Marshal(idx *Index) ([]byte, error) {
	payload, err := json.Marshal(persistedIndex{
		DocumentID: idx.DocumentID,
		Model:      idx.Model,
		Dimensions: idx.Dimensions,
		Metric:     idx.Metric,
		BuiltAt:    idx.BuiltAt,
		Passages:   idx.Passages,
		Vectors:    idx.Vectors,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal index: %w", err)
	}

	sum := blake2b.Sum256(payload)

	var buf bytes.Buffer
	buf.Grow(len(formatMagic) + 2 + hex.EncodedLen(len(sum)) + len(payload))
	buf.WriteString(formatMagic)
	buf.WriteByte('\n')
	buf.WriteString(hex.EncodeToString(sum[:]))
	buf.WriteByte('\n')
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Unmarshal parses data written by Marshal.
// Any damage is reported as domain.ErrIndexCorrupt.
func Unmarshal(data []byte) (*Index, error) {
	magic, rest, ok := bytes.Cut(data, []byte{'\n'})
	if !ok || string(magic) != formatMagic {
		return nil, fmt.Errorf("%w: unknown format", domain.ErrIndexCorrupt)
	}

	checksum, payload, ok := bytes.Cut(rest, []byte{'\n'})
	if !ok {
		return nil, fmt.Errorf("%w: missing checksum", domain.ErrIndexCorrupt)
	}
	want, err := hex.DecodeString(string(checksum))
	if err != nil || len(want) != blake2b.Size256 {
		return nil, fmt.Errorf("%w: malformed checksum", domain.ErrIndexCorrupt)
	}
	if got := blake2b.Sum256(payload); !bytes.Equal(got[:], want) {
		return nil, fmt.Errorf("%w: checksum mismatch", domain.ErrIndexCorrupt)
	}

	var p persistedIndex
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
	}

	if len(p.Passages) == 0 {
		return nil, fmt.Errorf("%w: no passages", domain.ErrIndexCorrupt)
	}
	if len(p.Passages) != len(p.Vectors) {
		return nil, fmt.Errorf("%w: %d passages but %d vectors", domain.ErrIndexCorrupt, len(p.Passages), len(p.Vectors))
	}
	if p.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %d", domain.ErrIndexCorrupt, p.Dimensions)
	}
	for i, v := range p.Vectors {
		if len(v) != p.Dimensions {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", domain.ErrIndexCorrupt, i, len(v), p.Dimensions)
		}
	}
	if p.Metric != MetricCosine {
		return nil, fmt.Errorf("%w: unsupported metric %q", domain.ErrIndexCorrupt, p.Metric)
	}

	return &Index{
		DocumentID: p.DocumentID,
		Model:      p.Model,
		Dimensions: p.Dimensions,
		Metric:     p.Metric,
		Passages:   p.Passages,
		Vectors:    p.Vectors,
		BuiltAt:    p.BuiltAt,
	}, nil
}
