package vectorindex

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven/mocks"
)

func buildTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Build(context.Background(), "doc-1", testPassages("alpha beta", "gamma delta", "epsilon"), mocks.NewMockEmbeddingService(), DefaultBuildOptions())
	require.NoError(t, err)
	return idx
}

func TestUnmarshal_PreservesQueryResults(t *testing.T) {
	embedder := mocks.NewMockEmbeddingService()
	idx := buildTestIndex(t)

	data, err := Marshal(idx)
	require.NoError(t, err)
	loaded, err := Unmarshal(data)
	require.NoError(t, err)

	for _, q := range []string{"alpha", "delta gamma", "epsilon beta"} {
		want, err := idx.Query(context.Background(), q, embedder, 3)
		require.NoError(t, err)
		got, err := loaded.Query(context.Background(), q, embedder, 3)
		require.NoError(t, err)
		assert.Equal(t, want, got, "query %q", q)
	}
	assert.Equal(t, idx.Model, loaded.Model)
	assert.True(t, idx.BuiltAt.Equal(loaded.BuiltAt))
}

func TestUnmarshal_Corrupt(t *testing.T) {
	data, err := Marshal(buildTestIndex(t))
	require.NoError(t, err)

	flipped := append([]byte(nil), data...)
	flipped[len(flipped)-5] ^= 0xff

	tests := map[string][]byte{
		"empty":          nil,
		"wrong magic":    append([]byte("FAISS\n"), data[len(formatMagic)+1:]...),
		"no checksum":    []byte(formatMagic + "\n"),
		"bad checksum":   []byte(formatMagic + "\nzz\n{}"),
		"flipped byte":   flipped,
		"truncated":      data[:len(data)-10],
		"random garbage": bytes.Repeat([]byte{0x42}, 64),
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal(input)
			assert.True(t, errors.Is(err, domain.ErrIndexCorrupt), "got %v", err)
		})
	}
}

func TestUnmarshal_InconsistentPayload(t *testing.T) {
	idx := buildTestIndex(t)
	idx.Vectors = idx.Vectors[:2]

	data, err := Marshal(idx)
	require.NoError(t, err)

	_, err = Unmarshal(data)
	assert.True(t, errors.Is(err, domain.ErrIndexCorrupt))
}
