package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbeddingModel struct {
	batches [][]string
	short   bool
	err     error
}

func (f *fakeEmbeddingModel) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, texts)

	n := len(texts)
	if f.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(len(texts[i]))}
	}
	return out, nil
}

func TestNewEmbedderWithConfig(t *testing.T) {
	emb, err := NewEmbedderWithConfig(EmbedderConfig{})
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text:latest", emb.config.Model)
	assert.Equal(t, 32, emb.config.BatchSize)
}

func TestCreateEmbeddingBatches(t *testing.T) {
	model := &fakeEmbeddingModel{}
	emb := newEmbedder(model, embedderDefaults(EmbedderConfig{BatchSize: 2}))

	got, err := emb.CreateEmbedding(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{1}, {2}, {3}, {4}, {5}}, got)
	assert.Equal(t, [][]string{{"a", "bb"}, {"ccc", "dddd"}, {"eeeee"}}, model.batches)
}

func TestCreateEmbeddingErrors(t *testing.T) {
	emb := newEmbedder(&fakeEmbeddingModel{short: true}, embedderDefaults(EmbedderConfig{}))
	_, err := emb.CreateEmbedding(context.Background(), []string{"a", "b"})
	assert.Error(t, err)

	backendErr := errors.New("model not pulled")
	emb = newEmbedder(&fakeEmbeddingModel{err: backendErr}, embedderDefaults(EmbedderConfig{}))
	_, err = emb.CreateEmbedding(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, backendErr)

	got, err := emb.CreateEmbedding(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
