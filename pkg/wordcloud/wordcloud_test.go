package wordcloud_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/docsift/internal/models"
	"github.com/xhad/docsift/pkg/wordcloud"
)

var sampleWords = []models.WordCount{
	{Word: "revenue", Count: 12},
	{Word: "growth", Count: 9},
	{Word: "customers", Count: 7},
	{Word: "quarter", Count: 5},
	{Word: "margin", Count: 3},
	{Word: "europe", Count: 2},
	{Word: "hiring", Count: 1},
}

func TestRender(t *testing.T) {
	r, err := wordcloud.NewWithConfig(wordcloud.RendererConfig{})
	require.NoError(t, err)

	data, err := r.Render(context.Background(), sampleWords)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy())

	drawn := false
	for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y && !drawn; y++ {
		for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
			if cr, cg, cb, _ := img.At(x, y).RGBA(); cr|cg|cb != 0 {
				drawn = true
				break
			}
		}
	}
	assert.True(t, drawn, "some text is drawn over the background")
}

func TestRenderIsDeterministic(t *testing.T) {
	r, err := wordcloud.NewWithConfig(wordcloud.RendererConfig{Width: 400, Height: 200})
	require.NoError(t, err)

	first, err := r.Render(context.Background(), sampleWords)
	require.NoError(t, err)
	second, err := r.Render(context.Background(), sampleWords)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRenderManyWords(t *testing.T) {
	r, err := wordcloud.NewWithConfig(wordcloud.RendererConfig{Width: 200, Height: 100, MaxWords: 300})
	require.NoError(t, err)

	var words []models.WordCount
	for i := 0; i < 300; i++ {
		words = append(words, models.WordCount{Word: strings.Repeat("w", 3+i%7), Count: 300 - i})
	}

	data, err := r.Render(context.Background(), words)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestRenderErrors(t *testing.T) {
	r, err := wordcloud.NewWithConfig(wordcloud.RendererConfig{})
	require.NoError(t, err)

	_, err = r.Render(context.Background(), nil)
	assert.ErrorIs(t, err, wordcloud.ErrNoWords)

	_, err = r.Render(context.Background(), []models.WordCount{{Word: "zero", Count: 0}})
	assert.ErrorIs(t, err, wordcloud.ErrNoWords)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Render(ctx, sampleWords)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = wordcloud.NewWithConfig(wordcloud.RendererConfig{RelativeScaling: 1.5})
	assert.Error(t, err)
}

func TestDataURI(t *testing.T) {
	uri := wordcloud.DataURI([]byte{0x89, 'P', 'N', 'G'})

	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, decoded)
}
