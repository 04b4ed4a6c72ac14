package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/docsift/internal/models"
	"github.com/xhad/docsift/pkg/capability"
	"github.com/xhad/docsift/pkg/pipeline"
	"github.com/xuri/excelize/v2"
)

type fakeExtractor struct {
	units []models.LineUnit
	err   error
	panic bool
	calls atomic.Int32
}

func (f *fakeExtractor) Extract(ctx context.Context, data []byte, format models.Format) ([]models.LineUnit, error) {
	f.calls.Add(1)
	if f.panic {
		panic("corrupt xref table")
	}
	return f.units, f.err
}

// slowSentiment answers in reverse order of arrival so a naive collector
// would scramble the results.
type slowSentiment struct{}

func (slowSentiment) Classify(ctx context.Context, text string) (models.Sentiment, error) {
	if strings.HasPrefix(text, "line 1 ") {
		time.Sleep(30 * time.Millisecond)
	}
	if strings.Contains(text, "good") {
		return models.SentimentPositive, nil
	}
	return models.SentimentNegative, nil
}

type fakeStore struct {
	mu         sync.Mutex
	saved      []*models.Report
	units      [][]models.LineUnit
	embeddings [][][]float32
	err        error
}

func (f *fakeStore) Save(ctx context.Context, report *models.Report, units []models.LineUnit, embeddings [][]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, report)
	f.units = append(f.units, units)
	f.embeddings = append(f.embeddings, embeddings)
	return f.err
}

func (f *fakeStore) Get(ctx context.Context, id string) (*models.Report, error) { return nil, nil }

func (f *fakeStore) SimilarLines(ctx context.Context, embedding []float32, limit int) ([]models.StoredLine, error) {
	return nil, nil
}

func (f *fakeStore) Close() {}

type lengthEmbedder struct{}

func (lengthEmbedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

var fixedNow = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func sampleUnits(n int) []models.LineUnit {
	units := make([]models.LineUnit, n)
	for i := range units {
		mood := "bad"
		if i%2 == 0 {
			mood = "good"
		}
		units[i] = models.LineUnit{SequenceIndex: i + 1, Location: i/3 + 1, Text: fmt.Sprintf("line %d is %s enough", i+1, mood)}
	}
	return units
}

func newOrchestrator(ext *fakeExtractor, opts ...func(*pipeline.Config)) *pipeline.Orchestrator {
	config := pipeline.Config{
		Extractor: ext,
		Registry:  capability.NewRegistry(capability.WithSentiment(slowSentiment{}, "fake")),
		Now:       fixedNow,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return pipeline.NewWithConfig(config)
}

func TestRun_RejectsOversizedUpload(t *testing.T) {
	ext := &fakeExtractor{units: sampleUnits(1)}
	o := newOrchestrator(ext)

	_, err := o.Run(context.Background(), pipeline.Request{
		Data:     make([]byte, 60<<20),
		Filename: "big.pdf",
	})

	var clientErr *pipeline.ClientInputError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, clientErr.Status)
	assert.Contains(t, clientErr.Message, "60 MiB")
	assert.Contains(t, clientErr.Message, "50 MiB")
	assert.Equal(t, int32(0), ext.calls.Load())
}

func TestRun_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		req  pipeline.Request
		want string
	}{
		{
			name: "unsupported extension",
			req:  pipeline.Request{Data: []byte("hello"), Filename: "notes.txt"},
			want: "File must be a PDF or Excel file",
		},
		{
			name: "invalid analysis type",
			req:  pipeline.Request{Data: []byte("hello"), Filename: "a.pdf", Mode: "everything"},
			want: "Invalid analysis type",
		},
		{
			name: "empty file",
			req:  pipeline.Request{Filename: "a.xlsx"},
			want: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := &fakeExtractor{units: sampleUnits(1)}
			_, err := newOrchestrator(ext).Run(context.Background(), tt.req)

			var clientErr *pipeline.ClientInputError
			require.ErrorAs(t, err, &clientErr)
			assert.Equal(t, http.StatusBadRequest, clientErr.Status)
			assert.Contains(t, clientErr.Message, tt.want)
			assert.Equal(t, int32(0), ext.calls.Load())
		})
	}
}

func TestRun_ExtractionErrorIsClientError(t *testing.T) {
	o := pipeline.NewWithConfig(pipeline.Config{})

	_, err := o.Run(context.Background(), pipeline.Request{Data: []byte("not a pdf at all"), Filename: "broken.pdf"})

	var clientErr *pipeline.ClientInputError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, http.StatusBadRequest, clientErr.Status)
	assert.Contains(t, clientErr.Message, "PDF")
}

func TestRun_PanicBecomesServerFault(t *testing.T) {
	_, err := newOrchestrator(&fakeExtractor{panic: true}).Run(context.Background(), pipeline.Request{
		Data:     []byte("%PDF-1.4"),
		Filename: "a.pdf",
	})

	var fault *pipeline.ServerFault
	require.ErrorAs(t, err, &fault)
	assert.Contains(t, fault.Error(), "corrupt xref table")
}

func TestRun_UnexpectedErrorBecomesServerFault(t *testing.T) {
	_, err := newOrchestrator(&fakeExtractor{err: errors.New("disk on fire")}).Run(context.Background(), pipeline.Request{
		Data:     []byte("%PDF-1.4"),
		Filename: "a.pdf",
	})

	var fault *pipeline.ServerFault
	require.ErrorAs(t, err, &fault)
}

func TestRun_Modes(t *testing.T) {
	tests := []struct {
		mode           models.AnalysisMode
		wantIndividual bool
		wantCombined   bool
	}{
		{mode: models.ModeIndividual, wantIndividual: true},
		{mode: models.ModeCombined, wantCombined: true},
		{mode: models.ModeBoth, wantIndividual: true, wantCombined: true},
		{mode: "", wantIndividual: true, wantCombined: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			o := newOrchestrator(&fakeExtractor{units: sampleUnits(5)})

			report, err := o.Run(context.Background(), pipeline.Request{Data: []byte("x"), Filename: "a.pdf", Mode: tt.mode})
			require.NoError(t, err)

			assert.Equal(t, tt.wantIndividual, report.IndividualAnalysis != nil)
			assert.Equal(t, tt.wantCombined, report.CombinedAnalysis != nil)
			assert.Equal(t, "PDF", report.FileType)
			assert.Equal(t, 5, report.TotalLines)
			assert.Equal(t, 2, report.TotalPages)
			assert.Equal(t, map[string]bool{"sentiment": true, "summary": false, "entities": false}, report.ModelsAvailable)

			if tt.wantCombined {
				require.NotNil(t, report.CombinedAnalysis.OverallSentiment)
				assert.Equal(t, models.SentimentPositive, *report.CombinedAnalysis.OverallSentiment)
				assert.Equal(t, map[models.Sentiment]int{models.SentimentPositive: 3, models.SentimentNegative: 2},
					report.CombinedAnalysis.SentimentDistribution)
			}
		})
	}
}

func TestRun_KeepsSequenceOrder(t *testing.T) {
	var mu sync.Mutex
	var progress [][2]int
	o := newOrchestrator(&fakeExtractor{units: sampleUnits(12)}, func(c *pipeline.Config) { c.Workers = 4 })

	report, err := o.Run(context.Background(), pipeline.Request{
		Data:     []byte("x"),
		Filename: "a.pdf",
		Mode:     models.ModeIndividual,
		Progress: func(done, total int) {
			mu.Lock()
			progress = append(progress, [2]int{done, total})
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	require.Len(t, report.IndividualAnalysis, 12)
	for i, r := range report.IndividualAnalysis {
		assert.Equal(t, i+1, r.LineNumber)
		assert.Equal(t, sampleUnits(12)[i].Text, r.FullText)
	}

	require.Len(t, progress, 12)
	for i, p := range progress {
		assert.Equal(t, [2]int{i + 1, 12}, p)
	}
}

func TestRun_Idempotent(t *testing.T) {
	o := newOrchestrator(&fakeExtractor{units: sampleUnits(4)})
	req := pipeline.Request{Data: []byte("x"), Filename: "a.pdf"}

	first, err := o.Run(context.Background(), req)
	require.NoError(t, err)
	second, err := o.Run(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	second.ID = first.ID
	assert.Equal(t, first, second)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newOrchestrator(&fakeExtractor{units: sampleUnits(3)}).Run(ctx, pipeline.Request{Data: []byte("x"), Filename: "a.pdf"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_PersistsReport(t *testing.T) {
	store := &fakeStore{}
	o := newOrchestrator(&fakeExtractor{units: sampleUnits(3)}, func(c *pipeline.Config) {
		c.Store = store
		c.Embedder = lengthEmbedder{}
	})

	report, err := o.Run(context.Background(), pipeline.Request{Data: []byte("x"), Filename: "a.pdf"})
	require.NoError(t, err)

	require.Len(t, store.saved, 1)
	assert.Equal(t, report.ID, store.saved[0].ID)
	assert.Len(t, store.units[0], 3)
	assert.Equal(t, [][]float32{{21}, {20}, {21}}, store.embeddings[0])
}

func TestRun_StoreFailureIsNotFatal(t *testing.T) {
	store := &fakeStore{err: errors.New("connection reset")}
	o := newOrchestrator(&fakeExtractor{units: sampleUnits(2)}, func(c *pipeline.Config) { c.Store = store })

	report, err := o.Run(context.Background(), pipeline.Request{Data: []byte("x"), Filename: "a.pdf"})
	require.NoError(t, err)
	assert.NotNil(t, report)
	assert.Nil(t, store.embeddings[0])
}

func TestRun_Spreadsheet(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Feedback"))
	require.NoError(t, f.SetCellValue("Feedback", "A1", "Comment"))
	require.NoError(t, f.SetCellValue("Feedback", "A2", "The onboarding was good and quick"))
	require.NoError(t, f.SetCellValue("Feedback", "A3", "Support was bad on weekends"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	o := pipeline.NewWithConfig(pipeline.Config{
		Registry: capability.NewRegistry(capability.WithSentiment(slowSentiment{}, "fake")),
		Now:      fixedNow,
	})

	report, err := o.Run(context.Background(), pipeline.Request{Data: bytes.Clone(buf.Bytes()), Filename: "feedback.xlsx"})
	require.NoError(t, err)

	assert.Equal(t, "Excel", report.FileType)
	assert.Equal(t, 2, report.TotalLines)
	assert.Equal(t, 1, report.TotalPages)
	require.Len(t, report.IndividualAnalysis, 2)
	assert.Equal(t, "Comment: The onboarding was good and quick", report.IndividualAnalysis[0].FullText)
	require.NotNil(t, report.IndividualAnalysis[1].Sentiment)
	assert.Equal(t, models.SentimentNegative, *report.IndividualAnalysis[1].Sentiment)
}
