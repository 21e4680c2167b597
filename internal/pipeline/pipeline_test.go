package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/posform-export/constants"
	"github.com/joseph-ayodele/posform-export/internal/common"
	"github.com/joseph-ayodele/posform-export/internal/extract"
)

type stubDoc struct {
	text  string
	delay time.Duration
	err   error
	block bool // wait for ctx
}

type stubTexts struct {
	docs    map[string]stubDoc
	started chan string
}

func (s *stubTexts) Text(ctx context.Context, path string) (string, error) {
	name := filepath.Base(path)
	if s.started != nil {
		s.started <- name
	}
	d, ok := s.docs[name]
	if !ok {
		return "", fmt.Errorf("no stub for %s", name)
	}
	if d.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return d.text, d.err
}

type recordingSink struct {
	mu     sync.Mutex
	calls  int
	path   string
	header []string
	rows   [][]string
	err    error
}

func (s *recordingSink) Write(_ context.Context, path string, header []string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.path, s.header, s.rows = path, header, rows
	return s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func form(business, tid string) string {
	return "Tên kinh doanh (Tên trên hóa đơn): " + business + "\nTID VND " + tid + "\n"
}

func makeFolder(t *testing.T, names ...string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "batch")
	require.NoError(t, os.Mkdir(dir, 0o755))
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("%PDF-1.4"), 0o600))
	}
	return dir
}

func newTestPipeline(texts TextSource, sink *recordingSink) *Pipeline {
	logger := discardLogger()
	return New(texts, extract.NewFieldExtractor(extract.DefaultPatternSet(), logger), sink, logger)
}

func TestConvertFolder_OrderIndependentOfCompletion(t *testing.T) {
	dir := makeFolder(t, "a.pdf", "b.pdf", "c.pdf")
	texts := &stubTexts{docs: map[string]stubDoc{
		"a.pdf": {text: form("A", "1111"), delay: 80 * time.Millisecond},
		"b.pdf": {text: form("B", "2222"), delay: 40 * time.Millisecond},
		"c.pdf": {text: form("C", "3333")},
	}}
	sink := &recordingSink{}

	res, err := newTestPipeline(texts, sink).ConvertFolder(context.Background(), dir, WithWorkers(3))
	require.NoError(t, err)

	assert.Equal(t, constants.RunStatusCompleted, res.Status)
	assert.Equal(t, 3, res.RowCount)
	assert.Equal(t, filepath.Join(dir, "batch.xlsx"), sink.path)
	assert.Equal(t, res.TableFile, sink.path)
	assert.Equal(t, constants.ReportHeader, sink.header)
	require.Len(t, sink.rows, 3)
	for i, want := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		assert.Equal(t, want, sink.rows[i][0])
	}
	assert.Equal(t, "B", sink.rows[1][1])
	assert.Equal(t, "Processed 3 PDFs successfully in folder: batch", res.Summary)
}

func TestConvertFolder_Enumeration(t *testing.T) {
	dir := makeFolder(t, "b.PDF", "a.pdf", ".hidden.pdf", "notes.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))
	texts := &stubTexts{docs: map[string]stubDoc{
		"a.pdf": {text: form("A", "1")},
		"b.PDF": {text: form("B", "2")},
	}}
	sink := &recordingSink{}

	res, err := newTestPipeline(texts, sink).ConvertFolder(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	require.Len(t, sink.rows, 2)
	assert.Equal(t, "a.pdf", sink.rows[0][0])
	assert.Equal(t, "b.PDF", sink.rows[1][0])
}

func TestConvertFolder_FailedDocumentsAreOmitted(t *testing.T) {
	dir := makeFolder(t, "a.pdf", "b.pdf", "c.pdf", "d.pdf")
	texts := &stubTexts{docs: map[string]stubDoc{
		"a.pdf": {text: form("A", "1")},
		"b.pdf": {err: errors.New("broken xref")},
		"c.pdf": {text: "   \n"},
		"d.pdf": {text: form("D", "4")},
	}}
	sink := &recordingSink{}

	res, err := newTestPipeline(texts, sink).ConvertFolder(context.Background(), dir, WithWorkers(2))
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusCompleted, res.Status)
	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 2, res.RowCount)
	require.Len(t, sink.rows, 2)
	assert.Equal(t, "a.pdf", sink.rows[0][0])
	assert.Equal(t, "d.pdf", sink.rows[1][0])

	require.Len(t, res.Failed, 2)
	assert.Equal(t, "b.pdf", res.Failed[0].FileName)
	assert.Equal(t, "c.pdf", res.Failed[1].FileName)
	assert.ErrorIs(t, res.Failed[1].Err, ErrEmptyDocument)
}

func TestConvertFolder_TerminalIDColumns(t *testing.T) {
	dir := makeFolder(t, "a.pdf", "b.pdf")
	texts := &stubTexts{docs: map[string]stubDoc{
		"a.pdf": {text: form("A", "12 39 4567")},
		"b.pdf": {text: "Tên kinh doanh (x): B\n"},
	}}
	sink := &recordingSink{}

	_, err := newTestPipeline(texts, sink).ConvertFolder(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, sink.rows, 2)
	assert.Equal(t, []string{"12394567", "12004567"}, sink.rows[0][8:10])
	assert.Equal(t, []string{"", ""}, sink.rows[1][8:10])
}

func TestConvertFolder_Progress(t *testing.T) {
	names := make([]string, 12)
	docs := make(map[string]stubDoc, len(names))
	for i := range names {
		names[i] = fmt.Sprintf("doc%02d.pdf", i)
		docs[names[i]] = stubDoc{text: form("X", "1"), delay: time.Duration(i%3) * 5 * time.Millisecond}
	}
	dir := makeFolder(t, names...)

	var got []int
	res, err := newTestPipeline(&stubTexts{docs: docs}, &recordingSink{}).ConvertFolder(
		context.Background(), dir,
		WithWorkers(4),
		WithProgressEvery(5),
		WithProgress(func(n int) { got = append(got, n) }),
	)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.IsNonDecreasing(t, got)
	assert.Equal(t, 12, got[len(got)-1])
	assert.Equal(t, 12, res.Processed)
	assert.LessOrEqual(t, len(got), 4)
}

func TestConvertFolder_InvalidFolder(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.pdf")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	p := newTestPipeline(&stubTexts{}, &recordingSink{})

	for _, folder := range []string{"", filepath.Join(t.TempDir(), "missing"), file} {
		res, err := p.ConvertFolder(context.Background(), folder)
		assert.Nil(t, res)
		assert.True(t, common.IsCode(err, common.CodeInvalidFolder), "folder %q: %v", folder, err)
	}
}

func TestConvertFolder_EmptyFolder(t *testing.T) {
	dir := makeFolder(t, "readme.txt")
	sink := &recordingSink{}

	res, err := newTestPipeline(&stubTexts{}, sink).ConvertFolder(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusEmpty, res.Status)
	assert.Equal(t, "No PDF files found in folder: batch", res.Summary)
	assert.Zero(t, sink.calls)
}

func TestConvertFolder_SinkFailure(t *testing.T) {
	dir := makeFolder(t, "a.pdf")
	texts := &stubTexts{docs: map[string]stubDoc{"a.pdf": {text: form("A", "1")}}}
	sink := &recordingSink{err: errors.New("disk full")}

	res, err := newTestPipeline(texts, sink).ConvertFolder(context.Background(), dir)
	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.CodeSinkFailed))
	require.NotNil(t, res)
	assert.Equal(t, constants.RunStatusFailed, res.Status)
	assert.Empty(t, res.TableFile)
}

func TestConvertFolder_CancelBeforeStart(t *testing.T) {
	dir := makeFolder(t, "a.pdf", "b.pdf")
	texts := &stubTexts{docs: map[string]stubDoc{
		"a.pdf": {text: form("A", "1")},
		"b.pdf": {text: form("B", "2")},
	}}
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestPipeline(texts, sink).ConvertFolder(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusCancelled, res.Status)
	assert.Zero(t, res.RowCount)
	assert.Zero(t, res.Processed)
	assert.Zero(t, sink.calls)
}

func TestConvertFolder_CancelMidRun(t *testing.T) {
	names := make([]string, 10)
	docs := make(map[string]stubDoc, len(names))
	for i := range names {
		names[i] = fmt.Sprintf("doc%02d.pdf", i)
		docs[names[i]] = stubDoc{text: form("X", "1"), delay: 10 * time.Millisecond}
	}
	dir := makeFolder(t, names...)
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	res, err := newTestPipeline(&stubTexts{docs: docs}, sink).ConvertFolder(ctx, dir,
		WithWorkers(2),
		WithProgressEvery(1),
		WithProgress(func(n int) {
			if n >= 2 {
				cancel()
			}
		}),
	)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusCancelled, res.Status)
	assert.LessOrEqual(t, res.RowCount, res.Total)
	assert.Less(t, res.Processed, res.Total)
	assert.Zero(t, sink.calls)
}

func TestPipeline_CancelFromAnotherGoroutine(t *testing.T) {
	dir := makeFolder(t, "a.pdf", "b.pdf", "c.pdf")
	texts := &stubTexts{
		docs: map[string]stubDoc{
			"a.pdf": {block: true},
			"b.pdf": {block: true},
			"c.pdf": {block: true},
		},
		started: make(chan string, 3),
	}
	sink := &recordingSink{}
	p := newTestPipeline(texts, sink)

	go func() {
		<-texts.started
		p.Cancel()
	}()

	res, err := p.ConvertFolder(context.Background(), dir, WithWorkers(1))
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusCancelled, res.Status)
	assert.Zero(t, res.RowCount)
	assert.Zero(t, sink.calls)
}

func TestConvertFolder_SequentialRunsAreIndependent(t *testing.T) {
	dir := makeFolder(t, "a.pdf")
	texts := &stubTexts{docs: map[string]stubDoc{"a.pdf": {text: form("A", "1")}}}
	sink := &recordingSink{}
	p := newTestPipeline(texts, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	first, err := p.ConvertFolder(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusCancelled, first.Status)

	second, err := p.ConvertFolder(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusCompleted, second.Status)
	assert.Equal(t, 1, second.RowCount)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestReportProgress(t *testing.T) {
	counts := make(chan int64, 8)
	for _, n := range []int64{2, 1, 3, 5, 4, 6, 7} {
		counts <- n
	}
	close(counts)

	var got []int
	reportProgress(counts, 8, 3, func(n int) { got = append(got, n) })
	assert.Equal(t, []int{3, 6, 7}, got)
}
