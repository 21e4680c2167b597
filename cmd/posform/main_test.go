package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs rootCmd with fresh flag state against a temporary history
// database and returns what the command printed on stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	rootOpts.logLevel, rootOpts.logFormat, rootOpts.history, rootOpts.patterns = "", "", "", ""
	rootOpts.noHistory = false
	convertOpts.workers, convertOpts.folderWorkers, convertOpts.progressEvery = 0, 0, 0
	convertOpts.timeout = 0
	historyOpts.folder, historyOpts.id, historyOpts.limit = "", "", 20

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("POSFORM_CONFIG", "")
	t.Setenv("POSFORM_PATTERNS", "")
	t.Setenv("PDFTOTEXT_BIN", "posform-test-missing-pdftotext")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("HISTORY_DSN", "sqlite://"+filepath.Join(t.TempDir(), "history.db"))
}

func mkFolder(t *testing.T, name string, files ...string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.Mkdir(dir, 0o755))
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("not a pdf"), 0o600))
	}
	return dir
}

func TestRootCommand_Help(t *testing.T) {
	out, err := execute(t, "", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "convert")
	assert.Contains(t, out, "watch")
	assert.Contains(t, out, "history")
}

func TestConvertCommand_EmptyFolder(t *testing.T) {
	setupEnv(t)
	dir := mkFolder(t, "empty")

	out, err := execute(t, "", "convert", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No PDF files found in folder: empty")
	assert.NoFileExists(t, filepath.Join(dir, "empty.xlsx"))
}

func TestConvertCommand_UnreadableDocumentsStillWriteTable(t *testing.T) {
	setupEnv(t)
	dir := mkFolder(t, "shop", "a.pdf", "notes.txt")

	out, err := execute(t, "", "convert", "--workers", "2", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "table: "+filepath.Join(dir, "shop.xlsx"))
	assert.Contains(t, out, "skipped a.pdf")
	assert.NotContains(t, out, "notes.txt")
	assert.FileExists(t, filepath.Join(dir, "shop.xlsx"))
}

func TestConvertCommand_SeveralFolders(t *testing.T) {
	setupEnv(t)
	a := mkFolder(t, "a")
	b := mkFolder(t, "b")
	missing := filepath.Join(t.TempDir(), "missing")

	out, err := execute(t, "", "convert", "--folder-workers", "2", a, b, missing)
	require.Error(t, err)
	assert.EqualError(t, err, "1 of 3 folders failed")
	assert.Contains(t, out, "No PDF files found in folder: a\n")
	assert.Contains(t, out, "No PDF files found in folder: b\n")
	assert.Contains(t, out, "FAILED "+missing)
}

func TestConvertCommand_Interactive(t *testing.T) {
	setupEnv(t)
	dir := mkFolder(t, "batch")
	missing := filepath.Join(t.TempDir(), "missing")

	out, err := execute(t, "\n"+missing+"\n"+dir+"\nEXIT\n", "convert")
	require.NoError(t, err)
	assert.Contains(t, out, "Please enter a folder path.")
	assert.Contains(t, out, "FAILED "+missing)
	assert.Contains(t, out, "No PDF files found in folder: batch")
	assert.Contains(t, out, "Goodbye!")
}

func TestConvertCommand_InteractiveEndOfInput(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "convert")
	require.NoError(t, err)
	assert.Contains(t, out, "Folder containing PDFs")
	assert.NotContains(t, out, "Goodbye!")
}

func TestHistoryCommand(t *testing.T) {
	setupEnv(t)
	dir := mkFolder(t, "logged")
	_, err := execute(t, "", "convert", dir)
	require.NoError(t, err)

	out, err := execute(t, "", "history", "--folder", dir)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "STATUS")
	assert.Contains(t, lines[1], "EMPTY")
	assert.Contains(t, lines[1], dir)

	id := strings.Fields(lines[1])[0]
	out, err = execute(t, "", "history", "--id", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Status:   EMPTY")
	assert.Contains(t, out, "Summary:  No PDF files found in folder: logged")

	out, err = execute(t, "", "history", "--folder", filepath.Join(dir, "other"))
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}

func TestHistoryCommand_Errors(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "", "history", "--no-history")
	assert.ErrorContains(t, err, "run history is disabled")

	_, err = execute(t, "", "history", "--id", "not-a-uuid")
	assert.ErrorContains(t, err, "invalid run id")
}

func TestWatchCommand_RequiresRoot(t *testing.T) {
	_, err := execute(t, "", "watch")
	assert.Error(t, err)
}
