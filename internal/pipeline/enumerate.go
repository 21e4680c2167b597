package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/posform-export/constants"
	"github.com/joseph-ayodele/posform-export/internal/entity"
)

// enumerate lists the documents directly inside folder, sorted by name,
// skipping hidden entries and subdirectories.
func enumerate(folder string) ([]entity.DocumentJob, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("read folder: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || !e.Type().IsRegular() {
			continue
		}
		if !constants.IsAllowedExt(filepath.Ext(name)) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	jobs := make([]entity.DocumentJob, len(names))
	for i, name := range names {
		jobs[i] = entity.DocumentJob{
			OriginalIndex: i,
			SourceName:    name,
			SourcePath:    filepath.Join(folder, name),
		}
	}
	return jobs, nil
}

// TablePath is where the table for folder is written: <folder>/<folder-name>.xlsx.
func TablePath(folder string) string {
	return filepath.Join(folder, filepath.Base(folder)+"."+constants.TableExt)
}
