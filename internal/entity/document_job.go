package entity

// DocumentJob is one document scheduled in a folder run. Workers write only
// the job they own; the pipeline reads jobs after all workers have stopped.
type DocumentJob struct {
	OriginalIndex int
	SourceName    string
	SourcePath    string

	// Done is set once a worker has finished with the job, whether or not
	// it produced a record. Jobs left undone were skipped by cancellation.
	Done   bool
	Record *Record
	Err    error
}

// Succeeded reports whether the job produced a record.
func (j *DocumentJob) Succeeded() bool {
	return j.Done && j.Err == nil && j.Record != nil
}
