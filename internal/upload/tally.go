package upload

import "github.com/docupload/docupload/internal/storage"

// Failure is one folder that could not be uploaded.
type Failure struct {
	Folder string
	Err    error
}

// Result is the outcome of one folder.
type Result struct {
	Folder    string
	Container *storage.Container // nil when container creation did not happen
	Files     int                // files accepted by the backend
	Err       error
}

// Tally summarizes one upload action. It is rebuilt for every action.
type Tally struct {
	RunID     string
	Succeeded int
	Failures  []Failure
	Results   []Result
}

// Total returns the number of folders processed.
func (t Tally) Total() int {
	return t.Succeeded + len(t.Failures)
}

// Failed returns the number of folders that failed.
func (t Tally) Failed() int {
	return len(t.Failures)
}

func (t *Tally) record(r Result) {
	t.Results = append(t.Results, r)
	if r.Err != nil {
		t.Failures = append(t.Failures, Failure{Folder: r.Folder, Err: r.Err})
		return
	}
	t.Succeeded++
}
