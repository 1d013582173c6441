package models

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// WorkItem is one input/output pair of a batch.
type WorkItem struct {
	InputPath  string
	OutputPath string
	RelPath    string
}

type State int

const (
	Pending State = iota
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// Outcome is the terminal record of a WorkItem.
type Outcome struct {
	Item     WorkItem
	State    State
	Reason   Reason
	Detail   string
	Profile  NoiseProfile
	Params   FilterParameters
	Duration time.Duration
}

func SucceededOutcome(item WorkItem, profile NoiseProfile, params FilterParameters, elapsed time.Duration) Outcome {
	return Outcome{
		Item:     item,
		State:    Succeeded,
		Profile:  profile,
		Params:   params,
		Duration: elapsed,
	}
}

// FailedOutcome classifies err with ReasonOf and keeps its text as detail.
func FailedOutcome(item WorkItem, err error, elapsed time.Duration) Outcome {
	detail := err.Error()
	if itemErr, ok := err.(*ItemError); ok && itemErr.Err != nil {
		detail = itemErr.Err.Error()
	}
	return Outcome{
		Item:     item,
		State:    Failed,
		Reason:   ReasonOf(err),
		Detail:   detail,
		Duration: elapsed,
	}
}

// ReportEntry is one failure line of the error report.
type ReportEntry struct {
	Reason Reason
	Path   string
	Detail string
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// String renders the entry as a single report line. Line breaks inside the
// path or detail are folded into spaces.
func (e ReportEntry) String() string {
	return fmt.Sprintf("%s: %s: %s", e.Reason, lineBreaks.Replace(e.Path), lineBreaks.Replace(e.Detail))
}

// ErrorReport collects failures from concurrent workers. Append is the only mutation.
type ErrorReport struct {
	mu      sync.Mutex
	entries []ReportEntry
}

func NewErrorReport() *ErrorReport {
	return &ErrorReport{}
}

func (r *ErrorReport) Append(entry ReportEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *ErrorReport) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Entries returns a copy in append order.
func (r *ErrorReport) Entries() []ReportEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ReportEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// WriteTo writes one line per entry, sorted by path so that reruns over the
// same inputs produce the same artifact regardless of completion order.
func (r *ErrorReport) WriteTo(w io.Writer) (int64, error) {
	entries := r.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})

	var written int64
	for _, entry := range entries {
		n, err := fmt.Fprintln(w, entry.String())
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
