package report

import "fmt"

// Entry is one line of a run report. Exactly one of Error, Status/Body or
// Warning is set.
type Entry struct {
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
	Status  int    `json:"status,omitempty" yaml:"status,omitempty"`
	Body    string `json:"body,omitempty" yaml:"body,omitempty"`
	Warning string `json:"warning,omitempty" yaml:"warning,omitempty"`
}

func (e Entry) IsWarning() bool { return e.Warning != "" }

func (e Entry) IsHTTP() bool { return e.Status != 0 }

func (e Entry) String() string {
	switch {
	case e.Warning != "":
		return "warning: " + e.Warning
	case e.Status != 0:
		return fmt.Sprintf("http %d: %s", e.Status, e.Body)
	default:
		return "error: " + e.Error
	}
}

// Report is append-only; entries keep the order they were recorded in.
type Report []Entry

func (r *Report) Errorf(format string, a ...any) {
	*r = append(*r, Entry{Error: fmt.Sprintf(format, a...)})
}

func (r *Report) HTTP(status int, body string) {
	*r = append(*r, Entry{Status: status, Body: body})
}

func (r *Report) Warnf(format string, a ...any) {
	*r = append(*r, Entry{Warning: fmt.Sprintf(format, a...)})
}

func (r *Report) Append(entries ...Entry) {
	*r = append(*r, entries...)
}

// Counts splits the report into failures (errors and HTTP entries) and warnings.
func (r Report) Counts() (failures, warnings int) {
	for _, e := range r {
		if e.IsWarning() {
			warnings++
		} else {
			failures++
		}
	}
	return failures, warnings
}
