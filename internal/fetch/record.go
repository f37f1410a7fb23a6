package fetch

import (
	"fmt"
)

// Status is the outcome of fetching one artifact.
type Status int

const (
	StatusSuccess Status = iota
	StatusAuthRequired
	StatusNotFound
	StatusError
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusAuthRequired:
		return "auth_required"
	case StatusNotFound:
		return "not_found"
	case StatusError:
		return "error"
	case StatusSkipped:
		return "skipped"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Record is the outcome for one (node, kind) pair. Path is relative to the
// cache root and set only on success. Reused marks a record served from the
// cache without network I/O.
type Record struct {
	NodeID    string `json:"node_id"`
	Kind      Kind   `json:"kind"`
	Status    Status `json:"status"`
	CacheKey  string `json:"cache_key"`
	Path      string `json:"path,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Reused    bool   `json:"reused,omitempty"`
}

// OK reports whether the artifact is available on disk.
func (r Record) OK() bool { return r.Status == StatusSuccess }

func (r Record) String() string {
	switch r.Status {
	case StatusSuccess:
		return fmt.Sprintf("%s %s: success(%s)", r.NodeID, r.Kind, r.Path)
	case StatusError, StatusSkipped:
		return fmt.Sprintf("%s %s: %s(%s)", r.NodeID, r.Kind, r.Status, r.Reason)
	}
	return fmt.Sprintf("%s %s: %s", r.NodeID, r.Kind, r.Status)
}
