package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AEO3/sbom-compile-orderer/internal/component"
	"github.com/AEO3/sbom-compile-orderer/internal/ctxlog"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 5

// ErrDetached is returned by Handle.Collect when the wait timed out and the
// pool continues in the background.
var ErrDetached = errors.New("fetch pool still running in the background")

// Resolver produces the record for one task.
type Resolver interface {
	Fetch(ctx context.Context, node component.Node, kind Kind) Record
}

// Task is one (node, kind) unit of work.
type Task struct {
	Node component.Node
	Kind Kind
}

// Wants selects which artifact kinds to fetch.
type Wants struct {
	Manifests bool
	Packages  bool
}

// Tasks builds the task list for nodes. Maven nodes get a manifest and/or a
// jar task, npm nodes a tarball task when packages are wanted, and every
// other node a manifest task that resolves to a skipped record.
func Tasks(nodes []component.Node, want Wants) []Task {
	var tasks []Task
	for _, n := range nodes {
		switch n.PackageType {
		case component.TypeMaven:
			if want.Manifests {
				tasks = append(tasks, Task{Node: n, Kind: KindManifest})
			}
			if want.Packages {
				tasks = append(tasks, Task{Node: n, Kind: KindPackage})
			}
		case component.TypeNPM:
			if want.Packages {
				tasks = append(tasks, Task{Node: n, Kind: KindTarball})
			}
		default:
			if want.Manifests || want.Packages {
				tasks = append(tasks, Task{Node: n, Kind: KindManifest})
			}
		}
	}
	return tasks
}

// StillRunning is the reason given to tasks without a result when the pool
// was detached.
const StillRunning = "still running"

// Pending returns a skipped record for every task that has no result in
// results.
func Pending(tasks []Task, results []Record) []Record {
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		seen[r.NodeID+"\x00"+r.Kind.String()] = struct{}{}
	}
	var out []Record
	for _, t := range tasks {
		if _, ok := seen[t.Node.ID+"\x00"+t.Kind.String()]; ok {
			continue
		}
		out = append(out, Record{
			NodeID:   t.Node.ID,
			Kind:     t.Kind,
			Status:   StatusSkipped,
			CacheKey: CacheKey(t.Node.ID, t.Kind),
			Reason:   StillRunning,
		})
	}
	return out
}

// Pool runs tasks on a fixed number of workers.
type Pool struct {
	resolver Resolver
	workers  int
}

// NewPool creates a pool. workers below 1 means DefaultWorkers.
func NewPool(resolver Resolver, workers int) *Pool {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Pool{resolver: resolver, workers: workers}
}

// Handle tracks a started pool.
type Handle struct {
	total  int
	done   chan struct{}
	cancel context.CancelFunc

	mu      sync.Mutex
	results []Record
}

// Start launches the workers and returns immediately. Cancelling ctx, or
// calling Handle.Cancel, stops in-flight network calls; tasks not yet
// started then resolve to an error record.
func (p *Pool) Start(ctx context.Context, tasks []Task) *Handle {
	logger := ctxlog.FromContext(ctx)
	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		total:   len(tasks),
		done:    make(chan struct{}),
		cancel:  cancel,
		results: make([]Record, 0, len(tasks)),
	}

	queue := make(chan Task, len(tasks))
	for _, t := range tasks {
		queue <- t
	}
	close(queue)
	poolPending.Add(float64(len(tasks)))

	var wg sync.WaitGroup
	workers := min(p.workers, max(len(tasks), 1))
	logger.Debug("Fetch: Starting worker pool.", "workers", workers, "tasks", len(tasks))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.worker(runCtx, queue, h, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		cancel()
		close(h.done)
		logger.Debug("Fetch: Worker pool finished.", "results", h.Len())
	}()
	return h
}

// Run starts the pool and waits for every task.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Record {
	h := p.Start(ctx, tasks)
	<-h.Done()
	return h.Results()
}

func (p *Pool) worker(ctx context.Context, queue <-chan Task, h *Handle, workerID int) {
	ctx = ctxlog.With(ctx, "workerID", workerID)
	logger := ctxlog.FromContext(ctx)
	for task := range queue {
		var rec Record
		if err := ctx.Err(); err != nil {
			rec = Record{
				NodeID:   task.Node.ID,
				Kind:     task.Kind,
				CacheKey: CacheKey(task.Node.ID, task.Kind),
				Status:   StatusError,
				Reason:   err.Error(),
			}
		} else {
			rec = p.runTask(ctx, task)
		}
		logger.Debug("Fetch: Task finished.", "record", rec.String())
		h.add(rec)
		poolPending.Dec()
	}
}

// runTask shields the pool from a panicking resolver.
func (p *Pool) runTask(ctx context.Context, task Task) (rec Record) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("Fetch: Task panicked.", "node", task.Node.ID, "panic", r)
			rec = Record{
				NodeID:   task.Node.ID,
				Kind:     task.Kind,
				CacheKey: CacheKey(task.Node.ID, task.Kind),
				Status:   StatusError,
				Reason:   fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return p.resolver.Fetch(ctx, task.Node, task.Kind)
}

func (h *Handle) add(rec Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, rec)
}

// Done is closed when every task has a result.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until every task finished or timeout elapsed, and reports
// whether the pool completed. A false return leaves the workers running.
// A timeout of zero or less waits for completion.
func (h *Handle) Wait(timeout time.Duration) bool {
	if timeout <= 0 {
		<-h.done
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-h.done:
		return true
	case <-timer.C:
		return false
	}
}

// Collect waits like Wait and returns the results gathered so far. The error
// is ErrDetached when the pool had not finished.
func (h *Handle) Collect(timeout time.Duration) ([]Record, error) {
	if !h.Wait(timeout) {
		return h.Results(), ErrDetached
	}
	return h.Results(), nil
}

// Cancel stops the pool's in-flight work.
func (h *Handle) Cancel() { h.cancel() }

// Len returns how many results have landed.
func (h *Handle) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.results)
}

// Total returns the number of tasks the pool was started with.
func (h *Handle) Total() int { return h.total }

// Results returns a snapshot of the results in completion order.
func (h *Handle) Results() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Record, len(h.results))
	copy(out, h.results)
	return out
}
