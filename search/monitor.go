package search

import "time"

// JobMonitor provides hooks to observe the pool.
// Implementations must be safe for concurrent use by every worker.
type JobMonitor interface {
	// Enqueued is called after a request entered the queue.
	Enqueued(algorithm string)
	// Dropped is called for each unclaimed request discarded by Shutdown.
	Dropped(algorithm string)
	// Started is called once a worker created the job record.
	Started(algorithm string)
	// Finished is called when a job reached Done.
	Finished(algorithm string, elapsed time.Duration)
	// Failed is called when a job reached Failed, or could not be created.
	// expected is true for domain faults such as an unknown algorithm.
	Failed(algorithm string, err error, expected bool)
}

// noopMonitor is a no-op implementation of JobMonitor
type noopMonitor struct{}

var _ JobMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Enqueued(_ string)                  {}
func (n *noopMonitor) Dropped(_ string)                   {}
func (n *noopMonitor) Started(_ string)                   {}
func (n *noopMonitor) Finished(_ string, _ time.Duration) {}
func (n *noopMonitor) Failed(_ string, _ error, _ bool)   {}
