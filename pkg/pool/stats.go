package pool

// WorkerStats is a point-in-time view of one worker.
type WorkerStats struct {
	ID       int    `json:"id"`
	Queued   int    `json:"queued"`
	Executed uint64 `json:"executed"`
	Stolen   uint64 `json:"stolen"`
}

// Stats is a point-in-time view of the pool. Counters are read individually
// and may be mutually inconsistent under load; treat them as a gauge, not a
// ledger.
type Stats struct {
	Workers    int           `json:"workers"`
	Submitted  uint64        `json:"submitted"`
	Completed  uint64        `json:"completed"`
	Failed     uint64        `json:"failed"`
	Dropped    uint64        `json:"dropped"`
	Stolen     uint64        `json:"stolen"`
	Unassigned int64         `json:"unassigned"`
	InFlight   int64         `json:"in_flight"`
	PerWorker  []WorkerStats `json:"per_worker,omitempty"`
}

// Stats returns a snapshot of pool counters and per-worker queue depths.
func (p *Pool) Stats() Stats {
	s := Stats{
		Workers:    len(p.workers),
		Submitted:  p.metrics.submitted.Load(),
		Completed:  p.metrics.completed.Load(),
		Failed:     p.metrics.failed.Load(),
		Dropped:    p.metrics.dropped.Load(),
		Stolen:     p.metrics.stolen.Load(),
		Unassigned: p.unassigned.Load(),
		InFlight:   p.inFlight.Load(),
	}
	if len(p.workers) > 0 {
		s.PerWorker = make([]WorkerStats, 0, len(p.workers))
		for _, w := range p.workers {
			s.PerWorker = append(s.PerWorker, WorkerStats{
				ID:       w.id,
				Queued:   w.queue.Len(),
				Executed: w.executed.Load(),
				Stolen:   w.stolen.Load(),
			})
		}
	}
	return s
}
