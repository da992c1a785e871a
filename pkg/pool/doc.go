// Package pool implements a fixed-size work-stealing task scheduler.
//
// A pool owns N workers, each with a private double-ended queue. Submission
// picks the next worker round-robin from a rotation queue and pushes the
// task to the back of that worker's queue. A woken worker drains its own
// queue from the front, then steals from peers' queue backs, and keeps
// going while any submitted task anywhere remains unclaimed.
//
// Tasks are never retried and never cancelled once submitted; Close waits
// for the pool to go idle before stopping workers, so accepted work always
// runs exactly once. Results travel through Future handles created by
// Submit; fire-and-forget work goes through SubmitDetached.
package pool
