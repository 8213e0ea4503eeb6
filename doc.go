// Package jobqueue runs a fixed list of jobs with bounded concurrency.
//
// Applications using jobqueue first create their jobs via NewJob. A job
// wraps a Payload, i.e. a function that does the actual work, and the
// parameters to pass to it. Jobs can also be executed on their own via
// Execute.
//
// The jobs are then handed to a Queue, created via NewQueue. The queue
// is configured with a concurrency limit: at no time will more than that
// many jobs be running. Run starts the jobs in the order they were given.
// Whenever a job finishes, the next waiting job is started immediately.
// Run returns after all jobs are done.
//
// A job in jobqueue is always in one of these three states: Waiting (to be
// executed), Running (the payload is busy), and Done (the payload has
// returned). A job never goes back to an earlier state, and it is executed
// only once.
//
// Payloads cannot fail a job or a queue. If a payload returns an error or
// panics, the job is still Done, and the error is recorded in its Result.
// There is no retry.
//
// Both jobs and queues report their progress via a Reporter. Jobs publish
// EventStarted and EventDone, queues publish EventJobStarted,
// EventJobFinished, and finally EventQueueDone, exactly once, even if the
// queue has no jobs at all. Handlers run synchronously, so they must be
// quick. The "history" package uses these events to archive runs, and the
// "ui/server" package streams them to web browsers.
package jobqueue
