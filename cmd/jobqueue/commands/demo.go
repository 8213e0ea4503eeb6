package commands

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cast"

	"github.com/olivere/jobqueue/v2"
	"github.com/olivere/jobqueue/v2/internal/config"
)

// demoSeconds are the durations of the demo jobs, in turn.
var demoSeconds = []int{3, 4, 2}

// errDemoFailure is returned by demo jobs chosen to fail.
var errDemoFailure = errors.New("demo: job failed")

// delay waits for params["seconds"] scaled by params["scale"] and returns
// the message and the seconds. Params "fail" and "panic" make it fail.
func delay(ctx context.Context, params interface{}) (interface{}, error) {
	p := cast.ToStringMap(params)
	msg := cast.ToString(p["msg"])
	seconds := cast.ToInt(p["seconds"])
	scale := cast.ToFloat64(p["scale"])
	if scale <= 0 {
		scale = 1
	}

	t := time.NewTimer(time.Duration(float64(seconds) * scale * float64(time.Second)))
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if cast.ToBool(p["panic"]) {
		panic(fmt.Sprintf("demo: %s panicked", msg))
	}
	if cast.ToBool(p["fail"]) {
		return nil, errDemoFailure
	}
	return map[string]interface{}{"message": msg, "seconds": seconds}, nil
}

// demoName returns "job 1", "job 2", "job 3", "job 21", "job 22", ...
func demoName(i int) string {
	group, n := i/len(demoSeconds), i%len(demoSeconds)+1
	if group == 0 {
		return fmt.Sprintf("job %d", n)
	}
	return fmt.Sprintf("job %d%d", group+1, n)
}

// demoJobs creates cfg.Jobs jobs running delay. Whether a job fails or
// panics is decided up front, so a seed reproduces a run.
func demoJobs(cfg *config.Config) []*jobqueue.Job {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(seed))

	jobs := make([]*jobqueue.Job, 0, cfg.Jobs)
	for i := 0; i < cfg.Jobs; i++ {
		name := demoName(i)
		params := map[string]interface{}{
			"msg":     name,
			"seconds": demoSeconds[i%len(demoSeconds)],
			"scale":   cfg.TimeScale,
			"fail":    rnd.Float64() < cfg.FailureRate,
			"panic":   rnd.Float64() < cfg.PanicRate,
		}
		jobs = append(jobs, jobqueue.NewJob(delay, params, jobqueue.SetName(name)))
	}
	return jobs
}
