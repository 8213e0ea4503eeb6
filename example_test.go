package jobqueue_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/olivere/jobqueue/v2"
)

func ExampleQueue() {
	crawl := func(ctx context.Context, params interface{}) (interface{}, error) {
		url, _ := params.(string)
		return strings.ToUpper(url), nil
	}

	// Create the jobs
	jobs := []*jobqueue.Job{
		jobqueue.NewJob(crawl, "https://alt-f4.de", jobqueue.SetName("first")),
		jobqueue.NewJob(crawl, "https://golang.org", jobqueue.SetName("second")),
	}

	// Run them one at a time
	q, err := jobqueue.NewQueue(jobs, 1)
	if err != nil {
		fmt.Println("NewQueue failed")
		return
	}
	q.Reporter().On(jobqueue.EventJobStarted, func(e *jobqueue.Event) {
		fmt.Printf("Started %s\n", e.Job.Name())
	})
	q.Reporter().On(jobqueue.EventQueueDone, func(e *jobqueue.Event) {
		fmt.Printf("Done with %d jobs\n", e.Stats.Complete)
	})
	if err := q.Run(context.Background()); err != nil {
		fmt.Println("Run failed")
		return
	}

	for _, job := range jobs {
		fmt.Println(job.Result().Value)
	}

	// Output:
	// Started first
	// Started second
	// Done with 2 jobs
	// HTTPS://ALT-F4.DE
	// HTTPS://GOLANG.ORG
}

func ExampleJob_Execute() {
	job := jobqueue.NewJob(func(ctx context.Context, params interface{}) (interface{}, error) {
		return nil, fmt.Errorf("cannot handle %v", params)
	}, 42)

	res := job.Execute(context.Background())
	fmt.Println(job.Status(), res.Failed(), res.Err)

	// Output:
	// done true cannot handle 42
}
