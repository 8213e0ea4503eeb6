// Copyright 2016-present Oliver Eilhard. All rights reserved.
// Use of this source code is governed by a MIT-license.
// See http://olivere.mit-license.org/license.txt for details.

package jobqueue

import (
	"context"
	"encoding/json"
)

// Payload is the work a Job performs. It receives the params the job was
// created with. Returning an error, or panicking, marks the result of the
// job as failed; neither is propagated further.
type Payload func(ctx context.Context, params interface{}) (interface{}, error)

// Result is the outcome of executing a Job. Exactly one of Value and Err
// is meaningful: if Err is nil, the payload succeeded with Value.
type Result struct {
	Value interface{}
	Err   error
}

// Failed returns true if the payload returned an error or panicked.
func (r Result) Failed() bool {
	return r.Err != nil
}

// MarshalJSON serializes the result either as {"value":...} or, for
// failed jobs, as {"error":"..."}.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{Error: r.Err.Error()})
	}
	return json.Marshal(struct {
		Value interface{} `json:"value"`
	}{Value: r.Value})
}
