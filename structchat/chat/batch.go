package chat

import (
	"context"

	"github.com/sourcegraph/conc/iter"

	ports "github.com/ZanzyTHEbar/structchat/structchat/chat/ports"
	"github.com/ZanzyTHEbar/structchat/structchat/schema"
)

// Job is one independent single query.
type Job struct {
	System      []string
	User        []string
	Schemas     []*schema.Schema
	Instruction *ports.Instruction
}

// BatchResult pairs a job's answer with its classified failure.
type BatchResult struct {
	Value any
	Err   error
}

// RunBatch answers jobs in parallel, each on its own engine from newEngine,
// with at most maxParallel engines running. Results keep input order.
func RunBatch(ctx context.Context, jobs []Job, newEngine func() *Engine, maxParallel int) []BatchResult {
	mapper := iter.Mapper[Job, BatchResult]{MaxGoroutines: maxParallel}
	return mapper.Map(jobs, func(job *Job) BatchResult {
		value, err := newEngine().SingleQuery(ctx, job.System, job.User, job.Schemas, job.Instruction)
		return BatchResult{Value: value, Err: err}
	})
}
