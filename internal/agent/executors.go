package agent

import (
	"context"
	"fmt"

	"github.com/cairnlabs/cairn/pkg/swarm"
)

// EchoExecutor is the built-in no-op executor. It echoes the task payload
// back as its result, which makes it useful for smoke tests and for
// exercising the swarm mechanics without any real workload attached.
type EchoExecutor struct{}

// Execute returns the task payload verbatim plus a short summary line.
func (EchoExecutor) Execute(_ context.Context, task Task, state swarm.KinematicState) (map[string]any, error) {
	result := map[string]any{
		"status":  "ok",
		"summary": fmt.Sprintf("echo: processed task '%s' as %s", task.Type, state.CurrentRole),
	}
	for k, v := range task.Payload {
		result[k] = v
	}
	return result, nil
}

// ExecutorFunc adapts a plain function to the TaskExecutor interface.
type ExecutorFunc func(ctx context.Context, task Task, state swarm.KinematicState) (map[string]any, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, task Task, state swarm.KinematicState) (map[string]any, error) {
	return f(ctx, task, state)
}
