package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/painel-vendas/painel/jobs"
)

type stubClient struct {
	tasks  []*asynq.Task
	closed bool
}

func (s *stubClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func (s *stubClient) Close() error {
	s.closed = true
	return nil
}

type stubInspector struct{}

func (stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return &asynq.QueueInfo{Queue: queue, Pending: 2, Scheduled: 1}, nil
}

func (stubInspector) Close() error { return nil }

func TestTriggerBump(t *testing.T) {
	client := &stubClient{}
	c := &JobsCLI{client: client, inspector: stubInspector{}}

	var out bytes.Buffer
	require.NoError(t, c.Run(context.Background(), []string{"trigger", "bump", "import"}, &out))
	require.Len(t, client.tasks, 1)
	require.Equal(t, jobs.TaskCacheBump, client.tasks[0].Type())

	var payload jobs.CacheBumpPayload
	require.NoError(t, json.Unmarshal(client.tasks[0].Payload(), &payload))
	require.Equal(t, "import", payload.Reason)
	require.Contains(t, out.String(), "enqueued dashboard:cache_bump")

	require.NoError(t, c.Close())
	require.True(t, client.closed)
}

func TestTriggerWarmupAndStats(t *testing.T) {
	client := &stubClient{}
	c := &JobsCLI{client: client, inspector: stubInspector{}}

	var out bytes.Buffer
	require.NoError(t, c.Run(context.Background(), []string{"trigger", jobs.TaskCacheWarmup}, &out))
	require.Equal(t, jobs.TaskCacheWarmup, client.tasks[0].Type())

	out.Reset()
	require.NoError(t, c.Run(context.Background(), []string{"stats"}, &out))
	require.Equal(t, "queue=default pending=2 active=0 scheduled=1 retry=0\n", out.String())
}

func TestRunRejectsUnknownCommands(t *testing.T) {
	c := &JobsCLI{client: &stubClient{}, inspector: stubInspector{}}
	var out bytes.Buffer
	require.Error(t, c.Run(context.Background(), nil, &out))
	require.Error(t, c.Run(context.Background(), []string{"trigger"}, &out))
	require.Error(t, c.Run(context.Background(), []string{"trigger", "reindex"}, &out))
	require.Error(t, c.Run(context.Background(), []string{"purge"}, &out))
}
