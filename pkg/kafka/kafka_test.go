package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

type fakeReader struct {
	in        chan kafka.Message
	mu        sync.Mutex
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.in:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type funcHandler struct {
	topic string
	fn    func(context.Context, []byte) error
}

func (h funcHandler) Topic() string { return h.topic }
func (h funcHandler) Handle(ctx context.Context, data []byte) error { return h.fn(ctx, data) }

func TestProducerEncodesAndCountsMessages(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "snappy", nil, prometheus.NewRegistry())

	err := p.PublishBatch(context.Background(), "recs", []Message{
		{Key: []byte("EVO"), Value: map[string]int{"score": 64}, Headers: map[string]string{"event": "created"}},
		{Key: []byte("SINCH"), Value: "raw"},
	})
	require.NoError(t, err)

	msgs := w.written()
	require.Len(t, msgs, 2)
	assert.Equal(t, "recs", msgs[0].Topic)
	assert.JSONEq(t, `{"score":64}`, string(msgs[0].Value))
	assert.Equal(t, "created", HeaderValue(msgs[0], "event"))
	assert.Equal(t, "raw", string(msgs[1].Value))

	assert.NoError(t, p.PublishBatch(context.Background(), "recs", nil))
}

func TestProducerWrapsWriteErrors(t *testing.T) {
	p := newProducer(&fakeWriter{err: errors.New("no leader")}, "snappy", nil, nil)
	err := p.PublishMessage(context.Background(), "logging.errors", []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.errors")
}

func newTestConsumer(t *testing.T, r *fakeReader, dlq *fakeWriter, retries int) *Consumer {
	t.Helper()
	cfg := &ConsumerConfig{
		GroupID:     "test",
		WorkerCount: 2,
		BufferSize:  4,
		RetryMax:    retries,
		BackoffMin:  time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
		Hook:        TraceHook,
	}
	if dlq != nil {
		cfg.DLQTopic = "recs.dlq"
	}
	c := newConsumer(cfg, func(string) messageReader { return r })
	if dlq != nil {
		c.dlq = dlq
	}
	return c
}

func TestConsumerRetriesThenCommits(t *testing.T) {
	r := &fakeReader{in: make(chan kafka.Message, 1)}
	c := newTestConsumer(t, r, nil, 3)

	var calls int32
	var trace atomic.Value
	c.RegisterHandler(funcHandler{topic: "recs", fn: func(ctx context.Context, data []byte) error {
		trace.Store(TraceID(ctx))
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("clickhouse unavailable")
		}
		return nil
	}})
	require.NoError(t, c.Start())

	r.in <- kafka.Message{Topic: "recs", Offset: 7, Value: []byte(`{}`), Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	assert.Eventually(t, func() bool { return len(r.commits()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{7}, r.commits())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, "abc", trace.Load())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
}

func TestConsumerParksPoisonMessagesOnDLQ(t *testing.T) {
	r := &fakeReader{in: make(chan kafka.Message, 1)}
	dlq := &fakeWriter{}
	c := newTestConsumer(t, r, dlq, 1)
	c.RegisterHandler(funcHandler{topic: "recs", fn: func(context.Context, []byte) error {
		var v map[string]interface{}
		return json.Unmarshal([]byte("not json"), &v)
	}})
	require.NoError(t, c.Start())

	r.in <- kafka.Message{Topic: "recs", Offset: 3, Key: []byte("EVO"), Value: []byte("not json")}
	assert.Eventually(t, func() bool { return len(dlq.written()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return len(r.commits()) == 1 }, time.Second, 5*time.Millisecond)

	parked := dlq.written()[0]
	assert.Equal(t, "recs.dlq", parked.Topic)
	assert.Equal(t, "recs", HeaderValue(parked, "source_topic"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
}

func TestConsumerWithoutDLQDoesNotCommitFailures(t *testing.T) {
	r := &fakeReader{in: make(chan kafka.Message, 1)}
	c := newTestConsumer(t, r, nil, 0)
	done := make(chan struct{})
	c.RegisterHandler(funcHandler{topic: "recs", fn: func(context.Context, []byte) error {
		defer close(done)
		panic("bad payload")
	}})
	require.NoError(t, c.Start())

	r.in <- kafka.Message{Topic: "recs", Offset: 1}
	<-done
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	assert.Empty(t, r.commits())
}

func TestStartWithoutHandlers(t *testing.T) {
	c := newTestConsumer(t, &fakeReader{in: make(chan kafka.Message)}, nil, 0)
	assert.Error(t, c.Start())
}

func TestHookChainRecoversPanics(t *testing.T) {
	chain := HookChain{
		TraceHook,
		HookFuncs{Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
			panic("boom")
		}},
	}
	_, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var hookErr *HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "ERR_PANIC", hookErr.Code)
}

func TestBackoffBounds(t *testing.T) {
	for attempt := 1; attempt < 10; attempt++ {
		d := backoff(10*time.Millisecond, 80*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 80*time.Millisecond)
	}
}
