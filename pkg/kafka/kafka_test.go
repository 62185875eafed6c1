package kafka

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reload struct {
	Reason string `json:"reason"`
}

func TestToMessages(t *testing.T) {
	msgs, err := toMessages([]Event{
		{Key: "fuzzy", Value: reload{Reason: "nightly"}},
		{Key: "index", Value: map[string]int{"generation": 3}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "fuzzy", string(msgs[0].Key))
	assert.JSONEq(t, `{"reason":"nightly"}`, string(msgs[0].Value))
	assert.JSONEq(t, `{"generation":3}`, string(msgs[1].Value))
}

func TestToMessagesRejectsUnencodable(t *testing.T) {
	_, err := toMessages([]Event{{Key: "bad", Value: math.Inf(1)}})
	assert.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[reload]([]byte(`{"reason":"manual"}`))
	require.NoError(t, err)
	assert.Equal(t, "manual", got.Reason)

	_, err = DecodeJSON[reload]([]byte(`{`))
	assert.Error(t, err)
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	fetchErrs int
	committed []int64
	closed    int
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if f.fetchErrs > 0 {
		f.fetchErrs--
		f.mu.Unlock()
		return kafka.Message{}, errors.New("broker unavailable")
	}
	if len(f.queue) > 0 {
		msg := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeReader) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

func TestConsumerCommitsOnlyHandledMessages(t *testing.T) {
	r := &fakeReader{
		fetchErrs: 1,
		queue: []kafka.Message{
			{Offset: 1, Key: []byte("ok"), Value: []byte(`{}`)},
			{Offset: 2, Key: []byte("poison"), Value: []byte(`{`)},
			{Offset: 3, Key: []byte("ok"), Value: []byte(`{}`)},
		},
	}
	var seen []string
	c := newConsumer(r, "corpus-reload", func(_ context.Context, key, value []byte) error {
		seen = append(seen, string(key))
		_, err := DecodeJSON[reload](value)
		return err
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()
	require.Eventually(t, func() bool { return r.pending() == 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	require.NoError(t, c.Close())

	assert.Equal(t, []string{"ok", "poison", "ok"}, seen)
	assert.Equal(t, []int64{1, 3}, r.committed)
	assert.Equal(t, 1, r.closed)
}
