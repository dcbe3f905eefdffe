package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gemini-chat/internal/domain"
)

type stubBackend struct {
	reply string
	err   error
	calls int
	got   []string
}

func (s *stubBackend) Send(_ context.Context, message string) (string, error) {
	s.calls++
	s.got = append(s.got, message)
	return s.reply, s.err
}

// blockingBackend holds each call open until release is closed.
type blockingBackend struct {
	started chan struct{}
	release chan struct{}
	reply   string
	calls   atomic.Int32
}

func newBlockingBackend(reply string) *blockingBackend {
	return &blockingBackend{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
		reply:   reply,
	}
}

func (b *blockingBackend) Send(_ context.Context, _ string) (string, error) {
	b.calls.Add(1)
	b.started <- struct{}{}
	<-b.release
	return b.reply, nil
}

type panicBackend struct{}

func (panicBackend) Send(context.Context, string) (string, error) {
	panic("backend exploded")
}

func newTestController(t *testing.T, b Backend, opts ...Option) *Controller {
	t.Helper()
	seq := 0
	base := []Option{
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
		WithClock(func() time.Time { return time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC) }),
	}
	c, err := NewController(b, append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func contents(msgs []domain.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, string(m.Role)+":"+m.Content)
	}
	return out
}

func TestNewController_NilBackend(t *testing.T) {
	_, err := NewController(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

func TestNewController_SeedsGreeting(t *testing.T) {
	c := newTestController(t, &stubBackend{})

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, domain.RoleAssistant, msgs[0].Role)
	require.Equal(t, Greeting, msgs[0].Content)
	require.False(t, c.Busy())
	require.Equal(t, StateIdle, c.State())
}

func TestSubmit_Success(t *testing.T) {
	b := &stubBackend{reply: "hi there"}
	c := newTestController(t, b)

	require.True(t, c.Send(context.Background(), "hello"))

	require.Equal(t, []string{
		"assistant:" + Greeting,
		"user:hello",
		"assistant:hi there",
	}, contents(c.Messages()))
	require.Equal(t, []string{"hello"}, b.got)
	require.False(t, c.Busy())
	require.Empty(t, c.Input())
}

func TestSubmit_SendsTextAsTyped(t *testing.T) {
	b := &stubBackend{reply: "ok"}
	c := newTestController(t, b)

	require.True(t, c.Send(context.Background(), "  spaced out  "))
	require.Equal(t, []string{"  spaced out  "}, b.got)
	require.Equal(t, "  spaced out  ", c.Messages()[1].Content)
}

func TestSubmit_BlankInputIsNoop(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		b := &stubBackend{reply: "x"}
		c := newTestController(t, b)

		require.False(t, c.Send(context.Background(), in), "input=%q", in)
		require.Len(t, c.Messages(), 1)
		require.False(t, c.Busy())
		require.Zero(t, b.calls)
	}
}

func TestSubmit_FailureUsesFallback(t *testing.T) {
	b := &stubBackend{err: errors.New("connection refused")}
	c := newTestController(t, b)

	require.True(t, c.Send(context.Background(), "test"))
	require.Equal(t, []string{
		"assistant:" + Greeting,
		"user:test",
		"assistant:" + FallbackReply,
	}, contents(c.Messages()))
	require.False(t, c.Busy())
}

func TestSubmit_FallbackIsIdenticalAcrossFailures(t *testing.T) {
	failures := []Backend{
		&stubBackend{err: errors.New("network down")},
		&stubBackend{err: errors.New("status error")},
		&stubBackend{err: errors.New("decode response")},
		panicBackend{},
	}
	for _, b := range failures {
		c := newTestController(t, b)
		require.True(t, c.Send(context.Background(), "hello"))
		msgs := c.Messages()
		require.Len(t, msgs, 3)
		require.Equal(t, FallbackReply, msgs[2].Content)
		require.False(t, c.Busy())
	}
}

func TestSubmit_PanickingBackendReleasesBusy(t *testing.T) {
	c := newTestController(t, panicBackend{})

	require.NotPanics(t, func() { c.Send(context.Background(), "boom") })
	require.False(t, c.Busy())
	require.Equal(t, StateIdle, c.State())

	// the session keeps working afterwards
	c.backend = &stubBackend{reply: "recovered"}
	require.True(t, c.Send(context.Background(), "again"))
	require.Equal(t, "recovered", c.Messages()[4].Content)
}

func TestSubmit_DroppedWhileBusy(t *testing.T) {
	b := newBlockingBackend("first reply")
	c := newTestController(t, b)

	done := make(chan bool)
	go func() { done <- c.Send(context.Background(), "hello") }()
	<-b.started

	require.True(t, c.Busy())
	require.Equal(t, StateAwaitingReply, c.State())
	require.Len(t, c.Messages(), 2)

	c.SetInput("user typed draft")
	require.False(t, c.Send(context.Background(), "hello again"))
	require.False(t, c.Submit(context.Background()))
	require.Len(t, c.Messages(), 2)
	require.Equal(t, "user typed draft", c.Input(), "draft is kept, not auto-sent")
	require.False(t, c.CanSubmit())

	close(b.release)
	require.True(t, <-done)

	require.Equal(t, int32(1), b.calls.Load())
	require.Equal(t, []string{
		"assistant:" + Greeting,
		"user:hello",
		"assistant:first reply",
	}, contents(c.Messages()))
	require.Equal(t, "user typed draft", c.Input())
	require.True(t, c.CanSubmit())
}

func TestSubmit_ConcurrentCallersIssueOneBackendCall(t *testing.T) {
	b := newBlockingBackend("only one")
	c := newTestController(t, b)
	c.SetInput("race")

	var wg sync.WaitGroup
	var accepted atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Submit(context.Background()) {
				accepted.Add(1)
			}
		}()
	}
	<-b.started
	close(b.release)
	wg.Wait()

	require.Equal(t, int32(1), accepted.Load())
	require.Equal(t, int32(1), b.calls.Load())
	require.Len(t, c.Messages(), 3)
}

func TestSubmit_UserMessageVisibleBeforeSettle(t *testing.T) {
	b := newBlockingBackend("later")
	var snapshots [][]string
	var busy []bool
	var c *Controller
	c = newTestController(t, b, WithOnChange(func() {
		snapshots = append(snapshots, contents(c.Messages()))
		busy = append(busy, c.Busy())
	}))

	done := make(chan struct{})
	go func() {
		c.Send(context.Background(), "hello")
		close(done)
	}()
	<-b.started
	close(b.release)
	<-done

	require.Len(t, snapshots, 2)
	require.Equal(t, []bool{true, false}, busy)
	require.Equal(t, []string{"assistant:" + Greeting, "user:hello"}, snapshots[0])
	require.Equal(t, "assistant:later", snapshots[1][2])
}

func TestSend_BlankTextKeepsDraft(t *testing.T) {
	b := &stubBackend{reply: "x"}
	c := newTestController(t, b)
	c.SetInput("draft")

	require.False(t, c.Send(context.Background(), "   "))
	require.Equal(t, "draft", c.Input())
	require.Zero(t, b.calls)
}

func TestSubmit_TranscriptKeepsAppendOrder(t *testing.T) {
	b := &stubBackend{reply: "same"}
	c := newTestController(t, b)

	for _, in := range []string{"a", "b", "a"} {
		require.True(t, c.Send(context.Background(), in))
	}

	require.Equal(t, []string{
		"assistant:" + Greeting,
		"user:a", "assistant:same",
		"user:b", "assistant:same",
		"user:a", "assistant:same",
	}, contents(c.Messages()))

	seen := map[string]bool{}
	for _, m := range c.Messages() {
		require.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
	}
}

func TestMessages_ReturnsCopy(t *testing.T) {
	c := newTestController(t, &stubBackend{})
	msgs := c.Messages()
	msgs[0].Content = "tampered"
	require.Equal(t, Greeting, c.Messages()[0].Content)
}

func TestToggleGuide_IndependentOfExchange(t *testing.T) {
	b := newBlockingBackend("reply")
	c := newTestController(t, b)
	require.False(t, c.GuideVisible())

	done := make(chan struct{})
	go func() {
		c.Send(context.Background(), "hello")
		close(done)
	}()
	<-b.started

	require.True(t, c.ToggleGuide())
	require.True(t, c.GuideVisible())
	require.True(t, c.Busy())
	require.Len(t, c.Messages(), 2)

	close(b.release)
	<-done
	require.False(t, c.ToggleGuide())
	require.Len(t, c.Messages(), 3)
}

func TestState_String(t *testing.T) {
	require.Equal(t, "idle", StateIdle.String())
	require.Equal(t, "awaiting_reply", StateAwaitingReply.String())
	require.Equal(t, "State(7)", State(7).String())
}
