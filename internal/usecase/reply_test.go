package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gemini-chat/internal/domain"
	"gemini-chat/internal/integrations/gemini"
)

type mockLLM struct {
	reply     string
	err       error
	gotModel  string
	gotText   string
	callCount int
}

func (m *mockLLM) Generate(_ context.Context, model, text string) (string, error) {
	m.callCount++
	m.gotModel = model
	m.gotText = text
	return m.reply, m.err
}

type mockRecorder struct {
	recorded []domain.Exchange
	err      error
}

func (m *mockRecorder) RecordExchange(_ context.Context, ex domain.Exchange) error {
	m.recorded = append(m.recorded, ex)
	return m.err
}

func newTestService(t *testing.T, llm Generator, opts ...ReplyOption) *ReplyService {
	t.Helper()
	s, err := NewReplyService(llm, "gemini-test", opts...)
	require.NoError(t, err)
	return s
}

func requireCode(t *testing.T, err error, code ErrorCode, reason string) {
	t.Helper()
	var ucErr *Error
	require.True(t, errors.As(err, &ucErr), "expected *usecase.Error, got %T", err)
	require.Equal(t, code, ucErr.Code)
	require.Equal(t, reason, ucErr.Reason)
}

func TestNewReplyService_ValidatesDependency(t *testing.T) {
	_, err := NewReplyService(nil, "m")
	require.Error(t, err)
}

func TestNewReplyService_DefaultModel(t *testing.T) {
	s, err := NewReplyService(&mockLLM{}, "  ")
	require.NoError(t, err)
	require.Equal(t, "gemini-1.5-flash", s.Model())
}

func TestReply_HappyPath(t *testing.T) {
	llm := &mockLLM{reply: "hi there"}
	s := newTestService(t, llm)

	out, err := s.Reply(context.Background(), ReplyInput{Message: "  hello  "})
	require.NoError(t, err)
	require.Equal(t, "hi there", out.Reply)
	require.Equal(t, "gemini-test", out.Model)
	require.Equal(t, "  hello  ", llm.gotText, "message is forwarded unchanged")
	require.Equal(t, "gemini-test", llm.gotModel)
}

func TestReply_EmptyMessage(t *testing.T) {
	llm := &mockLLM{reply: "x"}
	s := newTestService(t, llm)

	_, err := s.Reply(context.Background(), ReplyInput{Message: " \n "})
	requireCode(t, err, ErrorInvalidInput, "empty_message")
	require.Zero(t, llm.callCount)
}

func TestReply_TooLong(t *testing.T) {
	llm := &mockLLM{reply: "x"}
	s := newTestService(t, llm, WithMaxMessageLength(5))

	_, err := s.Reply(context.Background(), ReplyInput{Message: "こんにちは"})
	require.NoError(t, err, "five runes fit")

	_, err = s.Reply(context.Background(), ReplyInput{Message: strings.Repeat("a", 6)})
	requireCode(t, err, ErrorInvalidInput, "message_too_long")
	require.Equal(t, 1, llm.callCount)
}

func TestReply_UpstreamError(t *testing.T) {
	llm := &mockLLM{err: &gemini.HTTPStatusError{StatusCode: http.StatusForbidden, URL: "u", Body: "bad key"}}
	s := newTestService(t, llm)

	_, err := s.Reply(context.Background(), ReplyInput{Message: "hello"})
	requireCode(t, err, ErrorUpstream, "gemini_error")

	var statusErr *gemini.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}

func TestReply_EmptyModelReply(t *testing.T) {
	s := newTestService(t, &mockLLM{reply: "   "})
	_, err := s.Reply(context.Background(), ReplyInput{Message: "hello"})
	requireCode(t, err, ErrorUpstream, "empty_reply")
}

func TestReply_RecordsSuccess(t *testing.T) {
	rec := &mockRecorder{}
	s := newTestService(t, &mockLLM{reply: "ok"}, WithRecorder(rec))
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick = tick.Add(40 * time.Millisecond)
		return tick
	}
	restore := newUUID
	newUUID = func() string { return "ex-1" }
	t.Cleanup(func() { newUUID = restore })

	_, err := s.Reply(context.Background(), ReplyInput{Message: "héllo"})
	require.NoError(t, err)

	require.Len(t, rec.recorded, 1)
	ex := rec.recorded[0]
	require.Equal(t, "ex-1", ex.ID)
	require.Equal(t, domain.StatusSuccess, ex.Status)
	require.Empty(t, ex.ErrorCode)
	require.Equal(t, "gemini-test", ex.Model)
	require.Equal(t, 5, ex.MessageLength)
	require.Equal(t, int64(40), ex.LatencyMillis)
}

func TestReply_RecordsFailureCode(t *testing.T) {
	rec := &mockRecorder{}
	s := newTestService(t, &mockLLM{err: errors.New("boom")}, WithRecorder(rec))

	_, err := s.Reply(context.Background(), ReplyInput{Message: "hello"})
	require.Error(t, err)
	require.Len(t, rec.recorded, 1)
	require.Equal(t, domain.StatusError, rec.recorded[0].Status)
	require.Equal(t, string(ErrorUpstream), rec.recorded[0].ErrorCode)
}

func TestReply_RecorderFailureDoesNotChangeResult(t *testing.T) {
	rec := &mockRecorder{err: errors.New("dynamodb down")}
	s := newTestService(t, &mockLLM{reply: "still fine"}, WithRecorder(rec))

	out, err := s.Reply(context.Background(), ReplyInput{Message: "hello"})
	require.NoError(t, err)
	require.Equal(t, "still fine", out.Reply)
	require.Len(t, rec.recorded, 1)
}

func TestError_Format(t *testing.T) {
	require.Equal(t, "usecase: INVALID_INPUT (empty_message)", newError(ErrorInvalidInput, "empty_message", nil).Error())
	err := newError(ErrorUpstream, "gemini_error", errors.New("boom"))
	require.Equal(t, "usecase: UPSTREAM_ERROR (gemini_error): boom", err.Error())
	require.EqualError(t, errors.Unwrap(err), "boom")

	var nilErr *Error
	require.Empty(t, nilErr.Error())
	require.NoError(t, nilErr.Unwrap())
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", newError(ErrorInvalidInput, ReasonEmptyMessage, nil))
	require.Equal(t, ErrorInvalidInput, CodeOf(wrapped))
	require.Equal(t, ErrorInternal, CodeOf(errors.New("boom")))
	require.Equal(t, ErrorInternal, CodeOf(nil))
}
