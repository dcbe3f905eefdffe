package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"gemini-chat/internal/domain"
)

const (
	defaultModel         = "gemini-1.5-flash"
	defaultMaxMessageLen = 4000
)

// Generator produces a model reply for a single user message.
type Generator interface {
	Generate(ctx context.Context, model, text string) (string, error)
}

// ExchangeRecorder stores the outcome of a request. Implementations must not
// need the message text.
type ExchangeRecorder interface {
	RecordExchange(ctx context.Context, ex domain.Exchange) error
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type ReplyService struct {
	llm           Generator
	recorder      ExchangeRecorder
	logger        *slog.Logger
	model         string
	maxMessageLen int
	now           func() time.Time
}

type ReplyInput struct {
	Message string
}

type ReplyOutput struct {
	Reply string
	Model string
}

type ReplyOption func(*ReplyService)

// WithRecorder enables exchange recording.
func WithRecorder(r ExchangeRecorder) ReplyOption {
	return func(s *ReplyService) {
		s.recorder = r
	}
}

func WithLogger(logger *slog.Logger) ReplyOption {
	return func(s *ReplyService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMaxMessageLength(n int) ReplyOption {
	return func(s *ReplyService) {
		if n > 0 {
			s.maxMessageLen = n
		}
	}
}

func NewReplyService(llm Generator, model string, opts ...ReplyOption) (*ReplyService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultModel
	}
	s := &ReplyService{
		llm:           llm,
		logger:        slog.Default(),
		model:         model,
		maxMessageLen: defaultMaxMessageLen,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *ReplyService) Model() string {
	return s.model
}

// Reply validates the message, asks the model and records the outcome.
func (s *ReplyService) Reply(ctx context.Context, in ReplyInput) (ReplyOutput, error) {
	start := s.now()
	out, err := s.reply(ctx, in)
	s.record(ctx, in, err, s.now().Sub(start))
	return out, err
}

func (s *ReplyService) reply(ctx context.Context, in ReplyInput) (ReplyOutput, error) {
	// The message goes to the model as sent; trimming only decides blankness.
	if strings.TrimSpace(in.Message) == "" {
		return ReplyOutput{}, newError(ErrorInvalidInput, ReasonEmptyMessage, nil)
	}
	if utf8.RuneCountInString(in.Message) > s.maxMessageLen {
		return ReplyOutput{}, newError(ErrorInvalidInput, ReasonMessageTooLong, nil)
	}

	text, err := s.llm.Generate(ctx, s.model, in.Message)
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok {
			s.logger.Warn("model call rejected", "status", status, "model", s.model)
		}
		return ReplyOutput{}, newError(ErrorUpstream, ReasonModelFailed, err)
	}
	if strings.TrimSpace(text) == "" {
		return ReplyOutput{}, newError(ErrorUpstream, ReasonEmptyReply, nil)
	}
	return ReplyOutput{Reply: text, Model: s.model}, nil
}

func (s *ReplyService) record(ctx context.Context, in ReplyInput, err error, latency time.Duration) {
	if s.recorder == nil {
		return
	}
	ex := domain.Exchange{
		ID:            newUUID(),
		Status:        domain.StatusSuccess,
		Model:         s.model,
		MessageLength: utf8.RuneCountInString(in.Message),
		LatencyMillis: latency.Milliseconds(),
	}
	if err != nil {
		ex.Status = domain.StatusError
		ex.ErrorCode = string(CodeOf(err))
	}
	if recErr := s.recorder.RecordExchange(ctx, ex); recErr != nil {
		s.logger.Error("failed to record exchange", "err", recErr, "exchange_id", ex.ID)
	}
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

var newUUID = func() string {
	return uuid.NewString()
}
