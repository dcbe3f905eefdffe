// Package app builds the reply pipeline from configuration. The Lambda
// entrypoint and the serve command both start here.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"gemini-chat/internal/config"
	"gemini-chat/internal/integrations/gemini"
	"gemini-chat/internal/integrations/paramstore"
	"gemini-chat/internal/repository"
	"gemini-chat/internal/usecase"
)

type SSMAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type DynamoDBAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// AWS holds the optional AWS clients. A nil field means the matching
// feature is off.
type AWS struct {
	SSM      SSMAPI
	DynamoDB DynamoDBAPI
}

// LoadAWS creates only the clients cfg asks for. Without any AWS settings it
// never touches the AWS credential chain.
func LoadAWS(ctx context.Context, cfg *config.Config) (AWS, error) {
	if !cfg.UsesAWS() {
		return AWS{}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return AWS{}, fmt.Errorf("app: load AWS config: %w", err)
	}

	var clients AWS
	if cfg.AWS.ParamPrefix != "" {
		clients.SSM = ssm.NewFromConfig(awsCfg)
	}
	if cfg.AWS.ExchangeTable != "" {
		clients.DynamoDB = dynamodb.NewFromConfig(awsCfg)
	}
	return clients, nil
}

// NewReplyService wires the Gemini client, its key sources and the optional
// exchange log into a usecase.ReplyService.
func NewReplyService(cfg *config.Config, clients AWS, logger *slog.Logger) (*usecase.ReplyService, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	keys, err := keySources(cfg, clients)
	if err != nil {
		return nil, err
	}
	llm, err := gemini.NewClient(keys,
		gemini.WithBaseURL(cfg.Gemini.BaseURL),
		gemini.WithTimeout(cfg.Gemini.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("app: create gemini client: %w", err)
	}

	opts := []usecase.ReplyOption{
		usecase.WithLogger(logger),
		usecase.WithMaxMessageLength(cfg.Server.MaxMessageLength),
	}
	if cfg.AWS.ExchangeTable != "" {
		log, err := NewExchangeLog(cfg, clients)
		if err != nil {
			return nil, err
		}
		opts = append(opts, usecase.WithRecorder(log))
	}

	svc, err := usecase.NewReplyService(llm, cfg.Gemini.Model, opts...)
	if err != nil {
		return nil, fmt.Errorf("app: create reply service: %w", err)
	}
	return svc, nil
}

// NewExchangeLog opens the DynamoDB exchange log named in cfg.
func NewExchangeLog(cfg *config.Config, clients AWS) (*repository.ExchangeLog, error) {
	if cfg.AWS.ExchangeTable == "" {
		return nil, errors.New("app: aws.exchange_table is not set")
	}
	if clients.DynamoDB == nil {
		return nil, errors.New("app: exchange log needs a DynamoDB client")
	}
	log, err := repository.New(clients.DynamoDB, cfg.AWS.ExchangeTable)
	if err != nil {
		return nil, fmt.Errorf("app: create exchange log: %w", err)
	}
	return log, nil
}

// keySources prefers the configured key and falls back to SSM when a
// parameter prefix is set.
func keySources(cfg *config.Config, clients AWS) (gemini.FirstKey, error) {
	keys := gemini.FirstKey{gemini.StaticKey(cfg.Gemini.APIKey)}

	name := cfg.KeyParameterName()
	if name == "" {
		return keys, nil
	}
	if clients.SSM == nil {
		return nil, errors.New("app: key parameter needs an SSM client")
	}
	store, err := paramstore.New(clients.SSM)
	if err != nil {
		return nil, fmt.Errorf("app: create paramstore client: %w", err)
	}
	psKey, err := gemini.NewParamStoreKey(store, name)
	if err != nil {
		return nil, fmt.Errorf("app: create paramstore key source: %w", err)
	}
	return append(keys, psKey), nil
}

// NewLogger returns a JSON logger for services or a text logger for
// interactive use.
func NewLogger(w io.Writer, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
