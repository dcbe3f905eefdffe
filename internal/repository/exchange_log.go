package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"gemini-chat/internal/domain"
)

const (
	pkPrefixDay  = "DAY#"
	skPrefixExch = "EXCH#"
	dayLayout    = "2006-01-02"
	ttlDuration  = 30 * 24 * time.Hour
)

// dynamodbAPI is the subset of *dynamodb.Client used by ExchangeLog.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ExchangeLog stores one item per /api/chat request, partitioned by UTC day.
type ExchangeLog struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

func New(api dynamodbAPI, tableName string) (*ExchangeLog, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &ExchangeLog{api: api, tableName: tableName, now: time.Now}, nil
}

func dayPK(t time.Time) string {
	return pkPrefixDay + t.UTC().Format(dayLayout)
}

func exchangeSK(t time.Time, id string) string {
	return skPrefixExch + t.UTC().Format(time.RFC3339Nano) + "#" + id
}

// RecordExchange fills in keys, creation time and TTL, then writes ex.
func (l *ExchangeLog) RecordExchange(ctx context.Context, ex domain.Exchange) error {
	if strings.TrimSpace(ex.ID) == "" {
		return errors.New("repository: RecordExchange: exchange id is required")
	}
	now := l.now().UTC()
	ex.PK = dayPK(now)
	ex.SK = exchangeSK(now, ex.ID)
	ex.CreatedAt = now.Format(time.RFC3339Nano)
	ex.TTL = now.Add(ttlDuration).Unix()

	_, err := l.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                exchangeItem(ex),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: RecordExchange: %w", err)
	}
	return nil
}

// RecentExchanges returns up to limit exchanges of the given UTC day, newest first.
func (l *ExchangeLog) RecentExchanges(ctx context.Context, day time.Time, limit int) ([]domain.Exchange, error) {
	if limit <= 0 {
		limit = 20
	}
	out, err := l.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(l.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: dayPK(day)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixExch},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: RecentExchanges query: %w", err)
	}

	exchanges := make([]domain.Exchange, 0, len(out.Items))
	for _, item := range out.Items {
		ex, err := itemToExchange(item)
		if err != nil {
			return nil, fmt.Errorf("repository: RecentExchanges unmarshal: %w", err)
		}
		exchanges = append(exchanges, ex)
	}
	return exchanges, nil
}

func exchangeItem(ex domain.Exchange) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":            &types.AttributeValueMemberS{Value: ex.PK},
		"SK":            &types.AttributeValueMemberS{Value: ex.SK},
		"id":            &types.AttributeValueMemberS{Value: ex.ID},
		"status":        &types.AttributeValueMemberS{Value: ex.Status},
		"model":         &types.AttributeValueMemberS{Value: ex.Model},
		"messageLength": &types.AttributeValueMemberN{Value: strconv.Itoa(ex.MessageLength)},
		"latencyMs":     &types.AttributeValueMemberN{Value: strconv.FormatInt(ex.LatencyMillis, 10)},
		"createdAt":     &types.AttributeValueMemberS{Value: ex.CreatedAt},
		"ttl":           &types.AttributeValueMemberN{Value: strconv.FormatInt(ex.TTL, 10)},
	}
	if ex.ErrorCode != "" {
		item["errorCode"] = &types.AttributeValueMemberS{Value: ex.ErrorCode}
	}
	return item
}

func itemToExchange(item map[string]types.AttributeValue) (domain.Exchange, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.Exchange{}, err
	}
	sk, err := strAttr(item, "SK")
	if err != nil {
		return domain.Exchange{}, err
	}
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.Exchange{}, err
	}
	status, err := strAttr(item, "status")
	if err != nil {
		return domain.Exchange{}, err
	}
	errorCode, _ := strAttr(item, "errorCode") // absent on success
	model, _ := strAttr(item, "model")
	createdAt, _ := strAttr(item, "createdAt")
	length, _ := intAttr(item, "messageLength")
	latency, _ := intAttr(item, "latencyMs")

	return domain.Exchange{
		PK:            pk,
		SK:            sk,
		ID:            id,
		Status:        status,
		ErrorCode:     errorCode,
		Model:         model,
		MessageLength: int(length),
		LatencyMillis: latency,
		CreatedAt:     createdAt,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
