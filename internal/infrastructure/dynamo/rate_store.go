package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"fx-margin-guard/internal/application"
	"fx-margin-guard/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var _ application.RateStore = (*RateStore)(nil)

// RateStore keeps rates in a table keyed by (currencyPair, timestamp ms).
// Expiry is left to the table's native TTL on the ttl attribute.
type RateStore struct {
	api   API
	table string
}

func NewRateStore(api API, table string) *RateStore {
	return &RateStore{api: api, table: table}
}

func (s *RateStore) Append(ctx context.Context, rec domain.RateRecord) error {
	return s.putNew(ctx, rec)
}

// PutDailyReferenceIfAbsent relies on the reference item's pinned sort key, so
// the existence condition covers the whole derived key.
func (s *RateStore) PutDailyReferenceIfAbsent(ctx context.Context, rec domain.RateRecord) (bool, error) {
	err := s.putNew(ctx, rec)
	if errors.Is(err, domain.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *RateStore) putNew(ctx context.Context, rec domain.RateRecord) error {
	item, err := attributevalue.MarshalMap(toRateItem(rec))
	if err != nil {
		return fmt.Errorf("marshal rate: %w", err)
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": attrPair,
		},
	})
	if isConditionFailed(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("put rate %s: %w", rec.CurrencyPair, err)
	}
	return nil
}

func (s *RateStore) Latest(ctx context.Context, pair domain.Pair) (domain.RateRecord, error) {
	return s.first(ctx, &dynamodb.QueryInput{
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": attrPair,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: string(pair)},
		},
		ScanIndexForward: aws.Bool(false),
	})
}

func (s *RateStore) AtOrBefore(ctx context.Context, pair domain.Pair, at time.Time) (domain.RateRecord, error) {
	return s.first(ctx, &dynamodb.QueryInput{
		KeyConditionExpression: aws.String("#pk = :pk AND #ts <= :ts"),
		ExpressionAttributeNames: map[string]string{
			"#pk": attrPair,
			"#ts": attrTimestamp,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: string(pair)},
			":ts": &types.AttributeValueMemberN{Value: strconv.FormatInt(domain.ToMillis(at), 10)},
		},
		ScanIndexForward: aws.Bool(false),
	})
}

func (s *RateStore) ByDerivedKey(ctx context.Context, key string) (domain.RateRecord, error) {
	return s.first(ctx, &dynamodb.QueryInput{
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": attrPair,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: key},
		},
	})
}

func (s *RateStore) first(ctx context.Context, in *dynamodb.QueryInput) (domain.RateRecord, error) {
	in.TableName = aws.String(s.table)
	in.Limit = aws.Int32(1)
	out, err := s.api.Query(ctx, in)
	if err != nil {
		return domain.RateRecord{}, fmt.Errorf("query rates: %w", err)
	}
	if len(out.Items) == 0 {
		return domain.RateRecord{}, domain.ErrNotFound
	}
	var it rateItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &it); err != nil {
		return domain.RateRecord{}, fmt.Errorf("unmarshal rate: %w", err)
	}
	return it.record(), nil
}
