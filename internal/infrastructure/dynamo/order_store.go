package dynamo

import (
	"context"
	"fmt"
	"iter"

	"fx-margin-guard/internal/application"
	"fx-margin-guard/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var _ application.OrderImpactStore = (*OrderImpactStore)(nil)

type OrderImpactStore struct {
	api        API
	table      string
	storeIndex string
}

func NewOrderImpactStore(api API, table, storeIndex string) *OrderImpactStore {
	return &OrderImpactStore{api: api, table: table, storeIndex: storeIndex}
}

func (s *OrderImpactStore) Put(ctx context.Context, rec domain.OrderImpactRecord) error {
	item, err := attributevalue.MarshalMap(toOrderItem(rec))
	if err != nil {
		return fmt.Errorf("marshal order impact: %w", err)
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put order impact %s/%s: %w", rec.StoreID, rec.OrderID, err)
	}
	return nil
}

// ListByStore queries the store index newest first, one page per request.
func (s *OrderImpactStore) ListByStore(ctx context.Context, storeID string, r application.DateRange) iter.Seq2[domain.OrderImpactRecord, error] {
	return func(yield func(domain.OrderImpactRecord, error) bool) {
		p := dynamodb.NewQueryPaginator(s.api, s.listInput(storeID, r))
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				yield(domain.OrderImpactRecord{}, fmt.Errorf("query store index: %w", err))
				return
			}
			var items []orderItem
			if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
				yield(domain.OrderImpactRecord{}, fmt.Errorf("unmarshal order impacts: %w", err))
				return
			}
			for _, it := range items {
				rec, err := it.record()
				if err != nil {
					yield(domain.OrderImpactRecord{}, fmt.Errorf("order %s: %w", it.OrderID, err))
					return
				}
				if !yield(rec, nil) {
					return
				}
			}
		}
	}
}

func (s *OrderImpactStore) listInput(storeID string, r application.DateRange) *dynamodb.QueryInput {
	cond := "#sk = :sk"
	names := map[string]string{"#sk": attrStoreID}
	values := map[string]types.AttributeValue{
		":sk": &types.AttributeValueMemberS{Value: storeID},
	}
	switch {
	case !r.From.IsZero() && !r.To.IsZero():
		cond += " AND #od BETWEEN :from AND :to"
	case !r.From.IsZero():
		cond += " AND #od >= :from"
	case !r.To.IsZero():
		cond += " AND #od <= :to"
	}
	if !r.From.IsZero() {
		values[":from"] = &types.AttributeValueMemberS{Value: formatOrderDate(r.From)}
	}
	if !r.To.IsZero() {
		values[":to"] = &types.AttributeValueMemberS{Value: formatOrderDate(r.To)}
	}
	if !r.From.IsZero() || !r.To.IsZero() {
		names["#od"] = attrOrderDate
	}
	return &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		IndexName:                 aws.String(s.storeIndex),
		KeyConditionExpression:    aws.String(cond),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(false),
	}
}
