package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/flowclust/distance"
	"github.com/hupe1980/flowclust/distcache"
)

// DDBClient is the subset of the DynamoDB API used by Index.
type DDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

const (
	attrName    = "name"
	attrDataset = "dataset"
	attrMetric  = "metric"
	attrRows    = "rows"
	attrBytes   = "bytes"
	attrCreated = "created"
)

// Index records committed cache entries in a DynamoDB table.
type Index struct {
	client DDBClient
	table  string
}

var _ distcache.Index = (*Index)(nil)

// New creates an index over table.
func New(client DDBClient, table string) *Index {
	return &Index{client: client, table: table}
}

// Lookup returns the record for name. Reads are strongly consistent.
func (x *Index) Lookup(ctx context.Context, name string) (distcache.Entry, bool, error) {
	resp, err := x.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(x.table),
		Key: map[string]types.AttributeValue{
			attrName: &types.AttributeValueMemberS{Value: name},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return distcache.Entry{}, false, fmt.Errorf("failed to get item from DynamoDB: %w", err)
	}
	if len(resp.Item) == 0 {
		return distcache.Entry{}, false, nil
	}

	e, err := decodeEntry(resp.Item)
	if err != nil {
		return distcache.Entry{}, false, fmt.Errorf("invalid distcache record %q: %w", name, err)
	}
	return e, true, nil
}

// Register writes the record for e unless one already exists. Entries are
// content addressed, so an existing record describes the same matrix and
// losing the race is not an error.
func (x *Index) Register(ctx context.Context, e distcache.Entry) error {
	_, err := x.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(x.table),
		Item:                encodeEntry(e),
		ConditionExpression: aws.String("attribute_not_exists(#n)"),
		ExpressionAttributeNames: map[string]string{
			"#n": attrName,
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil
		}
		return fmt.Errorf("failed to register entry in DynamoDB: %w", err)
	}
	return nil
}

func encodeEntry(e distcache.Entry) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrName:    &types.AttributeValueMemberS{Value: e.Name},
		attrDataset: &types.AttributeValueMemberS{Value: e.Dataset},
		attrMetric:  &types.AttributeValueMemberN{Value: strconv.Itoa(int(e.Metric))},
		attrRows:    &types.AttributeValueMemberN{Value: strconv.Itoa(e.Rows)},
		attrBytes:   &types.AttributeValueMemberN{Value: strconv.FormatInt(e.Bytes, 10)},
		attrCreated: &types.AttributeValueMemberS{Value: e.Created.UTC().Format(time.RFC3339Nano)},
	}
}

func decodeEntry(item map[string]types.AttributeValue) (distcache.Entry, error) {
	var e distcache.Entry
	var err error

	if e.Name, err = str(item, attrName); err != nil {
		return e, err
	}
	if e.Dataset, err = str(item, attrDataset); err != nil {
		return e, err
	}
	metric, err := num(item, attrMetric)
	if err != nil {
		return e, err
	}
	e.Metric = distance.Metric(metric)
	rows, err := num(item, attrRows)
	if err != nil {
		return e, err
	}
	e.Rows = int(rows)
	if e.Bytes, err = num(item, attrBytes); err != nil {
		return e, err
	}
	created, err := str(item, attrCreated)
	if err != nil {
		return e, err
	}
	if e.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return e, fmt.Errorf("attribute %s: %w", attrCreated, err)
	}
	return e, nil
}

func str(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("missing or invalid %s attribute", key)
	}
	return v.Value, nil
}

func num(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("missing or invalid %s attribute", key)
	}
	n, err := strconv.ParseInt(v.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("attribute %s: %w", key, err)
	}
	return n, nil
}
