package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

// DynamoDB key layout. Every blob lives in its own item:
// PK = "BLOB#{key}", SK = "DATA".
const (
	pkPrefix = "BLOB#"
	skData   = "DATA"
)

// MaxDynamoBlobBytes is the largest value DynamoStore accepts. DynamoDB
// caps an item at 400KB including attribute names and keys.
const MaxDynamoBlobBytes = 400*1024 - 1024

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoStore implements KV on a single DynamoDB table with PK/SK keys.
// Values over MaxDynamoBlobBytes are rejected with ErrTooLarge; a history
// holding more than a design or two belongs in S3.
type DynamoStore struct {
	client    DynamoAPI
	tableName string
}

var _ KV = (*DynamoStore)(nil)

// blobRecord is the attribute layout of one item.
type blobRecord struct {
	Data      []byte `dynamodbav:"data"`
	UpdatedAt int64  `dynamodbav:"updatedAt"`
}

// NewDynamoStore creates a DynamoStore for the given table.
func NewDynamoStore(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

func blobPK(key string) string {
	return pkPrefix + key
}

func (s *DynamoStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	pk := blobPK(key)
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: skData},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem PK=%s SK=%s: %w", pk, skData, err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var rec blobRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal PK=%s SK=%s: %w", pk, skData, err)
	}
	return rec.Data, nil
}

func (s *DynamoStore) Put(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if len(data) > MaxDynamoBlobBytes {
		return fmt.Errorf("%w: %s is %d bytes, DynamoDB items hold at most %d", ErrTooLarge, key, len(data), MaxDynamoBlobBytes)
	}
	pk := blobPK(key)
	item, err := attributevalue.MarshalMap(blobRecord{Data: data, UpdatedAt: time.Now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: skData}
	item["size"] = &types.AttributeValueMemberN{Value: strconv.Itoa(len(data))}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem PK=%s SK=%s: %w", pk, skData, err)
	}
	log.Debug().Str("table", s.tableName).Str("pk", pk).Int("bytes", len(data)).Msg("Blob written to DynamoDB")
	return nil
}

func (s *DynamoStore) Close() error { return nil }
