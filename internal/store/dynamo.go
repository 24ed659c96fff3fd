package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

// DynamoDB key constants for the single-table design.
const (
	pkPrefix = "LIBRARY#"
	skPrompt = "PROMPT#"
)

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoStore implements PromptStore using AWS DynamoDB.
type DynamoStore struct {
	client    DynamoAPI
	tableName string
}

// Compile-time interface check.
var _ PromptStore = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table.
// The client should be initialized from the shared AWS config.
func NewDynamoStore(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
	}
}

// --- Internal helpers ---

// libraryPK returns the partition key for an owner's library.
func libraryPK(owner string) string {
	return pkPrefix + owner
}

func promptKey(owner, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: libraryPK(owner)},
		"SK": &types.AttributeValueMemberS{Value: skPrompt + id},
	}
}

// --- PromptStore ---

func (s *DynamoStore) PutPrompt(ctx context.Context, owner string, p SavedPrompt) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	for k, v := range promptKey(owner, p.ID) {
		item[k] = v
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem owner=%s id=%s: %w", owner, p.ID, err)
	}
	log.Debug().Str("owner", owner).Str("prompt_id", p.ID).Msg("Saved prompt to DynamoDB")
	return nil
}

func (s *DynamoStore) ListPrompts(ctx context.Context, owner string) ([]SavedPrompt, error) {
	pk := libraryPK(owner)
	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :skPrefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":       &types.AttributeValueMemberS{Value: pk},
			":skPrefix": &types.AttributeValueMemberS{Value: skPrompt},
		},
	}

	prompts := []SavedPrompt{}
	// Query pages at 1MB.
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("Query PK=%s: %w", pk, err)
		}
		for _, item := range result.Items {
			var p SavedPrompt
			if err := attributevalue.UnmarshalMap(item, &p); err != nil {
				return nil, fmt.Errorf("unmarshal prompt: %w", err)
			}
			if sk, ok := item["SK"].(*types.AttributeValueMemberS); ok {
				p.ID = strings.TrimPrefix(sk.Value, skPrompt)
			}
			prompts = append(prompts, p)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	sortNewestFirst(prompts)
	return prompts, nil
}

func (s *DynamoStore) DeletePrompt(ctx context.Context, owner, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.tableName,
		Key:       promptKey(owner, id),
	})
	if err != nil {
		return fmt.Errorf("DeleteItem owner=%s id=%s: %w", owner, id, err)
	}
	return nil
}
