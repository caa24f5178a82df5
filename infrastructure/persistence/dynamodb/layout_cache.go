// Package dynamodb persists layout cache entries in a DynamoDB table keyed
// by collection, for deployments where instances share cached layouts.
package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"screengraph-backend/application/ports"
	"screengraph-backend/domain/core/valueobjects"
)

// DynamoDBAPI captures the subset of the DynamoDB client the store uses
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *awsdynamodb.GetItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *awsdynamodb.PutItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.PutItemOutput, error)
}

// LayoutCacheStore stores one item per collection in a DynamoDB table with
// a string partition key named "collection"
type LayoutCacheStore struct {
	client DynamoDBAPI
	table  string
}

type cacheRecord struct {
	Collection  string             `dynamodbav:"collection"`
	Fingerprint string             `dynamodbav:"fingerprint"`
	Positions   map[string][]float64 `dynamodbav:"positions"`
	StaleIDs    []string           `dynamodbav:"staleIds"`
	CreatedAt   int64              `dynamodbav:"createdAt"`
}

// NewLayoutCacheStore builds a store around an existing client
func NewLayoutCacheStore(client DynamoDBAPI, table string) (*LayoutCacheStore, error) {
	if table == "" {
		return nil, fmt.Errorf("dynamodb table name cannot be empty")
	}
	return &LayoutCacheStore{client: client, table: table}, nil
}

// NewClient creates a DynamoDB client from the default AWS configuration
func NewClient(ctx context.Context, region string) (*awsdynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return awsdynamodb.NewFromConfig(awsCfg), nil
}

// Restore returns the collection's entry only on an exact fingerprint match
func (s *LayoutCacheStore) Restore(ctx context.Context, collection string, fingerprint valueobjects.Fingerprint) (*ports.LayoutCacheEntry, error) {
	record, err := s.fetch(ctx, collection)
	if err != nil {
		return nil, err
	}
	if record == nil || valueobjects.Fingerprint(record.Fingerprint) != fingerprint {
		return nil, nil
	}

	positions := make(map[valueobjects.ItemID]valueobjects.Position, len(record.Positions))
	for id, xy := range record.Positions {
		if len(xy) != 2 {
			return nil, fmt.Errorf("malformed cached position for %s", id)
		}
		p, err := valueobjects.NewPosition(xy[0], xy[1])
		if err != nil {
			return nil, fmt.Errorf("decoding cached position for %s: %w", id, err)
		}
		positions[valueobjects.ItemID(id)] = p
	}

	stale := make([]valueobjects.ItemID, 0, len(record.StaleIDs))
	for _, id := range record.StaleIDs {
		stale = append(stale, valueobjects.ItemID(id))
	}

	return &ports.LayoutCacheEntry{
		Fingerprint: fingerprint,
		Positions:   positions,
		StaleIDs:    stale,
		CreatedAt:   time.Unix(0, record.CreatedAt).UTC(),
	}, nil
}

// Store replaces the collection's item; a fresh store clears stale ids
func (s *LayoutCacheStore) Store(ctx context.Context, collection string, entry *ports.LayoutCacheEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	positions := make(map[string][]float64, len(entry.Positions))
	for id, p := range entry.Positions {
		positions[string(id)] = []float64{p.X(), p.Y()}
	}

	record := cacheRecord{
		Collection:  collection,
		Fingerprint: string(entry.Fingerprint),
		Positions:   positions,
		StaleIDs:    []string{},
		CreatedAt:   createdAt.UnixNano(),
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshaling cache record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("writing cache record: %w", err)
	}
	return nil
}

// InvalidateRegion merges ids into the stored stale set. Read-modify-write
// is acceptable here: concurrent invalidations at worst lose a stale mark,
// which the next full rebuild corrects.
func (s *LayoutCacheStore) InvalidateRegion(ctx context.Context, collection string, ids []valueobjects.ItemID) error {
	record, err := s.fetch(ctx, collection)
	if err != nil {
		return err
	}
	if record == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(record.StaleIDs)+len(ids))
	for _, id := range record.StaleIDs {
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := seen[string(id)]; ok {
			continue
		}
		seen[string(id)] = struct{}{}
		record.StaleIDs = append(record.StaleIDs, string(id))
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshaling cache record: %w", err)
	}
	_, err = s.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("writing stale ids: %w", err)
	}
	return nil
}

// Close is a no-op; the AWS client needs no teardown
func (s *LayoutCacheStore) Close() error {
	return nil
}

func (s *LayoutCacheStore) fetch(ctx context.Context, collection string) (*cacheRecord, error) {
	out, err := s.client.GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"collection": &types.AttributeValueMemberS{Value: collection},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("reading cache record: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var record cacheRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return nil, fmt.Errorf("unmarshaling cache record: %w", err)
	}
	return &record, nil
}
