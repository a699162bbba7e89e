// Package dynamodb persists store snapshots as items of a DynamoDB table keyed
// by storage key. It also works against DynamoDB Local through Endpoint.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"gcms/pkg/domain"
)

// Compile-time contract assertions.
var (
	_ domain.Backend   = (*Store)(nil)
	_ domain.KeyLister = (*Store)(nil)
)

const (
	defaultTable = "gcms-snapshots"
	keyAttr      = "storage_key"
)

// Config holds construction parameters.
type Config struct {
	Table           string // default gcms-snapshots
	Region          string // default us-east-1
	Endpoint        string // optional, e.g. http://localhost:8000
	AccessKeyID     string // optional; default credentials chain otherwise
	SecretAccessKey string
	HTTPClient      *http.Client // optional, used by tests
}

// Store is a domain.Backend over one DynamoDB table with a string hash key.
type Store struct {
	client *dynamodb.Client
	table  string
}

type snapshotItem struct {
	Key       string `dynamodbav:"storage_key"`
	Payload   string `dynamodbav:"payload"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

// New builds a client from cfg. It does not touch the table; call EnsureTable
// when the table may not exist yet.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Table == "" {
		cfg.Table = defaultTable
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	})
	return &Store{client: client, table: cfg.Table}, nil
}

// EnsureTable creates the snapshots table (on-demand billing) unless it
// already exists.
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(s.table),
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{{AttributeName: aws.String(keyAttr), AttributeType: types.ScalarAttributeTypeS}},
		KeySchema:            []types.KeySchemaElement{{AttributeName: aws.String(keyAttr), KeyType: types.KeyTypeHash}},
	})
	var inUse *types.ResourceInUseException
	if err != nil && !errors.As(err, &inUse) {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

func itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{keyAttr: &types.AttributeValueMemberS{Value: key}}
}

// Load implements domain.Backend.
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", key, err)
	}
	if len(out.Item) == 0 {
		return nil, domain.ErrNoSnapshot
	}
	var it snapshotItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return []byte(it.Payload), nil
}

// Save implements domain.Backend. PutItem replaces the whole item.
func (s *Store) Save(ctx context.Context, key string, payload []byte) error {
	av, err := attributevalue.MarshalMap(snapshotItem{
		Key:       key,
		Payload:   string(payload),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(s.table), Item: av}); err != nil {
		return fmt.Errorf("put snapshot %s: %w", key, err)
	}
	return nil
}

// Delete implements domain.Backend; deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{TableName: aws.String(s.table), Key: itemKey(key)}); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}

// Keys scans the table for every storage key.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	p := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                aws.String(s.table),
		ProjectionExpression:     aws.String("#k"),
		ExpressionAttributeNames: map[string]string{"#k": keyAttr},
	})
	keys := []string{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan snapshots: %w", err)
		}
		var items []snapshotItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("decode keys: %w", err)
		}
		for _, it := range items {
			keys = append(keys, it.Key)
		}
	}
	return keys, nil
}

// Driver implements domain.Backend.
func (s *Store) Driver() string { return "dynamodb" }

// Table returns the configured table name.
func (s *Store) Table() string { return s.table }
