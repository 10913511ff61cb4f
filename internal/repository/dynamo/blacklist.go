// Package dynamo implements the blacklist repository on DynamoDB.
//
// Table layout: partition key "email" (S), sort key "sk" (S) holding the
// fixed-width creation time followed by "#" and the entry ID, so a forward
// Query on an email returns its earliest entry first.
package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ignite/blacklist-api/internal/domain"
	"github.com/ignite/blacklist-api/internal/service/blacklist"
)

// sortKeyTime is lexically ordered, unlike RFC3339Nano which trims zeros.
const sortKeyTime = "2006-01-02T15:04:05.000000000Z"

// API is the subset of *dynamodb.Client used by the repository.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// item is the stored representation of a domain.BlacklistEntry.
type item struct {
	Email         string `dynamodbav:"email"`
	SK            string `dynamodbav:"sk"`
	ID            string `dynamodbav:"id"`
	AppUUID       string `dynamodbav:"app_uuid"`
	BlockedReason string `dynamodbav:"blocked_reason"`
	RequestIP     string `dynamodbav:"request_ip,omitempty"`
	RequestTime   string `dynamodbav:"request_time,omitempty"`
	CreatedAt     string `dynamodbav:"created_at"`
}

// BlacklistRepo implements blacklist.Repository against a DynamoDB table.
type BlacklistRepo struct {
	client    API
	tableName string
}

// NewClient builds a DynamoDB client from the default AWS credential chain.
// A non-empty endpoint overrides the service URL (DynamoDB Local, LocalStack).
func NewClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// NewBlacklistRepo creates a DynamoDB-backed blacklist repository.
func NewBlacklistRepo(client API, tableName string) *BlacklistRepo {
	return &BlacklistRepo{client: client, tableName: tableName}
}

func (r *BlacklistRepo) Insert(ctx context.Context, e *domain.BlacklistEntry) error {
	it := item{
		Email:         e.Email,
		SK:            e.CreatedAt.UTC().Format(sortKeyTime) + "#" + e.ID,
		ID:            e.ID,
		AppUUID:       e.AppUUID,
		BlockedReason: e.BlockedReason,
		RequestIP:     e.RequestIP,
		CreatedAt:     e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if e.RequestTime != nil {
		it.RequestTime = e.RequestTime.UTC().Format(time.RFC3339Nano)
	}

	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return fmt.Errorf("marshaling blacklist entry: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(sk)"),
	})
	if err != nil {
		return fmt.Errorf("put blacklist entry: %w", err)
	}
	return nil
}

func (r *BlacklistRepo) FindByEmail(ctx context.Context, email string) (*domain.BlacklistEntry, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("email = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
		ScanIndexForward: aws.Bool(true),
		ConsistentRead:   aws.Bool(true),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query blacklist entry: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, blacklist.ErrNotFound
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Items[0], &it); err != nil {
		return nil, fmt.Errorf("unmarshaling blacklist entry: %w", err)
	}
	return it.toDomain()
}

func (r *BlacklistRepo) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.tableName),
	})
	return err
}

func (it item) toDomain() (*domain.BlacklistEntry, error) {
	created, err := time.Parse(time.RFC3339Nano, it.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	e := &domain.BlacklistEntry{
		ID:            it.ID,
		Email:         it.Email,
		AppUUID:       it.AppUUID,
		BlockedReason: it.BlockedReason,
		RequestIP:     it.RequestIP,
		CreatedAt:     created.UTC(),
	}
	if it.RequestTime != "" {
		rt, err := time.Parse(time.RFC3339Nano, it.RequestTime)
		if err != nil {
			return nil, fmt.Errorf("parsing request_time: %w", err)
		}
		rt = rt.UTC()
		e.RequestTime = &rt
	}
	return e, nil
}
