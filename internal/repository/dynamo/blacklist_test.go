package dynamo

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ignite/blacklist-api/internal/domain"
	"github.com/ignite/blacklist-api/internal/service/blacklist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo keeps items per partition key and answers forward queries.
type fakeDynamo struct {
	mu        sync.Mutex
	items     map[string][]map[string]types.AttributeValue
	lastQuery *dynamodb.QueryInput
	err       error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string][]map[string]types.AttributeValue)}
}

func strAttr(av map[string]types.AttributeValue, key string) string {
	if s, ok := av[key].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	pk := strAttr(in.Item, "email")
	f.items[pk] = append(f.items[pk], in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = in
	pk := strAttr(in.ExpressionAttributeValues, ":email")
	items := append([]map[string]types.AttributeValue(nil), f.items[pk]...)
	sort.Slice(items, func(i, j int) bool { return strAttr(items[i], "sk") < strAttr(items[j], "sk") })
	if in.Limit != nil && int(*in.Limit) < len(items) {
		items = items[:*in.Limit]
	}
	return &dynamodb.QueryOutput{Items: items, Count: int32(len(items))}, nil
}

func (f *fakeDynamo) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableName: in.TableName}}, nil
}

func TestBlacklistRepo_InsertThenFind(t *testing.T) {
	fake := newFakeDynamo()
	repo := NewBlacklistRepo(fake, "blacklist")
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rt := created.Add(-time.Second)

	require.NoError(t, repo.Insert(ctx, &domain.BlacklistEntry{
		ID:            "id-1",
		Email:         "test@example.com",
		AppUUID:       "12345",
		BlockedReason: "spam",
		RequestIP:     "192.168.1.1",
		RequestTime:   &rt,
		CreatedAt:     created,
	}))

	e, err := repo.FindByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", e.ID)
	assert.Equal(t, "12345", e.AppUUID)
	assert.Equal(t, "spam", e.BlockedReason)
	assert.Equal(t, "192.168.1.1", e.RequestIP)
	require.NotNil(t, e.RequestTime)
	assert.True(t, rt.Equal(*e.RequestTime))
	assert.True(t, created.Equal(e.CreatedAt))

	require.NotNil(t, fake.lastQuery)
	assert.Equal(t, "blacklist", aws.ToString(fake.lastQuery.TableName))
	assert.True(t, aws.ToBool(fake.lastQuery.ScanIndexForward))
	assert.Equal(t, int32(1), aws.ToInt32(fake.lastQuery.Limit))
}

func TestBlacklistRepo_FindByEmail_EarliestWins(t *testing.T) {
	repo := NewBlacklistRepo(newFakeDynamo(), "blacklist")
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// Sub-second precision must still sort correctly against whole seconds.
	require.NoError(t, repo.Insert(ctx, &domain.BlacklistEntry{ID: "b", Email: "dup@example.com", AppUUID: "late", BlockedReason: "r", CreatedAt: base.Add(time.Second)}))
	require.NoError(t, repo.Insert(ctx, &domain.BlacklistEntry{ID: "a", Email: "dup@example.com", AppUUID: "early", BlockedReason: "r", CreatedAt: base.Add(500 * time.Millisecond)}))

	e, err := repo.FindByEmail(ctx, "dup@example.com")
	require.NoError(t, err)
	assert.Equal(t, "early", e.AppUUID)
}

func TestBlacklistRepo_FindByEmail_NotFound(t *testing.T) {
	repo := NewBlacklistRepo(newFakeDynamo(), "blacklist")

	_, err := repo.FindByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, blacklist.ErrNotFound)
}

func TestBlacklistRepo_OmitsEmptyOptionalFields(t *testing.T) {
	fake := newFakeDynamo()
	repo := NewBlacklistRepo(fake, "blacklist")

	require.NoError(t, repo.Insert(context.Background(), &domain.BlacklistEntry{
		ID: "id", Email: "a@example.com", AppUUID: "x", BlockedReason: "y", CreatedAt: time.Now(),
	}))

	stored := fake.items["a@example.com"][0]
	_, hasIP := stored["request_ip"]
	_, hasTime := stored["request_time"]
	assert.False(t, hasIP)
	assert.False(t, hasTime)

	e, err := repo.FindByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Nil(t, e.RequestTime)
}

func TestBlacklistRepo_WrapsClientErrors(t *testing.T) {
	fake := newFakeDynamo()
	fake.err = errors.New("ResourceNotFoundException")
	repo := NewBlacklistRepo(fake, "blacklist")
	ctx := context.Background()

	assert.ErrorIs(t, repo.Insert(ctx, &domain.BlacklistEntry{ID: "id", Email: "a@b.c", CreatedAt: time.Now()}), fake.err)
	_, err := repo.FindByEmail(ctx, "a@b.c")
	assert.ErrorIs(t, err, fake.err)
	assert.Error(t, repo.Ping(ctx))
}
