package repository

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"memorial-narrator/internal/domain"
)

type fakeDynamo struct {
	getOuts     map[string]*dynamodb.GetItemOutput
	getErr      error
	putErr      error
	updateErr   error
	queryOuts   []*dynamodb.QueryOutput
	queryErr    error
	txErr       error
	getInputs   []*dynamodb.GetItemInput
	lastPut     *dynamodb.PutItemInput
	lastUpdate  *dynamodb.UpdateItemInput
	queryInputs []dynamodb.QueryInput
	lastTx      *dynamodb.TransactWriteItemsInput
}

func pkOf(k map[string]types.AttributeValue) string {
	return k["PK"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.getInputs = append(f.getInputs, in)
	if f.getErr != nil {
		return nil, f.getErr
	}
	if out, ok := f.getOuts[pkOf(in.Key)]; ok {
		return out, nil
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPut = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.lastUpdate = in
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queryInputs = append(f.queryInputs, *in)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if len(f.queryOuts) == 0 {
		return &dynamodb.QueryOutput{}, nil
	}
	out := f.queryOuts[0]
	f.queryOuts = f.queryOuts[1:]
	return out, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.lastTx = in
	return &dynamodb.TransactWriteItemsOutput{}, f.txErr
}

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }
func n(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("failed")}
}

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "test-table")
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestNew_Validates(t *testing.T) {
	_, err := New(nil, "t")
	require.Error(t, err)
	_, err = New(&fakeDynamo{}, " ")
	require.Error(t, err)
}

func TestGetMemorial_HappyPath(t *testing.T) {
	db := &fakeDynamo{getOuts: map[string]*dynamodb.GetItemOutput{
		"MEMORIAL#m1": {Item: map[string]types.AttributeValue{
			"PK": s("MEMORIAL#m1"), "SK": s(skMeta),
			"memorialId": s("m1"), "ownerId": s("u1"), "fullName": s("Walter"),
			"tone": s("humorous"), "style": s("poetic"), "memoryCount": n("3"),
			"updatedAt": s("2024-05-01T12:00:00Z"),
		}},
	}}
	c := mustNewClient(t, db)

	m, err := c.GetMemorial(context.Background(), "m1")
	require.NoError(t, err)
	require.Equal(t, "Walter", m.FullName)
	require.Equal(t, "u1", m.OwnerID)
	require.Equal(t, domain.ToneHumorous, m.Tone)
	require.Equal(t, 3, m.MemoryCount)
	require.True(t, aws.ToBool(db.getInputs[0].ConsistentRead))
}

func TestGetMemorial_NotFound(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{})
	_, err := c.GetMemorial(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetMemorial_Errors(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{getErr: errors.New("boom")})
	_, err := c.GetMemorial(context.Background(), "m1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "GetMemorial")

	c = mustNewClient(t, &fakeDynamo{getOuts: map[string]*dynamodb.GetItemOutput{
		"MEMORIAL#m1": {Item: map[string]types.AttributeValue{"memorialId": s("m1")}},
	}})
	_, err = c.GetMemorial(context.Background(), "m1")
	require.ErrorContains(t, err, "unmarshal")
}

func TestCreateMemorial_NormalizesVoice(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	m, err := c.CreateMemorial(context.Background(), domain.Memorial{FullName: "Ada", OwnerID: "u1", Tone: "loud"})
	require.NoError(t, err)
	require.NotEmpty(t, m.ID)
	require.Equal(t, domain.ToneWarm, m.Tone)
	require.Equal(t, "attribute_not_exists(PK)", aws.ToString(db.lastPut.ConditionExpression))
	require.Equal(t, s("warm"), db.lastPut.Item["tone"])

	_, err = c.CreateMemorial(context.Background(), domain.Memorial{FullName: "Ada"})
	require.Error(t, err)
}

func TestSaveNarrative(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	require.NoError(t, c.SaveNarrative(context.Background(), "m1", "I was born..."))
	require.Equal(t, s("I was born..."), db.lastUpdate.ExpressionAttributeValues[":narrative"])
	require.Equal(t, "MEMORIAL#m1", pkOf(db.lastUpdate.Key))

	db.updateErr = conditionFailed()
	require.ErrorIs(t, c.SaveNarrative(context.Background(), "m1", "x"), domain.ErrNotFound)

	db.updateErr = errors.New("throttled")
	err := c.SaveNarrative(context.Background(), "m1", "x")
	require.ErrorContains(t, err, "SaveNarrative")
	require.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateVoice(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	require.NoError(t, c.UpdateVoice(context.Background(), "m1", domain.Voice{Tone: domain.ToneReflective, Style: domain.StyleFormal}))
	require.Equal(t, s("reflective"), db.lastUpdate.ExpressionAttributeValues[":tone"])
	require.Equal(t, s("formal"), db.lastUpdate.ExpressionAttributeValues[":style"])
}

func TestAddMemory_Transaction(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	m, err := c.AddMemory(context.Background(), domain.Memory{MemorialID: "m1", Content: "Fishing at dawn", ContributorName: "Chris"})
	require.NoError(t, err)
	require.NotEmpty(t, m.ID)
	require.Len(t, db.lastTx.TransactItems, 3)

	put := db.lastTx.TransactItems[0].Put
	require.Equal(t, "MEMORIAL#m1", pkOf(put.Item))
	require.Equal(t, s(memorySK(m.CreatedAt, m.ID)), put.Item["SK"])
	require.Equal(t, "MEMORY#"+m.ID, pkOf(db.lastTx.TransactItems[1].Put.Item))
	require.Equal(t, "ADD memoryCount :one", aws.ToString(db.lastTx.TransactItems[2].Update.UpdateExpression))

	_, err = c.AddMemory(context.Background(), domain.Memory{MemorialID: "m1", Content: " "})
	require.Error(t, err)

	db.txErr = &types.TransactionCanceledException{CancellationReasons: []types.CancellationReason{
		{Code: aws.String("None")}, {Code: aws.String("None")}, {Code: aws.String("ConditionalCheckFailed")},
	}}
	_, err = c.AddMemory(context.Background(), domain.Memory{MemorialID: "gone", Content: "x"})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListByMemorial_PaginatesInOrder(t *testing.T) {
	item := func(id string) map[string]types.AttributeValue {
		return map[string]types.AttributeValue{
			"memoryId": s(id), "memorialId": s("m1"), "content": s("content " + id), "emotion": s("Funny"),
		}
	}
	db := &fakeDynamo{queryOuts: []*dynamodb.QueryOutput{
		{Items: []map[string]types.AttributeValue{item("a"), item("b")}, LastEvaluatedKey: map[string]types.AttributeValue{"PK": s("MEMORIAL#m1")}},
		{Items: []map[string]types.AttributeValue{item("c")}},
	}}
	c := mustNewClient(t, db)

	got, err := c.ListByMemorial(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []string{"a", "b", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
	require.Equal(t, domain.EmotionFunny, got[0].Emotion)

	require.Len(t, db.queryInputs, 2)
	require.True(t, aws.ToBool(db.queryInputs[0].ScanIndexForward))
	require.Nil(t, db.queryInputs[0].ExclusiveStartKey)
	require.NotNil(t, db.queryInputs[1].ExclusiveStartKey)
}

func TestListByMemorial_QueryError(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{queryErr: errors.New("boom")})
	_, err := c.ListByMemorial(context.Background(), "m1")
	require.ErrorContains(t, err, "ListByMemorial")
}

func refItem() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": s("MEMORY#x1"), "SK": s(skRef), "memorialId": s("m1"), "memorySk": s("MEMORY#2024#x1"),
	}
}

func TestGetMemory_ResolvesThroughRef(t *testing.T) {
	db := &fakeDynamo{getOuts: map[string]*dynamodb.GetItemOutput{
		"MEMORY#x1":   {Item: refItem()},
		"MEMORIAL#m1": {Item: map[string]types.AttributeValue{"memoryId": s("x1"), "content": s("hi"), "contributorId": s("u2")}},
	}}
	c := mustNewClient(t, db)

	m, err := c.GetMemory(context.Background(), "x1")
	require.NoError(t, err)
	require.Equal(t, "u2", m.ContributorID)
	require.Len(t, db.getInputs, 2)
	require.Equal(t, s("MEMORY#2024#x1"), db.getInputs[1].Key["SK"])

	_, err = c.GetMemory(context.Background(), "unknown")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteMemory(t *testing.T) {
	db := &fakeDynamo{getOuts: map[string]*dynamodb.GetItemOutput{"MEMORY#x1": {Item: refItem()}}}
	c := mustNewClient(t, db)

	require.NoError(t, c.DeleteMemory(context.Background(), "x1"))
	require.Len(t, db.lastTx.TransactItems, 3)
	require.Equal(t, s("MEMORY#2024#x1"), db.lastTx.TransactItems[0].Delete.Key["SK"])
	require.Equal(t, n("-1"), db.lastTx.TransactItems[2].Update.ExpressionAttributeValues[":minus"])

	require.ErrorIs(t, c.DeleteMemory(context.Background(), "unknown"), domain.ErrNotFound)
}

func TestRateLimitStore_RoundTrip(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 30, 0, time.UTC)
	db := &fakeDynamo{getOuts: map[string]*dynamodb.GetItemOutput{
		"RATELIMIT#u1": {Item: map[string]types.AttributeValue{"tsMillis": n("1714564830000")}},
	}}
	c := mustNewClient(t, db)

	got, ok, err := c.LastTimestamp(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, ts.Equal(got))

	_, ok, err = c.LastTimestamp(context.Background(), "u2")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Record(context.Background(), "u1", ts))
	require.Equal(t, n("1714564830000"), db.lastPut.Item["tsMillis"])
	require.Equal(t, "attribute_not_exists(PK) OR tsMillis < :ts", aws.ToString(db.lastPut.ConditionExpression))
}

func TestRecord_OlderTimestampIgnored(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{putErr: conditionFailed()})
	require.NoError(t, c.Record(context.Background(), "u1", time.Now()))

	c = mustNewClient(t, &fakeDynamo{putErr: errors.New("boom")})
	require.ErrorContains(t, c.Record(context.Background(), "u1", time.Now()), "Record")
}

func TestMemorySK_SortsByTimeWithinOneSecond(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 5, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(100 * time.Millisecond),
		base.Add(123 * time.Millisecond),
		base.Add(500 * time.Millisecond),
		base.Add(500*time.Millisecond + time.Nanosecond),
		base.Add(time.Second),
	}
	// Ids sort against time so only the timestamp can order the keys.
	ids := []string{"01F", "01E", "01D", "01C", "01B", "01A"}
	for i := 1; i < len(times); i++ {
		prev := memorySK(times[i-1], ids[i-1])
		next := memorySK(times[i], ids[i])
		require.Less(t, prev, next)
	}
	require.Equal(t, "MEMORY#2024-05-01T10:00:05.100000000Z#01A", memorySK(base.Add(100*time.Millisecond), "01A"))
}

func TestRateLimitTTL(t *testing.T) {
	require.Equal(t, DefaultRateLimitTTL, RateLimitTTL(time.Minute))
	require.Equal(t, 72*time.Hour, RateLimitTTL(72*time.Hour))
}

func TestRecord_TTLOutlivesLongWindow(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	db := &fakeDynamo{}
	require.NoError(t, mustNewClient(t, db).Record(context.Background(), "u1", ts))
	require.Equal(t, n(strconv.FormatInt(ts.Add(DefaultRateLimitTTL).Unix(), 10)), db.lastPut.Item["ttl"])

	db = &fakeDynamo{}
	c, err := New(db, "test-table", WithRateLimitTTL(48*time.Hour))
	require.NoError(t, err)
	require.NoError(t, c.Record(context.Background(), "u1", ts))
	require.Equal(t, n(strconv.FormatInt(ts.Add(48*time.Hour).Unix(), 10)), db.lastPut.Item["ttl"])
}
