package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/oklog/ulid/v2"

	"memorial-narrator/internal/domain"
)

const (
	skMeta         = "META"
	skRef          = "REF"
	skLast         = "LAST"
	skPrefixMemory = "MEMORY#"
	// memorySKTime is fixed width so lexical order matches time order.
	memorySKTime = "2006-01-02T15:04:05.000000000Z"

	// DefaultRateLimitTTL is the minimum lifetime of a stored cooldown record.
	DefaultRateLimitTTL = 24 * time.Hour
)

// RateLimitTTL returns a record lifetime that outlasts the cooldown window.
func RateLimitTTL(window time.Duration) time.Duration {
	return max(window, DefaultRateLimitTTL)
}

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Client stores memorials, memories, and rate-limit timestamps in a single
// DynamoDB table keyed by PK/SK.
//
//	MEMORIAL#<id> / META                    memorial
//	MEMORIAL#<id> / MEMORY#<created>#<id>   memory, sorted by insertion time
//	MEMORY#<id>   / REF                     memory id -> memorial lookup
//	RATELIMIT#<user> / LAST                 newest generation timestamp
type Client struct {
	api          dynamodbAPI
	tableName    string
	now          func() time.Time
	rateLimitTTL time.Duration
}

type Option func(*Client)

// WithRateLimitTTL sets how long rate-limit items live before DynamoDB TTL
// removes them. Values below DefaultRateLimitTTL are raised to it.
func WithRateLimitTTL(ttl time.Duration) Option {
	return func(c *Client) { c.rateLimitTTL = RateLimitTTL(ttl) }
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	c := &Client{api: api, tableName: tableName, now: time.Now, rateLimitTTL: DefaultRateLimitTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func memorialPK(memorialID string) string {
	return "MEMORIAL#" + memorialID
}

func memoryRefPK(memoryID string) string {
	return "MEMORY#" + memoryID
}

func rateLimitPK(userID string) string {
	return "RATELIMIT#" + userID
}

// memorySK orders memories by creation time; the id breaks ties.
func memorySK(createdAt time.Time, memoryID string) string {
	return skPrefixMemory + createdAt.UTC().Format(memorySKTime) + "#" + memoryID
}

func key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, r := range tce.CancellationReasons {
			if aws.ToString(r.Code) == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}

// CreateMemorial writes a new memorial and returns it with its assigned id.
func (c *Client) CreateMemorial(ctx context.Context, m domain.Memorial) (domain.Memorial, error) {
	if strings.TrimSpace(m.OwnerID) == "" {
		return domain.Memorial{}, errors.New("repository: CreateMemorial: owner is required")
	}
	if m.ID == "" {
		m.ID = ulid.Make().String()
	}
	v := m.Voice()
	m.Tone, m.Style = v.Tone, v.Style
	m.MemoryCount = 0
	m.UpdatedAt = c.now().UTC()

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                memorialItem(m),
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return domain.Memorial{}, fmt.Errorf("repository: CreateMemorial: %w", err)
	}
	return m, nil
}

// GetMemorial returns domain.ErrNotFound when the memorial does not exist.
func (c *Client) GetMemorial(ctx context.Context, memorialID string) (domain.Memorial, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            key(memorialPK(memorialID), skMeta),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Memorial{}, fmt.Errorf("repository: GetMemorial get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Memorial{}, domain.ErrNotFound
	}
	m, err := itemToMemorial(out.Item)
	if err != nil {
		return domain.Memorial{}, fmt.Errorf("repository: GetMemorial unmarshal: %w", err)
	}
	return m, nil
}

// SaveNarrative overwrites the stored narrative.
func (c *Client) SaveNarrative(ctx context.Context, memorialID, narrative string) error {
	_, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(c.tableName),
		Key:                 key(memorialPK(memorialID), skMeta),
		UpdateExpression:    aws.String("SET #narrative = :narrative, updatedAt = :now"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames: map[string]string{
			"#narrative": "narrative",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":narrative": &types.AttributeValueMemberS{Value: narrative},
			":now":       &types.AttributeValueMemberS{Value: c.now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("repository: SaveNarrative: %w", err)
	}
	return nil
}

// UpdateVoice sets the memorial's tone and style.
func (c *Client) UpdateVoice(ctx context.Context, memorialID string, voice domain.Voice) error {
	_, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(c.tableName),
		Key:                 key(memorialPK(memorialID), skMeta),
		UpdateExpression:    aws.String("SET tone = :tone, #style = :style, updatedAt = :now"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames: map[string]string{
			"#style": "style",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tone":  &types.AttributeValueMemberS{Value: string(voice.Tone)},
			":style": &types.AttributeValueMemberS{Value: string(voice.Style)},
			":now":   &types.AttributeValueMemberS{Value: c.now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("repository: UpdateVoice: %w", err)
	}
	return nil
}

// AddMemory writes the memory, its id lookup, and the memorial's count in one
// transaction. It fails with domain.ErrNotFound when the memorial is missing.
func (c *Client) AddMemory(ctx context.Context, m domain.Memory) (domain.Memory, error) {
	if strings.TrimSpace(m.Content) == "" {
		return domain.Memory{}, errors.New("repository: AddMemory: content is required")
	}
	if m.ID == "" {
		m.ID = ulid.Make().String()
	}
	m.CreatedAt = c.now().UTC()
	sk := memorySK(m.CreatedAt, m.ID)

	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                memoryItem(m, sk),
					ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(c.tableName),
					Item: map[string]types.AttributeValue{
						"PK":         &types.AttributeValueMemberS{Value: memoryRefPK(m.ID)},
						"SK":         &types.AttributeValueMemberS{Value: skRef},
						"memorialId": &types.AttributeValueMemberS{Value: m.MemorialID},
						"memorySk":   &types.AttributeValueMemberS{Value: sk},
					},
				},
			},
			{
				Update: &types.Update{
					TableName:           aws.String(c.tableName),
					Key:                 key(memorialPK(m.MemorialID), skMeta),
					UpdateExpression:    aws.String("ADD memoryCount :one"),
					ConditionExpression: aws.String("attribute_exists(PK)"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":one": &types.AttributeValueMemberN{Value: "1"},
					},
				},
			},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return domain.Memory{}, domain.ErrNotFound
		}
		return domain.Memory{}, fmt.Errorf("repository: AddMemory: %w", err)
	}
	return m, nil
}

// ListByMemorial returns every memory of a memorial, oldest first.
func (c *Client) ListByMemorial(ctx context.Context, memorialID string) ([]domain.Memory, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: memorialPK(memorialID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixMemory},
		},
		ScanIndexForward: aws.Bool(true),
	}

	var memories []domain.Memory
	for {
		out, err := c.api.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("repository: ListByMemorial query: %w", err)
		}
		for _, item := range out.Items {
			m, err := itemToMemory(item)
			if err != nil {
				return nil, fmt.Errorf("repository: ListByMemorial unmarshal: %w", err)
			}
			memories = append(memories, m)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return memories, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// GetMemory resolves a memory by id through its lookup item.
func (c *Client) GetMemory(ctx context.Context, memoryID string) (domain.Memory, error) {
	memorialID, sk, err := c.memoryRef(ctx, memoryID)
	if err != nil {
		return domain.Memory{}, err
	}
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            key(memorialPK(memorialID), sk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Memory{}, fmt.Errorf("repository: GetMemory get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Memory{}, domain.ErrNotFound
	}
	m, err := itemToMemory(out.Item)
	if err != nil {
		return domain.Memory{}, fmt.Errorf("repository: GetMemory unmarshal: %w", err)
	}
	return m, nil
}

// DeleteMemory removes the memory and its lookup and decrements the count.
func (c *Client) DeleteMemory(ctx context.Context, memoryID string) error {
	memorialID, sk, err := c.memoryRef(ctx, memoryID)
	if err != nil {
		return err
	}
	_, err = c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Delete: &types.Delete{
					TableName:           aws.String(c.tableName),
					Key:                 key(memorialPK(memorialID), sk),
					ConditionExpression: aws.String("attribute_exists(PK)"),
				},
			},
			{
				Delete: &types.Delete{
					TableName: aws.String(c.tableName),
					Key:       key(memoryRefPK(memoryID), skRef),
				},
			},
			{
				Update: &types.Update{
					TableName:        aws.String(c.tableName),
					Key:              key(memorialPK(memorialID), skMeta),
					UpdateExpression: aws.String("ADD memoryCount :minus"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":minus": &types.AttributeValueMemberN{Value: "-1"},
					},
				},
			},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("repository: DeleteMemory: %w", err)
	}
	return nil
}

func (c *Client) memoryRef(ctx context.Context, memoryID string) (memorialID, sk string, err error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            key(memoryRefPK(memoryID), skRef),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", "", fmt.Errorf("repository: memory lookup: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return "", "", domain.ErrNotFound
	}
	if memorialID, err = strAttr(out.Item, "memorialId"); err != nil {
		return "", "", err
	}
	if sk, err = strAttr(out.Item, "memorySk"); err != nil {
		return "", "", err
	}
	return memorialID, sk, nil
}

// LastTimestamp implements ratelimit.Store.
func (c *Client) LastTimestamp(ctx context.Context, userID string) (time.Time, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            key(rateLimitPK(userID), skLast),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return time.Time{}, false, fmt.Errorf("repository: LastTimestamp get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return time.Time{}, false, nil
	}
	ms, err := int64Attr(out.Item, "tsMillis")
	if err != nil {
		return time.Time{}, false, fmt.Errorf("repository: LastTimestamp decode: %w", err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

// Record implements ratelimit.Store. An older timestamp never replaces a newer one.
func (c *Client) Record(ctx context.Context, userID string, ts time.Time) error {
	ms := strconv.FormatInt(ts.UnixMilli(), 10)
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"PK":       &types.AttributeValueMemberS{Value: rateLimitPK(userID)},
			"SK":       &types.AttributeValueMemberS{Value: skLast},
			"userId":   &types.AttributeValueMemberS{Value: userID},
			"tsMillis": &types.AttributeValueMemberN{Value: ms},
			"ttl":      &types.AttributeValueMemberN{Value: strconv.FormatInt(ts.Add(c.rateLimitTTL).Unix(), 10)},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) OR tsMillis < :ts"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ts": &types.AttributeValueMemberN{Value: ms},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil
		}
		return fmt.Errorf("repository: Record: %w", err)
	}
	return nil
}

func memorialItem(m domain.Memorial) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":          &types.AttributeValueMemberS{Value: memorialPK(m.ID)},
		"SK":          &types.AttributeValueMemberS{Value: skMeta},
		"memorialId":  &types.AttributeValueMemberS{Value: m.ID},
		"fullName":    &types.AttributeValueMemberS{Value: m.FullName},
		"birthDate":   &types.AttributeValueMemberS{Value: m.BirthDate},
		"passedDate":  &types.AttributeValueMemberS{Value: m.PassedDate},
		"tone":        &types.AttributeValueMemberS{Value: string(m.Tone)},
		"style":       &types.AttributeValueMemberS{Value: string(m.Style)},
		"narrative":   &types.AttributeValueMemberS{Value: m.Narrative},
		"ownerId":     &types.AttributeValueMemberS{Value: m.OwnerID},
		"memoryCount": &types.AttributeValueMemberN{Value: strconv.Itoa(m.MemoryCount)},
		"updatedAt":   &types.AttributeValueMemberS{Value: m.UpdatedAt.UTC().Format(time.RFC3339)},
	}
}

func itemToMemorial(item map[string]types.AttributeValue) (domain.Memorial, error) {
	id, err := strAttr(item, "memorialId")
	if err != nil {
		return domain.Memorial{}, err
	}
	owner, err := strAttr(item, "ownerId")
	if err != nil {
		return domain.Memorial{}, err
	}
	m := domain.Memorial{
		ID:         id,
		OwnerID:    owner,
		FullName:   optStr(item, "fullName"),
		BirthDate:  optStr(item, "birthDate"),
		PassedDate: optStr(item, "passedDate"),
		Tone:       domain.Tone(optStr(item, "tone")),
		Style:      domain.Style(optStr(item, "style")),
		Narrative:  optStr(item, "narrative"),
	}
	if _, ok := item["memoryCount"]; ok {
		if m.MemoryCount, err = intAttr(item, "memoryCount"); err != nil {
			return domain.Memorial{}, err
		}
	}
	if ts := optStr(item, "updatedAt"); ts != "" {
		if m.UpdatedAt, err = time.Parse(time.RFC3339, ts); err != nil {
			return domain.Memorial{}, fmt.Errorf("repository: parse updatedAt: %w", err)
		}
	}
	return m, nil
}

func memoryItem(m domain.Memory, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":              &types.AttributeValueMemberS{Value: memorialPK(m.MemorialID)},
		"SK":              &types.AttributeValueMemberS{Value: sk},
		"memoryId":        &types.AttributeValueMemberS{Value: m.ID},
		"memorialId":      &types.AttributeValueMemberS{Value: m.MemorialID},
		"contributorId":   &types.AttributeValueMemberS{Value: m.ContributorID},
		"contributorName": &types.AttributeValueMemberS{Value: m.ContributorName},
		"relationship":    &types.AttributeValueMemberS{Value: m.Relationship},
		"timePeriod":      &types.AttributeValueMemberS{Value: m.TimePeriod},
		"emotion":         &types.AttributeValueMemberS{Value: string(m.Emotion)},
		"content":         &types.AttributeValueMemberS{Value: m.Content},
		"createdAt":       &types.AttributeValueMemberS{Value: m.CreatedAt.UTC().Format(time.RFC3339Nano)},
	}
}

func itemToMemory(item map[string]types.AttributeValue) (domain.Memory, error) {
	id, err := strAttr(item, "memoryId")
	if err != nil {
		return domain.Memory{}, err
	}
	content, err := strAttr(item, "content")
	if err != nil {
		return domain.Memory{}, err
	}
	m := domain.Memory{
		ID:              id,
		MemorialID:      optStr(item, "memorialId"),
		ContributorID:   optStr(item, "contributorId"),
		ContributorName: optStr(item, "contributorName"),
		Relationship:    optStr(item, "relationship"),
		TimePeriod:      optStr(item, "timePeriod"),
		Emotion:         domain.ParseEmotion(optStr(item, "emotion")),
		Content:         content,
	}
	if ts := optStr(item, "createdAt"); ts != "" {
		if m.CreatedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return domain.Memory{}, fmt.Errorf("repository: parse createdAt: %w", err)
		}
	}
	return m, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

// optStr returns "" for missing or non-string attributes.
func optStr(item map[string]types.AttributeValue, key string) string {
	s, _ := strAttr(item, key)
	return s
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	n, err := int64Attr(item, key)
	return int(n), err
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
