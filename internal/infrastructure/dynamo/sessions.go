package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-docverify/internal/domain"
	"github.com/go-docverify/internal/pkg/otp"
)

// dynamoAPI is the item-level subset of *dynamodb.Client the store uses.
type dynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// SessionRepo stores verification sessions in one table.
// PK: session_id. purge_at (expires_at + TTL) drives DynamoDB TTL deletion;
// locked marks an id whose attempts ran out.
type SessionRepo struct {
	client      dynamoAPI
	tableName   string
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewSessionRepo(client dynamoAPI, tableName string, ttl time.Duration, maxAttempts int) *SessionRepo {
	return &SessionRepo{client: client, tableName: tableName, ttl: ttl, maxAttempts: maxAttempts, now: time.Now}
}

func (r *SessionRepo) Create(ctx context.Context, s *domain.VerificationSession) (string, error) {
	if s.SessionID == "" {
		id, err := otp.NewSessionID()
		if err != nil {
			return "", err
		}
		s.SessionID = id
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now()
	}
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = s.CreatedAt.Add(r.ttl)
	}
	s.Attempts = 0

	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	item[fieldLocked] = boolAttr(false)
	item[fieldPurgeAt] = unixAttr(s.ExpiresAt.Add(r.ttl))

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": fieldSessionID,
		},
	})
	if isConditionFailed(err) {
		return "", fmt.Errorf("session %s: %w", s.SessionID, domain.ErrConflict)
	}
	if err != nil {
		return "", fmt.Errorf("dynamo put session: %w", err)
	}
	return s.SessionID, nil
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*domain.VerificationSession, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldSessionID, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo get session: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrInvalidSession)
	}
	var s domain.VerificationSession
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	// an exhausted item may not carry the lock marker yet
	if lockedItem(out.Item) || s.Attempts >= r.maxAttempts {
		// TTL deletion lags; a lapsed lock reads as gone.
		if r.now().Before(s.ExpiresAt) {
			return nil, fmt.Errorf("session %s: %w", id, domain.ErrTooManyAttempts)
		}
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrInvalidSession)
	}
	return &s, nil
}

// pendingCondition holds for an item that can still be confirmed or fail.
// The attempts guard covers the gap between the increment that reaches the
// limit and the lock write.
const pendingCondition = "attribute_exists(#id) AND #locked = :false AND #attempts < :max"

func (r *SessionRepo) maxAttr() types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.Itoa(r.maxAttempts)}
}

// RecordAttemptFailure increments attempts atomically. The increment that
// reaches the limit strips the secret fields and marks the item locked.
func (r *SessionRepo) RecordAttemptFailure(ctx context.Context, id string) (int, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldSessionID, id),
		UpdateExpression:    aws.String("ADD #attempts :one"),
		ConditionExpression: aws.String(pendingCondition),
		ExpressionAttributeNames: map[string]string{
			"#id":       fieldSessionID,
			"#attempts": fieldAttempts,
			"#locked":   fieldLocked,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":   &types.AttributeValueMemberN{Value: "1"},
			":false": boolAttr(false),
			":max":   r.maxAttr(),
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		return 0, r.missing(ctx, id)
	}
	if err != nil {
		return 0, fmt.Errorf("dynamo update session: %w", err)
	}

	attempts := 0
	if n, ok := out.Attributes[fieldAttempts].(*types.AttributeValueMemberN); ok {
		attempts, _ = strconv.Atoi(n.Value)
	}
	if attempts < r.maxAttempts {
		return attempts, nil
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldSessionID, id),
		UpdateExpression:    aws.String("SET #locked = :true REMOVE #otp, #number, #name"),
		ConditionExpression: aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id":     fieldSessionID,
			"#locked": fieldLocked,
			"#otp":    fieldOTPHash,
			"#number": fieldExtractedNumber,
			"#name":   fieldHolderName,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true": boolAttr(true),
		},
	})
	if err != nil && !isConditionFailed(err) {
		return attempts, fmt.Errorf("dynamo lock session: %w", err)
	}
	return attempts, fmt.Errorf("session %s: %w", id, domain.ErrTooManyAttempts)
}

// Consume deletes the item and returns what it held. The conditional
// delete lets exactly one caller win.
func (r *SessionRepo) Consume(ctx context.Context, id string) (*domain.VerificationSession, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldSessionID, id),
		ConditionExpression: aws.String(pendingCondition),
		ExpressionAttributeNames: map[string]string{
			"#id":       fieldSessionID,
			"#attempts": fieldAttempts,
			"#locked":   fieldLocked,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":false": boolAttr(false),
			":max":   r.maxAttr(),
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if isConditionFailed(err) {
		return nil, r.missing(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("dynamo delete session: %w", err)
	}
	var s domain.VerificationSession
	if err := attributevalue.UnmarshalMap(out.Attributes, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}

// Expire deletes a pending session. Lockout markers are left for TTL.
func (r *SessionRepo) Expire(ctx context.Context, id string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldSessionID, id),
		ConditionExpression: aws.String("attribute_not_exists(#locked) OR #locked = :false"),
		ExpressionAttributeNames: map[string]string{
			"#locked": fieldLocked,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":false": boolAttr(false),
		},
	})
	if err != nil && !isConditionFailed(err) {
		return fmt.Errorf("dynamo delete session: %w", err)
	}
	return nil
}

// missing explains a failed condition: the id is locked, gone, or (after a
// lost race) consumed by someone else.
func (r *SessionRepo) missing(ctx context.Context, id string) error {
	_, err := r.Get(ctx, id)
	if err == nil {
		return fmt.Errorf("session %s: %w", id, domain.ErrInvalidSession)
	}
	return err
}
