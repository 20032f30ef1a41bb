package dynamo

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/biolens/auth-api/internal/otp"
)

// otpItem is one pending code. PK: identifier (email or phone — not user ID,
// the user may not exist yet). expires_at doubles as the table's TTL attribute.
type otpItem struct {
	Identifier string `dynamodbav:"identifier"`
	Code       string `dynamodbav:"code"`
	IssuedAt   int64  `dynamodbav:"issued_at"`
	ExpiresAt  int64  `dynamodbav:"expires_at"`
}

// OTPRepo is an otp.Store backed by DynamoDB, for deployments where more than
// one API process must see the same codes. Semantics match otp.MemoryStore:
// last send wins, first successful verify consumes, expiry is checked lazily
// (the table TTL is only a janitor, Dynamo TTL deletion can lag by hours).
type OTPRepo struct {
	client    *dynamodb.Client
	tableName string
	expiry    time.Duration
}

func NewOTPRepo(client *dynamodb.Client, tableName string, expiry time.Duration) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName, expiry: expiry}
}

func (r *OTPRepo) Send(ctx context.Context, identifier string) (string, error) {
	code, err := otp.GenerateCode()
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	item, err := attributevalue.MarshalMap(otpItem{
		Identifier: identifier,
		Code:       code,
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(r.expiry).Unix(),
	})
	if err != nil {
		return "", err
	}
	// Unconditional put: a re-send replaces any prior code for the identifier.
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

func (r *OTPRepo) Verify(ctx context.Context, identifier, code string) (bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("identifier", identifier),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, err
	}
	if out.Item == nil {
		return false, nil
	}
	var item otpItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return false, err
	}
	if time.Now().Unix() > item.ExpiresAt {
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key:       strKey("identifier", identifier),
		})
		return false, err
	}
	if item.Code != code {
		// Mismatch keeps the record: retries are allowed until expiry.
		return false, nil
	}
	// Conditional delete is the single-use gate under concurrent verifies:
	// only the request that actually removes the matching code succeeds.
	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("identifier", identifier),
		ConditionExpression: aws.String("code = :c"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: code},
		},
	})
	if err != nil {
		if isConditionalCancel(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
