package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/biolens/auth-api/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
//
// DynamoDB has no unique constraints, so uniqueness of email, phone_number and
// google_sub is enforced with guard items in a separate uniques table: creating
// a user writes the user item and one guard item per candidate key inside a
// single TransactWriteItems, each conditioned on the key not existing yet. A
// losing concurrent create fails the whole transaction, which surfaces as
// domain.ErrConflict — the distinguishable signal the identity resolver's
// recheck path depends on.
type UserRepo struct {
	client       *dynamodb.Client
	tableName    string
	uniquesTable string
}

func NewUserRepo(client *dynamodb.Client, tableName, uniquesTable string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName, uniquesTable: uniquesTable}
}

// Guard item key prefixes, one namespace per candidate key.
const (
	uniqueEmailPrefix  = "email#"
	uniquePhonePrefix  = "phone#"
	uniqueGooglePrefix = "google#"
)

func guardValues(u *domain.User) []string {
	var vals []string
	if u.Email != nil {
		vals = append(vals, uniqueEmailPrefix+*u.Email)
	}
	if u.PhoneNumber != nil {
		vals = append(vals, uniquePhonePrefix+*u.PhoneNumber)
	}
	if u.GoogleSub != nil {
		vals = append(vals, uniqueGooglePrefix+*u.GoogleSub)
	}
	return vals
}

// Create inserts the user and claims its candidate keys atomically.
// Returns domain.ErrConflict when any key is already claimed.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	writes := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(user_id)"),
		},
	}}
	for _, v := range guardValues(u) {
		writes = append(writes, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(r.uniquesTable),
				Item: map[string]types.AttributeValue{
					"value":   &types.AttributeValueMemberS{Value: v},
					"user_id": &types.AttributeValueMemberS{Value: u.UserID},
				},
				ConditionExpression: aws.String("attribute_not_exists(#v)"),
				ExpressionAttributeNames: map[string]string{"#v": "value"},
			},
		})
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: writes,
	})
	if err != nil {
		if isConditionalCancel(err) {
			return fmt.Errorf("identity key already claimed: %w", domain.ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.queryGSI(ctx, "email-index", "email", email)
}

func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.queryGSI(ctx, "phone-index", "phone_number", phone)
}

func (r *UserRepo) GetByGoogleSub(ctx context.Context, sub string) (*domain.User, error) {
	return r.queryGSI(ctx, "google_sub-index", "google_sub", sub)
}

func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	expr, names, values, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err
}

// BackfillGoogleSub attaches a Google subject to an existing user, claiming the
// guard item in the same transaction. Returns domain.ErrConflict when another
// user already owns the subject.
func (r *UserRepo) BackfillGoogleSub(ctx context.Context, userID, sub string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName: aws.String(r.uniquesTable),
					Item: map[string]types.AttributeValue{
						"value":   &types.AttributeValueMemberS{Value: uniqueGooglePrefix + sub},
						"user_id": &types.AttributeValueMemberS{Value: userID},
					},
					ConditionExpression:      aws.String("attribute_not_exists(#v)"),
					ExpressionAttributeNames: map[string]string{"#v": "value"},
				},
			},
			{
				Update: &types.Update{
					TableName:        aws.String(r.tableName),
					Key:              strKey("user_id", userID),
					UpdateExpression: aws.String("SET google_sub = :s, updated_at = :t"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":s": &types.AttributeValueMemberS{Value: sub},
						":t": &types.AttributeValueMemberS{Value: now},
					},
					ConditionExpression: aws.String("attribute_not_exists(google_sub)"),
				},
			},
		},
	})
	if err != nil {
		if isConditionalCancel(err) {
			return fmt.Errorf("google subject already claimed: %w", domain.ErrConflict)
		}
		return fmt.Errorf("backfill google sub: %w", err)
	}
	return nil
}

func (r *UserRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user by %s: %w", attr, domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// isConditionalCancel reports whether err is a transaction cancelled (or plain
// conditional write failed) because a condition expression did not hold.
func isConditionalCancel(err error) bool {
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return true
			}
		}
		return false
	}
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
