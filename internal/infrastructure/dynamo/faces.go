package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/biolens/auth-api/internal/domain"
)

// FaceRepo stores face-capture metadata records.
// PK: face_id; user_id-index GSI serves the per-user listing.
type FaceRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewFaceRepo(client *dynamodb.Client, tableName string) *FaceRepo {
	return &FaceRepo{client: client, tableName: tableName}
}

func (r *FaceRepo) Put(ctx context.Context, f *domain.FaceImage) error {
	item, err := attributevalue.MarshalMap(f)
	if err != nil {
		return fmt.Errorf("marshal face image: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *FaceRepo) Get(ctx context.Context, faceID string) (*domain.FaceImage, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("face_id", faceID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("face %s: %w", faceID, domain.ErrNotFound)
	}
	var f domain.FaceImage
	if err := attributevalue.UnmarshalMap(out.Item, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FaceRepo) ListByUser(ctx context.Context, userID string) ([]domain.FaceImage, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-index"),
		KeyConditionExpression: aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, err
	}
	var faces []domain.FaceImage
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &faces); err != nil {
		return nil, err
	}
	return faces, nil
}
