package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"storygen/internal/domain"
)

const (
	pkPrefixStory = "STORY#"
	skMeta        = "META#"
)

// ErrNotFound is returned by GetStory when no story has the given id.
var ErrNotFound = errors.New("repository: story not found")

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Client wraps a DynamoDB table used as the story archive.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

func storyPK(id string) string {
	return pkPrefixStory + id
}

// SaveStory writes a new archive record. Existing ids are never overwritten.
func (c *Client) SaveStory(ctx context.Context, story domain.ArchivedStory) error {
	if strings.TrimSpace(story.ID) == "" {
		return errors.New("repository: SaveStory: id is required")
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                storyItem(story),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: SaveStory: %w", err)
	}
	return nil
}

// GetStory loads an archived story by id.
func (c *Client) GetStory(ctx context.Context, id string) (domain.ArchivedStory, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ArchivedStory{}, errors.New("repository: GetStory: id is required")
	}

	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: storyPK(id)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.ArchivedStory{}, fmt.Errorf("repository: GetStory get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.ArchivedStory{}, ErrNotFound
	}

	story, err := itemToStory(out.Item)
	if err != nil {
		return domain.ArchivedStory{}, fmt.Errorf("repository: GetStory unmarshal: %w", err)
	}
	return story, nil
}

func storyItem(s domain.ArchivedStory) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":                 &types.AttributeValueMemberS{Value: storyPK(s.ID)},
		"SK":                 &types.AttributeValueMemberS{Value: skMeta},
		"storyId":            &types.AttributeValueMemberS{Value: s.ID},
		"role":               &types.AttributeValueMemberS{Value: s.Role},
		"feature":            &types.AttributeValueMemberS{Value: s.Feature},
		"benefit":            &types.AttributeValueMemberS{Value: s.Benefit},
		"model":              &types.AttributeValueMemberS{Value: s.Model},
		"story":              &types.AttributeValueMemberS{Value: s.Result.Story},
		"technicalNotes":     stringList(s.Result.TechnicalNotes),
		"acceptanceCriteria": stringList(s.Result.AcceptanceCriteria),
		"createdAt":          &types.AttributeValueMemberS{Value: s.CreatedAt.UTC().Format(time.RFC3339)},
	}
}

// itemToStory converts a DynamoDB attribute map to an ArchivedStory.
func itemToStory(item map[string]types.AttributeValue) (domain.ArchivedStory, error) {
	var (
		s   domain.ArchivedStory
		err error
	)
	if s.ID, err = strAttr(item, "storyId"); err != nil {
		return domain.ArchivedStory{}, err
	}
	if s.Result.Story, err = strAttr(item, "story"); err != nil {
		return domain.ArchivedStory{}, err
	}
	if s.Result.TechnicalNotes, err = listAttr(item, "technicalNotes"); err != nil {
		return domain.ArchivedStory{}, err
	}
	if s.Result.AcceptanceCriteria, err = listAttr(item, "acceptanceCriteria"); err != nil {
		return domain.ArchivedStory{}, err
	}
	s.Role, _ = strAttr(item, "role") // allow empty
	s.Feature, _ = strAttr(item, "feature")
	s.Benefit, _ = strAttr(item, "benefit")
	s.Model, _ = strAttr(item, "model")

	if created, err := strAttr(item, "createdAt"); err == nil {
		ts, err := time.Parse(time.RFC3339, created)
		if err != nil {
			return domain.ArchivedStory{}, fmt.Errorf("repository: parse attribute %q: %w", "createdAt", err)
		}
		s.CreatedAt = ts
	}
	return s, nil
}

func stringList(values []string) *types.AttributeValueMemberL {
	list := make([]types.AttributeValue, 0, len(values))
	for _, v := range values {
		list = append(list, &types.AttributeValueMemberS{Value: v})
	}
	return &types.AttributeValueMemberL{Value: list}
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

func listAttr(item map[string]types.AttributeValue, key string) ([]string, error) {
	v, ok := item[key]
	if !ok {
		return nil, fmt.Errorf("repository: missing attribute %q", key)
	}
	l, ok := v.(*types.AttributeValueMemberL)
	if !ok {
		return nil, fmt.Errorf("repository: attribute %q is not a list", key)
	}
	out := make([]string, 0, len(l.Value))
	for i, elem := range l.Value {
		s, ok := elem.(*types.AttributeValueMemberS)
		if !ok {
			return nil, fmt.Errorf("repository: attribute %q[%d] is not a string", key, i)
		}
		out = append(out, s.Value)
	}
	return out, nil
}
