// Package stream provides DynamoDB Streams handlers for the users table.
package stream

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/jacentio/projectideas/internal/logging"
	"github.com/jacentio/projectideas/model"
	"github.com/jacentio/projectideas/store"
)

// UsernamePropagator rewrites the denormalized copies of a username.
type UsernamePropagator interface {
	PropagateUsername(ctx context.Context, userID, username string) error
}

// Handler reconciles username renames from the users table stream.
type Handler struct {
	propagator UsernamePropagator
	logger     *zap.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(p UsernamePropagator, logger *zap.Logger) *Handler {
	return &Handler{
		propagator: p,
		logger:     logging.OrNop(logger),
	}
}

// HandleUserChanges runs the username fan-out for every user whose username
// changed. It is the only fan-out when the manager is built with
// manager.WithStreamedRenames. A failed record is logged and skipped, and the
// batch still succeeds so nothing is retried; "projectideas user repair"
// reruns the fan-out for that user. This function is designed to be used as
// an AWS Lambda handler.
func (h *Handler) HandleUserChanges(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				zap.String("eventID", record.EventID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// processRecord processes a single DynamoDB stream record.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	if record.EventName != "MODIFY" {
		return nil
	}
	if getStringAttr(record.Change.NewImage, "type") != string(model.KindUser) {
		return nil
	}

	oldName := getStringAttr(record.Change.OldImage, "username")
	var user model.User
	if err := attributevalue.UnmarshalMap(ConvertImage(record.Change.NewImage), &user); err != nil {
		return fmt.Errorf("decode user image: %w", err)
	}
	if user.Username == "" || user.Username == oldName {
		return nil
	}

	h.logger.Info("propagating username",
		zap.String("userId", user.UserID),
		zap.String("username", user.Username),
	)
	if err := h.propagator.PropagateUsername(ctx, user.UserID, user.Username); err != nil {
		return fmt.Errorf("propagate username for %s: %w", user.UserID, err)
	}
	return nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// ConvertImage converts a DynamoDB stream image into store attributes so it
// can be decoded with attributevalue.
func ConvertImage(image map[string]events.DynamoDBAttributeValue) store.Attributes {
	result := make(store.Attributes, len(image))
	for k, v := range image {
		if av := convertValue(v); av != nil {
			result[k] = av
		}
	}
	return result
}

func convertValue(v events.DynamoDBAttributeValue) types.AttributeValue {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}
	case events.DataTypeList:
		list := make([]types.AttributeValue, 0, len(v.List()))
		for _, item := range v.List() {
			if av := convertValue(item); av != nil {
				list = append(list, av)
			}
		}
		return &types.AttributeValueMemberL{Value: list}
	case events.DataTypeMap:
		return &types.AttributeValueMemberM{Value: ConvertImage(v.Map())}
	}
	return nil
}
