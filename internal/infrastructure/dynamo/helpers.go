package dynamo

import (
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// unixAttr encodes t as a Number attribute of Unix seconds, the format
// DynamoDB TTL expects.
func unixAttr(t time.Time) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(t.Unix(), 10)}
}

func boolAttr(b bool) types.AttributeValue {
	return &types.AttributeValueMemberBOOL{Value: b}
}

// isConditionFailed reports whether a conditional write was rejected.
func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// lockedItem reports whether item carries the lockout marker.
func lockedItem(item map[string]types.AttributeValue) bool {
	b, ok := item[fieldLocked].(*types.AttributeValueMemberBOOL)
	return ok && b.Value
}
