package dynamo

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-shop-nosql/internal/domain"
)

// ErrInvalidCursor is returned when a pagination cursor cannot be decoded.
var ErrInvalidCursor = fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// compositeKey builds a DynamoDB primary key with two string attributes (PK + SK).
func compositeKey(pkName, pkValue, skName, skValue string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		pkName: &types.AttributeValueMemberS{Value: pkValue},
		skName: &types.AttributeValueMemberS{Value: skValue},
	}
}

// EncodeCursor turns a LastEvaluatedKey into an opaque token: base64 of the key's JSON form.
// An empty key encodes to "" (no further pages).
func EncodeCursor(key map[string]types.AttributeValue) (string, error) {
	if len(key) == 0 {
		return "", nil
	}
	var plain map[string]interface{}
	if err := attributevalue.UnmarshalMap(key, &plain); err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	b, err := json.Marshal(plain)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeCursor reverses EncodeCursor. "" decodes to a nil key (first page).
func DecodeCursor(cursor string) (map[string]types.AttributeValue, error) {
	if cursor == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var plain map[string]interface{}
	if err := json.Unmarshal(b, &plain); err != nil || len(plain) == 0 {
		return nil, ErrInvalidCursor
	}
	key, err := attributevalue.MarshalMap(plain)
	if err != nil {
		return nil, errors.Join(ErrInvalidCursor, err)
	}
	return key, nil
}

// checkCursorKey rejects a cursor that decodes but is not a key of this read: it must hold
// exactly keyAttrs as non-empty strings, and any attribute in partition must match.
func checkCursorKey(cursor string, keyAttrs []string, partition map[string]string) error {
	key, err := DecodeCursor(cursor)
	if err != nil || key == nil {
		return err
	}
	if len(key) != len(keyAttrs) {
		return ErrInvalidCursor
	}
	for _, name := range keyAttrs {
		v, ok := key[name].(*types.AttributeValueMemberS)
		if !ok || v.Value == "" {
			return ErrInvalidCursor
		}
		if want, pinned := partition[name]; pinned && v.Value != want {
			return ErrInvalidCursor
		}
	}
	return nil
}
