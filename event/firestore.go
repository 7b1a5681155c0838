package event

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/klipach/cuchat/contract"
)

const documentsMarker = "/documents/"

// FirestoreEvent is the payload of a Firestore background trigger.
type FirestoreEvent struct {
	OldValue   Document   `json:"oldValue"`
	Value      Document   `json:"value"`
	UpdateMask UpdateMask `json:"updateMask"`
}

type UpdateMask struct {
	FieldPaths []string `json:"fieldPaths"`
}

type Document struct {
	CreateTime time.Time        `json:"createTime"`
	Fields     map[string]Value `json:"fields"`
	Name       string           `json:"name"`
	UpdateTime time.Time        `json:"updateTime"`
}

type MapValue struct {
	Fields map[string]Value `json:"fields"`
}

type ArrayValue struct {
	Values []Value `json:"values"`
}

// Value is a Firestore value in its REST JSON encoding; exactly one field is set.
type Value struct {
	StringValue    *string     `json:"stringValue,omitempty"`
	BooleanValue   *bool       `json:"booleanValue,omitempty"`
	IntegerValue   *string     `json:"integerValue,omitempty"`
	DoubleValue    *float64    `json:"doubleValue,omitempty"`
	TimestampValue *time.Time  `json:"timestampValue,omitempty"`
	NullValue      *string     `json:"nullValue,omitempty"`
	MapValue       *MapValue   `json:"mapValue,omitempty"`
	ArrayValue     *ArrayValue `json:"arrayValue,omitempty"`
}

func (v Value) String() string {
	if v.StringValue == nil {
		return ""
	}
	return *v.StringValue
}

func (v Value) Bool() bool {
	return v.BooleanValue != nil && *v.BooleanValue
}

// Int returns integer values, and doubles truncated; anything else is 0.
func (v Value) Int() int64 {
	switch {
	case v.IntegerValue != nil:
		i, err := strconv.ParseInt(*v.IntegerValue, 10, 64)
		if err != nil {
			return 0
		}
		return i
	case v.DoubleValue != nil:
		return int64(*v.DoubleValue)
	}
	return 0
}

func (d Document) Message() contract.Message {
	return contract.Message{
		SenderID:        d.Fields["senderId"].String(),
		ReceiverID:      d.Fields["receiverId"].String(),
		Content:         d.Fields["content"].String(),
		Timestamp:       d.Fields["timestamp"].Int(),
		Seen:            d.Fields["seen"].Bool(),
		IsSystemMessage: d.Fields["isSystemMessage"].Bool(),
	}
}

// PathParams matches the document name against a pattern such as
// "chats/{chatId}/messages/{messageId}" and returns the wildcard values.
func PathParams(pattern, name string) (map[string]string, error) {
	path := name
	if i := strings.Index(name, documentsMarker); i >= 0 {
		path = name[i+len(documentsMarker):]
	}

	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	pathParts := strings.Split(strings.Trim(path, "/"), "/")
	if len(patternParts) != len(pathParts) {
		return nil, fmt.Errorf("document %q does not match %q", name, pattern)
	}

	params := make(map[string]string)
	for i, part := range patternParts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			if pathParts[i] == "" {
				return nil, fmt.Errorf("document %q has an empty %s segment", name, part)
			}
			params[part[1:len(part)-1]] = pathParts[i]
			continue
		}
		if part != pathParts[i] {
			return nil, fmt.Errorf("document %q does not match %q", name, pattern)
		}
	}
	return params, nil
}
