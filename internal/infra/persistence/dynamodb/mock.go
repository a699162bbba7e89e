package dynamodb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// NewMockForTests returns a Store backed by an in-memory fake DynamoDB
// endpoint. Only the operations Store issues are implemented.
func NewMockForTests() *Store {
	s, err := New(context.Background(), Config{
		Table:           "mock-table",
		Region:          "us-east-1",
		Endpoint:        "https://dynamodb.mock.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      &http.Client{Transport: newMockRoundTripper()},
	})
	if err != nil {
		panic(err)
	}
	return s
}

type mockRoundTripper struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]json.RawMessage
}

func newMockRoundTripper() *mockRoundTripper {
	return &mockRoundTripper{tables: make(map[string]map[string]map[string]json.RawMessage)}
}

type mockRequest struct {
	TableName string                     `json:"TableName"`
	Key       map[string]json.RawMessage `json:"Key"`
	Item      map[string]json.RawMessage `json:"Item"`
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	var in mockRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return mockError(http.StatusBadRequest, "SerializationException", err.Error()), nil
	}
	op := req.Header.Get("X-Amz-Target")
	op = op[strings.LastIndex(op, ".")+1:]
	if op == "CreateTable" {
		if _, ok := m.tables[in.TableName]; ok {
			return mockError(http.StatusBadRequest, "ResourceInUseException", "Table already exists"), nil
		}
		m.tables[in.TableName] = make(map[string]map[string]json.RawMessage)
		return mockJSON(map[string]any{"TableDescription": map[string]any{"TableName": in.TableName, "TableStatus": "ACTIVE"}}), nil
	}
	table, ok := m.tables[in.TableName]
	if !ok {
		return mockError(http.StatusBadRequest, "ResourceNotFoundException", "Requested resource not found"), nil
	}
	switch op {
	case "GetItem":
		item, ok := table[hashKey(in.Key)]
		if !ok {
			return mockJSON(map[string]any{}), nil
		}
		return mockJSON(map[string]any{"Item": item}), nil
	case "PutItem":
		table[hashKey(in.Item)] = in.Item
		return mockJSON(map[string]any{}), nil
	case "DeleteItem":
		delete(table, hashKey(in.Key))
		return mockJSON(map[string]any{}), nil
	case "Scan":
		keys := make([]string, 0, len(table))
		for k := range table {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]map[string]json.RawMessage, 0, len(keys))
		for _, k := range keys {
			items = append(items, table[k])
		}
		return mockJSON(map[string]any{"Items": items, "Count": len(items), "ScannedCount": len(items)}), nil
	default:
		return mockError(http.StatusBadRequest, "UnknownOperationException", op), nil
	}
}

func hashKey(attrs map[string]json.RawMessage) string {
	return string(attrs[keyAttr])
}

func mockJSON(v any) *http.Response {
	b, _ := json.Marshal(v)
	return mockResponse(http.StatusOK, b)
}

func mockError(status int, code, msg string) *http.Response {
	b, _ := json.Marshal(map[string]string{
		"__type":  fmt.Sprintf("com.amazonaws.dynamodb.v20120810#%s", code),
		"message": msg,
	})
	return mockResponse(status, b)
}

func mockResponse(status int, body []byte) *http.Response {
	h := http.Header{}
	h.Set("Content-Type", "application/x-amz-json-1.0")
	h.Set("X-Amzn-Requestid", "mock")
	return &http.Response{
		StatusCode:    status,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}
