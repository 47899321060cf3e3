package consumer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dcse/searchd/internal/config"
	"github.com/dcse/searchd/internal/domain"
	"github.com/dcse/searchd/internal/index"
	"github.com/redis/go-redis/v9"
)

func testStreamSettings() config.StreamSettings {
	return config.StreamSettings{
		Addr:          "localhost:6379",
		Stream:        "dcse_stream",
		Group:         "indexer_group",
		ReadCount:     20,
		ReadBlock:     5 * time.Second,
		ClaimMinIdle:  30 * time.Second,
		ClaimInterval: 30 * time.Second,
		ErrorBackoff:  2 * time.Second,
	}
}

func TestDecodeMessage_Valid(t *testing.T) {
	msg := redis.XMessage{
		ID: "1-0",
		Values: map[string]interface{}{
			"doc": `{"id":"petclinic:src/Owner.java","repo":"petclinic","path":"src/Owner.java","code":"class Owner {}","lang":"java","hash":"abc"}`,
		},
	}

	doc, ok, err := DecodeMessage(msg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("Expected ok for valid payload")
	}
	if doc.ID != "petclinic:src/Owner.java" {
		t.Errorf("Unexpected id: %q", doc.ID)
	}
	if doc.Hash != "abc" {
		t.Errorf("Unexpected hash: %q", doc.Hash)
	}
}

func TestDecodeMessage_MissingDocField(t *testing.T) {
	msg := redis.XMessage{ID: "1-0", Values: map[string]interface{}{"other": "x"}}

	_, ok, err := DecodeMessage(msg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ok {
		t.Error("Expected not ok for message without doc field")
	}
}

func TestDecodeMessage_EmptyPayload(t *testing.T) {
	msg := redis.XMessage{ID: "1-0", Values: map[string]interface{}{"doc": ""}}

	_, ok, err := DecodeMessage(msg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ok {
		t.Error("Expected not ok for empty payload")
	}
}

func TestDecodeMessage_NonStringPayload(t *testing.T) {
	msg := redis.XMessage{ID: "1-0", Values: map[string]interface{}{"doc": 42}}

	_, ok, err := DecodeMessage(msg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ok {
		t.Error("Expected not ok for non-string payload")
	}
}

func TestDecodeMessage_MalformedJSON(t *testing.T) {
	msg := redis.XMessage{ID: "1-0", Values: map[string]interface{}{"doc": "{not json"}}

	_, ok, err := DecodeMessage(msg)
	if err == nil {
		t.Fatal("Expected error for malformed payload")
	}
	if ok {
		t.Error("Expected not ok for malformed payload")
	}
	if !strings.Contains(err.Error(), "malformed doc payload") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestDecodeMessage_MissingID(t *testing.T) {
	msg := redis.XMessage{ID: "1-0", Values: map[string]interface{}{"doc": `{"repo":"petclinic"}`}}

	_, ok, err := DecodeMessage(msg)
	if err == nil {
		t.Fatal("Expected error for payload without id")
	}
	if ok {
		t.Error("Expected not ok for payload without id")
	}
}

func TestNew_UniqueConsumerNames(t *testing.T) {
	c1 := New(nil, nil, testStreamSettings())
	c2 := New(nil, nil, testStreamSettings())

	if !strings.HasPrefix(c1.Name(), "consumer-") {
		t.Errorf("Unexpected name shape: %q", c1.Name())
	}
	if c1.Name() == c2.Name() {
		t.Errorf("Expected distinct consumer names, both %q", c1.Name())
	}
}

type fakeUpserter struct {
	calls int
	err   error
}

func (f *fakeUpserter) Upsert(_ context.Context, _ domain.IndexDocument) (index.WriteStatus, error) {
	f.calls++
	return index.StatusWritten, f.err
}

func TestProcessMessage_PoisonIsNotAnError(t *testing.T) {
	upserter := &fakeUpserter{}
	c := New(nil, upserter, testStreamSettings())

	msg := redis.XMessage{ID: "1-0", Values: map[string]interface{}{"doc": "{not json"}}
	if err := c.processMessage(context.Background(), msg); err != nil {
		t.Errorf("Expected poison message to be treated as processed, got %v", err)
	}
	if upserter.calls != 0 {
		t.Errorf("Expected no upsert for poison message, got %d", upserter.calls)
	}
}

func TestProcessMessage_UpsertFailurePropagates(t *testing.T) {
	upserter := &fakeUpserter{err: errors.New("disk full")}
	c := New(nil, upserter, testStreamSettings())

	msg := redis.XMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"doc": `{"id":"x","hash":"h"}`},
	}
	if err := c.processMessage(context.Background(), msg); err == nil {
		t.Error("Expected upsert failure to propagate for redelivery")
	}
	if upserter.calls != 1 {
		t.Errorf("Expected one upsert attempt, got %d", upserter.calls)
	}
}

func TestProcessMessage_Success(t *testing.T) {
	upserter := &fakeUpserter{}
	c := New(nil, upserter, testStreamSettings())

	msg := redis.XMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"doc": `{"id":"x","hash":"h"}`},
	}
	if err := c.processMessage(context.Background(), msg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if upserter.calls != 1 {
		t.Errorf("Expected one upsert, got %d", upserter.calls)
	}
}
