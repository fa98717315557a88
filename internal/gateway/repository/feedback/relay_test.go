package feedback

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestMemoryRelayAppendAndList(t *testing.T) {
	r := NewMemoryRelay()
	ctx := context.Background()
	first := Record{Comment: "great", State: json.RawMessage(`{"runId":1}`), Name: "ana", CreatedAt: time.Unix(10, 0)}
	second := Record{Comment: "typo in step 2", Name: "bo", CreatedAt: time.Unix(20, 0)}

	if err := r.Append(ctx, "/feedback", first); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := r.Append(ctx, "feedback/", second); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := r.List(ctx, "feedback")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Comment != "great" || got[1].Name != "bo" {
		t.Fatalf("unexpected records: %+v", got)
	}
	if string(got[0].State) != `{"runId":1}` {
		t.Fatalf("state = %s", got[0].State)
	}
}

func TestMemoryRelayRejectsEmptyPath(t *testing.T) {
	if err := NewMemoryRelay().Append(context.Background(), " / ", Record{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestNewS3RelayValidatesConfig(t *testing.T) {
	cases := []S3Config{
		{},
		{Endpoint: "localhost:9000"},
		{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"},
	}
	for _, cfg := range cases {
		if _, err := NewS3Relay(cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
	if _, err := NewS3Relay(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "feedback"}); err != nil {
		t.Fatalf("valid config: %v", err)
	}
}

func TestObjectKeyIsChronological(t *testing.T) {
	early := objectKey("/feedback/", Record{CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	late := objectKey("feedback", Record{CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)})
	if !strings.HasPrefix(early, "feedback/20240101T") || !strings.HasSuffix(early, ".json") {
		t.Fatalf("key = %s", early)
	}
	if early >= late {
		t.Fatalf("keys out of order: %s >= %s", early, late)
	}
}
