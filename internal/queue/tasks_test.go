package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-procure/internal/compare"
	"github.com/noah-isme/backend-procure/internal/events"
	"github.com/noah-isme/backend-procure/internal/pricing"
	"github.com/noah-isme/backend-procure/internal/queue"
	"github.com/noah-isme/backend-procure/internal/supplier"
	"github.com/noah-isme/backend-procure/internal/supply"
)

type stubFetcher struct {
	responses []supply.NormalizedResponse
	err       error
}

func (s *stubFetcher) FetchResponses(ctx context.Context, inquiryID string) ([]supply.NormalizedResponse, error) {
	return s.responses, s.err
}

type recordingSink struct {
	replaced map[string][]compare.Quote
	records  []supplier.ResponseRecord
	failFor  string
}

func (r *recordingSink) ReplaceSupplierQuotes(ctx context.Context, inquiryID, supplierID string, quotes []compare.Quote) error {
	if supplierID == r.failFor {
		return errors.New("boom")
	}
	if r.replaced == nil {
		r.replaced = map[string][]compare.Quote{}
	}
	r.replaced[supplierID] = quotes
	return nil
}

func (r *recordingSink) RecordResponse(ctx context.Context, rec supplier.ResponseRecord) error {
	r.records = append(r.records, rec)
	return nil
}

func syncTask(t *testing.T, inquiryID string) queue.Task {
	t.Helper()
	payload, err := json.Marshal(queue.SyncPayload{InquiryID: inquiryID})
	require.NoError(t, err)
	return queue.Task{Kind: queue.KindSyncSupplierResponses, Payload: payload}
}

func TestSyncHandlerPersistsResponses(t *testing.T) {
	price := pricing.Amount(4.2)
	count := 1
	fetcher := &stubFetcher{responses: []supply.NormalizedResponse{
		{
			SupplierID:    "s1",
			SupplierName:  "Alpha",
			Quotes:        []compare.Quote{{ItemID: "X", SupplierID: "s1", Price: &price}},
			DeclaredIDs:   []string{"Y"},
			DeclaredCount: &count,
		},
	}}
	sink := &recordingSink{}
	handler := queue.SyncHandler{Fetcher: fetcher, Quotes: sink, Responses: sink, Logger: zerolog.Nop()}

	require.NoError(t, handler.Handle(context.Background(), syncTask(t, "inq-1")))
	require.Len(t, sink.replaced["s1"], 1)
	require.Len(t, sink.records, 1)
	require.Equal(t, []string{"Y"}, sink.records[0].DeclaredMissing)
	require.Equal(t, 1, *sink.records[0].DeclaredCount)
}

func TestSyncHandlerPartialFailureRetries(t *testing.T) {
	fetcher := &stubFetcher{responses: []supply.NormalizedResponse{
		{SupplierID: "bad"},
		{SupplierID: "good"},
	}}
	sink := &recordingSink{failFor: "bad"}
	handler := queue.SyncHandler{Fetcher: fetcher, Quotes: sink, Responses: sink, Logger: zerolog.Nop()}

	err := handler.Handle(context.Background(), syncTask(t, "inq-1"))
	require.Error(t, err, "a failed supplier must schedule a retry")
	require.Len(t, sink.records, 1, "the healthy supplier should still persist")
	require.Equal(t, "good", sink.records[0].SupplierID)
}

func TestSyncHandlerBadPayload(t *testing.T) {
	handler := queue.SyncHandler{Fetcher: &stubFetcher{}, Quotes: &recordingSink{}, Responses: &recordingSink{}, Logger: zerolog.Nop()}
	err := handler.Handle(context.Background(), queue.Task{Kind: queue.KindSyncSupplierResponses, Payload: []byte("{")})
	require.Error(t, err)
}

func TestSyncNotifierSchedulesOnInquiryCreated(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	notifier := queue.SyncNotifier{Enq: queue.Enqueuer{R: client, Prefix: "test"}}
	ctx := context.Background()

	payload, err := json.Marshal(map[string]string{"inquiry_id": "inq-7"})
	require.NoError(t, err)
	require.NoError(t, notifier.Notify(ctx, events.Event{Topic: events.TopicInquiryCreated, Payload: payload}))
	depth, err := client.ZCard(ctx, "test:queue:sync:supplier-responses").Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, depth)

	require.NoError(t, notifier.Notify(ctx, events.Event{Topic: events.TopicPriceUpdated, Payload: payload}),
		"other topics are ignored")
	depth, err = client.ZCard(ctx, "test:queue:sync:supplier-responses").Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, depth)
}
