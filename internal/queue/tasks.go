package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-procure/internal/compare"
	"github.com/noah-isme/backend-procure/internal/events"
	"github.com/noah-isme/backend-procure/internal/obs"
	"github.com/noah-isme/backend-procure/internal/supplier"
	"github.com/noah-isme/backend-procure/internal/supply"
)

// KindSyncSupplierResponses pulls an inquiry's supplier responses from the
// collaborator and persists them.
const KindSyncSupplierResponses = "sync:supplier-responses"

// SyncPayload is the task payload for a supplier response sync.
type SyncPayload struct {
	InquiryID string `json:"inquiry_id"`
}

// ResponseFetcher pulls normalized supplier responses for an inquiry.
type ResponseFetcher interface {
	FetchResponses(ctx context.Context, inquiryID string) ([]supply.NormalizedResponse, error)
}

// QuoteSink persists a supplier's refreshed quote set.
type QuoteSink interface {
	ReplaceSupplierQuotes(ctx context.Context, inquiryID, supplierID string, quotes []compare.Quote) error
}

// ResponseSink persists a supplier's response record.
type ResponseSink interface {
	RecordResponse(ctx context.Context, rec supplier.ResponseRecord) error
}

// SyncHandler processes supplier response sync tasks: fetch, normalize,
// replace quotes and record each supplier's declared coverage.
type SyncHandler struct {
	Fetcher   ResponseFetcher
	Quotes    QuoteSink
	Responses ResponseSink
	Logger    zerolog.Logger
}

// Handle runs one sync task. Per-supplier failures are joined so one bad
// response does not hide the rest; any failure schedules a retry.
func (h SyncHandler) Handle(ctx context.Context, t Task) error {
	var payload SyncPayload
	if err := json.Unmarshal(t.Payload, &payload); err != nil {
		countSync("bad_payload")
		return fmt.Errorf("decode sync payload: %w", err)
	}
	if payload.InquiryID == "" {
		countSync("bad_payload")
		return errors.New("sync payload missing inquiry id")
	}

	responses, err := h.Fetcher.FetchResponses(ctx, payload.InquiryID)
	if err != nil {
		countSync("fetch_failed")
		return fmt.Errorf("fetch responses for %s: %w", payload.InquiryID, err)
	}

	var joined error
	for _, resp := range responses {
		if err := h.Quotes.ReplaceSupplierQuotes(ctx, payload.InquiryID, resp.SupplierID, resp.Quotes); err != nil {
			joined = errors.Join(joined, fmt.Errorf("replace quotes for %s: %w", resp.SupplierID, err))
			continue
		}
		rec := supplier.ResponseRecord{
			InquiryID:       payload.InquiryID,
			SupplierID:      resp.SupplierID,
			SupplierName:    resp.SupplierName,
			DeclaredMissing: resp.DeclaredIDs,
			DeclaredCount:   resp.DeclaredCount,
		}
		if !resp.RespondedAt.IsZero() {
			ts := resp.RespondedAt
			rec.RespondedAt = &ts
		}
		if err := h.Responses.RecordResponse(ctx, rec); err != nil {
			joined = errors.Join(joined, fmt.Errorf("record response for %s: %w", resp.SupplierID, err))
			continue
		}
		if obs.SupplierSyncQuotes != nil {
			obs.SupplierSyncQuotes.Add(float64(len(resp.Quotes)))
		}
		h.Logger.Info().
			Str("inquiry_id", payload.InquiryID).
			Str("supplier_id", resp.SupplierID).
			Int("quotes", len(resp.Quotes)).
			Int("skipped_rows", resp.SkippedRows).
			Msg("supplier response synced")
	}
	if joined != nil {
		countSync("partial_failure")
		return joined
	}
	countSync("ok")
	return nil
}

// EnqueueSync schedules a response sync for an inquiry. The inquiry id doubles
// as the idempotency key so overlapping triggers collapse to one run.
func EnqueueSync(ctx context.Context, enq Enqueuer, inquiryID string, maxAttempts int, dedupTTL time.Duration) error {
	payload, err := json.Marshal(SyncPayload{InquiryID: inquiryID})
	if err != nil {
		return err
	}
	if dedupTTL > 0 {
		enq.DedupTTL = dedupTTL
	}
	return enq.Enqueue(ctx, Task{
		Kind:           KindSyncSupplierResponses,
		Payload:        payload,
		IdempotencyKey: inquiryID,
		MaxAttempts:    maxAttempts,
	})
}

// SyncNotifier schedules a response sync whenever a new inquiry is created,
// so a fresh inquiry is hydrated without waiting for the periodic pass.
type SyncNotifier struct {
	Enq         Enqueuer
	MaxAttempts int
}

// Notify implements events.Notifier for the inquiry.created topic. Other
// topics and malformed payloads are ignored.
func (n SyncNotifier) Notify(ctx context.Context, ev events.Event) error {
	if ev.Topic != events.TopicInquiryCreated {
		return nil
	}
	var created struct {
		InquiryID string `json:"inquiry_id"`
	}
	if err := json.Unmarshal(ev.Payload, &created); err != nil || created.InquiryID == "" {
		return nil
	}
	return EnqueueSync(ctx, n.Enq, created.InquiryID, n.MaxAttempts, 0)
}

func countSync(result string) {
	if obs.SupplierSyncTotal != nil {
		obs.SupplierSyncTotal.WithLabelValues(result).Inc()
	}
}
