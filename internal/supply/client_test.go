package supply

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-procure/internal/resilience"
)

func testClient(base string) *Client {
	return &Client{
		BaseURL: base,
		APIKey:  "secret",
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{},
			MaxAttempts: 1,
			Timeout:     time.Second,
		},
		Logger: zerolog.Nop(),
	}
}

func TestFetchResponsesNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inquiries/inq-1/responses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer header")
		}
		_, _ = w.Write([]byte(`[
			{"supplierId": 7, "supplierName": "Beta", "rows": [{"itemId": "x", "priceQuoted": "4,20"}]},
			{"supplierName": "no id"}
		]`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).FetchResponses(context.Background(), "inq-1")
	if err != nil {
		t.Fatalf("fetch responses: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the id-less response dropped, got %d", len(got))
	}
	if got[0].SupplierID != "7" || len(got[0].Quotes) != 1 {
		t.Fatalf("unexpected normalized response: %+v", got[0])
	}
	if *got[0].Quotes[0].Price != 4.2 {
		t.Fatalf("expected decimal comma parsed, got %v", *got[0].Quotes[0].Price)
	}
}

func TestSubmitPriceEdit(t *testing.T) {
	var seen PriceEdit
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/prices" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&seen); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	edit := PriceEdit{ItemID: "x", SupplierID: "s1", Price: 12.5}
	if err := testClient(srv.URL).SubmitPriceEdit(context.Background(), edit); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if seen != edit {
		t.Fatalf("server saw %+v", seen)
	}
}

func TestFetchResponsesCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := testClient(srv.URL).FetchResponses(ctx, "inq-1"); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
