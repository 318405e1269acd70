package gateway

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testSigner(t *testing.T) *Signer {
	t.Helper()
	raw := make([]byte, ed25519.SeedSize)
	for i := range raw {
		raw[i] = 0x33
	}
	s, err := NewSignerFromSeed(encodeStrkey(versionSeed, raw))
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	return s
}

func TestLoadAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/GABC" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{
			"account_id": "GABC",
			"sequence": "41",
			"base_fee": "100",
			"balances": [
				{"asset": {"asset_type": "native"}, "balance": "125.5000000"},
				{"asset": {"asset_type": "credit_alphanum", "asset_code": "LIBERTAD", "asset_issuer": "GISSUER"}, "balance": "300.0000000"}
			]
		}`))
	}))
	defer srv.Close()

	c := &RESTClient{BaseURL: srv.URL, HTTPClient: srv.Client()}
	snap, err := c.LoadAccount(context.Background(), "GABC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Sequence != 41 || len(snap.Balances) != 2 {
		t.Fatalf("bad snapshot: %+v", snap)
	}
	if !snap.Balances[0].Asset.IsNative() {
		t.Fatalf("expected native first balance")
	}
}

func TestLoadAccount_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := &RESTClient{BaseURL: srv.URL, HTTPClient: srv.Client()}
	_, err := c.LoadAccount(context.Background(), "GMISSING")
	if !errors.Is(err, ErrAccountLoad) {
		t.Fatalf("expected ErrAccountLoad, got %v", err)
	}
	var ale *AccountLoadError
	if !errors.As(err, &ale) || ale.AccountID != "GMISSING" {
		t.Fatalf("expected AccountLoadError with account id, got %v", err)
	}
}

func TestOffers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/GABC/offers" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"offers":[
			{"id":"101","seller":"GABC","selling":{"asset_type":"native"},"buying":{"asset_type":"credit_alphanum","asset_code":"LIBERTAD","asset_issuer":"GISSUER"},"amount":"50.0000000","price":"0.0801000"}
		]}`))
	}))
	defer srv.Close()

	c := &RESTClient{BaseURL: srv.URL, HTTPClient: srv.Client()}
	offers, err := c.Offers(context.Background(), "GABC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(offers) != 1 || offers[0].ID != 101 || offers[0].Price != "0.0801000" {
		t.Fatalf("bad offers: %+v", offers)
	}
}

func TestSubmitBatch(t *testing.T) {
	signer := testSigner(t)
	var captured batchEnvelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("bad body: %v", err)
		}
		w.Write([]byte(`{"hash":"deadbeef"}`))
	}))
	defer srv.Close()

	snap := &AccountSnapshot{AccountID: signer.Address(), Sequence: 41, BaseFee: 100}
	offer := Offer{ID: 101, Selling: NativeAsset(), Buying: Credit("LIBERTAD", "GISSUER"), Amount: "50.0000000", Price: "0.0801000"}
	ops := []Operation{
		CancelOp(offer),
		{Selling: NativeAsset(), Buying: Credit("LIBERTAD", "GISSUER"), Amount: "100.0000000", Price: "0.0800800"},
	}

	c := &RESTClient{BaseURL: srv.URL, HTTPClient: srv.Client()}
	if err := c.SubmitBatch(context.Background(), signer, snap, ops); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.Source != signer.Address() {
		t.Fatalf("expected source %s, got %s", signer.Address(), captured.Source)
	}
	if captured.Sequence != 42 {
		t.Fatalf("expected sequence 42, got %d", captured.Sequence)
	}
	if captured.Fee != 200 { // 2 ops * base fee 100
		t.Fatalf("expected fee 200, got %d", captured.Fee)
	}
	if captured.Signature == "" {
		t.Fatalf("expected signed envelope")
	}
	if len(captured.Operations) != 2 || !captured.Operations[0].IsCancel() || captured.Operations[1].IsCancel() {
		t.Fatalf("expected cancel first then order: %+v", captured.Operations)
	}
	if captured.Operations[0].OfferID != 101 || captured.Operations[0].Amount != ZeroAmount {
		t.Fatalf("bad cancel op: %+v", captured.Operations[0])
	}
}

func TestSubmitBatch_Rejection(t *testing.T) {
	signer := testSigner(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"transaction failed","extras":{"result_codes":["tx_bad_seq"]}}`))
	}))
	defer srv.Close()

	c := &RESTClient{BaseURL: srv.URL, HTTPClient: srv.Client()}
	snap := &AccountSnapshot{AccountID: signer.Address(), Sequence: 1}
	err := c.SubmitBatch(context.Background(), signer, snap, []Operation{
		{Selling: NativeAsset(), Buying: Credit("X", "GI"), Amount: "1.0000000", Price: "2.0000000"},
	})
	if !errors.Is(err, ErrSubmission) {
		t.Fatalf("expected ErrSubmission, got %v", err)
	}
	var se *SubmissionError
	if !errors.As(err, &se) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if se.Status != http.StatusBadRequest || len(se.ResultCodes) != 1 || se.ResultCodes[0] != "tx_bad_seq" {
		t.Fatalf("bad rejection detail: %+v", se)
	}
}

func TestSubmitBatch_EmptyIsNoop(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := &RESTClient{BaseURL: srv.URL, HTTPClient: srv.Client()}
	signer := testSigner(t)
	if err := c.SubmitBatch(context.Background(), signer, &AccountSnapshot{}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatalf("empty batch should not hit the ledger")
	}
}
