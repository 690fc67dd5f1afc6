package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

const testProgramID = "So11111111111111111111111111111111111111112"

func newRPCServer(t *testing.T, requests *[]map[string]interface{}, result interface{}) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode rpc request: %v", err)
		}
		if requests != nil {
			*requests = append(*requests, req)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req["id"],
			"result":  result,
		})
	}))
}

func TestNewLedgerRejectsBadProgramID(t *testing.T) {
	_, err := NewLedger(Options{RPCURL: "http://localhost", ProgramID: "not-a-pubkey"}, zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for invalid program id")
	}
}

func TestFetchSinceEmptyWindow(t *testing.T) {
	srv := newRPCServer(t, nil, []interface{}{})
	defer srv.Close()

	l, err := NewLedger(Options{RPCURL: srv.URL, ProgramID: testProgramID, PageLimit: 10}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}

	window, err := l.FetchSince(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchSince: %v", err)
	}
	if len(window) != 0 {
		t.Fatalf("expected empty window, got %d entries", len(window))
	}
}

func TestFetchSinceUsesUntilSemantics(t *testing.T) {
	var requests []map[string]interface{}
	sig := solana.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7")

	srv := newRPCServer(t, &requests, []interface{}{})
	defer srv.Close()

	l, err := NewLedger(Options{RPCURL: srv.URL, ProgramID: testProgramID, PageLimit: 25}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}

	cursor := sig.String()
	if _, err := l.FetchSince(context.Background(), &cursor); err != nil {
		t.Fatalf("FetchSince: %v", err)
	}

	if len(requests) != 1 {
		t.Fatalf("expected 1 rpc request, got %d", len(requests))
	}
	params, _ := requests[0]["params"].([]interface{})
	if len(params) != 2 {
		t.Fatalf("expected address + opts params, got %v", params)
	}
	opts, _ := params[1].(map[string]interface{})
	if opts["until"] != cursor {
		t.Fatalf("until = %v, want %v", opts["until"], cursor)
	}
	if opts["limit"] != float64(25) {
		t.Fatalf("limit = %v, want 25", opts["limit"])
	}
}

func TestFetchSinceCorruptedCursorFallsBack(t *testing.T) {
	var requests []map[string]interface{}
	srv := newRPCServer(t, &requests, []interface{}{
		map[string]interface{}{
			"signature": "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7",
			"slot":      42,
		},
	})
	defer srv.Close()

	l, err := NewLedger(Options{RPCURL: srv.URL, ProgramID: testProgramID}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}

	corrupted := "###garbage###"
	window, err := l.FetchSince(context.Background(), &corrupted)
	if err != nil {
		t.Fatalf("corrupted cursor must not fail the cycle: %v", err)
	}
	if len(window) != 1 || window[0].Slot != 42 {
		t.Fatalf("unexpected window: %+v", window)
	}

	opts, _ := requests[0]["params"].([]interface{})[1].(map[string]interface{})
	if _, hasUntil := opts["until"]; hasUntil {
		t.Fatal("corrupted cursor must fetch without a lower bound")
	}
}

func TestFetchSinceHonorsRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":[]}`))
	}))
	defer srv.Close()

	l, err := NewLedger(Options{
		RPCURL:    srv.URL,
		ProgramID: testProgramID,
		PageLimit: 10,
		Timeout:   50 * time.Millisecond,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}

	if _, err := l.FetchSince(context.Background(), nil); err == nil {
		t.Fatal("expected timeout error from slow rpc endpoint")
	}
}
