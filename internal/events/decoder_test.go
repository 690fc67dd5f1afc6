package events

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

func encodePayload(t *testing.T, ev interface{}) string {
	t.Helper()

	var buf bytes.Buffer
	buf.Write(make([]byte, discriminatorLen))
	if err := bin.NewBorshEncoder(&buf).Encode(ev); err != nil {
		t.Fatalf("encode event: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodeBankCreated(t *testing.T) {
	bankID := solana.NewWallet().PublicKey()
	parent := solana.NewWallet().PublicKey()
	child := solana.NewWallet().PublicKey()

	payload := encodePayload(t, BankCreated{
		BankID:         bankID,
		Name:           "college fund",
		Parent:         parent,
		Child:          child,
		TargetAmount:   5_000_000_000,
		CreatedAtMs:    1_700_000_000_000,
		DeadlineMs:     1_800_000_000_000,
		DurationDays:   365,
		CurrentBalance: 0,
	})

	ev, err := Decode(payload, CategoryBankCreated)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	created, ok := ev.(*BankCreated)
	if !ok {
		t.Fatalf("decoded %T, want *BankCreated", ev)
	}
	if created.BankID != bankID {
		t.Fatalf("bank id = %s, want %s", created.BankID, bankID)
	}
	if created.Name != "college fund" {
		t.Fatalf("name = %q", created.Name)
	}
	if created.TargetAmount != 5_000_000_000 {
		t.Fatalf("target amount = %d", created.TargetAmount)
	}
}

func TestDecodeWithdrawalRequested(t *testing.T) {
	payload := encodePayload(t, WithdrawalRequested{
		RequestID:   solana.NewWallet().PublicKey(),
		BankID:      solana.NewWallet().PublicKey(),
		Amount:      250_000,
		Requester:   solana.NewWallet().PublicKey(),
		Reason:      "new bike",
		Status:      StatusCodePending,
		CreatedAtMs: 1_700_000_123_456,
	})

	ev, err := Decode(payload, CategoryWithdrawalRequested)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	req := ev.(*WithdrawalRequested)
	if req.Reason != "new bike" {
		t.Fatalf("reason = %q", req.Reason)
	}
	if req.Amount != 250_000 {
		t.Fatalf("amount = %d", req.Amount)
	}
}

func TestDecodeTooShort(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})

	if _, err := Decode(payload, CategoryDepositMade); !errors.Is(err, ErrTooShort) {
		t.Fatalf("err = %v, want ErrTooShort", err)
	}
}

func TestDecodeMalformedBody(t *testing.T) {
	// Valid discriminator but a truncated body.
	raw := make([]byte, discriminatorLen+3)
	payload := base64.StdEncoding.EncodeToString(raw)

	if _, err := Decode(payload, CategoryBankCreated); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("err = %v, want ErrMalformedPayload", err)
	}
}

func TestDecodeBadBase64(t *testing.T) {
	if _, err := Decode("!!!not-base64!!!", CategoryDepositMade); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("err = %v, want ErrMalformedPayload", err)
	}
}

func TestDecodeCategoryComesFromCaller(t *testing.T) {
	// A deposit-shaped body decoded as a completion must not silently pass:
	// the decoder only ever uses the caller-supplied category.
	payload := encodePayload(t, DepositMade{
		BankID:      solana.NewWallet().PublicKey(),
		Amount:      42,
		Depositor:   solana.NewWallet().PublicKey(),
		CreatedAtMs: 1,
	})

	ev, err := Decode(payload, CategoryWithdrawalCompleted)
	if err == nil {
		if _, ok := ev.(*WithdrawalCompleted); !ok {
			t.Fatalf("decoded %T under completed category", ev)
		}
	}
}

func TestStatusFromCode(t *testing.T) {
	cases := []struct {
		code uint8
		want string
	}{
		{StatusCodePending, "pending"},
		{StatusCodeApproved, "approved"},
		{StatusCodeRejected, "rejected"},
		{StatusCodeCompleted, "completed"},
		{99, "pending"},
	}
	for _, tc := range cases {
		if got := StatusFromCode(tc.code); got != tc.want {
			t.Fatalf("StatusFromCode(%d) = %q, want %q", tc.code, got, tc.want)
		}
	}
}
