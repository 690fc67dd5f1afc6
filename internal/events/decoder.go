package events

import (
	"encoding/base64"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

var (
	// ErrTooShort indicates a payload shorter than the discriminator prefix.
	ErrTooShort = errors.New("events: payload shorter than discriminator")
	// ErrMalformedPayload indicates a payload that could not be decoded.
	ErrMalformedPayload = errors.New("events: malformed payload")
	// ErrUnknownCategory indicates a category with no registered decoder.
	ErrUnknownCategory = errors.New("events: unknown category")
)

// discriminatorLen is the fixed-width prefix identifying the emitted record's
// schema. The pipeline trusts the caller-supplied category and does not
// interpret the discriminator bytes.
const discriminatorLen = 8

// decoders dispatches a category directly to its payload decoder.
var decoders = map[Category]func([]byte) (Event, error){
	CategoryBankCreated:         decodeInto(func() Event { return new(BankCreated) }),
	CategoryDepositMade:         decodeInto(func() Event { return new(DepositMade) }),
	CategoryWithdrawalRequested: decodeInto(func() Event { return new(WithdrawalRequested) }),
	CategoryWithdrawalApproved:  decodeInto(func() Event { return new(WithdrawalApproved) }),
	CategoryWithdrawalRejected:  decodeInto(func() Event { return new(WithdrawalRejected) }),
	CategoryWithdrawalCompleted: decodeInto(func() Event { return new(WithdrawalCompleted) }),
}

// Decode turns a base64 payload captured by the scanner into a typed event.
// The category always comes from the caller; payload shape is never used to
// infer it.
func Decode(payload string, category Category) (Event, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrMalformedPayload, err)
	}
	if len(raw) < discriminatorLen {
		return nil, ErrTooShort
	}

	decode, ok := decoders[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return decode(raw[discriminatorLen:])
}

func decodeInto(newEvent func() Event) func([]byte) (Event, error) {
	return func(body []byte) (Event, error) {
		ev := newEvent()
		if err := bin.NewBorshDecoder(body).Decode(ev); err != nil {
			return nil, fmt.Errorf("%w: borsh: %v", ErrMalformedPayload, err)
		}
		return ev, nil
	}
}
