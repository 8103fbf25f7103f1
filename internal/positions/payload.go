package positions

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Optional field wrappers for edit payloads. Absence and explicit null are
// distinct signals: an absent field leaves the stored value unchanged, a
// null clears it. UnmarshalJSON only runs when the key is present, which
// is what makes the distinction observable.

type OptString struct {
	Set   bool
	Valid bool
	Value string
}

func (o *OptString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(b, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

type OptDecimal struct {
	Set   bool
	Valid bool
	Value decimal.Decimal
}

func (o *OptDecimal) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(b, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

type OptTime struct {
	Set   bool
	Valid bool
	Value time.Time
}

func (o *OptTime) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(b, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// SellAmount is the tagged union of the three ways a sell size can be
// specified. Exactly one variant must be chosen.
type SellAmountKind string

const (
	SellAmountCoin    SellAmountKind = "coin"
	SellAmountUSD     SellAmountKind = "usd"
	SellAmountPercent SellAmountKind = "percent"
)

type SellAmount struct {
	Kind  SellAmountKind
	Value decimal.Decimal
}
