package types

type PositionSide string

type PositionStatus string

type ProductType string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

const (
	PositionStatusActive PositionStatus = "active"
	PositionStatusClosed PositionStatus = "closed"
)

const (
	ProductTypeSpot      ProductType = "spot"
	ProductTypePerpetual ProductType = "perpetual"
)

const SourceManual = "manual"

func (s PositionSide) Valid() bool {
	return s == PositionSideLong || s == PositionSideShort
}

func (s PositionStatus) Valid() bool {
	return s == PositionStatusActive || s == PositionStatusClosed
}
