package enums

// StockDirection labels an inventory mutation recorded in the stock audit trail.
type StockDirection string

const (
	StockDirectionReserve StockDirection = "reserve"
	StockDirectionRelease StockDirection = "release"
)

// String implements fmt.Stringer.
func (d StockDirection) String() string {
	return string(d)
}
