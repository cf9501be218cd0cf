package enums

// Currency identifies the settlement currency of a payment.
type Currency string

const (
	CurrencyINR Currency = "INR"
)

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}
