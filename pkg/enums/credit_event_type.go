package enums

// CreditEventType classifies a store-credit ledger entry.
type CreditEventType string

const (
	CreditEventOrderDebit   CreditEventType = "order_debit"
	CreditEventRefundCredit CreditEventType = "refund_credit"
)

func (c CreditEventType) IsValid() bool {
	return c == CreditEventOrderDebit || c == CreditEventRefundCredit
}

// IsDebit reports whether the event lowers the balance.
func (c CreditEventType) IsDebit() bool {
	return c == CreditEventOrderDebit
}
