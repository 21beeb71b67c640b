package enums

// PaymentMethodStoreCredit is recorded when store credit covers the whole order.
// Other payment methods are free-form labels chosen by the customer.
const PaymentMethodStoreCredit = "store_credit"
