package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType classifies a ledger entry.
type PaymentType string

const (
	PaymentTypeDeposit           PaymentType = "DEPOSIT"
	PaymentTypeHostingFee        PaymentType = "HOSTING_FEE"
	PaymentTypeElectricityCharge PaymentType = "ELECTRICITY_CHARGE"
	PaymentTypeMinerPurchase     PaymentType = "MINER_PURCHASE"
	PaymentTypeRefund            PaymentType = "REFUND"
)

// IsValid checks if the type is a known value.
func (t PaymentType) IsValid() bool {
	switch t {
	case PaymentTypeDeposit, PaymentTypeHostingFee, PaymentTypeElectricityCharge,
		PaymentTypeMinerPurchase, PaymentTypeRefund:
		return true
	}
	return false
}

// RevenuePaymentTypes lists the ledger entries that count as provider revenue.
// Charges are stored as negative amounts against the customer balance.
func RevenuePaymentTypes() []PaymentType {
	return []PaymentType{
		PaymentTypeHostingFee,
		PaymentTypeElectricityCharge,
		PaymentTypeMinerPurchase,
	}
}

// Payment is one signed ledger entry on a customer account.
// Corresponds to payments table in PostgreSQL.
type Payment struct {
	ID        int64
	UserID    int64
	Type      PaymentType
	Amount    decimal.Decimal // deposits positive, charges negative
	CreatedAt time.Time
}
