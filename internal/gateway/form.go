package gateway

import "github.com/cassiomorais/checkout/internal/domain/money"

// FormFields are the gateway-bound redirect form fields produced at order
// creation. The signature covers exactly the fields listed in
// SignedFieldNames; the gateway echoes it back for outbound integrity.
type FormFields struct {
	Amount                string `json:"amount"`
	TaxAmount             string `json:"tax_amount"`
	TotalAmount           string `json:"total_amount"`
	TransactionUUID       string `json:"transaction_uuid"`
	ProductCode           string `json:"product_code"`
	ProductServiceCharge  string `json:"product_service_charge"`
	ProductDeliveryCharge string `json:"product_delivery_charge"`
	SuccessURL            string `json:"success_url"`
	FailureURL            string `json:"failure_url"`
	SignedFieldNames      string `json:"signed_field_names"`
	Signature             string `json:"signature"`
}

// FormBuilder renders the payment form for a pending order.
type FormBuilder struct {
	signer     *Signer
	formAction string
	successURL string
	failureURL string
}

func NewFormBuilder(signer *Signer, formAction, successURL, failureURL string) *FormBuilder {
	return &FormBuilder{
		signer:     signer,
		formAction: formAction,
		successURL: successURL,
		failureURL: failureURL,
	}
}

// FormAction is the gateway endpoint the storefront posts the form to.
func (b *FormBuilder) FormAction() string {
	return b.formAction
}

// Build signs the transaction and assembles the redirect form. Tax is already
// included in the total; the gateway-side service and delivery charges are
// always zero for this storefront.
func (b *FormBuilder) Build(totalCents int64, transactionUUID string) (*FormFields, error) {
	total := money.FormatAmount(totalCents)
	signature, err := b.signer.Sign(total, transactionUUID)
	if err != nil {
		return nil, err
	}

	return &FormFields{
		Amount:                total,
		TaxAmount:             "0",
		TotalAmount:           total,
		TransactionUUID:       transactionUUID,
		ProductCode:           b.signer.ProductCode(),
		ProductServiceCharge:  "0",
		ProductDeliveryCharge: "0",
		SuccessURL:            b.successURL,
		FailureURL:            b.failureURL,
		SignedFieldNames:      SignedFieldNames,
		Signature:             signature,
	}, nil
}
