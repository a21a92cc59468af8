package webhook

import (
	"encoding/json"

	custdomain "github.com/autoinvoice/autoinvoice/internal/customers/domain"
	invdomain "github.com/autoinvoice/autoinvoice/internal/invoices/domain"
)

// EventInvoiceSend is the only event the workflow receives from us.
const EventInvoiceSend = "invoice.send"

const dateLayout = "2006-01-02"

// Payload is the JSON document posted to the workflow. Field order is fixed
// by the struct so the encoded bytes are stable for signing.
type Payload struct {
	Event       string          `json:"event"`
	InvoiceID   string          `json:"invoice_id"`
	OwnerID     string          `json:"owner_id"`
	Number      string          `json:"number"`
	InvoiceType string          `json:"invoice_type"`
	Status      string          `json:"status"`
	IssueDate   string          `json:"issue_date"`
	DueDate     string          `json:"due_date"`
	Currency    string          `json:"currency"`
	Notes       *string         `json:"notes"`
	Customer    CustomerPayload `json:"customer"`
	Items       []ItemPayload   `json:"items"`
	TotalAmount string          `json:"total_amount"`
}

type CustomerPayload struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	VATID   *string `json:"vat_id"`
	IBAN    *string `json:"iban"`
	BIC     *string `json:"bic"`
}

type ItemPayload struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	VATRate     string `json:"vat_rate"`
	TotalPrice  string `json:"total_price"`
}

// BuildPayload describes inv (with its items loaded) for the workflow.
func BuildPayload(inv invdomain.Invoice, cust custdomain.Customer) Payload {
	items := make([]ItemPayload, 0, len(inv.Items))
	for _, it := range inv.Items {
		items = append(items, ItemPayload{
			ID:          it.ID.String(),
			Description: it.Description,
			Quantity:    invdomain.Money(it.Quantity),
			UnitPrice:   invdomain.Money(it.UnitPrice),
			VATRate:     invdomain.Money(it.VATRate),
			TotalPrice:  invdomain.Money(it.Total()),
		})
	}
	return Payload{
		Event:       EventInvoiceSend,
		InvoiceID:   inv.ID.String(),
		OwnerID:     inv.OwnerID.String(),
		Number:      inv.Number,
		InvoiceType: string(inv.Type),
		Status:      string(inv.Status),
		IssueDate:   inv.IssueDate.Format(dateLayout),
		DueDate:     inv.DueDate.Format(dateLayout),
		Currency:    inv.Currency,
		Notes:       inv.Notes,
		Customer: CustomerPayload{
			ID:      cust.ID.String(),
			Name:    cust.Name,
			Email:   cust.Email,
			Phone:   cust.Phone,
			Address: cust.Address,
			VATID:   cust.VATID,
			IBAN:    cust.IBAN,
			BIC:     cust.BIC,
		},
		Items:       items,
		TotalAmount: invdomain.Money(inv.Total()),
	}
}

// Encode returns the compact canonical bytes of p.
func Encode(p Payload) ([]byte, error) {
	return json.Marshal(p)
}
