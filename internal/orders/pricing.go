package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/money"
)

// pricedLine is a line item resolved against the catalog (or an existing
// snapshot) and ready to be priced.
type pricedLine struct {
	ProductID     uuid.UUID
	Name          string
	Unit          string
	Quantity      int
	UnitPrice     money.Cents
	TaxPercentage decimal.Decimal
}

// Quote is the server-side pricing of an order.
type Quote struct {
	Items      []models.OrderLineItem
	Subtotal   money.Cents
	Tax        money.Cents
	Discount   money.Cents
	Shipping   money.Cents
	GrandTotal money.Cents
}

// TotalMismatch is attached to validation errors when a caller-supplied total
// disagrees with the recomputed one.
type TotalMismatch struct {
	Field     string      `json:"field"`
	Supplied  money.Cents `json:"supplied"`
	Computed  money.Cents `json:"computed"`
	Tolerance money.Cents `json:"tolerance"`
}

// linesFromInput resolves requested items against loaded products. The
// unit price defaults to the catalog price for the placing role.
func linesFromInput(items []LineItemInput, products map[uuid.UUID]*models.Product, role enums.Role) ([]pricedLine, error) {
	lines := make([]pricedLine, 0, len(items))
	for i, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", item.ProductID)
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: quantity must be positive", i+1)
		}
		unitPrice := product.PriceFor(role)
		if item.UnitPrice != nil {
			if *item.UnitPrice < 0 {
				return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: unit price must not be negative", i+1)
			}
			unitPrice = *item.UnitPrice
		}
		lines = append(lines, pricedLine{
			ProductID:     product.ID,
			Name:          product.Name,
			Unit:          product.Unit,
			Quantity:      item.Quantity,
			UnitPrice:     unitPrice,
			TaxPercentage: product.TaxPercentage,
		})
	}
	return lines, nil
}

// linesFromSnapshot rebuilds priced lines from persisted items so a pricing
// edit never re-reads the live catalog.
func linesFromSnapshot(items []models.OrderLineItem) []pricedLine {
	lines := make([]pricedLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, pricedLine{
			ProductID:     item.ProductID,
			Name:          item.Name,
			Unit:          item.Unit,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPriceCents,
			TaxPercentage: item.TaxPercentage,
		})
	}
	return lines
}

// priceOrder computes every pricing field from the lines:
// grandTotal = subTotal + tax - discount + shipping. Supplied totals are
// advisory and rejected when they drift beyond tolerance.
func priceOrder(lines []pricedLine, in PricingInput, tolerance money.Cents) (*Quote, error) {
	if in.DiscountAmount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount must not be negative")
	}
	if in.ShippingCharge < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping charge must not be negative")
	}

	quote := &Quote{
		Items:    make([]models.OrderLineItem, 0, len(lines)),
		Discount: in.DiscountAmount,
		Shipping: in.ShippingCharge,
	}
	for i, line := range lines {
		lineSubtotal := line.UnitPrice.MulQty(line.Quantity)
		lineTax := lineSubtotal.Percent(line.TaxPercentage)
		quote.Items = append(quote.Items, models.OrderLineItem{
			Position:       i,
			ProductID:      line.ProductID,
			Name:           line.Name,
			Unit:           line.Unit,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPrice,
			TaxPercentage:  line.TaxPercentage,
			TaxCents:       lineTax,
			LineTotalCents: lineSubtotal + lineTax,
		})
		quote.Subtotal += lineSubtotal
		quote.Tax += lineTax
	}

	if quote.Discount > quote.Subtotal+quote.Tax {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount exceeds order value")
	}
	quote.GrandTotal = quote.Subtotal + quote.Tax - quote.Discount + quote.Shipping

	if err := checkSupplied("subTotal", in.SubTotal, quote.Subtotal, tolerance); err != nil {
		return nil, err
	}
	if err := checkSupplied("taxAmount", in.TaxAmount, quote.Tax, tolerance); err != nil {
		return nil, err
	}
	if err := checkSupplied("grandTotal", in.GrandTotal, quote.GrandTotal, tolerance); err != nil {
		return nil, err
	}
	return quote, nil
}

func checkSupplied(field string, supplied *money.Cents, computed, tolerance money.Cents) error {
	if supplied == nil {
		return nil
	}
	if (*supplied - computed).Abs() <= tolerance {
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeValidation, "%s %s does not match computed %s", field, supplied.String(), computed.String()).
		WithDetails(TotalMismatch{Field: field, Supplied: *supplied, Computed: computed, Tolerance: tolerance})
}
