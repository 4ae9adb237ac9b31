package table

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Pool is the Go memory allocator used by Arrow.
var Pool = memory.NewGoAllocator()

// Column names of the customer-purchase dataset.
const (
	CustomerID         = "Customer ID"
	ItemPurchased      = "Item Purchased"
	PurchaseAmount     = "Purchase Amount (USD)"
	Frequency          = "Frequency of Purchases"
	ReviewRating       = "Review Rating"
	PreviousPurchases  = "Previous Purchases"
	SubscriptionStatus = "Subscription Status"

	// SpenderScore is the derived column appended by the scorer.
	SpenderScore = "SpenderScore"
)

// RawSchema returns a schema of nullable utf8 fields, one per header name,
// in header order. Raw tables are loaded with it so that untouched columns
// round-trip byte for byte.
func RawSchema(header []string) *arrow.Schema {
	fields := make([]arrow.Field, len(header))
	for i, name := range header {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}
