package booking

import (
	"strings"

	"github.com/google/uuid"
)

const (
	BookingRefPrefix = "HLK"
	PaymentRefPrefix = "PAY"
)

// NewReference returns "<prefix>-XXXXXXXXXXXX", the last uuid group upper-cased.
func NewReference(prefix string) string {
	id := uuid.NewString()
	tail := id[strings.LastIndexByte(id, '-')+1:]
	return prefix + "-" + strings.ToUpper(tail)
}
