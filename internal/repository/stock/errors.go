package stock

import (
	"fmt"

	"storecheckout/internal/domain"
)

func errInvalidQuantity(qty int) error {
	return fmt.Errorf("hold quantity %d: %w", qty, domain.ErrInvalidQuantity)
}
