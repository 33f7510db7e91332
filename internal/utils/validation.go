package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidateFinancialYear checks the "2025-26" form: a four-digit start year
// followed by the two-digit year that immediately succeeds it.
func ValidateFinancialYear(fy string) error {
	parts := strings.Split(fy, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return fmt.Errorf("financial year %q must look like 2025-26", fy)
	}

	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("financial year %q must look like 2025-26", fy)
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("financial year %q must look like 2025-26", fy)
	}

	if (start+1)%100 != end {
		return fmt.Errorf("financial year %q must span consecutive years", fy)
	}

	return nil
}
