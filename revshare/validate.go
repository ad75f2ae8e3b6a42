package revshare

import "fmt"

// ValidateSplit checks that s is exactly what SplitPayment produces for its
// list price and paid amount, and that its parts add back up to Paid.
func ValidateSplit(s Split) error {
	if s.JVShare+s.Bonus+s.Retained != s.Paid {
		return fmt.Errorf("%w: %d + %d + %d != %d",
			ErrSplitConservationViolation, s.JVShare, s.Bonus, s.Retained, s.Paid)
	}

	expected, err := SplitPayment(s.ListPrice, s.Paid)
	if err != nil {
		return err
	}
	if expected != s {
		return fmt.Errorf("%w: got %+v, want %+v", ErrSplitConservationViolation, s, expected)
	}
	return nil
}
