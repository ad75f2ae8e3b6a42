package revshare

// Split is the breakdown of one tier payment.
type Split struct {
	ListPrice uint64 // Undiscounted tier price, base of both shares
	Paid      uint64 // Amount actually collected (the discounted price)
	JVShare   uint64 // Paid out immediately to the revenue-share wallet
	Bonus     uint64 // Paid out immediately to the payer admin
	Retained  uint64 // Held in escrow pending dual approval
}

// Immediate returns the total paid out at payment time.
func (s Split) Immediate() uint64 { return s.JVShare + s.Bonus }
