package models

// DuplicateGroup is a cluster of transactions with the same absolute amount
// posted within a short date window across at least two accounts.
type DuplicateGroup struct {
	AmountCents  int64         `json:"amount_cents"`
	Transactions []Transaction `json:"transactions"`
}

// DismissedPair is an unordered transaction-id pair the user marked as "not
// a duplicate". Stored normalized (LowID < HighID) so scan order never
// resurfaces a dismissed pairing.
type DismissedPair struct {
	LowID  int64
	HighID int64
}

// NewDismissedPair normalizes the pair ordering.
func NewDismissedPair(a, b int64) DismissedPair {
	if a > b {
		a, b = b, a
	}
	return DismissedPair{LowID: a, HighID: b}
}
