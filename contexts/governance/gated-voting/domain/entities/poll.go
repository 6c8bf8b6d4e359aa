package entities

// Poll is a cataloged poll. Name is what users type, ID keys stored votes and
// Link is the gated destination handed out after payment.
type Poll struct {
	Name string
	Link string
	ID   string
}
