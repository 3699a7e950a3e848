package transfer

// Kind classifies the result of a transfer request.
type Kind string

const (
	// KindSuccess means the transfer was applied.
	KindSuccess Kind = "success"
	// KindWarning means the request was accepted but nothing was applied.
	KindWarning Kind = "warning"
	// KindError means the request was rejected and nothing changed.
	KindError Kind = "error"
)

// Messages shown verbatim to the user.
const (
	MsgNonNumeric           = "Only numeric values are allowed!"
	MsgOverdrawn            = "Transfers may not be made if balance is zero or in overdraft"
	MsgExceedsBalance       = "Transfer amount must be less or equal to the balance of $%s and may not exceed $500"
	MsgExceedsCap           = "Transfers may not exceed $500"
	MsgNegative             = "Transfers may not be negative values"
	MsgEmptyAmount          = "The transfer was submitted without an amount entered!"
	MsgRecipientUnavailable = "There was a error attempting to retrieve the recipient of the transfer. Please try again."
	MsgTransferred          = "Transferred $%s from %s to %s"
)

// Outcome is what ProcessTransfer reports back to the caller.
type Outcome struct {
	Kind    Kind   `json:"type"`
	Message string `json:"message"`
}

func (o Outcome) OK() bool { return o.Kind == KindSuccess }

func succeeded(message string) Outcome { return Outcome{Kind: KindSuccess, Message: message} }

func warned(message string) Outcome { return Outcome{Kind: KindWarning, Message: message} }

func rejected(message string) Outcome { return Outcome{Kind: KindError, Message: message} }

// RejectedError carries a rejection Outcome out of the ledger's atomic unit,
// where the balance rules are checked a second time against the locked rows.
type RejectedError struct {
	Outcome Outcome
}

func (e *RejectedError) Error() string {
	return "transfer rejected: " + e.Outcome.Message
}
