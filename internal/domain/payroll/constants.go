package payroll

const (
	StatusUnpaid = "Unpaid"
	StatusPaid   = "Paid"

	WarningMissingBank = "missing_bank_account"
	WarningNegativeNet = "negative_net"

	OutcomeGenerated           = "generated"
	OutcomeRegenerated         = "regenerated"
	OutcomeSkippedDuplicate    = "skipped_duplicate"
	OutcomeIncompleteStructure = "incomplete_structure"
	OutcomeFailed              = "failed"

	DefaultPFRate = "0.12"
)
