package constants

// RecordStatus summarizes the validation outcome of one invoice record.
type RecordStatus string

const (
	RecordStatusOK      RecordStatus = "OK"      // no hard validation errors
	RecordStatusInvalid RecordStatus = "INVALID" // returned with hard errors attached
)

// FlagThresholdUSD is the USD total above which an invoice is flagged.
const FlagThresholdUSD = 5000
