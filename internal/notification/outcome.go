package notification

// OutcomeKind tags the result of a send attempt. The raw outcome string
// still travels on the wire so new vocabulary reaches the reconciler
// without code changes here.
type OutcomeKind int

const (
	KindDelivered OutcomeKind = iota
	KindFailed
	KindUnknown
)

// Outcome is the tagged result of one send attempt. Raw is the outcome
// string recorded in the attempt log and published in the status event;
// Reason carries human-readable error detail for failures.
type Outcome struct {
	Kind   OutcomeKind
	Raw    string
	Reason string
}

func Delivered(raw string) Outcome {
	return Outcome{Kind: KindDelivered, Raw: raw}
}

func Failed(raw, reason string) Outcome {
	return Outcome{Kind: KindFailed, Raw: raw, Reason: reason}
}

func (o Outcome) Success() bool {
	return o.Kind == KindDelivered
}

// Well-known outcome strings. The vocabulary is closed but extensible:
// senders may emit new strings and downstream classification still records
// them.
const (
	OutcomeSentEmail         = "sent_email"
	OutcomeSentMockEmail     = "sent_mock_email"
	OutcomeSentMockPhoneCall = "sent_mock_phone_call"
	OutcomeNoEmailAddress    = "failed_no_email_address"
	OutcomeNoPhoneNumber     = "failed_no_phone_number"
	OutcomeProviderError     = "failed_provider_error"
	OutcomeInternalError     = "failed_internal_error"
)
