package obi

// Stable verification error vocabulary surfaced to API clients
const (
	CodeFetchHTTPNode         = "FETCH_HTTP_NODE"
	CodeVerifyRecipient       = "VERIFY_RECIPIENT_IDENTIFIER"
	CodeVerifySignature       = "VERIFY_SIGNATURE"
	CodeAssertionRevoked      = "ASSERTION_REVOKED"
	CodeAssertionNotFound     = "ASSERTION_NOT_FOUND"
	CodeAssertionExpired      = "ASSERTION_EXPIRED"
	CodeRecipientVerification = "RECIPIENT_VERIFICATION"
	CodeUnableToVerify        = "UNABLE_TO_VERIFY"
)

var codeMessages = map[string]string{
	CodeFetchHTTPNode:         "Unable to reach URL",
	CodeVerifyRecipient:       "The recipient does not match any of your verified emails",
	CodeVerifySignature:       "Could not verify signature",
	CodeAssertionRevoked:      "This assertion has been revoked",
	CodeAssertionNotFound:     "Unable to find an assertion",
	CodeAssertionExpired:      "This assertion has expired",
	CodeRecipientVerification: "Recipients do not match",
	CodeUnableToVerify:        "Unable to verify the assertion",
}

// MessageFor returns the canonical text for a code, falling back to the
// UNABLE_TO_VERIFY text for unknown codes
func MessageFor(code string) string {
	if m, ok := codeMessages[code]; ok {
		return m
	}
	return codeMessages[CodeUnableToVerify]
}

// Message is one verification finding
type Message struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Report is the outcome of a verification run
type Report struct {
	Valid            bool              `json:"valid"`
	ErrorCount       int               `json:"errorCount"`
	Messages         []Message         `json:"messages"`
	RecipientProfile map[string]string `json:"recipientProfile,omitempty"`
}

// AddError appends a finding with the canonical message and flips validity
func (r *Report) AddError(code, detail string) {
	r.Messages = append(r.Messages, Message{Code: code, Message: MessageFor(code), Detail: detail})
	r.ErrorCount++
	r.Valid = false
}

// Finalize marks the report valid when no errors were recorded
func (r *Report) Finalize() {
	r.Valid = r.ErrorCount == 0
	if r.Messages == nil {
		r.Messages = []Message{}
	}
}
