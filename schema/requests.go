package schema

// Submission.

// SubmissionRequest carries the verbatim text of one notebook cell.
type SubmissionRequest struct {
	code string
}

// NewSubmissionRequest captures code at the time of submission.
func NewSubmissionRequest(code string) SubmissionRequest {
	return SubmissionRequest{code: code}
}

// Code returns the submitted cell text.
func (r SubmissionRequest) Code() string {
	return r.code
}

// Payload returns the wire form of the request.
func (r SubmissionRequest) Payload() SubmitPayload {
	return SubmitPayload{CodeContent: r.code}
}

// SubmitPayload is the JSON body of POST submit.
type SubmitPayload struct {
	CodeContent string `json:"codeContent"`
}

// SubmitResponse is the JSON body returned by POST submit.
type SubmitResponse struct {
	Result  bool    `json:"result"`
	URL     *string `json:"url,omitempty"`
	Message *string `json:"message,omitempty"`
}

// SubmissionResult is either Accepted or Rejected.
type SubmissionResult interface {
	isSubmissionResult()
	// OK reports whether the submission was accepted.
	OK() bool
}

// Accepted reports a pull request opened for the submitted code.
type Accepted struct {
	PullRequestURL string
}

// Rejected reports a failed submission. Message is nil when no explanation is available.
type Rejected struct {
	Message *string
}

func (Accepted) isSubmissionResult() {}
func (Rejected) isSubmissionResult() {}

// OK reports true.
func (Accepted) OK() bool { return true }

// OK reports false.
func (Rejected) OK() bool { return false }

// RejectedWith builds a Rejected result with a message.
func RejectedWith(message string) Rejected {
	return Rejected{Message: &message}
}

// Outcome converts a wire response into a SubmissionResult.
func (r SubmitResponse) Outcome() SubmissionResult {
	if r.Result {
		url := ""
		if r.URL != nil {
			url = *r.URL
		}
		return Accepted{PullRequestURL: url}
	}
	return Rejected{Message: r.Message}
}

// Authentication.

// AuthenticatedResponse is the JSON body returned by GET auth/authenticated.
type AuthenticatedResponse struct {
	Result  bool    `json:"result"`
	Message *string `json:"message"`
}

// StatusResponse is the JSON body returned by GET status.
type StatusResponse struct {
	Status string `json:"status"`
}

// MessageResponse is the error body shape shared by the endpoints.
type MessageResponse struct {
	Message *string `json:"message,omitempty"`
}
