package model

// ClassificationRequest asks the backend to map a conversation plus
// environment context onto suggested case fields.
type ClassificationRequest struct {
	ChatHistory string     `json:"chatHistory"`
	EnvProducts ProductMap `json:"envProducts"`
	Region      string     `json:"region"`
	Tier        string     `json:"tier"`

	// ConversationID links the classification to its conversation in the
	// audit stream. Optional.
	ConversationID string `json:"conversationId,omitempty"`
}

// CaseInfo holds the pre-filled fields for a support case form.
type CaseInfo struct {
	Subject        string `json:"subject,omitempty"`
	ProductName    string `json:"productName"`
	ProductVersion string `json:"productVersion"`
	Environment    string `json:"environment"`
	Description    string `json:"description"`
}

// Classification is the result of the case classification step.
type Classification struct {
	IssueType     string   `json:"issueType"`
	SeverityLevel string   `json:"severityLevel"`
	CaseInfo      CaseInfo `json:"caseInfo"`
}

// HandoffState is carried from the chat session to the case-creation
// destination. Classification is nil when the classification step was
// skipped or failed; the destination must function without it.
type HandoffState struct {
	Turns          []Turn          `json:"messages"`
	Classification *Classification `json:"classificationResponse,omitempty"`
}
