package domain

// WorkflowState is a state of the capture-and-upload workflow
type WorkflowState int

const (
	StateEmpty WorkflowState = iota
	StateSelected
	StateUploading
	StateSucceeded
	StateFailed
)

func (s WorkflowState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateSelected:
		return "selected"
	case StateUploading:
		return "uploading"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CanSelect reports whether a new asset may be selected in this state
func (s WorkflowState) CanSelect() bool {
	return s == StateEmpty || s == StateSelected || s == StateFailed
}

// CanUpload reports whether an upload may be triggered in this state
func (s WorkflowState) CanUpload() bool {
	return s == StateSelected || s == StateFailed
}

// HasAsset reports whether an asset is held in this state
func (s WorkflowState) HasAsset() bool {
	return s != StateEmpty
}
