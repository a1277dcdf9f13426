package domain

import (
	"errors"
	"fmt"
)

// Capture errors
var (
	ErrUnsupportedDevice = errors.New("camera not supported on this device")
	ErrPermissionDenied  = errors.New("camera permission denied")
	ErrNoCameraFound     = errors.New("no camera found")
	ErrCaptureFailed     = errors.New("camera capture failed")
)

// Validation errors, detected before any network activity
var (
	ErrInvalidType = errors.New("invalid file type")
	ErrTooLarge    = errors.New("file too large")
)

// Transport errors
var (
	ErrNetwork = errors.New("network error")
	ErrTimeout = errors.New("upload timeout")
)

// Workflow errors
var (
	ErrNoAsset           = errors.New("no image selected")
	ErrInvalidTransition = errors.New("action not allowed in current state")
	ErrUploadInFlight    = errors.New("an upload is already in progress")
	ErrCaptureInProgress = errors.New("a capture is already in progress")
)

// HTTPStatusError reports a non-2xx response from the upload endpoint
type HTTPStatusError struct {
	Code   int
	Status string // status text without the code, e.g. "Internal Server Error"
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("upload failed: %d %s", e.Code, e.Status)
}

// ErrorClass is the coarse taxonomy of workflow errors
type ErrorClass string

const (
	ClassUnknown    ErrorClass = "unknown"
	ClassCapture    ErrorClass = "capture"
	ClassValidation ErrorClass = "validation"
	ClassTransport  ErrorClass = "transport"
	ClassWorkflow   ErrorClass = "workflow"
)

// Classify places err into the taxonomy using sentinels and types only
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}

	var statusErr *HTTPStatusError
	switch {
	case errors.Is(err, ErrUnsupportedDevice),
		errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrNoCameraFound),
		errors.Is(err, ErrCaptureFailed):
		return ClassCapture
	case errors.Is(err, ErrInvalidType), errors.Is(err, ErrTooLarge):
		return ClassValidation
	case errors.As(err, &statusErr), errors.Is(err, ErrNetwork), errors.Is(err, ErrTimeout):
		return ClassTransport
	case errors.Is(err, ErrNoAsset),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrUploadInFlight),
		errors.Is(err, ErrCaptureInProgress):
		return ClassWorkflow
	}
	return ClassUnknown
}

// UserMessage returns the human-readable message shown for err
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var statusErr *HTTPStatusError
	switch {
	case errors.Is(err, ErrUnsupportedDevice):
		return "Camera not supported on this device. Please select a photo from your gallery instead."
	case errors.Is(err, ErrPermissionDenied):
		return "Camera permission denied. Please allow camera access to take photos of your dog's poop for health tracking."
	case errors.Is(err, ErrNoCameraFound):
		return "No camera found on this device. Please select a photo from your gallery instead."
	case errors.Is(err, ErrCaptureFailed):
		return "Failed to access camera. Please check permissions or try selecting a photo from your gallery."
	case errors.Is(err, ErrInvalidType):
		return "Invalid file type. Please upload a JPEG, PNG, or WebP image of your dog's poop."
	case errors.Is(err, ErrTooLarge):
		return "File too large. Maximum size is 10MB for your dog's health photos."
	case errors.As(err, &statusErr):
		return fmt.Sprintf("Upload failed: %s. Don't worry, your dog's health tracking is important - please try again!", statusErr.Status)
	case errors.Is(err, ErrTimeout):
		return "Upload timeout. Please try again - your dog's health monitoring is worth the wait!"
	case errors.Is(err, ErrNetwork):
		return "Network error occurred during upload. Please check your connection and try again for your pup's health tracking."
	case errors.Is(err, ErrNoAsset):
		return "Take or select a photo first."
	case errors.Is(err, ErrUploadInFlight):
		return "Hang on, an upload is still in progress."
	case errors.Is(err, ErrCaptureInProgress):
		return "Hang on, the camera is still busy."
	}
	return "Something went wrong: " + err.Error()
}
