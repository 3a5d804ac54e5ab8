package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Connection/availability errors
const (
	// ErrCodeConnectionFailed indicates a failed connection to a service.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates the provider refused the request for quota reasons.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeServiceUnavailable indicates a component is not ready.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// Validation and state errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeNothingToSubmit indicates the transcript held no finalized text.
	ErrCodeNothingToSubmit ErrorCode = "NOTHING_TO_SUBMIT"
	// ErrCodeInProgress indicates a generation request is already outstanding.
	ErrCodeInProgress ErrorCode = "REQUEST_IN_PROGRESS"
)

// Authentication errors
const (
	// ErrCodeUnauthorized indicates the provider rejected the credential.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
)

// Capture device errors. Both are fatal to a capture session.
const (
	// ErrCodeDevicePermissionDenied indicates the user or OS refused microphone access.
	ErrCodeDevicePermissionDenied ErrorCode = "DEVICE_PERMISSION_DENIED"
	// ErrCodeDeviceUnavailable indicates no usable input device exists or it is busy.
	ErrCodeDeviceUnavailable ErrorCode = "DEVICE_UNAVAILABLE"
)

// Recognition engine errors. These are recoverable through a bounded restart.
const (
	// ErrCodeRecognitionNetwork indicates the engine lost its connection.
	ErrCodeRecognitionNetwork ErrorCode = "RECOGNITION_NETWORK"
	// ErrCodeRecognitionNoSpeech indicates the engine gave up waiting for speech.
	ErrCodeRecognitionNoSpeech ErrorCode = "RECOGNITION_NO_SPEECH"
	// ErrCodeRecognitionAborted indicates the engine session was aborted.
	ErrCodeRecognitionAborted ErrorCode = "RECOGNITION_ABORTED"
	// ErrCodeRecognitionFailed covers any other engine failure.
	ErrCodeRecognitionFailed ErrorCode = "RECOGNITION_FAILED"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeExternalService indicates an unclassified error from an external service.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// Only transient transport failures are retried. Quota and credential
// failures surface immediately.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeRecognitionNetwork: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

var deviceCodes = map[ErrorCode]bool{
	ErrCodeDevicePermissionDenied: true,
	ErrCodeDeviceUnavailable:      true,
}

// IsDeviceCode reports whether code is a capture device failure.
func IsDeviceCode(code ErrorCode) bool {
	return deviceCodes[code]
}
