package errors

import "net/http"

// Sentinels for errors.Is comparisons. Matching is by code.
var (
	ErrNothingToSubmit = &AppError{
		Code: ErrCodeNothingToSubmit, Message: "Nothing to submit yet.",
		HTTPStatus: http.StatusUnprocessableEntity,
	}
	ErrInProgress = &AppError{
		Code: ErrCodeInProgress, Message: "A response is already being generated.",
		HTTPStatus: http.StatusConflict,
	}
)

// DevicePermissionDenied creates the fatal error for refused microphone access.
func DevicePermissionDenied(cause error) *AppError {
	return &AppError{
		Code: ErrCodeDevicePermissionDenied, Message: "Microphone access was denied.",
		HTTPStatus: http.StatusForbidden, Cause: cause,
	}
}

// DeviceUnavailable creates the fatal error for a missing or busy input device.
func DeviceUnavailable(cause error) *AppError {
	return &AppError{
		Code: ErrCodeDeviceUnavailable, Message: "No microphone is available.",
		HTTPStatus: http.StatusServiceUnavailable, Cause: cause,
	}
}

// RecognitionNetwork creates the recoverable error for a dropped engine connection.
func RecognitionNetwork(cause error) *AppError {
	return &AppError{
		Code: ErrCodeRecognitionNetwork, Message: "Speech recognition lost its connection.",
		HTTPStatus: http.StatusBadGateway, Retryable: true, Cause: cause,
	}
}

// RecognitionNoSpeech creates the recoverable error raised when no speech was heard.
func RecognitionNoSpeech() *AppError {
	return &AppError{
		Code: ErrCodeRecognitionNoSpeech, Message: "No speech detected.",
		HTTPStatus: http.StatusOK, Retryable: true,
	}
}

// RecognitionAborted creates the recoverable error for an aborted engine session.
func RecognitionAborted(cause error) *AppError {
	return &AppError{
		Code: ErrCodeRecognitionAborted, Message: "Speech recognition was interrupted.",
		HTTPStatus: http.StatusOK, Retryable: true, Cause: cause,
	}
}

// RecognitionFailed creates the recoverable error for any other engine failure.
func RecognitionFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeRecognitionFailed, Message: "Speech recognition failed.",
		HTTPStatus: http.StatusBadGateway, Retryable: true, Cause: cause,
	}
}

// IsDeviceError reports whether err is fatal to capture.
func IsDeviceError(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && IsDeviceCode(appErr.Code)
}

// IsNetworkError reports whether err is a transport-level connection failure.
func IsNetworkError(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeConnectionFailed || code == ErrCodeRecognitionNetwork
}
