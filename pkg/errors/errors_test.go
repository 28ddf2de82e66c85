package errors

import (
	"fmt"
	"testing"
	"time"
)

func TestErrorTypes(t *testing.T) {
	tests := []struct {
		name         string
		err          *Error
		expectedType ErrorType
	}{
		{
			name:         "DNS Error",
			err:          NewDNSError("example.com", fmt.Errorf("lookup failed")),
			expectedType: ErrorTypeDNS,
		},
		{
			name:         "Connect Error",
			err:          NewConnectError("example.com", 80, fmt.Errorf("connection refused")),
			expectedType: ErrorTypeConnect,
		},
		{
			name:         "Accept Error",
			err:          NewAcceptError(fmt.Errorf("accept failed")),
			expectedType: ErrorTypeAccept,
		},
		{
			name:         "Timeout Error",
			err:          NewTimeoutError("read", 5*time.Second),
			expectedType: ErrorTypeTimeout,
		},
		{
			name:         "Protocol Error",
			err:          NewProtocolError(CodeBadStartLine, "invalid start line", fmt.Errorf("parse error")),
			expectedType: ErrorTypeProtocol,
		},
		{
			name:         "IO Error",
			err:          NewIOError("reading", fmt.Errorf("broken pipe")),
			expectedType: ErrorTypeIO,
		},
		{
			name:         "Validation Error",
			err:          NewValidationError("host cannot be empty"),
			expectedType: ErrorTypeValidation,
		},
		{
			name:         "Replacement Error",
			err:          NewReplacementError(fmt.Errorf("bad replacement")),
			expectedType: ErrorTypeReplacement,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.expectedType {
				t.Errorf("expected type %v, got %v", tt.expectedType, tt.err.Type)
			}
			if tt.err.Error() == "" {
				t.Error("error message should not be empty")
			}
			if tt.err.Timestamp.IsZero() {
				t.Error("timestamp should be set")
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := NewDNSError("example.com", cause)

	if err.Unwrap() != cause {
		t.Errorf("expected unwrapped error to be %v, got %v", cause, err.Unwrap())
	}
}

func TestErrorIs(t *testing.T) {
	err1 := NewDNSError("example.com", fmt.Errorf("lookup failed"))
	err2 := &Error{Type: ErrorTypeDNS}

	if !err1.Is(err2) {
		t.Error("errors with same type should match")
	}

	err3 := &Error{Type: ErrorTypeConnect}
	if err1.Is(err3) {
		t.Error("errors with different types should not match")
	}
}

func TestErrorIsMatchesCode(t *testing.T) {
	err1 := NewProtocolError(CodeBadStartLine, "bad start line", nil)
	sameCode := &Error{Type: ErrorTypeProtocol, Code: CodeBadStartLine}
	otherCode := &Error{Type: ErrorTypeProtocol, Code: CodeBadHeaderLine}

	if !err1.Is(sameCode) {
		t.Error("errors with the same type and code should match")
	}
	if err1.Is(otherCode) {
		t.Error("errors with the same type but different code should not match")
	}
}

func TestIsTimeoutError(t *testing.T) {
	timeoutErr := NewTimeoutError("connect", 5*time.Second)
	if !IsTimeoutError(timeoutErr) {
		t.Error("should identify timeout error")
	}

	dnsErr := NewDNSError("example.com", fmt.Errorf("lookup failed"))
	if IsTimeoutError(dnsErr) {
		t.Error("should not identify DNS error as timeout")
	}
}

func TestIsBufferFull(t *testing.T) {
	bufErr := NewBufferFullError("write")
	if !IsBufferFull(bufErr) {
		t.Error("should identify buffer-full error")
	}

	dnsErr := NewDNSError("example.com", fmt.Errorf("lookup failed"))
	if IsBufferFull(dnsErr) {
		t.Error("should not identify DNS error as buffer-full")
	}
}

func TestGetErrorType(t *testing.T) {
	err := NewValidationError("test")
	errType := GetErrorType(err)

	if errType != ErrorTypeValidation {
		t.Errorf("expected %v, got %v", ErrorTypeValidation, errType)
	}

	regularErr := fmt.Errorf("regular error")
	errType = GetErrorType(regularErr)

	if errType != "" {
		t.Errorf("expected empty type for regular error, got %v", errType)
	}
}
