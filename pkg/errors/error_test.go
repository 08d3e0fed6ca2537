package errors_test

import (
	"errors"
	"fmt"
	"testing"

	. "printum/pkg/errors"
)

func TestErrorCode_Message(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{Success, "Success"},
		{InvalidParams, "Invalid parameters"},
		{EngineFailed, "Slicing failed"},
		{ModelFileRequired, `Model file is required (field name "model")`},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.code.Message(); got != tt.want {
				t.Errorf("Message() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorCode_IsClientError(t *testing.T) {
	if !FileTooLarge.IsClientError() || !InvalidSettings.IsClientError() {
		t.Error("upload validation codes must be client errors")
	}
	if UploadStoreFailed.IsClientError() || EngineFailed.IsClientError() || JobQueueFull.IsClientError() {
		t.Error("server-side codes must not be client errors")
	}
}

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{Success, 200},
		{InvalidParams, 400},
		{ModelFileRequired, 400},
		{UnsupportedExtension, 400},
		{FileTooLarge, 400},
		{InvalidSettings, 400},
		{UploadStoreFailed, 500},
		{EngineFailed, 500},
		{EngineLaunchFailed, 503},
		{JobQueueFull, 503},
		{EngineTimeout, 504},
		{InternalServerError, 500},
	}

	for _, tt := range tests {
		t.Run(tt.code.Message(), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.wantStatus)
			}
		})
	}
}

func TestWithMessagef(t *testing.T) {
	err := New(EngineFailed).WithMessagef("engine exited with code %d", 3)

	want := "engine exited with code 3"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
	if err.Code != EngineFailed {
		t.Errorf("Code = %v, want %v", err.Code, EngineFailed)
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("permission denied")
	wrappedErr := Wrap(originalErr, EngineLaunchFailed)

	if wrappedErr.Code != EngineLaunchFailed {
		t.Errorf("Code = %v, want %v", wrappedErr.Code, EngineLaunchFailed)
	}

	if wrappedErr.Unwrap() != originalErr {
		t.Error("Unwrap() should return original error")
	}

	if Wrap(nil, EngineFailed) != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestError_WithDetail(t *testing.T) {
	err := New(UnsupportedExtension).
		WithDetail("extension", "exe").
		WithDetail("allowed", []string{"stl"})

	if err.Details["extension"] != "exe" {
		t.Error("extension detail not set correctly")
	}
	if _, ok := err.Details["allowed"]; !ok {
		t.Error("allowed detail not set")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{
			name: "nil error",
			err:  nil,
			want: Success,
		},
		{
			name: "custom error",
			err:  New(FileTooLarge),
			want: FileTooLarge,
		},
		{
			name: "wrapped custom error",
			err:  fmt.Errorf("handler: %w", New(EngineTimeout)),
			want: EngineTimeout,
		},
		{
			name: "standard error",
			err:  errors.New("standard error"),
			want: InternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := New(JobQueueFull)

	if !Is(err, JobQueueFull) {
		t.Error("Is() should return true for matching code")
	}

	if Is(err, EngineFailed) {
		t.Error("Is() should return false for non-matching code")
	}

	if Is(nil, JobQueueFull) {
		t.Error("Is() should return false for nil error")
	}
}

func TestCommonErrorConstructors(t *testing.T) {
	t.Run("InternalError", func(t *testing.T) {
		err := InternalError(errors.New("disk full"))
		if err.Code != InternalServerError {
			t.Error("InternalError should use InternalServerError code")
		}
	})

	t.Run("InternalError without cause", func(t *testing.T) {
		err := InternalError(nil)
		if err.Code != InternalServerError || err.Err != nil {
			t.Errorf("InternalError(nil) = %+v", err)
		}
	})
}
