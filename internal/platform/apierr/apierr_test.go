package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNotFound_CarriesStatusCodeAndUnwraps(t *testing.T) {
	cause := fmt.Errorf("generated item 123 not found")
	err := NotFound(CodeItemNotFound, cause)
	if err.Status != http.StatusNotFound {
		t.Fatalf("status = %d", err.Status)
	}
	if err.Code != CodeItemNotFound {
		t.Fatalf("code = %q", err.Code)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("wrapped cause lost")
	}
	if err.Error() != cause.Error() {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestError_FallsBackToCodeThenStatus(t *testing.T) {
	if got := (&Error{Code: CodeInvalidRequest}).Error(); got != CodeInvalidRequest {
		t.Fatalf("code fallback = %q", got)
	}
	if got := (&Error{Status: 500}).Error(); got != "api error (500)" {
		t.Fatalf("status fallback = %q", got)
	}
}
