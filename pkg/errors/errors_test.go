package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestMetadataForDomainCodes(t *testing.T) {
	cases := []struct {
		code   Code
		status int
	}{
		{CodeEmptyCart, http.StatusBadRequest},
		{CodeInsufficientStock, http.StatusConflict},
		{CodeNoValidItems, http.StatusBadRequest},
		{CodeInvalidSignature, http.StatusBadRequest},
		{CodeAmountMismatch, http.StatusBadRequest},
		{CodeNotCancellable, http.StatusUnprocessableEntity},
		{CodePaymentImmutable, http.StatusConflict},
		{CodeDuplicatePayment, http.StatusConflict},
	}
	for _, tc := range cases {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Fatalf("code %s: expected status %d, got %d", tc.code, tc.status, got)
		}
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NOT_A_CODE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("row locked")
	err := Wrap(CodeDependency, cause, "reserve stock")
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be discoverable via errors.Is")
	}
	if typed := As(err); typed == nil || typed.Code() != CodeDependency {
		t.Fatalf("unexpected typed error: %v", err)
	}
}

func TestHasCode(t *testing.T) {
	err := New(CodeInsufficientStock, "apples: requested 10, available 5")
	if !HasCode(err, CodeInsufficientStock) {
		t.Fatal("expected HasCode to match")
	}
	if HasCode(err, CodeEmptyCart) {
		t.Fatal("expected HasCode to reject other codes")
	}
	if HasCode(errors.New("plain"), CodeEmptyCart) {
		t.Fatal("expected HasCode to reject untyped errors")
	}
}
