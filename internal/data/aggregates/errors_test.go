package aggregates

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	domainagg "github.com/yungbote/contentline-backend/internal/domain/aggregates"
	"github.com/yungbote/contentline-backend/internal/domain/content"
	"github.com/yungbote/contentline-backend/internal/platform/locks"
	"gorm.io/gorm"
)

func TestMapError_Validation(t *testing.T) {
	err := MapError("op", ValidationError("bad input"))
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_Conflict(t *testing.T) {
	err := MapError("op", ConflictError("stale"))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_NotFound(t *testing.T) {
	err := MapError("op", gorm.ErrRecordNotFound)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_PassthroughAggregateError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeVersionPinned, "op", "pinned", errors.New("boom"))
	out := MapError("other", in)
	if out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
	wrapped := fmt.Errorf("outer: %w", in)
	if got := MapError("other", wrapped); !domainagg.IsCode(got, domainagg.CodeVersionPinned) {
		t.Fatalf("expected wrapped aggregate error to keep its code, got %q", domainagg.CodeOf(got))
	}
}

func TestMapError_LineageSentinels(t *testing.T) {
	cases := []struct {
		err  error
		code domainagg.ErrorCode
	}{
		{fmt.Errorf("%w: x", content.ErrCycle), domainagg.CodeCycleDetected},
		{fmt.Errorf("%w: x", content.ErrDepthExceeded), domainagg.CodeCycleDetected},
		{fmt.Errorf("%w: x", content.ErrMissingVersion), domainagg.CodeUnknownVersion},
		{locks.ErrContended, domainagg.CodeConcurrentFinalizeConflict},
	}
	for _, tc := range cases {
		if got := MapError("op", tc.err); !domainagg.IsCode(got, tc.code) {
			t.Fatalf("%v: want %q got %q", tc.err, tc.code, domainagg.CodeOf(got))
		}
	}
}

func TestMapError_StorageFailures(t *testing.T) {
	serialization := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	err := MapError("op", serialization)
	if !domainagg.IsCode(err, domainagg.CodeStorageFailure) || !domainagg.IsRetryable(err) {
		t.Fatalf("expected retryable storage failure, got %q retryable=%v", domainagg.CodeOf(err), domainagg.IsRetryable(err))
	}

	unique := &pgconn.PgError{Code: "23505", Message: "duplicate key value"}
	if got := MapError("op", unique); !domainagg.IsCode(got, domainagg.CodeConflict) {
		t.Fatalf("expected conflict for unique violation, got %q", domainagg.CodeOf(got))
	}
	if got := MapError("op", errors.New("UNIQUE constraint failed: content_version.code")); !domainagg.IsCode(got, domainagg.CodeConflict) {
		t.Fatalf("expected conflict for sqlite unique violation, got %q", domainagg.CodeOf(got))
	}

	if got := MapError("op", context.DeadlineExceeded); !domainagg.IsRetryable(got) {
		t.Fatalf("expected deadline to be retryable")
	}

	opaque := MapError("op", errors.New("connection reset by peer"))
	if !domainagg.IsCode(opaque, domainagg.CodeStorageFailure) || domainagg.IsRetryable(opaque) {
		t.Fatalf("expected non-retryable storage failure, got %q", domainagg.CodeOf(opaque))
	}
}
