package errors

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/cristianoliveira/pixedit/internal/canvas"
	"github.com/cristianoliveira/pixedit/internal/dispatch"
	"github.com/cristianoliveira/pixedit/internal/filter"
	"github.com/cristianoliveira/pixedit/internal/history"
	"github.com/cristianoliveira/pixedit/internal/ingest"
	"github.com/cristianoliveira/pixedit/internal/session"
	"github.com/cristianoliveira/pixedit/internal/storage"
)

// Describe turns an editing error into a user-facing message and its severity.
func Describe(err error) (string, MessageType) {
	var svc *filter.ServiceError
	switch {
	case err == nil:
		return "", MessageTypeInfo
	case stderrors.Is(err, dispatch.ErrStaleResponse):
		return "filter result discarded: the image changed while it was processing", MessageTypeWarning
	case stderrors.Is(err, canvas.ErrStaleRender):
		return "display update superseded by a newer one", MessageTypeInfo
	case stderrors.Is(err, session.ErrNoImage):
		return "no image loaded; load one first", MessageTypeWarning
	case stderrors.Is(err, storage.ErrNoWorkspace):
		return "no saved workspace; load an image first", MessageTypeWarning
	case stderrors.As(err, &svc):
		return fmt.Sprintf("filter failed: %s", svc.Error()), MessageTypeError
	case stderrors.Is(err, filter.ErrService):
		return fmt.Sprintf("filter failed: %v", err), MessageTypeError
	case stderrors.Is(err, context.DeadlineExceeded):
		return "operation timed out", MessageTypeError
	case stderrors.Is(err, context.Canceled):
		return "operation canceled", MessageTypeWarning
	case stderrors.Is(err, filter.ErrUnknownFilter):
		return fmt.Sprintf("%v (list them with 'pixedit filters')", err), MessageTypeError
	case stderrors.Is(err, ingest.ErrDecode), stderrors.Is(err, ingest.ErrEmptyImage):
		return fmt.Sprintf("cannot load image: %v", err), MessageTypeError
	case stderrors.Is(err, canvas.ErrUnsupportedFormat):
		return fmt.Sprintf("%v (use png or jpeg)", err), MessageTypeError
	case stderrors.Is(err, history.ErrInvalidCursor):
		return fmt.Sprintf("saved workspace is inconsistent: %v", err), MessageTypeError
	default:
		return err.Error(), MessageTypeError
	}
}

// Report sends err to h with the severity Describe assigns. Nil errors are ignored.
func Report(h ErrorHandler, err error) {
	if err == nil {
		return
	}
	msg, kind := Describe(err)
	switch kind {
	case MessageTypeWarning:
		h.Warning(msg)
	case MessageTypeInfo:
		h.Info(msg)
	case MessageTypeSuccess:
		h.Success(msg)
	default:
		h.Error(msg)
	}
}
