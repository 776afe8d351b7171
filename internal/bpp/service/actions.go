package service

import (
	"context"
	"errors"
	"net/http"

	"sellergate/internal/catalog"
	"sellergate/internal/records"
	"sellergate/pkg/platform/sentinel"
	"sellergate/pkg/protocol"
	"sellergate/pkg/requestcontext"
)

// stepResult carries what a business step decided: the primary record
// to persist (nil for status), the payload for the on_<action>
// callback (nil when no callback is sent), and whether the consistency
// fallback was applied.
type stepResult struct {
	record          *records.Record
	callbackPayload any
	degraded        bool
}

func (s *Service) businessStep(ctx context.Context, action string, pctx protocol.Context, message map[string]any) (*stepResult, *stepError) {
	switch action {
	case protocol.ActionSearch:
		return s.stepSearch(ctx, pctx, message)
	case protocol.ActionSelect:
		return s.stepSelect(pctx, message)
	case protocol.ActionInit:
		return s.stepInit(ctx, pctx, message)
	case protocol.ActionConfirm:
		return s.stepConfirm(ctx, pctx, message)
	case protocol.ActionUpdate:
		return s.stepUpdate(ctx, pctx, message)
	case protocol.ActionCancel:
		return s.stepCancel(pctx, message)
	case protocol.ActionTrack:
		return s.stepTrack(pctx, message)
	case protocol.ActionStatus:
		return s.stepStatus(ctx, pctx, message)
	default:
		return nil, &stepError{
			status:  http.StatusBadRequest,
			code:    protocol.CodeInvalidContext,
			message: "unsupported action " + action,
		}
	}
}

func (s *Service) stepSearch(ctx context.Context, pctx protocol.Context, message map[string]any) (*stepResult, *stepError) {
	query := nestedString(message, "intent", "item", "descriptor", "name")

	items, err := s.catalog.Search(ctx, catalog.Intent{Name: query})
	if err != nil {
		s.logger.ErrorContext(ctx, "catalog search failed",
			"transaction_id", pctx.TransactionID,
			"query", query,
			"error", err,
		)
		return nil, internalStepError()
	}

	return &stepResult{
		record: &records.Record{
			TransactionID: pctx.TransactionID,
			MessageID:     pctx.MessageID,
			Action:        protocol.ActionSearch,
			Context:       pctx,
			Message:       marshalMessage(message),
			Query:         query,
		},
		callbackPayload: map[string]any{
			"catalog": map[string]any{
				"bpp/descriptor": map[string]any{"name": pctx.BppID},
				"bpp/providers": []map[string]any{
					{"items": items},
				},
			},
		},
	}, nil
}

func (s *Service) stepSelect(pctx protocol.Context, message map[string]any) (*stepResult, *stepError) {
	order := nestedMap(message, "order")
	if order == nil {
		return nil, invalidMessage("order")
	}
	return &stepResult{
		record: &records.Record{
			TransactionID: pctx.TransactionID,
			MessageID:     pctx.MessageID,
			Action:        protocol.ActionSelect,
			Context:       pctx,
			Message:       marshalMessage(message),
		},
		callbackPayload: map[string]any{"order": order},
	}, nil
}

// stepInit establishes billing.created_at for the transaction. Later
// confirm/update steps must echo exactly this value, so it is fixed
// here and persisted with the record. An incoming created_at is kept;
// the request-scoped clock fills it only when absent.
func (s *Service) stepInit(ctx context.Context, pctx protocol.Context, message map[string]any) (*stepResult, *stepError) {
	order := nestedMap(message, "order")
	if order == nil {
		return nil, invalidMessage("order")
	}

	billing := toBilling(nestedMap(order, "billing"))
	if billing == nil {
		billing = records.Billing{}
	}
	if billing.CreatedAt() == "" {
		billing["created_at"] = requestcontext.Now(ctx).UTC().Format(timestampLayout)
	}
	order["billing"] = map[string]any(billing)

	return &stepResult{
		record: &records.Record{
			TransactionID: pctx.TransactionID,
			MessageID:     pctx.MessageID,
			Action:        protocol.ActionInit,
			Context:       pctx,
			Message:       marshalMessage(message),
			Billing:       billing,
		},
		callbackPayload: map[string]any{"order": order},
	}, nil
}

// stepConfirm rebinds the incoming billing to the init-time object and
// stores the diagnostic billing_matched flag. The flag never gates the
// ack.
func (s *Service) stepConfirm(ctx context.Context, pctx protocol.Context, message map[string]any) (*stepResult, *stepError) {
	order := nestedMap(message, "order")
	if order == nil {
		return nil, invalidMessage("order")
	}

	incoming := toBilling(nestedMap(order, "billing"))
	binding := s.binder.BindBilling(ctx, pctx.TransactionID, incoming)
	order["billing"] = map[string]any(binding.Billing)

	matched := binding.Matched
	return &stepResult{
		record: &records.Record{
			TransactionID:  pctx.TransactionID,
			MessageID:      pctx.MessageID,
			Action:         protocol.ActionConfirm,
			Context:        pctx,
			Message:        marshalMessage(message),
			Billing:        binding.Billing,
			BillingMatched: &matched,
			Degraded:       binding.Degraded,
		},
		callbackPayload: map[string]any{"order": order},
		degraded:        binding.Degraded,
	}, nil
}

func (s *Service) stepUpdate(ctx context.Context, pctx protocol.Context, message map[string]any) (*stepResult, *stepError) {
	order := nestedMap(message, "order")
	if order == nil {
		return nil, invalidMessage("order")
	}

	incoming := toBilling(nestedMap(order, "billing"))
	binding := s.binder.BindBilling(ctx, pctx.TransactionID, incoming)
	order["billing"] = map[string]any(binding.Billing)

	return &stepResult{
		record: &records.Record{
			TransactionID: pctx.TransactionID,
			MessageID:     pctx.MessageID,
			Action:        protocol.ActionUpdate,
			Context:       pctx,
			Message:       marshalMessage(message),
			Billing:       binding.Billing,
			Degraded:      binding.Degraded,
		},
		callbackPayload: map[string]any{"order": order},
		degraded:        binding.Degraded,
	}, nil
}

func (s *Service) stepCancel(pctx protocol.Context, message map[string]any) (*stepResult, *stepError) {
	orderID := nestedString(message, "order_id")
	if orderID == "" {
		return nil, invalidMessage("order_id")
	}
	return &stepResult{
		record: &records.Record{
			TransactionID: pctx.TransactionID,
			MessageID:     pctx.MessageID,
			Action:        protocol.ActionCancel,
			Context:       pctx,
			Message:       marshalMessage(message),
			OrderID:       orderID,
		},
		callbackPayload: map[string]any{
			"order": map[string]any{
				"id":    orderID,
				"state": "CANCELLED",
			},
		},
	}, nil
}

func (s *Service) stepTrack(pctx protocol.Context, message map[string]any) (*stepResult, *stepError) {
	orderID := nestedString(message, "order_id")
	if orderID == "" {
		return nil, invalidMessage("order_id")
	}
	return &stepResult{
		record: &records.Record{
			TransactionID: pctx.TransactionID,
			MessageID:     pctx.MessageID,
			Action:        protocol.ActionTrack,
			Context:       pctx,
			Message:       marshalMessage(message),
			OrderID:       orderID,
		},
		callbackPayload: map[string]any{
			"tracking": map[string]any{
				"status": "active",
			},
		},
	}, nil
}

// stepStatus has no primary record; it reads the explicit transaction
// state and reports the current step.
func (s *Service) stepStatus(ctx context.Context, pctx protocol.Context, message map[string]any) (*stepResult, *stepError) {
	orderID := nestedString(message, "order_id")

	state := "UNKNOWN"
	if s.states != nil {
		current, err := s.states.Get(ctx, pctx.TransactionID)
		switch {
		case err == nil:
			state = current.CurrentAction
		case !errors.Is(err, sentinel.ErrNotFound):
			s.logger.WarnContext(ctx, "transaction state lookup failed",
				"transaction_id", pctx.TransactionID,
				"error", err,
			)
		}
	}

	return &stepResult{
		callbackPayload: map[string]any{
			"order": map[string]any{
				"id":    orderID,
				"state": state,
			},
		},
	}, nil
}

func invalidMessage(field string) *stepError {
	return &stepError{
		status:  http.StatusBadRequest,
		code:    protocol.CodeInvalidMessage,
		message: fmtRequired(field),
	}
}

// nestedMap walks string keys through nested JSON objects.
func nestedMap(m map[string]any, keys ...string) map[string]any {
	current := m
	for _, key := range keys {
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

// nestedString walks to the parent object of the last key and returns
// its string value, or "".
func nestedString(m map[string]any, keys ...string) string {
	if len(keys) == 0 {
		return ""
	}
	parent := m
	if len(keys) > 1 {
		parent = nestedMap(m, keys[:len(keys)-1]...)
	}
	if parent == nil {
		return ""
	}
	s, _ := parent[keys[len(keys)-1]].(string)
	return s
}

func toBilling(m map[string]any) records.Billing {
	if m == nil {
		return nil
	}
	return records.Billing(m)
}
