package instrumentation

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. Never attach credential values.
const (
	AttrProtocol        = "oauth.protocol"
	AttrLeg             = "oauth.leg"
	AttrGrantType       = "oauth.grant_type"
	AttrAuthorizeMode   = "oauth.authorize_mode"
	AttrClientID        = "oauth.client_id"
	AttrSignatureMethod = "oauth1.signature_method"
	AttrError           = "oauth.error"
	AttrContentKind     = "content.kind"
	AttrDirection       = "content.direction"
	AttrOutcome         = "outcome"
)

// RecordError marks span as failed when err is non-nil.
func RecordError(span trace.Span, err error) {
	if err == nil || span == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanSuccess marks span as successful.
func SetSpanSuccess(span trace.Span) {
	if span == nil {
		return
	}
	span.SetStatus(codes.Ok, "")
}
