package ctxutil

import "context"

type (
	traceKey   struct{}
	requestKey struct{}
)

// TraceData ties a request to its OTel trace and the caller's request id.
type TraceData struct {
	TraceID   string
	RequestID string
}

// RequestData carries the authenticated caller.
type RequestData struct {
	Subject string
	Admin   bool
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	td, _ := ctx.Value(traceKey{}).(*TraceData)
	return td
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	rd, _ := ctx.Value(requestKey{}).(*RequestData)
	return rd
}

// LogFields returns the key/value pairs of whatever is attached to ctx.
func LogFields(ctx context.Context) []interface{} {
	var out []interface{}
	if td := GetTraceData(ctx); td != nil {
		out = append(out, "trace_id", td.TraceID, "request_id", td.RequestID)
	}
	if rd := GetRequestData(ctx); rd != nil && rd.Subject != "" {
		out = append(out, "subject", rd.Subject)
	}
	return out
}
