package protocol

// Actions supported by the gateway. Callback actions are derived by
// prefixing "on_".
const (
	ActionSearch  = "search"
	ActionSelect  = "select"
	ActionInit    = "init"
	ActionConfirm = "confirm"
	ActionUpdate  = "update"
	ActionCancel  = "cancel"
	ActionTrack   = "track"
	ActionStatus  = "status"
)

// Actions lists every inbound action in route order.
var Actions = []string{
	ActionSearch,
	ActionSelect,
	ActionInit,
	ActionConfirm,
	ActionUpdate,
	ActionCancel,
	ActionTrack,
	ActionStatus,
}

// CallbackAction returns the "on_" counterpart for an inbound action.
func CallbackAction(action string) string {
	return "on_" + action
}

// AckStatus is the synchronous acknowledgment outcome. ACK means the
// request was syntactically and contextually accepted, not that it was
// fully durably processed.
type AckStatus string

const (
	StatusAck  AckStatus = "ACK"
	StatusNack AckStatus = "NACK"
)

// Ack is the inner acknowledgment object of every response body.
type Ack struct {
	Status AckStatus `json:"status"`
}

// AckMessage wraps the Ack so the response matches the wire shape
// {"message":{"ack":{"status":...}}}.
type AckMessage struct {
	Ack Ack `json:"ack"`
}

// Error is the wire error attached to NACK responses. Code round-trips
// as a string exactly as listed in the code table.
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is the full synchronous response body. Context echoes the
// request context on accepted requests; Error is present only on NACK.
type Response struct {
	Message AckMessage `json:"message"`
	Context *Context   `json:"context,omitempty"`
	Error   *Error     `json:"error,omitempty"`
}

// NewAck builds an ACK response echoing the given context.
func NewAck(ctx Context) Response {
	return Response{
		Message: AckMessage{Ack: Ack{Status: StatusAck}},
		Context: &ctx,
	}
}

// NewNack builds a NACK response for the given code. Type and message
// come from the code table; for codes outside the table the type
// defaults to CONTEXT-ERROR and the caller-supplied message is used
// verbatim, so the mapping is total.
func NewNack(code, message string) Response {
	wireErr := LookupError(code, message)
	return Response{
		Message: AckMessage{Ack: Ack{Status: StatusNack}},
		Error:   &wireErr,
	}
}
