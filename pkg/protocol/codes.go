package protocol

// Wire error codes. Codes are strings on the wire and must round-trip
// exactly; clients key retry behavior off them.
const (
	CodeInvalidContext = "10001"
	CodeInvalidMessage = "10002"
	CodeStaleRequest   = "20002"
	CodeStaleTimestamp = "30022"
	CodeInternal       = "5000"
	CodePersistence    = "5001"
)

// Error types grouped by origin, mirroring the network's taxonomy.
const (
	ErrTypeContext = "CONTEXT-ERROR"
	ErrTypeSchema  = "JSON-SCHEMA-ERROR"
	ErrTypeCore    = "CORE-ERROR"
)

type codeEntry struct {
	errType string
	message string
}

// codeTable maps every code the gateway emits to a non-empty type and
// default message.
var codeTable = map[string]codeEntry{
	CodeInvalidContext: {ErrTypeContext, "Invalid context"},
	CodeInvalidMessage: {ErrTypeSchema, "Invalid message"},
	CodeStaleRequest:   {ErrTypeContext, "Invalid timestamp"},
	CodeStaleTimestamp: {ErrTypeContext, "Stale request"},
	CodeInternal:       {ErrTypeCore, "Internal error"},
	CodePersistence:    {ErrTypeCore, "Order processing failure"},
}

// LookupError resolves a code to its wire error. When the caller
// supplies a message it overrides the table default; unknown codes fall
// back to CONTEXT-ERROR with the caller message so the lookup never
// yields an empty type.
func LookupError(code, message string) Error {
	entry, ok := codeTable[code]
	if !ok {
		entry = codeEntry{ErrTypeContext, message}
	}
	msg := entry.message
	if message != "" {
		msg = message
	}
	if msg == "" {
		msg = "Invalid context"
	}
	return Error{Type: entry.errType, Code: code, Message: msg}
}

// KnownCode reports whether the code is in the fixed table.
func KnownCode(code string) bool {
	_, ok := codeTable[code]
	return ok
}
