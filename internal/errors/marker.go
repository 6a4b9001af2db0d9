package errors

// Marker is the serializable form of an Error. It is embedded in result
// trees in place of a failed subtree and sent as gateway error data.
type Marker struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Marker returns the serializable form of e
func (e *Error) Marker() Marker {
	return Marker{Type: e.Type.String(), Message: e.Error()}
}

// FromMarker rebuilds an Error from its serialized form
func FromMarker(m Marker) *Error {
	t, _ := ParseErrorType(m.Type)
	return &Error{
		Type:     t,
		Severity: DefaultSeverity(t),
		Message:  m.Message,
		Context:  make(map[string]interface{}),
	}
}
