package types

// Event represents a typed event emitted while a contract handles a message.
// Contract is the raw address of the emitting contract and is filled in by
// the ledger when the handler commits.
type Event struct {
	Type       string            `json:"type"`
	Contract   string            `json:"contract,omitempty"`
	Attributes map[string]string `json:"attributes"`
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := &Event{Type: e.Type, Contract: e.Contract, Attributes: make(map[string]string, len(e.Attributes))}
	for k, v := range e.Attributes {
		out.Attributes[k] = v
	}
	return out
}
