package socket

// rawCallback is the role-erased shape the engine actually stores and
// invokes at dispatch time. Client.On and Server.On each wrap their own
// role-typed Callback around this before registering it, so application
// code never sees the type assertion.
type rawCallback func(role interface{}, source string, payload []byte)

// PollCallback is invoked once per RunEvents pass, regardless of whether any
// packet arrived, for application code that needs a per-tick hook.
type PollCallback func()

// callbackRegistry holds the On/OnPoll handlers shared by Client and Server.
type callbackRegistry struct {
	handlers map[string][]rawCallback
	polls    []PollCallback
}

func newCallbackRegistry() callbackRegistry {
	return callbackRegistry{handlers: make(map[string][]rawCallback)}
}

func (c *callbackRegistry) on(event string, cb rawCallback) {
	c.handlers[event] = append(c.handlers[event], cb)
}

func (c *callbackRegistry) onPoll(cb PollCallback) {
	c.polls = append(c.polls, cb)
}

// dispatch fires every callback registered for event in registration order,
// passing the owning role (a *Client or *Server) so handlers can call
// Send/Broadcast on it without closing over an outer variable.
func (c *callbackRegistry) dispatch(role interface{}, event, source string, payload []byte) {
	for _, cb := range c.handlers[event] {
		cb(role, source, payload)
	}
}

func (c *callbackRegistry) runPolls() {
	for _, cb := range c.polls {
		cb()
	}
}
