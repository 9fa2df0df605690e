package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// VerifierEndpoint returns the trusted verifier address and encryption key
	VerifierEndpoint = "/verifier"
	// SessionsEndpoint is the endpoint to create and list vote sessions
	SessionsEndpoint = "/sessions"
	// SessionURLParam is the URL parameter holding the session id
	SessionURLParam = "sessionId"
	// SessionEndpoint is the endpoint to get the session info
	SessionEndpoint = "/sessions/{" + SessionURLParam + "}"
	// BallotsEndpoint is the endpoint for casting an encrypted ballot
	BallotsEndpoint = SessionEndpoint + "/ballots"
	// FinalizeEndpoint triggers the finalization of an ended session
	FinalizeEndpoint = SessionEndpoint + "/finalize"
	// ResultsEndpoint returns the published results of a session
	ResultsEndpoint = SessionEndpoint + "/results"
	// CreatorURLParam is the URL parameter holding a creator address
	CreatorURLParam = "address"
	// CreatorNonceEndpoint returns the nonce the next session request of a
	// creator must carry
	CreatorNonceEndpoint = "/creators/{" + CreatorURLParam + "}/nonce"
	// EventsEndpoint returns the event log, use the "from" and "limit"
	// query parameters to page it
	EventsEndpoint = "/events"
	// EventsStreamEndpoint upgrades to a websocket streaming the event log
	// from the "from" query parameter on
	EventsStreamEndpoint = EventsEndpoint + "/stream"
	// MetricsEndpoint exposes the Prometheus metrics
	MetricsEndpoint = "/metrics"
)

// Path segments used by the client.
const (
	SessionsPath = "sessions"
	BallotsPath  = "ballots"
	FinalizePath = "finalize"
	ResultsPath  = "results"
	EventsPath   = "events"
	StreamPath   = "stream"
	VerifierPath = "verifier"
	CreatorsPath = "creators"
	NoncePath    = "nonce"
)
