package domain

// ConnectorIdentity is the "who" a physical connection is opened as. It
// keys pooled connections: connections may be shared only within one
// identity.
type ConnectorIdentity interface {
	// ConnectionKey returns the pooling key for this identity.
	ConnectionKey() string
}

// SingleIdentity is the shared identity of connectors that do not
// distinguish users. All connections are interchangeable.
type SingleIdentity struct{}

func (SingleIdentity) ConnectionKey() string { return "<single>" }

// UserIdentity opens connections as one specific user.
type UserIdentity struct {
	Username string
}

func (u UserIdentity) ConnectionKey() string { return "user:" + u.Username }
