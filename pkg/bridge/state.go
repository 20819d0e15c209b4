package bridge

// State represents the bridge availability state.
type State string

const (
	// StateUnregistered is the initial state before Initialize.
	StateUnregistered State = "unregistered"

	// StateRegistering means the registration handshake is in flight.
	StateRegistering State = "registering"

	// StateActive means the peer acknowledged registration and is reachable.
	StateActive State = "active"

	// StateRegistrationFailed means registration errored or timed out.
	// Only a fresh Initialize call leaves this state.
	StateRegistrationFailed State = "registration_failed"
)

// String implements fmt.Stringer.
func (s State) String() string {
	return string(s)
}
