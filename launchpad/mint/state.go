package mint

import "fmt"

// Step is a state of the mint protocol.
type Step string

const (
	StepIdle              Step = "idle"
	StepReserving         Step = "reserving"
	StepBuilding          Step = "building"
	StepAwaitingSignature Step = "awaitingSignature"
	StepBroadcasting      Step = "broadcasting"
	StepConfirming        Step = "confirming"
	StepSuccess           Step = "success"
	StepFailed            Step = "failed"
)

// Terminal reports whether the step ends a mint attempt.
func (s Step) Terminal() bool {
	return s == StepIdle || s == StepSuccess || s == StepFailed
}

// Status strings shown while a network step is running.
const (
	StatusReserving    = "Reserving…"
	StatusBuilding     = "Building mint transaction…"
	StatusApprove      = "Please approve the transaction in your wallet…"
	StatusSending      = "Sending transaction…"
	StatusConfirming   = "Transaction sent! Confirming…"
	statusMinted       = "Mint successful! %d ordinal(s) minted"
	statusStillPending = "Transaction sent! It may still be confirming. Signature: %s"
)

// State is everything the orchestrator owns about one mint attempt.
type State struct {
	Step      Step
	Status    string
	Error     string
	Quantity  int
	ItemIDs   []string
	NFTMint   string
	Signature string
	Confirmed bool
	Minted    int
}

// InitialState is idle with a quantity of one.
func InitialState() State {
	return State{Step: StepIdle, Quantity: 1}
}

// EventKind names a protocol event.
type EventKind int

const (
	EventSetQuantity EventKind = iota
	EventReserve
	EventReserved
	EventBuild
	EventBuilt
	EventSigned
	EventBroadcast
	EventConfirmed
	EventUnconfirmed
	EventFail
	EventReset
)

// Event drives Transition. Only the fields relevant to Kind are read.
type Event struct {
	Kind      EventKind
	Quantity  int
	ItemIDs   []string
	NFTMint   string
	Signature string
	Message   string
}

// Transition is the pure state machine. Events that do not apply to the
// current step leave the state unchanged.
func Transition(s State, ev Event) State {
	switch ev.Kind {
	case EventSetQuantity:
		if !s.Step.Terminal() {
			return s
		}
		s.Quantity = max(1, ev.Quantity)
		return s

	case EventReserve:
		if !s.Step.Terminal() {
			return s
		}
		return State{
			Step:     StepReserving,
			Status:   StatusReserving,
			Quantity: ev.Quantity,
		}

	case EventReserved:
		if s.Step != StepReserving {
			return s
		}
		s.Step = StepBuilding
		s.Status = StatusBuilding
		s.ItemIDs = append([]string(nil), ev.ItemIDs...)
		return s

	case EventBuild:
		if !s.Step.Terminal() {
			return s
		}
		return State{
			Step:     StepBuilding,
			Status:   StatusBuilding,
			Quantity: len(ev.ItemIDs),
			ItemIDs:  append([]string(nil), ev.ItemIDs...),
		}

	case EventBuilt:
		if s.Step != StepBuilding {
			return s
		}
		s.Step = StepAwaitingSignature
		s.Status = StatusApprove
		s.NFTMint = ev.NFTMint
		return s

	case EventSigned:
		if s.Step != StepAwaitingSignature {
			return s
		}
		s.Step = StepBroadcasting
		s.Status = StatusSending
		return s

	case EventBroadcast:
		if s.Step != StepBroadcasting {
			return s
		}
		s.Step = StepConfirming
		s.Status = StatusConfirming
		s.Signature = ev.Signature
		return s

	case EventConfirmed, EventUnconfirmed:
		if s.Step != StepConfirming {
			return s
		}
		s.Step = StepSuccess
		s.Minted = s.Quantity
		s.Confirmed = ev.Kind == EventConfirmed
		if s.Confirmed {
			s.Status = fmt.Sprintf(statusMinted, s.Minted)
		} else {
			s.Status = fmt.Sprintf(statusStillPending, s.Signature)
		}
		s.Quantity = 1
		s.ItemIDs = nil
		return s

	case EventFail:
		if s.Step.Terminal() {
			// a new attempt refused before it started
			return State{Step: StepFailed, Error: ev.Message, Quantity: max(1, s.Quantity)}
		}
		s.Step = StepFailed
		s.Status = ""
		s.Error = ev.Message
		return s

	case EventReset:
		if !s.Step.Terminal() {
			return s
		}
		q := s.Quantity
		s = InitialState()
		s.Quantity = max(1, q)
		return s
	}
	return s
}
