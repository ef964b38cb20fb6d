package engine

import "github.com/m3rciful/trashbot/internal/menu"

// EventKind distinguishes the three inbound payload shapes.
type EventKind string

const (
	KindText   EventKind = "text"
	KindPhoto  EventKind = "photo"
	KindButton EventKind = "button"
)

// Identity is the sender snapshot carried on every inbound event.
type Identity struct {
	Username  string
	FirstName string
	LastName  string
}

// Event is one normalized inbound update. Exactly one of Text, PhotoRef,
// or Token is meaningful, per Kind.
type Event struct {
	UserID   int64
	ChatID   int64
	From     Identity
	Kind     EventKind
	Text     string
	PhotoRef string
	Token    string
}

// Action is one outbound effect produced by a transition.
type Action interface{ isAction() }

// SendText delivers a message, optionally with selectable options.
type SendText struct {
	ChatID int64
	Text   string
	Markup *menu.Markup
}

// SendPhoto delivers a stored photo reference with an optional caption.
type SendPhoto struct {
	ChatID   int64
	PhotoRef string
	Caption  string
}

// Toast acknowledges the triggering button press with optional text.
type Toast struct {
	Text string
}

func (SendText) isAction()  {}
func (SendPhoto) isAction() {}
func (Toast) isAction()     {}
