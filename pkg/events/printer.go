package events

import (
	"fmt"
	"io"

	"github.com/ThreeDotsLabs/watermill/message"
)

// PrinterFunc returns a handler that writes one line per notification to w.
func PrinterFunc(w io.Writer) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}

		switch e_ := e.(type) {
		case *EventTreeUpdated:
			_, err = fmt.Fprintf(w, "[tree] version=%d nodes=%d in-flight=%d\n", e_.Version, e_.Nodes, e_.InFlight)
		case *EventStatus:
			if e_.Message == "" {
				return nil
			}
			_, err = fmt.Fprintf(w, "[%s] %s\n", e_.Kind, e_.Message)
		case *EventConversation:
			_, err = fmt.Fprintf(w, "[conversation] %s %q\n", e_.Metadata().ConversationID, e_.Title)
		}
		return err
	}
}
