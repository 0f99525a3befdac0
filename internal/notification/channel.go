// Package notification implements the delivery side of the dispatch
// subsystem: channel senders, the ordered email provider chain, contact
// resolution and the per-job dispatcher.
package notification

import (
	"fmt"
	"strings"
)

// Channel is a closed set of delivery media. Channel values are validated at
// the job boundary; free-form strings never reach the senders.
type Channel string

const (
	ChannelInApp         Channel = "inapp"
	ChannelEmail         Channel = "email"
	ChannelChatMessaging Channel = "chat-messaging"
	ChannelSMS           Channel = "sms"
	ChannelPush          Channel = "push"
)

// ParseChannel maps a raw channel name to a Channel. Matching is
// case-insensitive and tolerates the "in-app" spelling.
func ParseChannel(raw string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "inapp", "in-app", "in_app":
		return ChannelInApp, nil
	case "email":
		return ChannelEmail, nil
	case "chat-messaging", "chat_messaging", "whatsapp":
		return ChannelChatMessaging, nil
	case "sms":
		return ChannelSMS, nil
	case "push":
		return ChannelPush, nil
	}
	return "", fmt.Errorf("unknown channel %q", raw)
}
