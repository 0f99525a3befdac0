package notification_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentaro/notifyd/internal/notification"
)

func TestTemplateRegistry(t *testing.T) {
	reg := notification.NewTemplateRegistry()

	t.Run("renders placeholders", func(t *testing.T) {
		subject, body, err := reg.Render(notification.TemplatePickupReminder, map[string]string{
			"renter_name":  "Mara",
			"vehicle_name": "VW Transporter",
			"pickup_time":  "2026-09-02 09:00",
			"location":     "Depot West",
		})
		require.NoError(t, err)
		assert.Equal(t, "Pickup reminder: VW Transporter", subject)
		assert.Contains(t, body, "Hi Mara")
		assert.Contains(t, body, "Depot West")
	})

	t.Run("missing placeholders render empty", func(t *testing.T) {
		subject, body, err := reg.Render(notification.TemplatePickupReminder, nil)
		require.NoError(t, err)
		assert.Equal(t, "Pickup reminder: ", subject)
		assert.NotContains(t, body, "{{")
	})

	t.Run("unknown template is an error", func(t *testing.T) {
		_, _, err := reg.Render("no-such-template", nil)
		assert.Error(t, err)
	})

	t.Run("shortcut flags and channels", func(t *testing.T) {
		assert.True(t, reg.IsShortcut(notification.TemplateOwnerAccountApproved))
		assert.True(t, reg.IsShortcut(notification.TemplateDepositRefundProcessed))
		assert.False(t, reg.IsShortcut(notification.TemplateVerificationCode))
		assert.False(t, reg.IsShortcut(""))

		assert.Equal(t,
			[]notification.Channel{notification.ChannelEmail, notification.ChannelChatMessaging},
			reg.ShortcutChannels(notification.TemplateReturnReminder))
		assert.Equal(t,
			[]notification.Channel{notification.ChannelEmail},
			reg.ShortcutChannels(notification.TemplateOwnerAccountApproved))
	})
}

func TestNewEmailMessage(t *testing.T) {
	msg := notification.NewEmailMessage("renter@example.com", "Hello <b>", "line one\nline two")

	assert.Equal(t, []string{"renter@example.com"}, msg.To)
	assert.Equal(t, "Hello <b>", msg.Subject)
	assert.Contains(t, msg.Body, "line two")
	require.NotEmpty(t, msg.HTML)
	assert.Contains(t, msg.HTML, "Rentaro")
	assert.Contains(t, msg.HTML, "Hello &lt;b&gt;", "subject must be HTML-escaped")
}
