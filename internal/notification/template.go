package notification

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

// Template names that bypass the generic per-channel fan-out. These events
// have richer, business-specific rendering needs than the generic path
// supports, so the dispatcher sends them through a fixed channel set.
const (
	TemplateOwnerAccountApproved   = "owner-account-approved"
	TemplatePickupReminder         = "pickup-reminder"
	TemplateReturnReminder         = "return-reminder"
	TemplateDepositRefundProcessed = "deposit-refund-processed"
)

// Convenience templates used by the synchronous senders.
const (
	TemplateVerificationCode    = "verification-code"
	TemplateBookingConfirmation = "booking-confirmation"
	TemplatePasswordReset       = "password-reset"
)

// templateSpec pairs a subject and body template with the channels a
// shortcut delivery uses.
type templateSpec struct {
	subject  string
	body     string
	shortcut bool
	channels []Channel
}

var templateSpecs = map[string]templateSpec{
	TemplateOwnerAccountApproved: {
		subject:  "Your owner account has been approved",
		body:     "Hi {{.owner_name}},\n\nGood news: your owner account has been reviewed and approved. You can now list vehicles and accept bookings.\n\nWelcome aboard!",
		shortcut: true,
		channels: []Channel{ChannelEmail},
	},
	TemplatePickupReminder: {
		subject:  "Pickup reminder: {{.vehicle_name}}",
		body:     "Hi {{.renter_name}},\n\nThis is a reminder that your rental of {{.vehicle_name}} starts at {{.pickup_time}}.\nPickup location: {{.location}}.\n\nSafe travels!",
		shortcut: true,
		channels: []Channel{ChannelEmail, ChannelChatMessaging},
	},
	TemplateReturnReminder: {
		subject:  "Return reminder: {{.vehicle_name}}",
		body:     "Hi {{.renter_name}},\n\nYour rental of {{.vehicle_name}} ends at {{.return_time}}.\nReturn location: {{.location}}.\n\nThanks for renting with us!",
		shortcut: true,
		channels: []Channel{ChannelEmail, ChannelChatMessaging},
	},
	TemplateDepositRefundProcessed: {
		subject:  "Your deposit refund is on its way",
		body:     "Hi {{.renter_name}},\n\nWe have processed the deposit refund of {{.amount}} for booking {{.booking_ref}}. Depending on your bank it can take a few business days to arrive.",
		shortcut: true,
		channels: []Channel{ChannelEmail},
	},
	TemplateVerificationCode: {
		subject: "Your verification code",
		body:    "Hi,\n\nYour verification code is {{.code}}. It expires in 15 minutes.\n\nIf you did not request this code you can ignore this message.",
	},
	TemplateBookingConfirmation: {
		subject: "Booking confirmed: {{.vehicle_name}}",
		body:    "Hi {{.renter_name}},\n\nYour booking {{.booking_ref}} for {{.vehicle_name}} is confirmed.\nPickup: {{.pickup_time}} at {{.location}}.\n\nYour booking summary is attached.",
	},
	TemplatePasswordReset: {
		subject: "Reset your password",
		body:    "Hi,\n\nWe received a request to reset your password. Use the link below to choose a new one:\n\n{{.reset_link}}\n\nIf you did not request a reset you can ignore this message.",
	},
}

// TemplateRegistry renders the named message templates.
type TemplateRegistry struct {
	parsed map[string]*parsedTemplate
}

type parsedTemplate struct {
	subject *texttemplate.Template
	body    *texttemplate.Template
	spec    templateSpec
}

// NewTemplateRegistry parses all known templates.
func NewTemplateRegistry() *TemplateRegistry {
	r := &TemplateRegistry{parsed: make(map[string]*parsedTemplate, len(templateSpecs))}
	for name, spec := range templateSpecs {
		r.parsed[name] = &parsedTemplate{
			subject: texttemplate.Must(texttemplate.New(name + ".subject").
				Option("missingkey=zero").Parse(spec.subject)),
			body: texttemplate.Must(texttemplate.New(name + ".body").
				Option("missingkey=zero").Parse(spec.body)),
			spec: spec,
		}
	}
	return r
}

// IsShortcut reports whether the named template bypasses the generic
// per-channel fan-out.
func (r *TemplateRegistry) IsShortcut(name string) bool {
	t, ok := r.parsed[name]
	return ok && t.spec.shortcut
}

// ShortcutChannels returns the fixed channel set a shortcut template is
// delivered through.
func (r *TemplateRegistry) ShortcutChannels(name string) []Channel {
	if t, ok := r.parsed[name]; ok {
		return t.spec.channels
	}
	return nil
}

// Render produces the subject and body for the named template using the given
// placeholder values. Missing placeholders render empty.
func (r *TemplateRegistry) Render(name string, data map[string]string) (subject, body string, err error) {
	t, ok := r.parsed[name]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", name)
	}
	if data == nil {
		data = map[string]string{}
	}

	var subjBuf, bodyBuf bytes.Buffer
	if err := t.subject.Execute(&subjBuf, data); err != nil {
		return "", "", fmt.Errorf("rendering subject for %q: %w", name, err)
	}
	if err := t.body.Execute(&bodyBuf, data); err != nil {
		return "", "", fmt.Errorf("rendering body for %q: %w", name, err)
	}
	return subjBuf.String(), bodyBuf.String(), nil
}

// emailTmpl is the HTML wrapper applied to every outgoing email.
// {{.Subject}} and {{.Body}} are auto-escaped by html/template.
var emailTmpl = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width,initial-scale=1.0">
  <title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:0;background-color:#f4f4f5;
     font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Arial,sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" role="presentation"
         style="background-color:#f4f4f5;padding:40px 16px;">
    <tr>
      <td align="center">
        <table width="600" cellpadding="0" cellspacing="0" role="presentation"
               style="max-width:600px;width:100%;">
          <tr>
            <td style="background-color:#0b3d2e;padding:28px 40px;border-radius:12px 12px 0 0;">
              <span style="font-size:20px;font-weight:700;color:#ffffff;letter-spacing:-0.3px;">Rentaro</span>
              <span style="display:block;font-size:11px;color:#9ca3af;margin-top:1px;letter-spacing:0.3px;">
                Rental Marketplace
              </span>
            </td>
          </tr>
          <tr>
            <td style="background-color:#11493a;padding:16px 40px;border-left:3px solid #34d399;">
              <p style="margin:0;font-size:15px;font-weight:600;color:#e5e7eb;">{{.Subject}}</p>
            </td>
          </tr>
          <tr>
            <td style="background-color:#ffffff;padding:36px 40px;">
              <div style="font-size:14px;line-height:1.7;color:#374151;
                          white-space:pre-wrap;word-break:break-word;">{{.Body}}</div>
            </td>
          </tr>
          <tr>
            <td style="background-color:#f9fafb;padding:20px 40px;
                       border-top:1px solid #e5e7eb;border-radius:0 0 12px 12px;">
              <p style="margin:0;font-size:12px;color:#9ca3af;">
                Automated notification from Rentaro. Manage your notification
                preferences in your account settings.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`))

// buildEmailHTML renders the HTML email wrapper with the given subject and body.
func buildEmailHTML(subject, body string) (string, error) {
	var buf bytes.Buffer
	err := emailTmpl.Execute(&buf, struct{ Subject, Body string }{subject, body})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// NewEmailMessage builds a Message with the standard HTML alternative.
func NewEmailMessage(to, subject, body string) Message {
	msg := Message{Subject: subject, Body: body, To: []string{to}}
	if html, err := buildEmailHTML(subject, body); err == nil {
		msg.HTML = html
	}
	return msg
}
