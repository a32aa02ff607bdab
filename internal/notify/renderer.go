// Package notify holds the message rendering and dispatch adapters behind the
// liveness ports. Rendering is plain text; styling and templating belong to
// the delivery provider.
package notify

import (
	"fmt"
	"strings"

	"heirloom/internal/liveness/models"
	"heirloom/internal/liveness/ports"
	"heirloom/pkg/email"
)

// PlainRenderer produces plain-text subject and body per notification kind.
// The user's custom message, when present, is appended verbatim as the final
// paragraph.
type PlainRenderer struct{}

func NewPlainRenderer() *PlainRenderer { return &PlainRenderer{} }

func (r *PlainRenderer) Render(kind models.NotificationKind, rc ports.RenderContext) (ports.RenderedMessage, error) {
	name := rc.Recipient.Name
	if name == "" {
		name = email.GreetingName(rc.Recipient.Email)
	}
	if name == "" {
		name = "there"
	}

	var subject, body string
	switch kind {
	case models.KindUpcomingReminder:
		subject = "Your check-in is coming up"
		body = fmt.Sprintf("Hi %s, your next check-in is due in %d day(s). A quick confirmation keeps your plan on schedule.", name, -rc.DaysPastDue)
	case models.KindOverdueReminder:
		subject = "Your check-in is overdue"
		body = fmt.Sprintf("Hi %s, your check-in is %d day(s) overdue. Please confirm you are well.", name, rc.DaysPastDue)
	case models.KindFamilyConcern:
		subject = "We have been unable to reach your family member"
		body = fmt.Sprintf("Hi %s, we have not received a scheduled confirmation and wanted to let you know. A wellness check may be appropriate.", name)
	case models.KindProfessionalConcern:
		subject = "Client check-in missed"
		body = fmt.Sprintf("Hello %s, a client of yours has missed their scheduled confirmation window by %d day(s).", name, rc.DaysPastDue)
	case models.KindDirectInheritanceNotice:
		subject = "An estate plan names you"
		body = fmt.Sprintf("Hi %s, you are named in an estate plan whose owner has missed scheduled confirmations.", name)
	case models.KindInheritanceTriggered:
		subject = "Estate plan release initiated"
		body = fmt.Sprintf("Hi %s, the estate plan naming you has entered its release process after repeated missed confirmations.", name)
	case models.KindProfessionalInheritanceNote:
		subject = "Client estate release initiated"
		body = fmt.Sprintf("Hello %s, a client's estate plan has entered its release process after repeated missed confirmations.", name)
	default:
		return ports.RenderedMessage{}, fmt.Errorf("unknown notification kind %q", kind)
	}

	if rc.AppendMessage != "" {
		body = body + "\n\n" + strings.TrimSpace(rc.AppendMessage)
	}
	return ports.RenderedMessage{Subject: subject, Body: body}, nil
}
