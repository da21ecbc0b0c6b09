package team

import (
	"context"
	"net/url"

	"github.com/teamtask/server/internal/infra/mail"
)

// Notifier tells invitees about their invite.
type Notifier interface {
	SendLoginLink(ctx context.Context, to string, team *Team) error
	SendRegistrationLink(ctx context.Context, to string, team *Team, inviteToken string) error
}

// MailNotifier sends invite links by email.
type MailNotifier struct {
	sender    mail.Sender
	clientURL string
}

// NewMailNotifier creates a notifier whose links point at clientURL.
func NewMailNotifier(sender mail.Sender, clientURL string) *MailNotifier {
	return &MailNotifier{sender: sender, clientURL: clientURL}
}

type linkData struct {
	TeamName string
	Link     string
}

// SendLoginLink tells an existing user they were added to team.
func (n *MailNotifier) SendLoginLink(ctx context.Context, to string, team *Team) error {
	return n.send(ctx, to, "You were added to "+team.Name, mail.TemplateTeamLogin, linkData{
		TeamName: team.Name,
		Link:     n.clientURL + "/login",
	})
}

// SendRegistrationLink invites a new user to register with inviteToken.
func (n *MailNotifier) SendRegistrationLink(ctx context.Context, to string, team *Team, inviteToken string) error {
	q := url.Values{}
	q.Set("inviteToken", inviteToken)
	q.Set("email", to)
	return n.send(ctx, to, "Join "+team.Name, mail.TemplateTeamRegister, linkData{
		TeamName: team.Name,
		Link:     n.clientURL + "/register?" + q.Encode(),
	})
}

func (n *MailNotifier) send(ctx context.Context, to, subject, tmpl string, data linkData) error {
	html, err := mail.Render(tmpl, data)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, &mail.Message{To: to, Subject: subject, HTML: html})
}
