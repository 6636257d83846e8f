package mailer

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/eRom/health-sub001/internal/models"
)

type emailCopy struct {
	resetSubject  string
	resetBody     string
	resetAction   string
	resetFooter   string
	inviteSubject string
	inviteBody    string
	inviteAction  string
	inviteFooter  string
}

var copies = map[models.Locale]emailCopy{
	models.LocaleFR: {
		resetSubject:  "Réinitialisation de votre mot de passe",
		resetBody:     "Vous avez demandé la réinitialisation de votre mot de passe.",
		resetAction:   "Choisir un nouveau mot de passe",
		resetFooter:   "Ce lien expire dans une heure. Si vous n'êtes pas à l'origine de cette demande, ignorez cet email.",
		inviteSubject: "Invitation de votre professionnel de santé",
		inviteBody:    "%s vous invite à rejoindre son suivi de rééducation.",
		inviteAction:  "Voir l'invitation",
		inviteFooter:  "Cette invitation expire dans 7 jours.",
	},
	models.LocaleEN: {
		resetSubject:  "Reset your password",
		resetBody:     "You asked to reset your password.",
		resetAction:   "Choose a new password",
		resetFooter:   "This link expires in one hour. If you did not request it, ignore this email.",
		inviteSubject: "Invitation from your healthcare provider",
		inviteBody:    "%s invited you to join their rehabilitation follow-up.",
		inviteAction:  "View invitation",
		inviteFooter:  "This invitation expires in 7 days.",
	},
}

func copyFor(l models.Locale) emailCopy {
	if c, ok := copies[l]; ok {
		return c
	}
	return copies[models.LocaleFR]
}

// actionEmail renders a single call-to-action email.
func actionEmail(body, action, url, footer string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<!DOCTYPE html><html><body style="font-family:sans-serif;color:#1f2937">`+
			`<p>`+templ.EscapeString(body)+`</p>`+
			`<p><a href="`+templ.EscapeString(url)+`" style="display:inline-block;padding:10px 16px;background:#0f766e;color:#fff;border-radius:6px;text-decoration:none">`+
			templ.EscapeString(action)+`</a></p>`+
			`<p style="font-size:12px;color:#6b7280">`+templ.EscapeString(footer)+`</p>`+
			`</body></html>`)
		return err
	})
}
