package web

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/eRom/health-sub001/internal/locale"
	"github.com/eRom/health-sub001/internal/middleware"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/templates/pages"
)

// LoginPage renders the login form, or skips it for signed-in users.
func (h *WebHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	loc := lang(r)
	if user(r) != nil {
		redirect(w, r, loc, "/dashboard")
		return
	}
	render(w, r, http.StatusOK, pages.LoginPage(pages.LoginPageData{
		Locale:    loc,
		Error:     locale.MessagesFor(loc).OAuthErrors[r.URL.Query().Get("error")],
		Providers: h.svc.OAuth.GetSupportedProviders(),
	}))
}

// Login handles the login form.
func (h *WebHandler) Login(w http.ResponseWriter, r *http.Request) {
	loc := lang(r)
	data := pages.LoginPageData{Locale: loc, Providers: h.svc.OAuth.GetSupportedProviders()}
	if err := r.ParseForm(); err != nil {
		data.Error = locale.MessagesFor(loc).GenericError
		render(w, r, http.StatusBadRequest, pages.LoginPage(data))
		return
	}
	data.Email = r.PostFormValue("email")

	res, err := h.svc.Auth.Login(r.Context(), data.Email, r.PostFormValue("password"), middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		var status int
		status, data.Error = h.errorMessage(r, err)
		if stderrors.Is(err, apierrors.ErrInvalidCredentials) {
			data.Error = locale.MessagesFor(loc).LoginFailed
		}
		render(w, r, status, pages.LoginPage(data))
		return
	}

	if err := h.cookies.Save(w, r, res.Token); err != nil {
		h.logger.Warn("failed to write session cookie", slog.String("error", err.Error()))
	}
	if res.User.Locale != "" {
		loc = res.User.Locale
	}
	redirect(w, r, loc, "/dashboard")
}

// Logout ends the session and returns to the login page.
func (h *WebHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.cookies.Token(r); token != "" {
		if err := h.svc.Auth.Logout(r.Context(), token); err != nil {
			h.logger.Error("logout failed", slog.String("error", err.Error()))
		}
	}
	_ = h.cookies.Clear(w, r)
	redirect(w, r, lang(r), "/auth/login")
}

// ForgotPasswordPage renders the reset request form.
func (h *WebHandler) ForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, pages.ForgotPasswordPage(pages.ForgotPasswordPageData{Locale: lang(r)}))
}

// ForgotPassword requests a reset email. The answer does not reveal whether the account exists.
func (h *WebHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	loc := lang(r)
	if err := h.svc.Reset.RequestPasswordReset(r.Context(), r.PostFormValue("email")); err != nil {
		var rl *apierrors.RateLimitError
		if stderrors.As(err, &rl) {
			middleware.RecordRateLimited("password_reset")
		}
		status, msg := h.errorMessage(r, err)
		render(w, r, status, pages.ForgotPasswordPage(pages.ForgotPasswordPageData{Locale: loc, Error: msg}))
		return
	}
	render(w, r, http.StatusOK, pages.ForgotPasswordPage(pages.ForgotPasswordPageData{
		Locale:  loc,
		Message: locale.MessagesFor(loc).ForgotSent,
	}))
}

// ResetPasswordPage checks the token from the email link before showing the form.
func (h *WebHandler) ResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	loc := lang(r)
	token := r.URL.Query().Get("token")
	if err := h.svc.Reset.ValidateResetToken(r.Context(), token); err != nil {
		status, _ := h.errorMessage(r, err)
		render(w, r, status, pages.ResetPasswordPage(pages.ResetPasswordPageData{
			Locale: loc,
			Error:  locale.MessagesFor(loc).ResetInvalid,
		}))
		return
	}
	render(w, r, http.StatusOK, pages.ResetPasswordPage(pages.ResetPasswordPageData{Locale: loc, Token: token, ShowForm: true}))
}

// ResetPassword sets the new password.
func (h *WebHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	loc := lang(r)
	token := r.PostFormValue("token")

	m := locale.MessagesFor(loc)

	err := h.svc.Reset.ResetPassword(r.Context(), token, r.PostFormValue("password"))
	switch {
	case err == nil:
		_ = h.cookies.Clear(w, r)
		render(w, r, http.StatusOK, pages.ResetPasswordPage(pages.ResetPasswordPageData{Locale: loc, Message: m.ResetDone}))
	case stderrors.Is(err, apierrors.ErrInvalidResetToken), stderrors.Is(err, apierrors.ErrResetTokenExpired):
		render(w, r, http.StatusBadRequest, pages.ResetPasswordPage(pages.ResetPasswordPageData{Locale: loc, Error: m.ResetInvalid}))
	default:
		status, msg := h.errorMessage(r, err)
		render(w, r, status, pages.ResetPasswordPage(pages.ResetPasswordPageData{
			Locale:   loc,
			Token:    token,
			Error:    msg,
			ShowForm: true,
		}))
	}
}
