package web

import (
	stderrors "errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/eRom/health-sub001/internal/locale"
	"github.com/eRom/health-sub001/internal/middleware"
	"github.com/eRom/health-sub001/internal/models"
	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/service"
	"github.com/eRom/health-sub001/templates/pages"
)

// ConsentPage renders the health-data consent form.
func (h *WebHandler) ConsentPage(w http.ResponseWriter, r *http.Request) {
	loc, u := lang(r), user(r)
	if u.HasConsented() {
		redirect(w, r, loc, "/dashboard")
		return
	}
	render(w, r, http.StatusOK, pages.ConsentPage(pages.ConsentPageData{Locale: loc, User: u}))
}

// GrantConsent records consent and continues to the dashboard.
func (h *WebHandler) GrantConsent(w http.ResponseWriter, r *http.Request) {
	loc, u := lang(r), user(r)
	if _, err := h.svc.Consent.GrantConsent(r.Context(), u.ID, middleware.ClientIP(r), r.UserAgent()); err != nil {
		status, msg := h.errorMessage(r, err)
		if stderrors.Is(err, apierrors.ErrConsentAlreadyGranted) {
			msg = locale.MessagesFor(loc).ConsentGranted
		}
		render(w, r, status, pages.ConsentPage(pages.ConsentPageData{Locale: loc, User: u, Error: msg}))
		return
	}
	redirect(w, r, loc, "/dashboard")
}

// ProfilePage renders the profile and preference forms.
func (h *WebHandler) ProfilePage(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, pages.ProfilePage(pages.ProfilePageData{Locale: lang(r), User: user(r)}))
}

// UpdateProfile saves the name and email.
func (h *WebHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	loc, u := lang(r), user(r)
	res := h.svc.Profile.UpdateProfile(r.Context(), u.ID, r.PostFormValue("name"), r.PostFormValue("email"))
	h.renderProfileResult(w, r, loc, u.ID, res)
}

// UpdatePreferences saves the locale and theme. A locale change moves the
// user to the profile page of the new locale.
func (h *WebHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	loc, u := lang(r), user(r)
	newLocale := models.Locale(r.PostFormValue("locale"))

	res := h.svc.Profile.UpdatePreferences(r.Context(), u.ID, newLocale, models.Theme(r.PostFormValue("theme")))
	if res.Success && newLocale != loc && locale.Supported(string(newLocale)) {
		redirect(w, r, newLocale, "/profile")
		return
	}
	h.renderProfileResult(w, r, loc, u.ID, res)
}

func (h *WebHandler) renderProfileResult(w http.ResponseWriter, r *http.Request, loc models.Locale, userID uuid.UUID, res service.Result) {
	fresh, err := h.svc.Profile.GetProfile(r.Context(), userID)
	if err != nil {
		status, msg := h.errorMessage(r, err)
		render(w, r, status, pages.ProfilePage(pages.ProfilePageData{Locale: loc, User: user(r), Error: msg}))
		return
	}
	if !res.Success {
		render(w, r, http.StatusBadRequest, pages.ProfilePage(pages.ProfilePageData{Locale: loc, User: fresh, Error: res.Error}))
		return
	}
	render(w, r, http.StatusOK, pages.ProfilePage(pages.ProfilePageData{
		Locale:  loc,
		User:    fresh,
		Message: locale.MessagesFor(loc).Saved,
	}))
}
