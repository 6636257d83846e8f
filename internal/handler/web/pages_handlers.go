package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eRom/health-sub001/internal/locale"
	"github.com/eRom/health-sub001/internal/models"
	"github.com/eRom/health-sub001/templates/pages"
)

const dashboardCompletions = 5

// SubscriptionPage shows the caller's subscription and the checkout buttons.
func (h *WebHandler) SubscriptionPage(w http.ResponseWriter, r *http.Request) {
	data := pages.SubscriptionPageData{
		Locale:  lang(r),
		User:    user(r),
		Blocked: r.URL.Query().Get("blocked") == "true",
	}

	sub, err := h.svc.Billing.GetSubscription(r.Context(), data.User.ID)
	if err != nil {
		var status int
		status, data.Error = h.errorMessage(r, err)
		render(w, r, status, pages.SubscriptionPage(data))
		return
	}
	data.Subscription = sub

	data.HasAccess, err = h.svc.Billing.HasAccess(r.Context(), data.User.ID)
	if err != nil {
		var status int
		status, data.Error = h.errorMessage(r, err)
		render(w, r, status, pages.SubscriptionPage(data))
		return
	}
	render(w, r, http.StatusOK, pages.SubscriptionPage(data))
}

// Checkout sends the caller to Stripe Checkout for the chosen plan.
func (h *WebHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	loc, u := lang(r), user(r)
	url, err := h.svc.Billing.CreateCheckoutSession(r.Context(), u, r.PostFormValue("plan"))
	if err != nil {
		status, msg := h.errorMessage(r, err)
		render(w, r, status, pages.SubscriptionPage(pages.SubscriptionPageData{Locale: loc, User: u, Error: msg}))
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// Portal sends the caller to the Stripe billing portal.
func (h *WebHandler) Portal(w http.ResponseWriter, r *http.Request) {
	loc, u := lang(r), user(r)
	returnURL := h.baseURL + locale.Path(loc, "/subscription")
	url, err := h.svc.Billing.CreatePortalSession(r.Context(), u.ID, returnURL)
	if err != nil {
		status, msg := h.errorMessage(r, err)
		render(w, r, status, pages.SubscriptionPage(pages.SubscriptionPageData{Locale: loc, User: u, Error: msg}))
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// InvitationPage shows the invitation from the email link.
func (h *WebHandler) InvitationPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, pages.InvitationPage(pages.InvitationPageData{
		Locale: lang(r),
		User:   user(r),
		Token:  r.URL.Query().Get("token"),
	}))
}

// RespondInvitation accepts or declines the invitation.
func (h *WebHandler) RespondInvitation(w http.ResponseWriter, r *http.Request) {
	loc, u := lang(r), user(r)
	token := r.PostFormValue("token")

	respond := h.svc.Association.Accept
	if r.PostFormValue("action") == "decline" {
		respond = h.svc.Association.Decline
	}

	assoc, err := respond(r.Context(), u.ID, token)
	if err != nil {
		status, msg := h.errorMessage(r, err)
		render(w, r, status, pages.InvitationPage(pages.InvitationPageData{Locale: loc, User: u, Error: msg}))
		return
	}
	render(w, r, http.StatusOK, pages.InvitationPage(pages.InvitationPageData{
		Locale:  loc,
		User:    u,
		Token:   token,
		Message: locale.MessagesFor(loc).InvitationDone[assoc.Status],
	}))
}

// Dashboard shows unread messages, pending invitations and recent exercises.
func (h *WebHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data := pages.DashboardPageData{Locale: lang(r), User: user(r)}
	u := data.User

	unread, err := h.svc.Message.UnreadCount(r.Context(), u.ID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	data.Unread = unread

	if u.Role == models.RoleUser {
		assocs, err := h.svc.Association.ListForPatient(r.Context(), u.ID)
		if err != nil {
			h.renderError(w, r, err)
			return
		}
		for _, a := range assocs {
			if a.Status == models.AssociationPending {
				data.Pending = append(data.Pending, a)
			}
		}

		completions, err := h.svc.Exercise.ListCompletions(r.Context(), u.ID)
		if err != nil {
			h.renderError(w, r, err)
			return
		}
		if len(completions) > dashboardCompletions {
			completions = completions[:dashboardCompletions]
		}
		data.Completions = completions
	}

	render(w, r, http.StatusOK, pages.DashboardPage(data))
}

// Exercises lists the catalogue. /neuro and /ortho filter by category.
func (h *WebHandler) Exercises(w http.ResponseWriter, r *http.Request) {
	loc := lang(r)
	m := locale.MessagesFor(loc)

	_, _, path := locale.FromPath(r.URL.Path)
	category := strings.TrimPrefix(path, "/")
	title := m.ExercisesTitle
	if category == "exercises" {
		category = ""
	} else {
		title = m.Categories[models.ExerciseCategory(strings.ToUpper(category))]
	}

	exercises, err := h.svc.Exercise.ListExercises(r.Context(), category)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render(w, r, http.StatusOK, pages.ExercisesPage(pages.ExercisesPageData{
		Locale:    loc,
		User:      user(r),
		Title:     title,
		Exercises: exercises,
	}))
}

// ExerciseDetail shows one exercise and the completion form.
func (h *WebHandler) ExerciseDetail(w http.ResponseWriter, r *http.Request) {
	ex, err := h.svc.Exercise.GetExercise(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render(w, r, http.StatusOK, pages.ExerciseDetailPage(pages.ExerciseDetailPageData{
		Locale:   lang(r),
		User:     user(r),
		Exercise: ex,
	}))
}

// RecordCompletion saves a completed session with its pain level.
func (h *WebHandler) RecordCompletion(w http.ResponseWriter, r *http.Request) {
	loc, u := lang(r), user(r)
	slug := chi.URLParam(r, "slug")

	ex, err := h.svc.Exercise.GetExercise(r.Context(), slug)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	data := pages.ExerciseDetailPageData{Locale: loc, User: u, Exercise: ex}

	// An unparsable value is rejected by the service range check.
	pain, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("pain_level")))
	if err != nil {
		pain = -1
	}
	if _, err := h.svc.Exercise.RecordCompletion(r.Context(), u.ID, slug, pain, r.PostFormValue("notes")); err != nil {
		var status int
		status, data.Error = h.errorMessage(r, err)
		render(w, r, status, pages.ExerciseDetailPage(data))
		return
	}
	data.Message = locale.MessagesFor(loc).CompletionSaved
	render(w, r, http.StatusOK, pages.ExerciseDetailPage(data))
}

// AdminPage shows platform statistics and the first page of users.
func (h *WebHandler) AdminPage(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Admin.Stats(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	page, err := h.svc.Admin.ListUsers(r.Context(), 1, 0, r.URL.Query().Get("search"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render(w, r, http.StatusOK, pages.AdminPage(pages.AdminPageData{
		Locale: lang(r),
		User:   user(r),
		Stats:  stats,
		Users:  page.Users,
	}))
}

func (h *WebHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := h.errorMessage(r, err)
	http.Error(w, msg, status)
}
