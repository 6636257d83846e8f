package locale

import "github.com/eRom/health-sub001/internal/models"

// Messages holds the interface strings of one locale.
type Messages struct {
	AppName string

	LoginTitle     string
	Email          string
	Password       string
	SignIn         string
	ForgotLink     string
	OAuthWith      string
	LoginFailed    string
	OAuthErrors    map[string]string
	ForgotTitle    string
	ForgotIntro    string
	ForgotSubmit   string
	ForgotSent     string
	ForgotCooldown string

	ResetTitle   string
	NewPassword  string
	ResetSubmit  string
	ResetDone    string
	ResetInvalid string

	ConsentTitle   string
	ConsentBody    []string
	ConsentAccept  string
	ConsentGranted string

	SubscriptionTitle   string
	SubscriptionBlocked string
	SubscriptionNone    string
	SubscriptionStatus  string
	SubscriptionAccess  string
	Monthly             string
	Yearly              string
	ManageBilling       string

	InvitationTitle   string
	InvitationIntro   string
	InvitationAccept  string
	InvitationDecline string
	InvitationDone    map[models.AssociationStatus]string

	DashboardTitle string
	Welcome        string
	UnreadMessages string
	PendingInvites string
	RecentActivity string
	NoActivity     string
	PainLevel      string
	ExercisesTitle string
	Categories     map[models.ExerciseCategory]string

	BodyPart        string
	Difficulty      string
	Duration        string
	WatchVideo      string
	RecordTitle     string
	Notes           string
	RecordSubmit    string
	CompletionSaved string
	BackToList      string

	ProfileTitle   string
	Name           string
	Language       string
	Theme          string
	Save           string
	Saved          string
	AdminTitle     string
	TotalUsers     string
	ConsentedUsers string
	ActiveLinks    string
	Completions30d string
	Logout         string
	GenericError   string
}

var catalogue = map[models.Locale]Messages{
	models.LocaleFR: {
		AppName: "Rééducation",

		LoginTitle:  "Connexion",
		Email:       "Adresse email",
		Password:    "Mot de passe",
		SignIn:      "Se connecter",
		ForgotLink:  "Mot de passe oublié ?",
		OAuthWith:   "Continuer avec",
		LoginFailed: "Email ou mot de passe incorrect",
		OAuthErrors: map[string]string{
			"oauth_state":           "La connexion a expiré, veuillez réessayer",
			"oauth_denied":          "Connexion annulée",
			"oauth_failed":          "La connexion avec ce fournisseur a échoué",
			"registration_disabled": "Les inscriptions sont actuellement fermées",
		},
		ForgotTitle:    "Mot de passe oublié",
		ForgotIntro:    "Indiquez votre adresse email pour recevoir un lien de réinitialisation.",
		ForgotSubmit:   "Envoyer le lien",
		ForgotSent:     "Si un compte existe pour cette adresse, un email de réinitialisation a été envoyé.",
		ForgotCooldown: "Trop de demandes. Réessayez dans %d secondes.",

		ResetTitle:   "Nouveau mot de passe",
		NewPassword:  "Nouveau mot de passe",
		ResetSubmit:  "Mettre à jour",
		ResetDone:    "Votre mot de passe a été mis à jour. Vous pouvez vous connecter.",
		ResetInvalid: "Ce lien de réinitialisation est invalide ou a expiré.",

		ConsentTitle: "Consentement aux données de santé",
		ConsentBody: []string{
			"Vos exercices, niveaux de douleur et messages sont des données de santé.",
			"Elles sont hébergées en France et partagées uniquement avec les professionnels que vous acceptez.",
			"Vous pouvez supprimer votre compte et ces données à tout moment depuis votre profil.",
		},
		ConsentAccept:  "J'accepte",
		ConsentGranted: "Le consentement a déjà été accordé",

		SubscriptionTitle:   "Abonnement",
		SubscriptionBlocked: "Un abonnement actif est nécessaire pour accéder à cette page.",
		SubscriptionNone:    "Vous n'avez pas encore d'abonnement.",
		SubscriptionStatus:  "Statut",
		SubscriptionAccess:  "Accès",
		Monthly:             "Mensuel",
		Yearly:              "Annuel",
		ManageBilling:       "Gérer la facturation",

		InvitationTitle:   "Invitation",
		InvitationIntro:   "Un professionnel de santé vous invite à rejoindre son suivi.",
		InvitationAccept:  "Accepter",
		InvitationDecline: "Refuser",
		InvitationDone: map[models.AssociationStatus]string{
			models.AssociationAccepted: "Invitation acceptée.",
			models.AssociationDeclined: "Invitation refusée.",
		},

		DashboardTitle: "Tableau de bord",
		Welcome:        "Bonjour %s",
		UnreadMessages: "Messages non lus",
		PendingInvites: "Invitations en attente",
		RecentActivity: "Activité récente",
		NoActivity:     "Aucun exercice réalisé pour le moment.",
		PainLevel:      "Douleur",
		ExercisesTitle: "Exercices",
		Categories: map[models.ExerciseCategory]string{
			models.CategoryNeuro: "Neurologie",
			models.CategoryOrtho: "Orthopédie",
		},

		BodyPart:        "Zone travaillée",
		Difficulty:      "Difficulté",
		Duration:        "%d min",
		WatchVideo:      "Voir la vidéo",
		RecordTitle:     "Noter une séance",
		Notes:           "Remarques",
		RecordSubmit:    "Enregistrer la séance",
		CompletionSaved: "Séance enregistrée",
		BackToList:      "Tous les exercices",

		ProfileTitle:   "Profil",
		Name:           "Nom",
		Language:       "Langue",
		Theme:          "Thème",
		Save:           "Enregistrer",
		Saved:          "Modifications enregistrées",
		AdminTitle:     "Administration",
		TotalUsers:     "Utilisateurs",
		ConsentedUsers: "Consentements",
		ActiveLinks:    "Suivis actifs",
		Completions30d: "Exercices (30 jours)",
		Logout:         "Déconnexion",
		GenericError:   "Une erreur est survenue, veuillez réessayer",
	},
	models.LocaleEN: {
		AppName: "Rehab",

		LoginTitle:  "Sign in",
		Email:       "Email address",
		Password:    "Password",
		SignIn:      "Sign in",
		ForgotLink:  "Forgot your password?",
		OAuthWith:   "Continue with",
		LoginFailed: "Invalid email or password",
		OAuthErrors: map[string]string{
			"oauth_state":           "The sign-in expired, please try again",
			"oauth_denied":          "Sign-in cancelled",
			"oauth_failed":          "Sign-in with this provider failed",
			"registration_disabled": "Registration is currently closed",
		},
		ForgotTitle:    "Forgot password",
		ForgotIntro:    "Enter your email address to receive a reset link.",
		ForgotSubmit:   "Send link",
		ForgotSent:     "If an account exists for this address, a reset email has been sent.",
		ForgotCooldown: "Too many requests. Try again in %d seconds.",

		ResetTitle:   "New password",
		NewPassword:  "New password",
		ResetSubmit:  "Update",
		ResetDone:    "Your password has been updated. You can now sign in.",
		ResetInvalid: "This reset link is invalid or has expired.",

		ConsentTitle: "Health data consent",
		ConsentBody: []string{
			"Your exercises, pain levels and messages are health data.",
			"They are hosted in France and shared only with the providers you accept.",
			"You can delete your account and this data at any time from your profile.",
		},
		ConsentAccept:  "I agree",
		ConsentGranted: "Consent has already been granted",

		SubscriptionTitle:   "Subscription",
		SubscriptionBlocked: "An active subscription is required to open this page.",
		SubscriptionNone:    "You do not have a subscription yet.",
		SubscriptionStatus:  "Status",
		SubscriptionAccess:  "Access",
		Monthly:             "Monthly",
		Yearly:              "Yearly",
		ManageBilling:       "Manage billing",

		InvitationTitle:   "Invitation",
		InvitationIntro:   "A healthcare provider invited you to join their follow-up.",
		InvitationAccept:  "Accept",
		InvitationDecline: "Decline",
		InvitationDone: map[models.AssociationStatus]string{
			models.AssociationAccepted: "Invitation accepted.",
			models.AssociationDeclined: "Invitation declined.",
		},

		DashboardTitle: "Dashboard",
		Welcome:        "Hello %s",
		UnreadMessages: "Unread messages",
		PendingInvites: "Pending invitations",
		RecentActivity: "Recent activity",
		NoActivity:     "No exercise completed yet.",
		PainLevel:      "Pain",
		ExercisesTitle: "Exercises",
		Categories: map[models.ExerciseCategory]string{
			models.CategoryNeuro: "Neurology",
			models.CategoryOrtho: "Orthopedics",
		},

		BodyPart:        "Body part",
		Difficulty:      "Difficulty",
		Duration:        "%d min",
		WatchVideo:      "Watch the video",
		RecordTitle:     "Log a session",
		Notes:           "Notes",
		RecordSubmit:    "Save session",
		CompletionSaved: "Session saved",
		BackToList:      "All exercises",

		ProfileTitle:   "Profile",
		Name:           "Name",
		Language:       "Language",
		Theme:          "Theme",
		Save:           "Save",
		Saved:          "Changes saved",
		AdminTitle:     "Administration",
		TotalUsers:     "Users",
		ConsentedUsers: "Consents",
		ActiveLinks:    "Active follow-ups",
		Completions30d: "Exercises (30 days)",
		Logout:         "Sign out",
		GenericError:   "Something went wrong, please try again",
	},
}

// MessagesFor returns the strings of l, falling back to the default locale.
func MessagesFor(l models.Locale) Messages {
	if m, ok := catalogue[l]; ok {
		return m
	}
	return catalogue[Default]
}
