package sdk

import "time"

// Role is the platform role of a user.
type Role string

const (
	RoleUser               Role = "USER"
	RoleHealthcareProvider Role = "HEALTHCARE_PROVIDER"
	RoleAdmin              Role = "ADMIN"
)

// Meta contains pagination metadata.
type Meta struct {
	Page       int   `json:"page,omitempty"`
	PerPage    int   `json:"per_page,omitempty"`
	Total      int64 `json:"total,omitempty"`
	TotalPages int   `json:"total_pages,omitempty"`
}

// User is a platform account.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Role             Role       `json:"role"`
	ConsentGrantedAt *time.Time `json:"health_data_consent_granted_at,omitempty"`
	Locale           string     `json:"locale"`
	Theme            string     `json:"theme"`
	EmailVerified    bool       `json:"email_verified"`
	OAuthProvider    *string    `json:"oauth_provider,omitempty"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Session is an authenticated session of the current user.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	IPAddress *string   `json:"ip_address,omitempty"`
	UserAgent *string   `json:"user_agent,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	Current   bool      `json:"current,omitempty"`
}

// ConsentStatus is the health-data consent state of the current user.
type ConsentStatus struct {
	Granted   bool       `json:"granted"`
	GrantedAt *time.Time `json:"granted_at,omitempty"`
}

// ConsentHistory is one recorded consent decision.
type ConsentHistory struct {
	ID          string    `json:"id"`
	ConsentType string    `json:"consent_type"`
	Granted     bool      `json:"granted"`
	CreatedAt   time.Time `json:"created_at"`
}

// Result is the outcome of a profile action.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Subscription is the billing state of the current user.
type Subscription struct {
	ID                 string     `json:"id"`
	Status             string     `json:"status"`
	PriceID            *string    `json:"price_id,omitempty"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	TrialEnd           *time.Time `json:"trial_end,omitempty"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
}

// Exercise is a rehabilitation exercise from the catalogue.
type Exercise struct {
	ID              string    `json:"id"`
	Slug            string    `json:"slug"`
	Category        string    `json:"category"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	BodyPart        string    `json:"body_part"`
	Difficulty      string    `json:"difficulty"`
	DurationSeconds int       `json:"duration_seconds"`
	VideoURL        *string   `json:"video_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Completion records a finished exercise.
type Completion struct {
	ID            string    `json:"id"`
	ExerciseID    string    `json:"exercise_id"`
	PainLevel     int       `json:"pain_level"`
	Notes         string    `json:"notes"`
	CompletedAt   time.Time `json:"completed_at"`
	ExerciseSlug  string    `json:"exercise_slug,omitempty"`
	ExerciseTitle string    `json:"exercise_title,omitempty"`
}

// PlatformStats is the admin dashboard summary.
type PlatformStats struct {
	TotalUsers            int64            `json:"total_users"`
	UsersByRole           map[string]int64 `json:"users_by_role"`
	SubscriptionsByStatus map[string]int64 `json:"subscriptions_by_status"`
	ConsentedUsers        int64            `json:"consented_users"`
	ActiveAssociations    int64            `json:"active_associations"`
	CompletionsLast30Days int64            `json:"completions_last_30_days"`
}

// UserList is one page of the admin user listing.
type UserList struct {
	Users []*User
	Meta  Meta
}
