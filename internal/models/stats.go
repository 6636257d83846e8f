package models

// PlatformStats is the admin dashboard summary.
type PlatformStats struct {
	TotalUsers            int64                        `json:"total_users"`
	UsersByRole           map[Role]int64               `json:"users_by_role"`
	SubscriptionsByStatus map[SubscriptionStatus]int64 `json:"subscriptions_by_status"`
	ConsentedUsers        int64                        `json:"consented_users"`
	ActiveAssociations    int64                        `json:"active_associations"`
	CompletionsLast30Days int64                        `json:"completions_last_30_days"`
}
