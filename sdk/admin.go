package sdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// AdminService handles the admin console. The caller must hold role ADMIN.
type AdminService struct {
	client *Client
}

// ListUsersOptions filters the user listing.
type ListUsersOptions struct {
	Page    int
	PerPage int
	Search  string
}

// ListUsers returns one page of users.
//
// Example:
//
//	list, err := client.Admin.ListUsers(ctx, &sdk.ListUsersOptions{Search: "dupont"})
//	fmt.Println(list.Meta.Total)
func (s *AdminService) ListUsers(ctx context.Context, opts *ListUsersOptions) (*UserList, error) {
	q := url.Values{}
	if opts != nil {
		if opts.Page > 0 {
			q.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.PerPage > 0 {
			q.Set("per_page", strconv.Itoa(opts.PerPage))
		}
		if opts.Search != "" {
			q.Set("search", opts.Search)
		}
	}
	path := "/api/admin/users"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var users []*User
	meta, err := s.client.doRequest(ctx, http.MethodGet, path, nil, &users)
	if err != nil {
		return nil, err
	}
	list := &UserList{Users: users}
	if meta != nil {
		list.Meta = *meta
	}
	return list, nil
}

// UpdateRole changes the role of a user.
func (s *AdminService) UpdateRole(ctx context.Context, userID string, role Role) (*User, error) {
	var user User
	path := "/api/admin/users/" + url.PathEscape(userID) + "/role"
	if err := s.client.put(ctx, path, map[string]Role{"role": role}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser deletes a user and everything they own. Deleting yourself is refused.
func (s *AdminService) DeleteUser(ctx context.Context, userID string) error {
	return s.client.delete(ctx, "/api/admin/users/"+url.PathEscape(userID), nil)
}

// Stats returns the platform summary.
func (s *AdminService) Stats(ctx context.Context) (*PlatformStats, error) {
	var stats PlatformStats
	if err := s.client.get(ctx, "/api/admin/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
