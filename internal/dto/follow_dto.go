package dto

// FollowStatusResponse reports whether an edge exists.
type FollowStatusResponse struct {
	Following bool `json:"following"`
}

// FollowCountsResponse reports follower and following totals for a user.
type FollowCountsResponse struct {
	Username  string `json:"username"`
	Followers int64  `json:"followers"`
	Following int64  `json:"following"`
}

// WatcherCountResponse reports how many users watch a post.
type WatcherCountResponse struct {
	PostID   uint  `json:"post_id"`
	Watchers int64 `json:"watchers"`
}
