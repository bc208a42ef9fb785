package federation

import (
	"context"

	"fedisync/internal/model"
)

type SubscribedType string

const (
	NotSubscribed SubscribedType = "NotSubscribed"
	Pending       SubscribedType = "Pending"
	Subscribed    SubscribedType = "Subscribed"
)

// User is the normalized view of a remote account.
type User struct {
	Username string
	IsAdmin  bool
	IsBanned bool
	IsBot    bool
}

// Community is the normalized view of a remote community. ID is
// dialect-specific: a numeric id for Lemmy and Mbin, an actor URL for
// generic ActivityPub servers. LocalSubscribers is nil when the dialect
// cannot report a local subscriber count.
type Community struct {
	ID               string
	Name             string
	IsDeleted        bool
	IsRemoved        bool
	NSFW             bool
	LocalSubscribers *int64
	Subscribed       SubscribedType
	IsPublic         bool
}

type ListingType string

const (
	ListingLocal      ListingType = "Local"
	ListingSubscribed ListingType = "Subscribed"
)

type ListOptions struct {
	Type  ListingType
	Sort  string
	Page  int
	Limit int
}

// Client is the capability contract every dialect backend implements.
// Read-only dialects return ErrUnsupported from the write operations.
type Client interface {
	Host() string
	Software() model.Software
	GetUser(ctx context.Context, username string) (*User, error)
	// GetCommunity accepts a plain name for a local lookup or
	// "name@host" for a federated one.
	GetCommunity(ctx context.Context, name string) (*Community, error)
	FollowCommunity(ctx context.Context, id string, follow bool) error
	ListCommunities(ctx context.Context, opts ListOptions) ([]*Community, error)
}
