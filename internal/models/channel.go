package models

// ChannelProfile is a user viewed as a subscribable channel plus
// subscription aggregates computed at read time.
type ChannelProfile struct {
	User PublicUser

	// How many users subscribed to this channel
	SubscriberCount int64

	// How many channels this user subscribed to
	SubscribedToCount int64

	// Whether the requesting user is subscribed to this channel.
	// Always false for anonymous callers.
	IsSubscribed bool
}
