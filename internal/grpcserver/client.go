package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"jobmate/profile-service/internal/model"
	"jobmate/profile-service/internal/profile"
)

// Client calls ProfileService over an existing connection, acting as userID.
type Client struct {
	conn   grpc.ClientConnInterface
	userID string
}

// NewClient returns a Client that forwards userID as x-user-id.
func NewClient(conn grpc.ClientConnInterface, userID string) *Client {
	return &Client{conn: conn, userID: userID}
}

// As returns a copy of c acting as another user.
func (c *Client) As(userID string) *Client {
	return &Client{conn: c.conn, userID: userID}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any) (*Resp, error) {
	if c.userID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-user-id", c.userID)
	}
	out := new(Resp)
	if err := c.conn.Invoke(ctx, FullMethod(method), req, out, grpc.CallContentSubtype(CodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProfile(ctx context.Context, req *GetProfileRequest) (*profile.View, error) {
	return invoke[profile.View](ctx, c, "GetProfile", req)
}

func (c *Client) GetProfileByEmail(ctx context.Context, req *GetProfileByEmailRequest) (*profile.View, error) {
	return invoke[profile.View](ctx, c, "GetProfileByEmail", req)
}

func (c *Client) SearchProfiles(ctx context.Context, req *SearchProfilesRequest) (*SearchProfilesReply, error) {
	return invoke[SearchProfilesReply](ctx, c, "SearchProfiles", req)
}

func (c *Client) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*profile.View, error) {
	return invoke[profile.View](ctx, c, "UpdateProfile", req)
}

func (c *Client) CreateProfile(ctx context.Context, req *CreateProfileRequest) (*profile.View, error) {
	return invoke[profile.View](ctx, c, "CreateProfile", req)
}

func (c *Client) CreatePost(ctx context.Context, req *CreatePostRequest) (*model.Post, error) {
	return invoke[model.Post](ctx, c, "CreatePost", req)
}

func (c *Client) GetPost(ctx context.Context, req *GetPostRequest) (*model.Post, error) {
	return invoke[model.Post](ctx, c, "GetPost", req)
}

func (c *Client) ListPosts(ctx context.Context, req *ListPostsRequest) (*ListPostsReply, error) {
	return invoke[ListPostsReply](ctx, c, "ListPosts", req)
}

func (c *Client) UpdatePost(ctx context.Context, req *UpdatePostRequest) (*model.Post, error) {
	return invoke[model.Post](ctx, c, "UpdatePost", req)
}

func (c *Client) DeletePost(ctx context.Context, req *DeletePostRequest) (*DeletePostReply, error) {
	return invoke[DeletePostReply](ctx, c, "DeletePost", req)
}
