// Package grpcserver implements the ProfileService gRPC server.
//
// It delegates all business logic to profile.Service and posts.Workflow and
// handles only the gRPC transport concerns: metadata extraction, error
// mapping, and request/response shapes. Messages travel as JSON (see
// CodecName); there is no generated stub.
package grpcserver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"jobmate/profile-service/internal/model"
	"jobmate/profile-service/internal/posts"
	"jobmate/profile-service/internal/profile"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "jobmate.profile.v1.ProfileService"

// Server implements ProfileServiceServer.
type Server struct {
	profiles *profile.Service
	posts    *posts.Workflow
}

// NewServer constructs a Server backed by the given services.
func NewServer(profiles *profile.Service, workflow *posts.Workflow) *Server {
	return &Server{profiles: profiles, posts: workflow}
}

// ProfileServiceServer is the contract registered under ServiceName.
type ProfileServiceServer interface {
	GetProfile(context.Context, *GetProfileRequest) (*profile.View, error)
	GetProfileByEmail(context.Context, *GetProfileByEmailRequest) (*profile.View, error)
	SearchProfiles(context.Context, *SearchProfilesRequest) (*SearchProfilesReply, error)
	UpdateProfile(context.Context, *UpdateProfileRequest) (*profile.View, error)
	CreateProfile(context.Context, *CreateProfileRequest) (*profile.View, error)
	CreatePost(context.Context, *CreatePostRequest) (*model.Post, error)
	GetPost(context.Context, *GetPostRequest) (*model.Post, error)
	ListPosts(context.Context, *ListPostsRequest) (*ListPostsReply, error)
	UpdatePost(context.Context, *UpdatePostRequest) (*model.Post, error)
	DeletePost(context.Context, *DeletePostRequest) (*DeletePostReply, error)
}

// New builds a grpc.Server with ProfileService and the standard health
// service registered, and request logging installed.
func New(impl ProfileServiceServer, log *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append(opts, grpc.ChainUnaryInterceptor(loggingInterceptor(log)))
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&ServiceDesc, impl)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

// ─── RPC implementations ──────────────────────────────────────────────────────

// GetProfile returns a profile. Only the owner sees the applicant search
// profile.
func (s *Server) GetProfile(ctx context.Context, req *GetProfileRequest) (*profile.View, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	target := req.CompanyID
	if target == "" {
		target = userID
	}
	v, err := s.profiles.Get(ctx, target)
	if err != nil {
		return nil, toGRPCError(err)
	}
	if target != userID {
		v.ApplicantSearchProfile = nil
	}
	return v, nil
}

// GetProfileByEmail looks a profile up by email, ignoring case.
func (s *Server) GetProfileByEmail(ctx context.Context, req *GetProfileByEmailRequest) (*profile.View, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	v, err := s.profiles.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, toGRPCError(err)
	}
	if v.UserID != userID {
		v.ApplicantSearchProfile = nil
	}
	return v, nil
}

// SearchProfiles matches email or company name.
func (s *Server) SearchProfiles(ctx context.Context, req *SearchProfilesRequest) (*SearchProfilesReply, error) {
	if _, err := userIDFromCtx(ctx); err != nil {
		return nil, err
	}
	found, err := s.profiles.Search(ctx, req.Term, req.Limit)
	if err != nil {
		return nil, toGRPCError(err)
	}
	for i := range found {
		found[i].ApplicantSearchProfile = nil
	}
	return &SearchProfilesReply{Profiles: found}, nil
}

// UpdateProfile patches the caller's own profile.
func (s *Server) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*profile.View, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	v, err := s.profiles.Update(ctx, userID, req.Patch)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return v, nil
}

// CreateProfile registers a FREE profile for the caller. An explicit UserID
// must match the caller.
func (s *Server) CreateProfile(ctx context.Context, req *CreateProfileRequest) (*profile.View, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	in := req.CreateInput
	if in.UserID == "" {
		in.UserID = userID
	}
	if in.UserID != userID {
		return nil, status.Error(codes.PermissionDenied, "cannot create a profile for another user")
	}
	v, err := s.profiles.Create(ctx, in)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return v, nil
}

// CreatePost stores a PENDING post and dispatches its media upload.
func (s *Server) CreatePost(ctx context.Context, req *CreatePostRequest) (*model.Post, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.posts.Create(ctx, userID, req.CreateInput)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return p, nil
}

// GetPost returns one post by id. Another company's post is NotFound until
// it is ACTIVE.
func (s *Server) GetPost(ctx context.Context, req *GetPostRequest) (*model.Post, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.posts.GetFor(ctx, userID, req.PostID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return p, nil
}

// ListPosts lists a company's posts, newest first.
func (s *Server) ListPosts(ctx context.Context, req *ListPostsRequest) (*ListPostsReply, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	target := req.CompanyID
	if target == "" {
		target = userID
	}
	filter := req.Status
	if filter == "" && req.ActiveOnly {
		filter = string(model.PostActive)
	}
	list, err := s.posts.List(ctx, userID, target, filter)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return &ListPostsReply{Posts: list}, nil
}

// UpdatePost patches the title and caption of one of the caller's posts.
func (s *Server) UpdatePost(ctx context.Context, req *UpdatePostRequest) (*model.Post, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.posts.Update(ctx, userID, req.PostID, req.UpdateInput)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return p, nil
}

// DeletePost removes one of the caller's posts.
func (s *Server) DeletePost(ctx context.Context, req *DeletePostRequest) (*DeletePostReply, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.posts.Delete(ctx, userID, req.PostID); err != nil {
		return nil, toGRPCError(err)
	}
	return &DeletePostReply{PostID: req.PostID, Deleted: true}, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// userIDFromCtx extracts the x-user-id value forwarded by the Gateway
// via gRPC metadata.
func userIDFromCtx(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("x-user-id")
	if len(vals) == 0 || vals[0] == "" {
		return "", status.Error(codes.Unauthenticated, "missing x-user-id metadata")
	}
	return vals[0], nil
}

// toGRPCError maps domain errors to gRPC status errors.
func toGRPCError(err error) error {
	var (
		ve *model.ValidationError
		de *model.DispatchError
	)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, model.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, model.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, model.ErrPremiumRequired):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, model.ErrVersionConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.As(err, &ve):
		st := status.New(codes.InvalidArgument, ve.Error())
		detailed, derr := st.WithDetails(&errdetails.BadRequest{
			FieldViolations: []*errdetails.BadRequest_FieldViolation{{
				Field:       ve.Field,
				Description: ve.Msg,
				Reason:      ve.Constraint,
			}},
		})
		if derr != nil {
			return st.Err()
		}
		return detailed.Err()
	case errors.As(err, &de):
		return status.Error(codes.Unavailable, de.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, "internal server error")
}

func loggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		started := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		level := slog.LevelDebug
		if code == codes.Internal || code == codes.Unavailable {
			level = slog.LevelError
		}
		log.Log(ctx, level, "rpc", "method", info.FullMethod, "code", code.String(), "took", time.Since(started))
		return resp, err
	}
}
