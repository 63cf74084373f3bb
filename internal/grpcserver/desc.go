package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceDesc registers ProfileService without generated code. Every method
// is a unary JSON call.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProfileServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetProfile", ProfileServiceServer.GetProfile),
		unary("GetProfileByEmail", ProfileServiceServer.GetProfileByEmail),
		unary("SearchProfiles", ProfileServiceServer.SearchProfiles),
		unary("UpdateProfile", ProfileServiceServer.UpdateProfile),
		unary("CreateProfile", ProfileServiceServer.CreateProfile),
		unary("CreatePost", ProfileServiceServer.CreatePost),
		unary("GetPost", ProfileServiceServer.GetPost),
		unary("ListPosts", ProfileServiceServer.ListPosts),
		unary("UpdatePost", ProfileServiceServer.UpdatePost),
		unary("DeletePost", ProfileServiceServer.DeletePost),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "profile_service.json",
}

// FullMethod returns the wire path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unary[Req, Resp any](name string, call func(ProfileServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			impl := srv.(ProfileServiceServer)
			if interceptor == nil {
				return call(impl, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(impl, ctx, req.(*Req))
			})
		},
	}
}
