package handler

import (
	"context"

	"google.golang.org/grpc"

	"github.com/rl1809/storefront/internal/core/domain"
)

const (
	CartServiceName = "storefront.cart.v1.CartService"

	addEntryMethod    = "/" + CartServiceName + "/AddEntry"
	removeEntryMethod = "/" + CartServiceName + "/RemoveEntry"
	listEntriesMethod = "/" + CartServiceName + "/ListEntries"
	clearMethod       = "/" + CartServiceName + "/Clear"
	watchMethod       = "/" + CartServiceName + "/Watch"
)

type AddEntryRequest struct {
	Entry domain.CartEntry `json:"entry"`
}

type RemoveEntryRequest struct {
	ID int64 `json:"id"`
}

type ListEntriesRequest struct{}

type ClearRequest struct{}

type WatchRequest struct{}

type CartReply struct {
	Entries []domain.CartEntry `json:"entries"`
	Removed int                `json:"removed,omitempty"`
}

type CartServiceServer interface {
	AddEntry(context.Context, *AddEntryRequest) (*CartReply, error)
	RemoveEntry(context.Context, *RemoveEntryRequest) (*CartReply, error)
	ListEntries(context.Context, *ListEntriesRequest) (*CartReply, error)
	Clear(context.Context, *ClearRequest) (*CartReply, error)
	Watch(*WatchRequest, grpc.ServerStreamingServer[CartReply]) error
}

var CartServiceDesc = grpc.ServiceDesc{
	ServiceName: CartServiceName,
	HandlerType: (*CartServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AddEntry",
			Handler: unaryHandler(addEntryMethod, func(s CartServiceServer, ctx context.Context, in *AddEntryRequest) (*CartReply, error) {
				return s.AddEntry(ctx, in)
			}),
		},
		{
			MethodName: "RemoveEntry",
			Handler: unaryHandler(removeEntryMethod, func(s CartServiceServer, ctx context.Context, in *RemoveEntryRequest) (*CartReply, error) {
				return s.RemoveEntry(ctx, in)
			}),
		},
		{
			MethodName: "ListEntries",
			Handler: unaryHandler(listEntriesMethod, func(s CartServiceServer, ctx context.Context, in *ListEntriesRequest) (*CartReply, error) {
				return s.ListEntries(ctx, in)
			}),
		},
		{
			MethodName: "Clear",
			Handler: unaryHandler(clearMethod, func(s CartServiceServer, ctx context.Context, in *ClearRequest) (*CartReply, error) {
				return s.Clear(ctx, in)
			}),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
}

func RegisterCartServiceServer(s grpc.ServiceRegistrar, srv CartServiceServer) {
	s.RegisterService(&CartServiceDesc, srv)
}

func unaryHandler[Req any](method string, call func(CartServiceServer, context.Context, *Req) (*CartReply, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CartServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(CartServiceServer), ctx, req.(*Req))
		})
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(CartServiceServer).Watch(in, &grpc.GenericServerStream[WatchRequest, CartReply]{ServerStream: stream})
}

// CartServiceClient talks to a remote cart over the JSON codec.
type CartServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCartServiceClient(cc grpc.ClientConnInterface) *CartServiceClient {
	return &CartServiceClient{cc: cc}
}

func (c *CartServiceClient) AddEntry(ctx context.Context, entry domain.CartEntry, opts ...grpc.CallOption) (*CartReply, error) {
	out := new(CartReply)
	if err := c.cc.Invoke(ctx, addEntryMethod, &AddEntryRequest{Entry: entry}, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CartServiceClient) RemoveEntry(ctx context.Context, id int64, opts ...grpc.CallOption) (*CartReply, error) {
	out := new(CartReply)
	if err := c.cc.Invoke(ctx, removeEntryMethod, &RemoveEntryRequest{ID: id}, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CartServiceClient) ListEntries(ctx context.Context, opts ...grpc.CallOption) (*CartReply, error) {
	out := new(CartReply)
	if err := c.cc.Invoke(ctx, listEntriesMethod, &ListEntriesRequest{}, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CartServiceClient) Clear(ctx context.Context, opts ...grpc.CallOption) (*CartReply, error) {
	out := new(CartReply)
	if err := c.cc.Invoke(ctx, clearMethod, &ClearRequest{}, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// Watch opens a stream of cart snapshots. The first message is the cart as
// it stands when the stream opens.
func (c *CartServiceClient) Watch(ctx context.Context, opts ...grpc.CallOption) (grpc.ServerStreamingClient[CartReply], error) {
	stream, err := c.cc.NewStream(ctx, &CartServiceDesc.Streams[0], watchMethod, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[WatchRequest, CartReply]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(&WatchRequest{}); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
